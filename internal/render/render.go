// Package render defines the drawing surface scripts and the HUD draw
// through, plus the player-centred camera used to place world positions on
// screen.
package render

import (
	"fmt"

	"github.com/casualgame/engine/internal/geom"
)

// FontID is a renderer-owned font handle. Zero is invalid.
type FontID uint32

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

func RGBA(r, g, b, a uint8) Color { return Color{R: r, G: g, B: b, A: a} }

var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
)

// SpriteOptions are the optional transforms of DrawSprite. A zero scale
// means 1. Mask tints the sprite when UseMask is set.
type SpriteOptions struct {
	RotPos  geom.Vector
	ScaleX  float64
	ScaleY  float64
	UseMask bool
	Mask    Color
}

func (o SpriteOptions) Scale() (float64, float64) {
	sx, sy := o.ScaleX, o.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return sx, sy
}

// Renderer is the drawing backend. Draw calls report false when the handle
// is unknown or no frame is being drawn.
type Renderer interface {
	geom.SpriteLoader

	DrawSprite(id geom.SpriteID, pos geom.Vector, frame int, rotation float64, opts SpriteOptions) bool
	LoadFont(name string, width, height int) (FontID, error)
	DefaultFont() FontID
	DrawString(font FontID, text string, pos geom.Vector, c Color) bool
	DrawBox(pos, size geom.Vector, thickness int, c Color) bool
	DrawFilledBox(pos, size geom.Vector, c Color) bool
	DrawLine(from, to geom.Vector, c Color) bool
	WindowSize() geom.Vector
}

// FrameRect returns the source rectangle of frame within a sheet laid out
// framesPerLine frames per row.
func FrameRect(frame, frameW, frameH, framesPerLine int) geom.Rect {
	if framesPerLine <= 0 {
		framesPerLine = 1
	}
	col := frame % framesPerLine
	row := frame / framesPerLine
	return geom.Rect{Pos: geom.Vec(col*frameW, row*frameH), Size: geom.Vec(frameW, frameH)}
}

// ValidateSheet checks the frame layout arguments of LoadSprite.
func ValidateSheet(path string, frames, frameW, frameH, framesPerLine int) error {
	switch {
	case frames <= 0:
		return fmt.Errorf("sprite %s: frame count %d", path, frames)
	case frameW <= 0 || frameH <= 0:
		return fmt.Errorf("sprite %s: frame size %dx%d", path, frameW, frameH)
	case framesPerLine <= 0:
		return fmt.Errorf("sprite %s: %d frames per line", path, framesPerLine)
	}
	return nil
}
