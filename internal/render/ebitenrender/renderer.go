// Package ebitenrender draws through ebiten. Sprite sheets are split into
// sub-images at load time; text uses the debug font.
package ebitenrender

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/render"
)

type sprite struct {
	path   string
	sheet  *ebiten.Image
	frames []*ebiten.Image
}

type font struct {
	name          string
	width, height int
}

// Renderer implements render.Renderer. Draw calls only take effect between
// Begin and End.
type Renderer struct {
	log     *zap.Logger
	size    geom.Vector
	sprites map[geom.SpriteID]*sprite
	nextID  geom.SpriteID
	fonts   []font
	pixel   *ebiten.Image
	target  *ebiten.Image
}

var _ render.Renderer = (*Renderer)(nil)

func New(width, height int, log *zap.Logger) *Renderer {
	return &Renderer{
		log:     log,
		size:    geom.Vec(width, height),
		sprites: make(map[geom.SpriteID]*sprite),
		fonts:   []font{{name: "debug", width: 6, height: 16}},
	}
}

// Begin directs draw calls to screen for one frame.
func (r *Renderer) Begin(screen *ebiten.Image) {
	r.target = screen
	if b := screen.Bounds(); b.Dx() > 0 && b.Dy() > 0 {
		r.size = geom.Vec(b.Dx(), b.Dy())
	}
}

func (r *Renderer) End() { r.target = nil }

func (r *Renderer) WindowSize() geom.Vector { return r.size }

func (r *Renderer) LoadSprite(path string, frames, frameW, frameH, framesPerLine int, forceCustomSize bool) (geom.SpriteID, error) {
	img, _, err := ebitenutil.NewImageFromFile(path)
	if err != nil {
		return 0, fmt.Errorf("load sprite %s: %w", path, err)
	}
	b := img.Bounds()
	if frames == 1 && !forceCustomSize {
		frameW, frameH, framesPerLine = b.Dx(), b.Dy(), 1
	}
	if err := render.ValidateSheet(path, frames, frameW, frameH, framesPerLine); err != nil {
		img.Deallocate()
		return 0, err
	}
	s := &sprite{path: path, sheet: img, frames: make([]*ebiten.Image, frames)}
	for i := range s.frames {
		fr := render.FrameRect(i, frameW, frameH, framesPerLine)
		rect := image.Rect(fr.Pos.X, fr.Pos.Y, fr.Pos.X+fr.Size.X, fr.Pos.Y+fr.Size.Y)
		if !rect.In(b) {
			img.Deallocate()
			return 0, fmt.Errorf("sprite %s: frame %d outside %dx%d sheet", path, i, b.Dx(), b.Dy())
		}
		s.frames[i] = img.SubImage(rect).(*ebiten.Image)
	}
	r.nextID++
	r.sprites[r.nextID] = s
	r.log.Debug("sprite loaded", zap.String("path", path), zap.Int("frames", frames))
	return r.nextID, nil
}

func (r *Renderer) FreeSprite(id geom.SpriteID) {
	s, ok := r.sprites[id]
	if !ok {
		return
	}
	s.sheet.Deallocate()
	delete(r.sprites, id)
}

func (r *Renderer) DrawSprite(id geom.SpriteID, pos geom.Vector, frame int, rotation float64, opts render.SpriteOptions) bool {
	s, ok := r.sprites[id]
	if !ok || r.target == nil || frame < 0 || frame >= len(s.frames) {
		return false
	}
	op := &ebiten.DrawImageOptions{}
	sx, sy := opts.Scale()
	op.GeoM.Translate(-float64(opts.RotPos.X), -float64(opts.RotPos.Y))
	op.GeoM.Scale(sx, sy)
	op.GeoM.Rotate(rotation)
	op.GeoM.Translate(float64(pos.X+opts.RotPos.X), float64(pos.Y+opts.RotPos.Y))
	if opts.UseMask {
		op.ColorScale.ScaleWithColor(rgba(opts.Mask))
	}
	r.target.DrawImage(s.frames[frame], op)
	return true
}

// LoadFont registers a font name and cell size. All fonts render with the
// built-in debug face.
func (r *Renderer) LoadFont(name string, width, height int) (render.FontID, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("font %s: size %dx%d", name, width, height)
	}
	r.fonts = append(r.fonts, font{name: name, width: width, height: height})
	return render.FontID(len(r.fonts)), nil
}

func (r *Renderer) DefaultFont() render.FontID { return 1 }

func (r *Renderer) DrawString(id render.FontID, text string, pos geom.Vector, _ render.Color) bool {
	if r.target == nil || id == 0 || int(id) > len(r.fonts) {
		return false
	}
	ebitenutil.DebugPrintAt(r.target, text, pos.X, pos.Y)
	return true
}

func (r *Renderer) DrawFilledBox(pos, size geom.Vector, c render.Color) bool {
	if r.target == nil {
		return false
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(size.X), float64(size.Y))
	op.GeoM.Translate(float64(pos.X), float64(pos.Y))
	op.ColorScale.ScaleWithColor(rgba(c))
	r.target.DrawImage(r.whitePixel(), op)
	return true
}

func (r *Renderer) DrawBox(pos, size geom.Vector, thickness int, c render.Color) bool {
	if thickness <= 0 {
		thickness = 1
	}
	return r.DrawFilledBox(pos, geom.Vec(size.X, thickness), c) &&
		r.DrawFilledBox(geom.Vec(pos.X, pos.Y+size.Y-thickness), geom.Vec(size.X, thickness), c) &&
		r.DrawFilledBox(pos, geom.Vec(thickness, size.Y), c) &&
		r.DrawFilledBox(geom.Vec(pos.X+size.X-thickness, pos.Y), geom.Vec(thickness, size.Y), c)
}

func (r *Renderer) DrawLine(from, to geom.Vector, c render.Color) bool {
	if r.target == nil {
		return false
	}
	dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(math.Hypot(dx, dy), 1)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(float64(from.X), float64(from.Y))
	op.ColorScale.ScaleWithColor(rgba(c))
	r.target.DrawImage(r.whitePixel(), op)
	return true
}

// Close frees every loaded sprite.
func (r *Renderer) Close() {
	for id := range r.sprites {
		r.FreeSprite(id)
	}
}

func (r *Renderer) whitePixel() *ebiten.Image {
	if r.pixel == nil {
		r.pixel = ebiten.NewImage(1, 1)
		r.pixel.Fill(color.White)
	}
	return r.pixel
}

func rgba(c render.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
