package render

import (
	"fmt"

	"github.com/casualgame/engine/internal/geom"
)

// Op is one draw call captured by Recorder.
type Op struct {
	Kind   string // "sprite", "string", "box", "fill" or "line"
	Sprite geom.SpriteID
	Frame  int
	Font   FontID
	Text   string
	Pos    geom.Vector
	Size   geom.Vector
	Color  Color
}

// Recorder is a headless Renderer. It accepts every sprite path, hands out
// sequential handles and records draw calls in order.
type Recorder struct {
	Size    geom.Vector
	Ops     []Op
	Loaded  map[geom.SpriteID]string
	Freed   []geom.SpriteID
	fonts   []string
	nextSpr geom.SpriteID
}

func NewRecorder(size geom.Vector) *Recorder {
	return &Recorder{Size: size, Loaded: make(map[geom.SpriteID]string), fonts: []string{"default"}}
}

func (r *Recorder) LoadSprite(path string, frames, frameW, frameH, framesPerLine int, _ bool) (geom.SpriteID, error) {
	if err := ValidateSheet(path, frames, frameW, frameH, framesPerLine); err != nil {
		return 0, err
	}
	r.nextSpr++
	r.Loaded[r.nextSpr] = path
	return r.nextSpr, nil
}

func (r *Recorder) FreeSprite(id geom.SpriteID) {
	if _, ok := r.Loaded[id]; ok {
		delete(r.Loaded, id)
		r.Freed = append(r.Freed, id)
	}
}

func (r *Recorder) DrawSprite(id geom.SpriteID, pos geom.Vector, frame int, _ float64, opts SpriteOptions) bool {
	if _, ok := r.Loaded[id]; !ok {
		return false
	}
	r.Ops = append(r.Ops, Op{Kind: "sprite", Sprite: id, Frame: frame, Pos: pos, Color: opts.Mask})
	return true
}

func (r *Recorder) LoadFont(name string, width, height int) (FontID, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("font %s: size %dx%d", name, width, height)
	}
	r.fonts = append(r.fonts, name)
	return FontID(len(r.fonts)), nil
}

func (r *Recorder) DefaultFont() FontID { return 1 }

func (r *Recorder) DrawString(font FontID, text string, pos geom.Vector, c Color) bool {
	if font == 0 || int(font) > len(r.fonts) {
		return false
	}
	r.Ops = append(r.Ops, Op{Kind: "string", Font: font, Text: text, Pos: pos, Color: c})
	return true
}

func (r *Recorder) DrawBox(pos, size geom.Vector, _ int, c Color) bool {
	r.Ops = append(r.Ops, Op{Kind: "box", Pos: pos, Size: size, Color: c})
	return true
}

func (r *Recorder) DrawFilledBox(pos, size geom.Vector, c Color) bool {
	r.Ops = append(r.Ops, Op{Kind: "fill", Pos: pos, Size: size, Color: c})
	return true
}

func (r *Recorder) DrawLine(from, to geom.Vector, c Color) bool {
	r.Ops = append(r.Ops, Op{Kind: "line", Pos: from, Size: to.Sub(from), Color: c})
	return true
}

func (r *Recorder) WindowSize() geom.Vector { return r.Size }

// Texts returns the text of every recorded DrawString call.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == "string" {
			out = append(out, op.Text)
		}
	}
	return out
}

// Reset drops recorded draw calls.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }
