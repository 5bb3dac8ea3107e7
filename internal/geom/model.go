package geom

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SpriteID is a renderer-owned sprite handle. Zero is invalid.
type SpriteID uint32

// SpriteLoader is the slice of the renderer a model needs.
type SpriteLoader interface {
	LoadSprite(path string, frames, frameW, frameH, framesPerLine int, forceCustomSize bool) (SpriteID, error)
	FreeSprite(id SpriteID)
}

// Model pairs a sprite with a bounding box and a center offset.
type Model struct {
	sprite SpriteID
	bbox   BoundingBox
	center Vector
	ready  bool
	owner  SpriteLoader
}

// NewModel builds a ready model from an already loaded sprite. The model does
// not own the sprite unless owner is non-nil.
func NewModel(bbox BoundingBox, sprite SpriteID, owner SpriteLoader) *Model {
	return &Model{sprite: sprite, bbox: bbox.Clone(), ready: true, owner: owner}
}

// LoadModel reads a model description file:
//
//	line 1: sprite path
//	line 2: frameCount frameWidth frameHeight framesPerLine
//	rest:   x y w h  (one bounding box rectangle per line)
func LoadModel(path string, loader SpriteLoader, forceCustomSize bool) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return nil, fmt.Errorf("model %s: missing sprite line", path)
	}
	spritePath := strings.TrimSpace(sc.Text())
	if !sc.Scan() {
		return nil, fmt.Errorf("model %s: missing frame line", path)
	}
	frame, err := fourInts(sc.Text())
	if err != nil {
		return nil, fmt.Errorf("model %s line 2: %w", path, err)
	}

	var bbox BoundingBox
	line := 2
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := fourInts(text)
		if err != nil {
			return nil, fmt.Errorf("model %s line %d: %w", path, line, err)
		}
		bbox.Add(Vec(v[0], v[1]), Vec(v[2], v[3]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	id, err := loader.LoadSprite(spritePath, frame[0], frame[1], frame[2], frame[3], forceCustomSize)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &Model{sprite: id, bbox: bbox, ready: true, owner: loader}, nil
}

func fourInts(s string) ([4]int, error) {
	var out [4]int
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return out, fmt.Errorf("want 4 integers, got %d fields", len(fields))
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}

func (m *Model) Ready() bool        { return m != nil && m.ready }
func (m *Model) Sprite() SpriteID   { return m.sprite }
func (m *Model) BBox() BoundingBox  { return m.bbox }
func (m *Model) Center() Vector     { return m.center }
func (m *Model) SetCenter(c Vector) { m.center = c }

// Collides tests m at myPos against other at otherPos.
func (m *Model) Collides(myPos, otherPos Vector, other *Model) bool {
	if !m.Ready() || !other.Ready() {
		return false
	}
	return m.bbox.Collides(myPos, otherPos, other.bbox)
}

func (m *Model) Contains(myPos, p Vector) bool {
	if !m.Ready() {
		return false
	}
	return m.bbox.Contains(myPos, p)
}

// CopyFrom replaces m's data with a deep copy of src. Sprite ownership stays
// with src.
func (m *Model) CopyFrom(src *Model) {
	m.sprite = src.sprite
	m.bbox = src.bbox.Clone()
	m.center = src.center
	m.ready = src.ready
	m.owner = nil
}

// Release frees the owned sprite and clears the box. Safe to call twice.
func (m *Model) Release() {
	if !m.ready {
		return
	}
	if m.owner != nil && m.sprite != 0 {
		m.owner.FreeSprite(m.sprite)
	}
	m.bbox.Clear()
	m.sprite = 0
	m.ready = false
}
