package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casualgame/engine/internal/geom"
)

func TestCameraVisible(t *testing.T) {
	cam := Camera{Focus: geom.Vec(1000, 1000), Screen: geom.Vec(800, 600)}
	size := geom.Vec(32, 32)

	assert.True(t, cam.Visible(geom.Vec(1000, 1000), size))
	assert.True(t, cam.Visible(geom.Vec(1420, 1000), size), "partially inside the right edge")
	assert.False(t, cam.Visible(geom.Vec(1432, 1000), size))
	assert.False(t, cam.Visible(geom.Vec(568, 1000), size))
	assert.True(t, cam.Visible(geom.Vec(569, 1000), size))
	assert.False(t, cam.Visible(geom.Vec(1000, 1332), size))
}

func TestCameraScreenPos(t *testing.T) {
	cam := Camera{Focus: geom.Vec(100, 100), Screen: geom.Vec(800, 600)}
	assert.Equal(t, geom.Vec(384, 284), cam.ScreenPos(geom.Vec(100, 100), geom.Vec(32, 32)))
	assert.Equal(t, geom.Vec(434, 234), cam.ScreenPos(geom.Vec(150, 50), geom.Vec(32, 32)))
}

func TestFrameRect(t *testing.T) {
	assert.Equal(t, geom.Rect{Pos: geom.Vec(0, 0), Size: geom.Vec(16, 8)}, FrameRect(0, 16, 8, 4))
	assert.Equal(t, geom.Rect{Pos: geom.Vec(48, 0), Size: geom.Vec(16, 8)}, FrameRect(3, 16, 8, 4))
	assert.Equal(t, geom.Rect{Pos: geom.Vec(16, 8), Size: geom.Vec(16, 8)}, FrameRect(5, 16, 8, 4))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(geom.Vec(640, 480))
	_, err := r.LoadSprite("bad.png", 0, 16, 16, 1, false)
	require.Error(t, err)

	id, err := r.LoadSprite("hero.png", 4, 16, 16, 2, false)
	require.NoError(t, err)
	assert.True(t, r.DrawSprite(id, geom.Vec(1, 2), 3, 0, SpriteOptions{}))
	assert.True(t, r.DrawString(r.DefaultFont(), "hi", geom.Vec(0, 0), White))
	assert.False(t, r.DrawString(0, "nope", geom.Vec(0, 0), White))

	r.FreeSprite(id)
	assert.False(t, r.DrawSprite(id, geom.Vec(1, 2), 0, 0, SpriteOptions{}))
	assert.Equal(t, []geom.SpriteID{id}, r.Freed)
	assert.Equal(t, []string{"hi"}, r.Texts())
}
