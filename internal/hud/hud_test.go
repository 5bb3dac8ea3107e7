package hud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/render"
	"github.com/casualgame/engine/internal/sound"
)

type fakeSound struct{ played []sound.ID }

func (f *fakeSound) QuerySound(string) (sound.ID, error) { return 1, nil }
func (f *fakeSound) Play(id sound.ID, _ int, _ bool) bool {
	f.played = append(f.played, id)
	return true
}
func (f *fakeSound) Stop(sound.ID) bool { return true }
func (f *fakeSound) Volume() int        { return 10 }

func newHUD(t *testing.T) (*HUD, *render.Recorder, *time.Time) {
	t.Helper()
	rec := render.NewRecorder(geom.Vec(800, 600))
	h := New(rec, nil, zap.NewNop())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	return h, rec, &now
}

func TestAmmoAndCollectables(t *testing.T) {
	h, rec, _ := newHUD(t)
	require.NoError(t, h.AddAmmoItem("shells", "gfx/shells.png"))
	require.NoError(t, h.AddAmmoItem("shells", "gfx/other.png"))
	assert.Len(t, rec.Loaded, 1, "duplicate idents load nothing")

	h.UpdateAmmoItem("shells", 7, 20)
	h.UpdateAmmoItem("rockets", 1, 1)
	assert.Equal(t, 7, h.AmmoCurrent("shells"))
	assert.Equal(t, 20, h.AmmoMax("shells"))
	assert.Zero(t, h.AmmoCurrent("rockets"))

	require.NoError(t, h.AddCollectable("coin", "gfx/coin.png", false))
	require.NoError(t, h.AddCollectable("key", "gfx/key.png", true))
	h.UpdateCollectable("coin", 3)
	assert.Equal(t, 3, h.CollectableCount("coin"))

	h.SetAmmoDisplayItem("shells")
	h.UpdateHealth(80)
	h.Draw()
	assert.Equal(t, []string{"80", "7", "/", "20", "3", "0"}, rec.Texts())

	h.Release()
	assert.Empty(t, rec.Loaded)
}

func TestHealthBar(t *testing.T) {
	h, rec, _ := newHUD(t)
	h.UpdateHealth(20)
	h.Draw()
	var fill *render.Op
	for i := range rec.Ops {
		if rec.Ops[i].Kind == "fill" {
			fill = &rec.Ops[i]
		}
	}
	require.NotNil(t, fill)
	assert.Equal(t, render.RGBA(250, 0, 0, 150), fill.Color)
	assert.Equal(t, 20*barW/100-2*barPadding, fill.Size.X)

	rec.Reset()
	h.UpdateHealth(5)
	h.Draw()
	for _, op := range rec.Ops {
		assert.NotEqual(t, "fill", op.Kind, "bar narrower than its padding is skipped")
	}
}

func TestMessagesExpire(t *testing.T) {
	h, rec, now := newHUD(t)
	snd := &fakeSound{}
	h.snd = snd
	h.SetHintSound(4)

	h.AddMessage("saved", ColorGreen, 0)
	h.AddMessage("hurry", ColorRed, 10*time.Second)
	assert.Equal(t, []sound.ID{4, 4}, snd.played)

	*now = now.Add(5 * time.Second)
	h.Process()
	assert.Equal(t, []string{"hurry"}, h.Messages())

	h.SetEnabled(false)
	h.Draw()
	assert.Equal(t, []string{"hurry"}, rec.Texts(), "messages survive a disabled HUD")
}
