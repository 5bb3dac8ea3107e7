package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/entity/entitytest"
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/scripting"
)

type scripted struct{ frames []Frame }

func (s *scripted) Poll() Frame {
	if len(s.frames) == 0 {
		return Frame{}
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f
}

func TestBindings(t *testing.T) {
	codes := map[string]int{"W": 22, "Space": 53}
	resolve := func(name string) (int, bool) {
		c, ok := codes[name]
		return c, ok
	}

	b, err := NewBindings(map[string]string{"MOVE_FORWARD": "W", "ATTACK": "Space"}, resolve)
	require.NoError(t, err)
	assert.Equal(t, 22, b.Code("MOVE_FORWARD"))
	assert.Equal(t, 53, b.Code("ATTACK"))
	assert.Equal(t, Unbound, b.Code("JUMP"))

	b, err = NewBindings(map[string]string{"ATTACK": "Space", "JUMP": "Hyperspace", "USE": "Nope"}, resolve)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JUMP")
	assert.Contains(t, err.Error(), "USE")
	assert.Equal(t, 53, b.Code("ATTACK"), "valid bindings survive")
}

func setup(t *testing.T, classes string) (*scripting.Engine, *entity.Manager, scripting.ModuleHandle, *[]string) {
	t.Helper()
	e := scripting.NewEngine(scripting.Options{}, zaptest.NewLogger(t))
	t.Cleanup(e.Close)
	require.NoError(t, entity.RegisterScriptTypes(e, nil))
	rec := new([]string)
	require.NoError(t, e.Registry().RegisterGlobalFunction("void Record(const string &in)", func(a scripting.Args) (scripting.Value, error) {
		*rec = append(*rec, a.String(0))
		return nil, nil
	}))
	path := filepath.Join(t.TempDir(), "player.lua")
	require.NoError(t, os.WriteFile(path, []byte(entitytest.Base+classes), 0o644))
	mod, err := e.LoadScript(path)
	require.NoError(t, err)

	mgr := entity.NewManager(e, entity.Options{Resolution: geom.Vec(800, 600)}, zaptest.NewLogger(t))
	t.Cleanup(mgr.Release)
	return e, mgr, mod, rec
}

func TestDispatchToPlayer(t *testing.T) {
	e, mgr, mod, rec := setup(t, entitytest.Player)
	src := &scripted{frames: []Frame{
		{Keys: []Event{{Code: 22, Down: true}}},
		{
			Keys:    []Event{{Code: 22, Down: false}},
			Buttons: []Event{{Code: 0, Down: true}},
			Cursor:  geom.Vec(10, 20),
			Moved:   true,
		},
	}}
	d := NewDispatcher(src, e, mgr, zaptest.NewLogger(t))

	d.Update(0)
	assert.Empty(t, *rec, "no player, no dispatch")

	require.True(t, mgr.SpawnNamed(entity.PlayerIdent, mod, "CPlayer", geom.Vec(0, 0)))
	*rec = nil
	d.Update(0)
	assert.Equal(t, []string{"key:22:false", "mouse:0:true", "cursor:10:20"}, *rec)
	assert.Equal(t, mgr.Count(), e.LiveRefs(), "cursor vector released")
}

func TestPlayerWithoutInputMethods(t *testing.T) {
	e, mgr, mod, rec := setup(t, `
CPlayer = CEntity.extend()
function CPlayer:Init() CEntity.Init(self) self.name = "player" end
`)
	require.True(t, mgr.SpawnNamed(entity.PlayerIdent, mod, "CPlayer", geom.Vec(0, 0)))
	*rec = nil
	d := NewDispatcher(&scripted{frames: []Frame{{Keys: []Event{{Code: 1, Down: true}}}}}, e, mgr, zaptest.NewLogger(t))
	d.Update(0)
	assert.Empty(t, *rec)
}
