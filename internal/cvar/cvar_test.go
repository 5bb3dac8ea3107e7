package cvar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterAndGet(t *testing.T) {
	s := NewStore(nil, zap.NewNop())
	h, err := s.Register("sv_speed", Int, "250")
	require.NoError(t, err)
	assert.NotZero(t, h)

	again, err := s.Register("sv_speed", Int, "999")
	require.NoError(t, err)
	assert.Equal(t, h, again)
	assert.Equal(t, 250, s.GetInt("sv_speed", 0), "re-registering keeps the value")

	_, err = s.Register("sv_speed", Bool, "1")
	assert.Error(t, err)
	_, err = s.Register("sv_bad", Int, "abc")
	assert.Error(t, err)

	assert.Equal(t, 7, s.GetInt("missing", 7))
	assert.True(t, s.GetBool("sv_speed", true), "type mismatch falls back")
}

func TestSetters(t *testing.T) {
	s := NewStore(nil, zap.NewNop())
	for _, reg := range []struct {
		name string
		t    Type
		init string
	}{
		{"b", Bool, "0"}, {"i", Int, "1"}, {"f", Float, "0.5"}, {"s", String, "hello"},
	} {
		_, err := s.Register(reg.name, reg.t, reg.init)
		require.NoError(t, err)
	}
	s.SetBool("b", true)
	s.SetInt("i", 42)
	s.SetFloat("f", 2.25)
	s.SetString("s", "world")
	s.SetInt("s", 3)

	assert.True(t, s.GetBool("b", false))
	assert.Equal(t, 42, s.GetInt("i", 0))
	assert.Equal(t, 2.25, s.GetFloat("f", 0))
	assert.Equal(t, "world", s.GetString("s", ""))
	assert.Equal(t, "2.25", s.Find("f").Text())
}

func TestSeedsApplyOnRegister(t *testing.T) {
	s := NewStore(map[string]string{"snd_volume": "3", "gfx_fullscreen": "nope"}, zap.NewNop())
	_, err := s.Register("snd_volume", Int, "10")
	require.NoError(t, err)
	assert.Equal(t, 3, s.GetInt("snd_volume", 0))

	_, err = s.Register("gfx_fullscreen", Bool, "1")
	require.NoError(t, err)
	assert.True(t, s.GetBool("gfx_fullscreen", false), "a bad seed keeps the initial value")
}

func TestExec(t *testing.T) {
	s := NewStore(nil, zap.NewNop())
	_, err := s.Register("cl_name", String, "player")
	require.NoError(t, err)
	_, err = s.Register("cl_fov", Int, "90")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "autoexec.cfg")
	require.NoError(t, os.WriteFile(path, []byte(`# settings
cl_name "Jane Doe"
// later
cl_fov 110
cl_late 1
`), 0o644))
	require.NoError(t, s.Exec(path))
	assert.Equal(t, "Jane Doe", s.GetString("cl_name", ""))
	assert.Equal(t, 110, s.GetInt("cl_fov", 0))

	_, err = s.Register("cl_late", Bool, "0")
	require.NoError(t, err)
	assert.True(t, s.GetBool("cl_late", false))

	require.NoError(t, os.WriteFile(path, []byte("cl_fov wide\n"), 0o644))
	assert.Error(t, s.Exec(path))
	assert.Equal(t, 110, s.GetInt("cl_fov", 0))
	assert.Error(t, s.Exec(filepath.Join(t.TempDir(), "none.cfg")))
}
