package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePhrases(t *testing.T, root, loc, file, body string) {
	t.Helper()
	dir := filepath.Join(root, loc)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file+".yaml"), []byte(body), 0o644))
}

func TestQuerySelectsBestLocale(t *testing.T) {
	root := t.TempDir()
	writePhrases(t, root, "en", "hud", "score: Score\nlives: Lives\n")
	writePhrases(t, root, "de", "hud", "score: Punkte\n")

	c, err := Open(root, "de-AT", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "de", c.Locale())
	assert.Equal(t, "Punkte", c.Query("hud.score", "?"))
	assert.Equal(t, "?", c.Query("hud.lives", "?"), "no fallback across locales")
	assert.Equal(t, "x", c.Query("menu.start", "x"))
	assert.Equal(t, "x", c.Query("nodot", "x"))
}

func TestQueryFallsBackToEnglish(t *testing.T) {
	root := t.TempDir()
	writePhrases(t, root, "de", "hud", "score: Punkte\n")
	writePhrases(t, root, "en", "hud", "score: Score\n")

	c, err := Open(root, "ja", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "en", c.Locale())
	assert.Equal(t, "Score", c.Query("hud.score", ""))
}

func TestMissingRoot(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "lang"), "en", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "dflt", c.Query("hud.score", "dflt"))
}

func TestBrokenFile(t *testing.T) {
	root := t.TempDir()
	writePhrases(t, root, "en", "hud", "score: [unterminated\n")
	c, err := Open(root, "en", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "d", c.Query("hud.score", "d"))
}
