// Package ebiteninput polls ebiten's keyboard and mouse state.
package ebiteninput

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/input"
)

var keysByName = func() map[string]ebiten.Key {
	m := make(map[string]ebiten.Key, int(ebiten.KeyMax)+1)
	for k := ebiten.Key(0); k <= ebiten.KeyMax; k++ {
		m[k.String()] = k
	}
	return m
}()

// KeyCode resolves an ebiten key name such as "W", "Space" or "ArrowUp".
func KeyCode(name string) (int, bool) {
	k, ok := keysByName[name]
	return int(k), ok
}

// Source must be polled from ebiten's Update.
type Source struct {
	keys    []ebiten.Key
	cursor  geom.Vector
	started bool
}

var _ input.Source = (*Source)(nil)

func (s *Source) Poll() input.Frame {
	var f input.Frame
	s.keys = inpututil.AppendJustPressedKeys(s.keys[:0])
	for _, k := range s.keys {
		f.Keys = append(f.Keys, input.Event{Code: int(k), Down: true})
	}
	s.keys = inpututil.AppendJustReleasedKeys(s.keys[:0])
	for _, k := range s.keys {
		f.Keys = append(f.Keys, input.Event{Code: int(k), Down: false})
	}
	for b := ebiten.MouseButton0; b <= ebiten.MouseButtonMax; b++ {
		switch {
		case inpututil.IsMouseButtonJustPressed(b):
			f.Buttons = append(f.Buttons, input.Event{Code: int(b), Down: true})
		case inpututil.IsMouseButtonJustReleased(b):
			f.Buttons = append(f.Buttons, input.Event{Code: int(b), Down: false})
		}
	}
	x, y := ebiten.CursorPosition()
	f.Cursor = geom.Vec(x, y)
	f.Moved = !s.started || f.Cursor != s.cursor
	s.cursor, s.started = f.Cursor, true
	return f
}
