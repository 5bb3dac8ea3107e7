// Package input routes key, mouse button and cursor events to the player
// entity and resolves configured key bindings.
package input

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/core/ecs"
	"github.com/casualgame/engine/internal/core/system"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/scripting"
)

// Unbound is the code GetKeyBinding reports for unknown commands.
const Unbound = -1

// Event is a key or mouse button transition.
type Event struct {
	Code int
	Down bool
}

// Frame is everything that happened since the previous poll.
type Frame struct {
	Keys    []Event
	Buttons []Event
	Cursor  geom.Vector
	Moved   bool
}

type Source interface {
	Poll() Frame
}

// Bindings maps command names (MOVE_FORWARD, ATTACK, ...) to key codes.
type Bindings struct {
	codes map[string]int
}

// NewBindings resolves every configured key name. All unknown names are
// reported together.
func NewBindings(names map[string]string, resolve func(string) (int, bool)) (*Bindings, error) {
	b := &Bindings{codes: make(map[string]int, len(names))}
	commands := make([]string, 0, len(names))
	for cmd := range names {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)

	var errs []error
	for _, cmd := range commands {
		code, ok := resolve(names[cmd])
		if !ok {
			errs = append(errs, fmt.Errorf("binding %s: unknown key %q", cmd, names[cmd]))
			continue
		}
		b.codes[cmd] = code
	}
	return b, errors.Join(errs...)
}

func (b *Bindings) Code(command string) int {
	if code, ok := b.codes[command]; ok {
		return code
	}
	return Unbound
}

// Scripts is the slice of the scripting engine the dispatcher needs.
type Scripts interface {
	CallMethod(obj *scripting.Ref, decl string, args []scripting.Value, ret scripting.Tag) (scripting.Value, error)
	Implements(obj *scripting.Ref, iface string) ([]string, error)
	Wrap(ptr any) (*scripting.Ref, error)
}

// Players yields the current player entity, nil when there is none.
type Players interface {
	Player() *entity.Entity
}

const (
	declKey    = "void OnKeyPress(int vKey, bool bDown)"
	declMouse  = "void OnMousePress(int key, bool bDown)"
	declCursor = "void OnUpdateCursor(const Vector &in pos)"
)

// Dispatcher is the PhaseInput system. Events are dropped while there is no
// player or the player does not implement IPlayerEntity.
type Dispatcher struct {
	src     Source
	scripts Scripts
	players Players
	log     *zap.Logger

	checked ecs.ID
	capable bool
}

func NewDispatcher(src Source, scripts Scripts, players Players, log *zap.Logger) *Dispatcher {
	return &Dispatcher{src: src, scripts: scripts, players: players, log: log}
}

func (d *Dispatcher) Phase() system.Phase { return system.PhaseInput }

func (d *Dispatcher) Update(_ time.Duration) {
	frame := d.src.Poll()
	player := d.players.Player()
	if player == nil || !d.playerCapable(player) {
		return
	}
	obj := player.Object()
	for _, k := range frame.Keys {
		d.call(obj, declKey, scripting.Int(k.Code), scripting.Bool(k.Down))
	}
	for _, b := range frame.Buttons {
		d.call(obj, declMouse, scripting.Int(b.Code), scripting.Bool(b.Down))
	}
	if frame.Moved {
		cursor := frame.Cursor
		ref, err := d.scripts.Wrap(&cursor)
		if err != nil {
			d.log.Debug("cursor wrap failed", zap.Error(err))
			return
		}
		d.call(obj, declCursor, scripting.Object{Ref: ref})
		ref.Release()
	}
}

func (d *Dispatcher) playerCapable(p *entity.Entity) bool {
	if p.ID() == d.checked {
		return d.capable
	}
	missing, err := d.scripts.Implements(p.Object(), entity.IPlayerEntity)
	d.checked, d.capable = p.ID(), err == nil && len(missing) == 0
	if !d.capable {
		d.log.Warn("player entity does not take input",
			zap.String("ident", p.Ident()), zap.Strings("missing", missing), zap.Error(err))
	}
	return d.capable
}

func (d *Dispatcher) call(obj *scripting.Ref, decl string, args ...scripting.Value) {
	if _, err := d.scripts.CallMethod(obj, decl, args, scripting.TagVoid); err != nil {
		d.log.Debug("input dispatch failed", zap.String("method", decl), zap.Error(err))
	}
}
