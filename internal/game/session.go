package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/core/event"
	coresys "github.com/casualgame/engine/internal/core/system"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/hud"
	"github.com/casualgame/engine/internal/persist"
	"github.com/casualgame/engine/internal/scripting"
)

// SaveName is the property store entry of the save game index. Entity
// properties are stored under SaveName.<index>.
const SaveName = "savegame"

const storeTimeout = 5 * time.Second

// Options are the collaborators of a Session.
type Options struct {
	Engine   *scripting.Engine
	Entities *entity.Manager
	Scripts  *EntityScripts
	Runner   *coresys.Runner
	Bus      *event.Bus
	HUD      *hud.HUD // optional
	Props    persist.PropStore
	Package  *Package
	Log      *zap.Logger
}

// Session owns the current map. Map loads and saves requested by scripts
// are deferred to the PhaseSession system so they never run inside a
// script call.
type Session struct {
	opts Options
	log  *zap.Logger

	current     string
	background  string
	started     bool
	over        bool
	score       int
	pendingMap  string
	pendingSave bool
}

func NewSession(opts Options) *Session {
	s := &Session{opts: opts, log: opts.Log}
	if opts.Scripts != nil && opts.Entities != nil {
		opts.Scripts.SetUsers(opts.Entities)
	}
	if opts.Bus != nil {
		event.Subscribe(opts.Bus, s.onGameOver)
	}
	return s
}

func (s *Session) CurrentMap() string { return s.current }
func (s *Session) Background() string { return s.background }
func (s *Session) Started() bool      { return s.started }

// GameOver reports whether the player ended the game and the final score.
func (s *Session) GameOver() (bool, int) { return s.over, s.score }

// LoadMap queues a map change for the end of the tick.
func (s *Session) LoadMap(name string) { s.pendingMap = name }

// SaveGame queues a save for the end of the tick.
func (s *Session) SaveGame() { s.pendingSave = true }

func (s *Session) Phase() coresys.Phase { return coresys.PhaseSession }

func (s *Session) Update(_ time.Duration) {
	if s.pendingSave {
		s.pendingSave = false
		if err := s.Save(); err != nil {
			s.log.Warn("save game failed", zap.Error(err))
		}
	}
	if name := s.pendingMap; name != "" {
		s.pendingMap = ""
		if err := s.Start(name); err != nil {
			s.log.Warn("map load failed", zap.String("map", name), zap.Error(err))
		}
	}
}

// Start releases the current entities and spawns the map's entities. An
// entity that fails to spawn is logged and skipped.
func (s *Session) Start(name string) error {
	m, err := s.opts.Package.LoadMap(name)
	if err != nil {
		return err
	}
	s.reset()
	spawned := 0
	for _, sp := range m.Entities {
		if err := s.opts.Scripts.Spawn(sp); err != nil {
			s.log.Warn("entity spawn failed", zap.String("ident", sp.Ident), zap.Error(err))
			continue
		}
		spawned++
	}
	s.current = name
	s.background = m.Background
	s.started = true
	s.log.Info("map loaded",
		zap.String("map", m.Name), zap.Int("spawns", len(m.Entities)), zap.Int("spawned", spawned))
	return nil
}

// Save writes the current map and every entity's position, rotation and
// GetSaveGameProperties to the property store.
func (s *Session) Save() error {
	if !s.started {
		return errors.New("no game running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	ents := s.opts.Entities
	index := persist.CreateProperty("map", s.current)
	saved := 0
	for i := range ents.Count() {
		ent := ents.HandleAt(i)
		if ent == nil || ent.State() != entity.StateActive {
			continue
		}
		pos, _ := ents.Position(ent)
		rot := s.callFloat(ent, "float GetRotation()")
		index += persist.CreateProperty("e"+strconv.Itoa(saved),
			fmt.Sprintf("%s,%d,%d,%g", ent.Ident(), pos.X, pos.Y, rot))
		props := s.callString(ent, "string GetSaveGameProperties()")
		if err := s.opts.Props.Save(ctx, entryName(saved), props); err != nil {
			return err
		}
		saved++
	}
	index += persist.CreateProperty("count", strconv.Itoa(saved))
	if err := s.opts.Props.Save(ctx, SaveName, index); err != nil {
		return err
	}
	s.log.Info("game saved", zap.String("map", s.current), zap.Int("entities", saved))
	return nil
}

// Continue restores the last save: the saved map's background and the
// saved entities instead of the map's spawn list.
func (s *Session) Continue() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	index, err := s.opts.Props.Load(ctx, SaveName)
	if err != nil {
		return err
	}
	name := persist.ExtractValue(index, "map")
	m, err := s.opts.Package.LoadMap(name)
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(persist.ExtractValue(index, "count"))
	if err != nil {
		return fmt.Errorf("save game index: %w", err)
	}

	spawns := make([]Spawn, 0, count)
	for i := range count {
		sp, err := parseSaved(persist.ExtractValue(index, "e"+strconv.Itoa(i)))
		if err != nil {
			return fmt.Errorf("save game entry %d: %w", i, err)
		}
		if sp.Props, err = s.opts.Props.Load(ctx, entryName(i)); err != nil && !errors.Is(err, persist.ErrNotFound) {
			return err
		}
		spawns = append(spawns, sp)
	}

	s.reset()
	for _, sp := range spawns {
		if err := s.opts.Scripts.Spawn(sp); err != nil {
			s.log.Warn("entity restore failed", zap.String("ident", sp.Ident), zap.Error(err))
		}
	}
	s.current = name
	s.background = m.Background
	s.started = true
	s.log.Info("game restored", zap.String("map", name), zap.Int("entities", len(spawns)))
	return nil
}

func (s *Session) reset() {
	s.opts.Entities.Release()
	s.over = false
	s.score = 0
	if s.opts.Runner != nil {
		s.opts.Runner.Resume(coresys.PhaseUpdate)
	}
}

func (s *Session) onGameOver(ev event.GameOver) {
	s.over = true
	s.score = ev.Score
	if s.opts.Runner != nil {
		s.opts.Runner.Pause(coresys.PhaseUpdate)
	}
	if s.opts.HUD != nil {
		s.opts.HUD.AddMessage("Game over", hud.ColorRed, 0)
	}
	s.log.Info("game over", zap.String("map", s.current), zap.Int("score", ev.Score))
}

func (s *Session) callFloat(ent *entity.Entity, decl string) float64 {
	v, err := s.opts.Engine.CallMethod(ent.Object(), decl, nil, scripting.TagFloat)
	if err != nil {
		return 0
	}
	return scripting.AsFloat(v)
}

func (s *Session) callString(ent *entity.Entity, decl string) string {
	v, err := s.opts.Engine.CallMethod(ent.Object(), decl, nil, scripting.TagString)
	if err != nil {
		return ""
	}
	return scripting.AsString(v)
}

func entryName(i int) string { return SaveName + "." + strconv.Itoa(i) }

func parseSaved(v string) (Spawn, error) {
	f := strings.Split(v, ",")
	if len(f) != 4 {
		return Spawn{}, fmt.Errorf("malformed entry %q", v)
	}
	x, errX := strconv.Atoi(f[1])
	y, errY := strconv.Atoi(f[2])
	rot, errR := strconv.ParseFloat(f[3], 32)
	if err := errors.Join(errX, errY, errR); err != nil {
		return Spawn{}, err
	}
	return Spawn{Ident: f[0], X: x, Y: y, Rot: float32(rot)}, nil
}
