package game

import (
	"time"

	"github.com/casualgame/engine/internal/core/event"
	coresys "github.com/casualgame/engine/internal/core/system"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/hud"
)

// EventSystem delivers the events emitted during the previous tick.
type EventSystem struct{ bus *event.Bus }

func NewEventSystem(bus *event.Bus) *EventSystem { return &EventSystem{bus: bus} }

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// EntitySystem runs one entity processing pass per tick.
type EntitySystem struct{ mgr *entity.Manager }

func NewEntitySystem(mgr *entity.Manager) *EntitySystem { return &EntitySystem{mgr: mgr} }

func (s *EntitySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *EntitySystem) Update(_ time.Duration) { s.mgr.Process() }

// HUDSystem expires timed HUD messages.
type HUDSystem struct{ hud *hud.HUD }

func NewHUDSystem(h *hud.HUD) *HUDSystem { return &HUDSystem{hud: h} }

func (s *HUDSystem) Phase() coresys.Phase { return coresys.PhaseHUD }

func (s *HUDSystem) Update(_ time.Duration) { s.hud.Process() }

// Draw renders one frame: both entity passes, then the HUD on top.
func Draw(mgr *entity.Manager, h *hud.HUD) {
	mgr.Render()
	if h != nil {
		h.Draw()
	}
}
