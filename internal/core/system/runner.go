package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick. Systems within one phase
// keep their registration order.
type Runner struct {
	systems []System
	sorted  bool
	paused  map[Phase]bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
		paused:  make(map[Phase]bool),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Pause skips every system of the phase until Resume. The game loop pauses
// PhaseUpdate while the game-over screen is shown.
func (r *Runner) Pause(p Phase)  { r.paused[p] = true }
func (r *Runner) Resume(p Phase) { delete(r.paused, p) }

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if r.paused[s.Phase()] {
			continue
		}
		s.Update(dt)
	}
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
