package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput     Phase = iota // 0: key and mouse dispatch to the player entity
	PhasePreUpdate              // 1: deliver last tick's events
	PhaseUpdate                 // 2: scripted entity processing
	PhaseHUD                    // 3: timed HUD state
	PhaseSession                // 4: deferred map loads and saves
)

// System is the interface every per-tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
