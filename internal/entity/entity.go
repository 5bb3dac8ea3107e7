package entity

import (
	"github.com/casualgame/engine/internal/core/ecs"
	"github.com/casualgame/engine/internal/scripting"
)

// PlayerIdent is the reserved identifier of the player entity. An entity
// spawned under it becomes the manager's player; an entity whose GetName()
// returns it ends the game instead of being removed.
const PlayerIdent = "player"

// State of a scripted entity in the manager.
type State uint8

const (
	StateSpawning State = iota
	StateActive
	StatePendingRemoval
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateActive:
		return "active"
	case StatePendingRemoval:
		return "pending-removal"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// Entity is one scripted entity instance. The manager owns the object
// reference until the entity is released.
type Entity struct {
	id      ecs.ID
	ident   string
	module  scripting.ModuleHandle
	obj     *scripting.Ref
	state   State
	dormant bool
}

func (e *Entity) ID() ecs.ID                     { return e.id }
func (e *Entity) Ident() string                  { return e.ident }
func (e *Entity) Module() scripting.ModuleHandle { return e.module }
func (e *Entity) State() State                   { return e.state }

// Object is the script object. Callers that keep it beyond the current call
// must Clone it.
func (e *Entity) Object() *scripting.Ref { return e.obj }

// Dormant reports the dormancy decision of the last processing pass.
func (e *Entity) Dormant() bool { return e.dormant }
