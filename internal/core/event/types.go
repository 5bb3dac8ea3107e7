package event

import "github.com/casualgame/engine/internal/core/ecs"

// GameOver is emitted when the player entity asks to be removed. The entity
// manager stops the processing pass on the same tick.
type GameOver struct {
	PlayerID ecs.ID
	Score    int
}

type EntitySpawned struct {
	EntityID ecs.ID
	Ident    string
}

type EntityReleased struct {
	EntityID ecs.ID
	Ident    string
}
