package entity

import (
	"math"

	"github.com/casualgame/engine/internal/scripting"
)

// headingBias offsets the rotation of relative moves.
const headingBias = 0.015

// Move steps ent by speed pixels per second in dir, scaled by the current
// frame rate. Relative directions follow the entity's rotation (radians,
// zero facing up). A step into a wall is dropped and OnWallCollided fires
// instead.
func (m *Manager) Move(ent *Entity, speed float64, dir MovementDir, fps int) {
	if ent == nil || ent.state != StateActive {
		return
	}
	if fps <= 0 {
		fps = 1
	}
	pos, ok := m.position(ent)
	if !ok {
		return
	}
	rot := m.callFloat(ent, "float GetRotation()")

	step := func(f float64) int { return int(f*speed) / fps }
	switch dir {
	case MoveForward:
		pos.X += step(math.Sin(rot + headingBias))
		pos.Y -= step(math.Cos(rot + headingBias))
	case MoveBackward:
		pos.X -= step(math.Sin(rot + headingBias))
		pos.Y += step(math.Cos(rot + headingBias))
	case MoveLeft:
		pos.X += step(math.Sin(rot - math.Pi/2))
		pos.Y -= step(math.Cos(rot - math.Pi/2))
	case MoveRight:
		pos.X += step(math.Sin(rot + math.Pi/2))
		pos.Y -= step(math.Cos(rot + math.Pi/2))
	case MoveNorth:
		pos.Y -= step(math.Cos(headingBias))
	case MoveSouth:
		pos.Y += step(math.Cos(headingBias))
	case MoveWest:
		pos.X -= step(math.Cos(headingBias))
	case MoveEast:
		pos.X += step(math.Cos(headingBias))
	default:
		return
	}

	if m.opts.Walls != nil {
		size, _ := m.vector(ent, "Vector& GetSize()")
		if m.opts.Walls.InsideWall(pos, size) {
			m.call(ent, "void OnWallCollided()")
			return
		}
	}
	if err := m.callWithVector(ent, "void SetPosition(const Vector &in)", pos); err != nil {
		m.logCallErr(ent, "SetPosition", err)
	}
}

// MoveObject is Move for a script object reference.
func (m *Manager) MoveObject(obj *scripting.Ref, speed float64, dir MovementDir, fps int) {
	m.Move(m.Find(obj), speed, dir, fps)
}
