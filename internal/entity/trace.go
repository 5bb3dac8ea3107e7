package entity

import (
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/scripting"
)

// Trace walks from start toward end one unit per axis per step and returns
// the collidable entities whose model contains the first position that hits
// anything. The entity holding ignore is skipped. The end point itself is
// never tested.
func (m *Manager) Trace(start, end geom.Vector, ignore *scripting.Ref) []*Entity {
	cur := start
	for cur != end {
		if hits := m.entitiesAt(cur, ignore); len(hits) > 0 {
			return hits
		}
		cur = stepToward(cur, end)
	}
	return nil
}

func stepToward(cur, end geom.Vector) geom.Vector {
	switch {
	case cur.X < end.X:
		cur.X++
	case cur.X > end.X:
		cur.X--
	}
	switch {
	case cur.Y < end.Y:
		cur.Y++
	case cur.Y > end.Y:
		cur.Y--
	}
	return cur
}

func (m *Manager) entitiesAt(p geom.Vector, ignore *scripting.Ref) []*Entity {
	var hits []*Entity
	for _, ent := range m.list {
		if ent.state != StateActive || (ignore != nil && ent.obj == ignore) {
			continue
		}
		if !m.callBool(ent, "bool IsCollidable()") {
			continue
		}
		mdl, ref := m.model(ent)
		if mdl == nil {
			continue
		}
		pos, ok := m.position(ent)
		if ok && mdl.Contains(pos, p) {
			hits = append(hits, ent)
		}
		ref.Release()
	}
	return hits
}
