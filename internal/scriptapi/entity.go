package scriptapi

import (
	"math"

	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/scripting"
)

// noIndex is what Ent_GetId reports for objects that are not spawned.
const noIndex = math.MaxUint64

func (a *api) entityFuncs() []fn {
	ents := a.Entities
	return []fn{
		{"bool Ent_SpawnEntity(const string &in, IScriptedEntity @obj, const Vector& in)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.Bool(ents.SpawnObject(args.String(0), args.Ref(1), vec(args, 2))), nil
		}},
		{"size_t Ent_GetEntityCount()", func(scripting.Args) (scripting.Value, error) {
			return scripting.QWord(ents.Count()), nil
		}},
		{"size_t Ent_GetEntityNameCount(const string &in szName)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.QWord(ents.NameCount(args.String(0))), nil
		}},
		{"IScriptedEntity@+ Ent_GetEntityHandle(size_t uiEntityId)", func(args scripting.Args) (scripting.Value, error) {
			i := args.Uint(0)
			if i >= uint64(ents.Count()) {
				return scripting.Object{}, nil
			}
			return object(ents.HandleAt(int(i))), nil
		}},
		{"IScriptedEntity@+ Ent_GetPlayerEntity()", func(scripting.Args) (scripting.Value, error) {
			return object(ents.Player()), nil
		}},
		{"IScriptedEntity@+ Ent_TraceLine(const Vector&in vStart, const Vector&in vEnd, IScriptedEntity@+ pIgnoredEnt)", func(args scripting.Args) (scripting.Value, error) {
			hits := ents.Trace(vec(args, 0), vec(args, 1), args.Ref(2))
			if len(hits) == 0 {
				return scripting.Object{}, nil
			}
			return object(hits[0]), nil
		}},
		{"bool Ent_IsValid(IScriptedEntity@ pEntity)", func(args scripting.Args) (scripting.Value, error) {
			return scripting.Bool(ents.IsValid(args.Ref(0))), nil
		}},
		{"size_t Ent_GetId(IScriptedEntity@ pEntity)", func(args scripting.Args) (scripting.Value, error) {
			if i := ents.IndexOf(args.Ref(0)); i >= 0 {
				return scripting.QWord(i), nil
			}
			return scripting.QWord(noIndex), nil
		}},
		{"void Ent_Move(IScriptedEntity@ pThis, float fSpeed, MovementDir dir)", func(args scripting.Args) (scripting.Value, error) {
			ents.MoveObject(args.Ref(0), args.Float(1), entity.MovementDir(args.Int(2)), a.FPS)
			return nil, nil
		}},
	}
}
