package entity

import (
	"fmt"
	"unsafe"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/scripting"
)

// Interface names of the entity contract.
const (
	IScriptedEntity   = "IScriptedEntity"
	IPlayerEntity     = "IPlayerEntity"
	ICollectingEntity = "ICollectingEntity"
)

// MovementDir values understood by Move.
type MovementDir int

const (
	MoveForward MovementDir = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveNorth
	MoveSouth
	MoveWest
	MoveEast
)

var movementNames = []string{
	"MOVE_FORWARD", "MOVE_BACKWARD", "MOVE_LEFT", "MOVE_RIGHT",
	"MOVE_NORTH", "MOVE_SOUTH", "MOVE_WEST", "MOVE_EAST",
}

var scriptedEntityMethods = []string{
	"void OnSpawn(const Vector &in vec)",
	"void OnRelease()",
	"void OnProcess()",
	"void OnDraw()",
	"void OnDrawOnTop()",
	"void OnWallCollided()",
	"bool IsCollidable()",
	"void OnCollided(IScriptedEntity@)",
	"Model& GetModel()",
	"Vector& GetPosition()",
	"void SetPosition(const Vector &in)",
	"Vector& GetSize()",
	"float GetRotation()",
	"void SetRotation(float)",
	"void OnDamage(uint32)",
	"bool NeedsRemoval()",
	"bool CanBeDormant()",
	"string GetName()",
	"string GetSaveGameProperties()",
}

var playerEntityMethods = []string{
	"void OnKeyPress(int vKey, bool bDown)",
	"void OnMousePress(int key, bool bDown)",
	"void OnUpdateCursor(const Vector &in pos)",
	"void AddPlayerScore(int amount)",
	"int GetPlayerScore()",
}

var collectingEntityMethods = []string{
	"void AddHealth(uint health)",
	"void AddAmmo(const string &in ident, uint amount)",
}

// RegisterScriptTypes registers the geometry value types (Vector,
// BoundingBox, Model), the MovementDir enum and the entity interfaces.
// sprites backs Model loading.
func RegisterScriptTypes(e *scripting.Engine, sprites geom.SpriteLoader) error {
	reg := e.Registry()
	if err := reg.RegisterTypeDef("SpriteHandle", "uint64"); err != nil {
		return err
	}
	if err := registerMovementDir(reg); err != nil {
		return err
	}
	if err := registerVector(e); err != nil {
		return err
	}
	if err := registerBoundingBox(e); err != nil {
		return err
	}
	if err := registerModel(e, sprites); err != nil {
		return err
	}
	return registerInterfaces(reg)
}

func registerMovementDir(reg *scripting.Registry) error {
	h, err := reg.RegisterEnum("MovementDir")
	if err != nil {
		return err
	}
	for i, name := range movementNames {
		if err := reg.AddEnumValue(h, name, i); err != nil {
			return err
		}
	}
	return nil
}

func registerInterfaces(reg *scripting.Registry) error {
	for _, set := range []struct {
		name    string
		methods []string
	}{
		{IScriptedEntity, scriptedEntityMethods},
		{IPlayerEntity, playerEntityMethods},
		{ICollectingEntity, collectingEntityMethods},
	} {
		if err := reg.RegisterInterface(set.name); err != nil {
			return err
		}
		for _, m := range set.methods {
			if err := reg.AddInterfaceMethod(set.name, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// vectorArg reads a Vector argument; anything else reads as the zero vector.
func vectorArg(a scripting.Args, i int) geom.Vector {
	if v, ok := a.Native(i).(*geom.Vector); ok && v != nil {
		return *v
	}
	return geom.Vector{}
}

func wrapped(e *scripting.Engine, ptr any) (scripting.Value, error) {
	ref, err := e.Wrap(ptr)
	if err != nil {
		return nil, err
	}
	return scripting.Object{Ref: ref}, nil
}

func registerVector(e *scripting.Engine) error {
	reg := e.Registry()
	h, err := scripting.RegisterTypeOf[geom.Vector](reg, "Vector", scripting.ValueType)
	if err != nil {
		return err
	}
	if err := reg.AddMember(h, "x", unsafe.Offsetof(geom.Vector{}.X)); err != nil {
		return err
	}
	if err := reg.AddMember(h, "y", unsafe.Offsetof(geom.Vector{}.Y)); err != nil {
		return err
	}
	ctors := []struct {
		decl string
		fn   scripting.CtorFunc
	}{
		{"()", func(scripting.Args) (any, error) { return &geom.Vector{}, nil }},
		{"(const Vector &in)", func(a scripting.Args) (any, error) {
			v := vectorArg(a, 0)
			return &v, nil
		}},
		{"(int x, int y)", func(a scripting.Args) (any, error) {
			v := geom.Vec(a.Int(0), a.Int(1))
			return &v, nil
		}},
	}
	for _, c := range ctors {
		if err := reg.AddConstructor(h, c.decl, c.fn); err != nil {
			return err
		}
	}

	arith := func(op func(a, b geom.Vector) geom.Vector) scripting.MethodFunc {
		return func(self any, a scripting.Args) (scripting.Value, error) {
			v := op(*self.(*geom.Vector), vectorArg(a, 0))
			return wrapped(e, &v)
		}
	}
	methods := []struct {
		decl string
		fn   scripting.MethodFunc
	}{
		{"int GetX()", func(self any, _ scripting.Args) (scripting.Value, error) {
			return scripting.Int(self.(*geom.Vector).X), nil
		}},
		{"int GetY()", func(self any, _ scripting.Args) (scripting.Value, error) {
			return scripting.Int(self.(*geom.Vector).Y), nil
		}},
		{"int Distance(const Vector &in)", func(self any, a scripting.Args) (scripting.Value, error) {
			return scripting.Int(self.(*geom.Vector).Distance(vectorArg(a, 0))), nil
		}},
		{"void Zero()", func(self any, _ scripting.Args) (scripting.Value, error) {
			*self.(*geom.Vector) = geom.Vector{}
			return nil, nil
		}},
		{"void Assign(const Vector &in)", func(self any, a scripting.Args) (scripting.Value, error) {
			*self.(*geom.Vector) = vectorArg(a, 0)
			return nil, nil
		}},
		{"Vector Add(const Vector &in)", arith(geom.Vector.Add)},
		{"Vector Sub(const Vector &in)", arith(geom.Vector.Sub)},
		{"Vector Mul(const Vector &in)", arith(geom.Vector.Mul)},
		{"Vector Div(const Vector &in)", arith(geom.Vector.Div)},
	}
	for _, m := range methods {
		if err := reg.AddMethod(h, m.decl, m.fn); err != nil {
			return err
		}
	}
	return nil
}

func registerBoundingBox(e *scripting.Engine) error {
	reg := e.Registry()
	h, err := scripting.RegisterTypeOf[geom.BoundingBox](reg, "BoundingBox", scripting.ValueType)
	if err != nil {
		return err
	}
	if err := reg.AddConstructor(h, "()", func(scripting.Args) (any, error) { return &geom.BoundingBox{}, nil }); err != nil {
		return err
	}
	other := func(a scripting.Args, i int) geom.BoundingBox {
		if b, ok := a.Native(i).(*geom.BoundingBox); ok && b != nil {
			return *b
		}
		return geom.BoundingBox{}
	}
	methods := []struct {
		decl string
		fn   scripting.MethodFunc
	}{
		{"bool Alloc()", func(any, scripting.Args) (scripting.Value, error) { return scripting.Bool(true), nil }},
		{"void AddBBoxItem(const Vector &in, const Vector &in)", func(self any, a scripting.Args) (scripting.Value, error) {
			self.(*geom.BoundingBox).Add(vectorArg(a, 0), vectorArg(a, 1))
			return nil, nil
		}},
		{"bool IsCollided(const Vector &in, const Vector &in, const BoundingBox &in)", func(self any, a scripting.Args) (scripting.Value, error) {
			return scripting.Bool(self.(*geom.BoundingBox).Collides(vectorArg(a, 0), vectorArg(a, 1), other(a, 2))), nil
		}},
		{"bool IsInside(const Vector &in, const Vector &in)", func(self any, a scripting.Args) (scripting.Value, error) {
			return scripting.Bool(self.(*geom.BoundingBox).Contains(vectorArg(a, 0), vectorArg(a, 1))), nil
		}},
		{"bool IsEmpty()", func(self any, _ scripting.Args) (scripting.Value, error) {
			return scripting.Bool(self.(*geom.BoundingBox).IsEmpty()), nil
		}},
		{"void Clear()", func(self any, _ scripting.Args) (scripting.Value, error) {
			self.(*geom.BoundingBox).Clear()
			return nil, nil
		}},
	}
	for _, m := range methods {
		if err := reg.AddMethod(h, m.decl, m.fn); err != nil {
			return err
		}
	}
	return nil
}

func registerModel(e *scripting.Engine, sprites geom.SpriteLoader) error {
	reg := e.Registry()
	h, err := scripting.RegisterTypeOf[geom.Model](reg, "Model", scripting.ValueType)
	if err != nil {
		return err
	}
	load := func(path string, force bool) (*geom.Model, error) {
		if sprites == nil {
			return nil, fmt.Errorf("model %s: no sprite loader", path)
		}
		return geom.LoadModel(path, sprites, force)
	}
	err = reg.AddConstructDestructHooks(h, "()",
		func(scripting.Args) (any, error) { return &geom.Model{}, nil },
		func(obj any) { obj.(*geom.Model).Release() })
	if err != nil {
		return err
	}
	err = reg.AddConstructor(h, "(const string &in, bool bForceCustomSize = false)", func(a scripting.Args) (any, error) {
		return load(a.String(0), a.Bool(1))
	})
	if err != nil {
		return err
	}

	model := func(a scripting.Args, i int) *geom.Model {
		m, _ := a.Native(i).(*geom.Model)
		return m
	}
	methods := []struct {
		decl string
		fn   scripting.MethodFunc
	}{
		{"bool Initialize(const string &in szMdlFile, bool bForceCustomSize)", func(self any, a scripting.Args) (scripting.Value, error) {
			m, err := load(a.String(0), a.Bool(1))
			if err != nil {
				return scripting.Bool(false), nil
			}
			dst := self.(*geom.Model)
			dst.Release()
			*dst = *m
			return scripting.Bool(true), nil
		}},
		{"bool Initialize2(const BoundingBox &in, SpriteHandle hSprite)", func(self any, a scripting.Args) (scripting.Value, error) {
			bbox, _ := a.Native(0).(*geom.BoundingBox)
			if bbox == nil {
				return scripting.Bool(false), nil
			}
			dst := self.(*geom.Model)
			dst.Release()
			*dst = *geom.NewModel(*bbox, geom.SpriteID(a.Uint(1)), nil)
			return scripting.Bool(true), nil
		}},
		{"void Release()", func(self any, _ scripting.Args) (scripting.Value, error) {
			self.(*geom.Model).Release()
			return nil, nil
		}},
		{"bool IsCollided(const Vector &in mypos, const Vector &in refpos, const Model &in mdl)", func(self any, a scripting.Args) (scripting.Value, error) {
			return scripting.Bool(self.(*geom.Model).Collides(vectorArg(a, 0), vectorArg(a, 1), model(a, 2))), nil
		}},
		{"bool IsInside(const Vector &in mypos, const Vector &in pos)", func(self any, a scripting.Args) (scripting.Value, error) {
			return scripting.Bool(self.(*geom.Model).Contains(vectorArg(a, 0), vectorArg(a, 1))), nil
		}},
		{"bool IsValid()", func(self any, _ scripting.Args) (scripting.Value, error) {
			return scripting.Bool(self.(*geom.Model).Ready()), nil
		}},
		{"bool Alloc()", func(any, scripting.Args) (scripting.Value, error) { return scripting.Bool(true), nil }},
		{"void SetCenter(const Vector &in)", func(self any, a scripting.Args) (scripting.Value, error) {
			self.(*geom.Model).SetCenter(vectorArg(a, 0))
			return nil, nil
		}},
		{"SpriteHandle Handle()", func(self any, _ scripting.Args) (scripting.Value, error) {
			return scripting.QWord(self.(*geom.Model).Sprite()), nil
		}},
		{"Vector GetCenter()", func(self any, _ scripting.Args) (scripting.Value, error) {
			c := self.(*geom.Model).Center()
			return wrapped(e, &c)
		}},
		{"BoundingBox GetBBox()", func(self any, _ scripting.Args) (scripting.Value, error) {
			b := self.(*geom.Model).BBox().Clone()
			return wrapped(e, &b)
		}},
	}
	for _, m := range methods {
		if err := reg.AddMethod(h, m.decl, m.fn); err != nil {
			return err
		}
	}
	return nil
}
