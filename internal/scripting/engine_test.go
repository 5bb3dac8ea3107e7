package scripting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e := NewEngine(opts, zaptest.NewLogger(t))
	t.Cleanup(e.Close)
	return e
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestEnumValueVisibleToScripts(t *testing.T) {
	e := newTestEngine(t, Options{})
	reg := e.Registry()
	h, err := reg.RegisterEnum("MovementDir")
	require.NoError(t, err)
	require.NoError(t, reg.AddEnumValue(h, "MOVE_FORWARD", 0))
	require.NoError(t, reg.AddEnumValue(h, "MOVE_LEFT", 2))
	assert.Error(t, reg.AddEnumValue(h, "MOVE_LEFT", 3))

	path := writeScript(t, t.TempDir(), "enum.lua", `
function Read() return MovementDir.MOVE_LEFT end
function Write() MovementDir.MOVE_UP = 9 end
`)
	mod, err := e.LoadScript(path)
	require.NoError(t, err)

	v, err := e.CallFunction(mod, "Read", nil, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 2, AsInt(v))

	_, err = e.CallFunction(mod, "Write", nil, TagVoid)
	assert.ErrorIs(t, err, ErrExecution)
}

func TestRegistrySealedByFirstLoad(t *testing.T) {
	e := newTestEngine(t, Options{})
	require.NoError(t, e.Registry().RegisterGlobalFunction("int One()", func(Args) (Value, error) { return Int(1), nil }))

	_, err := e.LoadScript(writeScript(t, t.TempDir(), "a.lua", "x = One()"))
	require.NoError(t, err)

	err = e.Registry().RegisterGlobalFunction("int Two()", func(Args) (Value, error) { return Int(2), nil })
	assert.ErrorIs(t, err, ErrRegistrySealed)
	_, err = e.Registry().RegisterEnum("Late")
	assert.ErrorIs(t, err, ErrRegistrySealed)
}

func TestDuplicateRegistrationFails(t *testing.T) {
	e := newTestEngine(t, Options{})
	reg := e.Registry()
	noop := func(Args) (Value, error) { return nil, nil }
	require.NoError(t, reg.RegisterGlobalFunction("void Print(const string &in)", noop))
	assert.ErrorIs(t, reg.RegisterGlobalFunction("void Print(const string &in text)", noop), ErrRegistration)
	assert.ErrorIs(t, reg.RegisterGlobalFunction("void Print(int)", noop), ErrRegistration)
	assert.ErrorIs(t, reg.RegisterGlobalFunction("void Bad(Nope)", noop), ErrRegistration)
	require.NoError(t, reg.RegisterInterface("IScriptedEntity"))
	assert.ErrorIs(t, reg.RegisterInterface("IScriptedEntity"), ErrRegistration)
}

func TestLoadUnloadReload(t *testing.T) {
	e := newTestEngine(t, Options{})
	path := writeScript(t, t.TempDir(), "m.lua", `function Answer() return 42 end`)

	h1, err := e.LoadScript(path)
	require.NoError(t, err)
	v, err := e.CallFunction(h1, "Answer", nil, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 42, AsInt(v))
	fn := e.FindFunctionByName(h1, "Answer")
	require.NotNil(t, fn)

	require.NoError(t, e.UnloadScript(h1))
	assert.ErrorIs(t, e.UnloadScript(h1), ErrResolution)

	h2, err := e.LoadScript(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, err = e.CallFunction(h1, "Answer", nil, TagDWord)
	assert.ErrorIs(t, err, ErrResolution)
	_, err = e.Call(fn, nil, TagDWord)
	assert.ErrorIs(t, err, ErrResolution)

	v, err = e.CallFunction(h2, "Answer", nil, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 42, AsInt(v))
	assert.Equal(t, 1, e.ModuleCount())
}

func TestLoadScriptErrors(t *testing.T) {
	var diags []Diagnostic
	e := newTestEngine(t, Options{Diagnostics: func(d Diagnostic) { diags = append(diags, d) }})

	_, err := e.LoadScript(filepath.Join(t.TempDir(), "missing.lua"))
	assert.ErrorIs(t, err, ErrIO)

	path := writeScript(t, t.TempDir(), "broken.lua", "function Ok() end\n\nfunction Broken(\n")
	_, err = e.LoadScript(path)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, path, cerr.Module)
	assert.True(t, hasErrors(cerr.Diagnostics))
	assert.True(t, hasErrors(diags))

	path = writeScript(t, t.TempDir(), "raises.lua", `error("boom")`)
	_, err = e.LoadScript(path)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 0, e.ModuleCount())
}

func TestIncludeResolution(t *testing.T) {
	base := t.TempDir()
	common := filepath.Join(base, "packages", ".common")
	pkg := filepath.Join(base, "packages", "demo")
	writeScript(t, common, "entities/util.lua", `#include "shared.lua"
function Double(x) return Twice(x) end`)
	writeScript(t, common, "entities/shared.lua", `function Twice(x) return x * 2 end`)
	writeScript(t, pkg, "entities/base.lua", `Base = { kind = "base" }`)
	main := writeScript(t, pkg, "entities/player.lua", `#include "base.lua"
#include "${COMMON}/entities/util.lua"
#include "nowhere.lua"
#include "base.lua"
function Kind() return Base.kind end
function Quad(x) return Double(Double(x)) end`)

	var diags []Diagnostic
	e := newTestEngine(t, Options{
		Includes:    IncludePolicy{CommonRoot: common, PackageRoot: pkg},
		Diagnostics: func(d Diagnostic) { diags = append(diags, d) },
	})
	h, err := e.LoadScript(main)
	require.NoError(t, err, "a missing include is reported but does not fail the build")

	v, err := e.CallFunction(h, "Quad", []Value{Int(3)}, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 12, AsInt(v))
	v, err = e.CallFunction(h, "Kind", nil, TagString)
	require.NoError(t, err)
	assert.Equal(t, "base", AsString(v))

	mod, ok := e.Module(h)
	require.True(t, ok)
	assert.Len(t, mod.Sections(), 4)

	var missing *Diagnostic
	for i := range diags {
		if diags[i].Severity == SeverityError {
			missing = &diags[i]
		}
	}
	require.NotNil(t, missing)
	assert.Equal(t, main, missing.Section)
	assert.Equal(t, 3, missing.Row)
}

func TestIncludePolicyResolve(t *testing.T) {
	p := IncludePolicy{CommonRoot: "/g/packages/.common", PackageRoot: "/g/packages/demo"}
	assert.Equal(t, filepath.Clean("/g/packages/demo/entities/a.lua"), p.Resolve("/g/packages/demo/entities/b.lua", "a.lua"))
	assert.Equal(t, filepath.Clean("/g/packages/.common/entities/a.lua"), p.Resolve("/g/packages/.common/entities/b.lua", "a.lua"))
	assert.Equal(t, filepath.Clean("/g/packages/.common/x/a.lua"), p.Resolve("/g/packages/demo/b.lua", "${COMMON}/x/a.lua"))
}

func TestShadowingGlobalIsWarning(t *testing.T) {
	var warned []string
	e := newTestEngine(t, Options{Diagnostics: func(d Diagnostic) {
		if d.Severity == SeverityWarning {
			warned = append(warned, d.Message)
		}
	}})
	_, err := e.LoadScript(writeScript(t, t.TempDir(), "s.lua", `API_VERSION = 7`))
	require.NoError(t, err)
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0], "API_VERSION")
}

const playerClass = `
CPlayer = {}
CPlayer.__index = CPlayer

function CPlayer.new()
	local self = setmetatable({}, CPlayer)
	self.hp = 100
	return self
end

function CPlayer:GetName() return "player" end
function CPlayer:Damage(n) self.hp = self.hp - n; return self.hp end
function CPlayer:Self() return self end
`

func TestAllocAndCallMethod(t *testing.T) {
	e := newTestEngine(t, Options{})
	h, err := e.LoadScript(writeScript(t, t.TempDir(), "p.lua", playerClass))
	require.NoError(t, err)

	obj, err := e.Alloc(h, "CPlayer")
	require.NoError(t, err)
	defer obj.Release()
	assert.Equal(t, h, obj.Module())

	v, err := e.CallMethod(obj, "string GetName()", nil, TagString)
	require.NoError(t, err)
	assert.Equal(t, "player", AsString(v))

	v, err = e.CallMethod(obj, "int Damage(int)", []Value{Int(30)}, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 70, AsInt(v))

	_, err = e.CallMethod(obj, "int Damage(int)", []Value{String("x")}, TagDWord)
	assert.ErrorIs(t, err, ErrArgumentBinding)
	_, err = e.CallMethod(obj, "int Damage(int)", nil, TagDWord)
	assert.ErrorIs(t, err, ErrArgumentBinding)
	_, err = e.CallMethod(obj, "GetName", nil, TagDWord)
	assert.ErrorIs(t, err, ErrArgumentBinding, "a string cannot be read as dword")

	_, err = e.CallMethod(obj, "Missing", nil, TagVoid)
	assert.ErrorIs(t, err, ErrResolution)

	_, err = e.Alloc(h, "CNothing")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestRefIdentityAndRelease(t *testing.T) {
	e := newTestEngine(t, Options{})
	h, err := e.LoadScript(writeScript(t, t.TempDir(), "p.lua", playerClass))
	require.NoError(t, err)

	obj, err := e.Alloc(h, "CPlayer")
	require.NoError(t, err)

	v, err := e.CallMethod(obj, "Self", nil, TagObject)
	require.NoError(t, err)
	same := AsRef(v)
	assert.Same(t, obj, same)
	assert.Equal(t, 2, obj.Count())

	ReleaseValue(v)
	clone := obj.Clone()
	assert.Same(t, obj, clone)
	clone.Release()
	obj.Release()
	assert.False(t, obj.Alive())
	assert.Equal(t, 0, e.LiveRefs())

	_, err = e.CallMethod(obj, "GetName", nil, TagString)
	assert.ErrorIs(t, err, ErrNullInstance)
	_, err = e.CallMethod(nil, "GetName", nil, TagString)
	assert.ErrorIs(t, err, ErrNullInstance)
}

func TestMethodOnObjectOfUnloadedModule(t *testing.T) {
	e := newTestEngine(t, Options{})
	h, err := e.LoadScript(writeScript(t, t.TempDir(), "p.lua", playerClass))
	require.NoError(t, err)
	obj, err := e.Alloc(h, "CPlayer")
	require.NoError(t, err)
	defer obj.Release()

	require.NoError(t, e.UnloadScript(h))
	_, err = e.CallMethod(obj, "GetName", nil, TagString)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestFindFunctionBySignature(t *testing.T) {
	e := newTestEngine(t, Options{})
	h, err := e.LoadScript(writeScript(t, t.TempDir(), "f.lua", `
function Add(a, b) return a + b end
function Sum(...) local s = 0 for _, v in ipairs({...}) do s = s + v end return s end
`))
	require.NoError(t, err)

	assert.NotNil(t, e.FindFunctionBySignature(h, "int Add(int, int)"))
	assert.Nil(t, e.FindFunctionBySignature(h, "int Add(int)"))
	assert.NotNil(t, e.FindFunctionBySignature(h, "int Sum(int, int, int)"))
	assert.Nil(t, e.FindFunctionByName(h, "Nope"))

	v, err := e.CallFunction(h, "int Add(int, int)", []Value{Int(-2), Int(5)}, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 3, AsInt(v))

	v, err = e.CallFunction(h, "Add", []Value{Double(0.5), Float(0.25)}, TagDouble)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, AsFloat(v), 1e-9)
}

func TestNativeBindingFailureSurfaces(t *testing.T) {
	e := newTestEngine(t, Options{})
	var got []int
	require.NoError(t, e.Registry().RegisterGlobalFunction("void Record(int value, int times = 1)", func(a Args) (Value, error) {
		for i := 0; i < a.Int(1); i++ {
			got = append(got, a.Int(0))
		}
		return nil, nil
	}))
	h, err := e.LoadScript(writeScript(t, t.TempDir(), "n.lua", `
function Good() Record(7) Record(1, 2) end
function Bad() Record("seven") end
`))
	require.NoError(t, err)

	_, err = e.CallFunction(h, "Good", nil, TagVoid)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1, 1}, got)

	_, err = e.CallFunction(h, "Bad", nil, TagVoid)
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, ErrArgumentBinding)
}

func TestReentrantCallsKeepSeparateContexts(t *testing.T) {
	e := newTestEngine(t, Options{MaxCallDepth: 8})
	var h ModuleHandle
	require.NoError(t, e.Registry().RegisterGlobalFunction("int Native_Fact(int n)", func(a Args) (Value, error) {
		n := a.Int(0)
		if n <= 1 {
			return Int(1), nil
		}
		v, err := e.CallFunction(h, "Fact", []Value{Int(n - 1)}, TagDWord)
		if err != nil {
			return nil, err
		}
		return Int(n * AsInt(v)), nil
	}))
	var err error
	h, err = e.LoadScript(writeScript(t, t.TempDir(), "r.lua", `function Fact(n) return Native_Fact(n) end`))
	require.NoError(t, err)

	v, err := e.CallFunction(h, "Fact", []Value{Int(5)}, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 120, AsInt(v))
	assert.Equal(t, 0, e.Depth())

	_, err = e.CallFunction(h, "Fact", []Value{Int(20)}, TagDWord)
	assert.ErrorIs(t, err, ErrExecution)
	assert.Equal(t, 0, e.Depth())
}

func TestCallTimeout(t *testing.T) {
	e := newTestEngine(t, Options{CallTimeout: 50 * time.Millisecond})
	h, err := e.LoadScript(writeScript(t, t.TempDir(), "loop.lua", `
function Spin() while true do end end
function Fine() return 1 end
`))
	require.NoError(t, err)

	_, err = e.CallFunction(h, "Spin", nil, TagVoid)
	assert.ErrorIs(t, err, ErrExecution)

	v, err := e.CallFunction(h, "Fine", nil, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 1, AsInt(v))
}

type vec2 struct {
	X int
	Y int
}

func TestValueTypeConstructorsAndMembers(t *testing.T) {
	e := newTestEngine(t, Options{})
	reg := e.Registry()
	th, err := RegisterTypeOf[vec2](reg, "Vector", ValueType)
	require.NoError(t, err)
	require.NoError(t, reg.AddMember(th, "x", unsafe.Offsetof(vec2{}.X)))
	require.NoError(t, reg.AddMember(th, "y", unsafe.Offsetof(vec2{}.Y)))
	assert.Error(t, reg.AddMember(th, "z", 99))
	require.NoError(t, reg.AddConstructor(th, "(int x, int y)", func(a Args) (any, error) {
		return &vec2{X: a.Int(0), Y: a.Int(1)}, nil
	}))
	require.NoError(t, reg.AddConstructor(th, "(const Vector &in other)", func(a Args) (any, error) {
		src := a.Native(0).(*vec2)
		return &vec2{X: src.X, Y: src.Y}, nil
	}))
	require.NoError(t, reg.AddMethod(th, "int LengthSq()", func(self any, _ Args) (Value, error) {
		v := self.(*vec2)
		return Int(v.X*v.X + v.Y*v.Y), nil
	}))
	require.NoError(t, reg.RegisterGlobalFunction("Vector Swap(const Vector &in v)", func(a Args) (Value, error) {
		v := a.Native(0).(*vec2)
		ref, err := e.Wrap(&vec2{X: v.Y, Y: v.X})
		if err != nil {
			return nil, err
		}
		return Object{Ref: ref}, nil
	}))

	h, err := e.LoadScript(writeScript(t, t.TempDir(), "v.lua", `
function Make() local v = Vector(3, 4); v.x = v.x + 1; return v end
function Len() return Vector(Vector(3, 4)):LengthSq() end
function Swapped() return Swap(Vector(1, 2)).x end
function Same() return Vector(1, 2) == Vector(1, 2) end
`))
	require.NoError(t, err)

	v, err := e.CallFunction(h, "Make", nil, TagObject)
	require.NoError(t, err)
	ref := AsRef(v)
	require.NotNil(t, ref)
	assert.Equal(t, &vec2{X: 4, Y: 4}, ref.Native())
	assert.Equal(t, "Vector", ref.TypeName())
	ReleaseValue(v)

	v, err = e.CallFunction(h, "Len", nil, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 25, AsInt(v))

	v, err = e.CallFunction(h, "Swapped", nil, TagDWord)
	require.NoError(t, err)
	assert.Equal(t, 2, AsInt(v))

	v, err = e.CallFunction(h, "Same", nil, TagByte)
	require.NoError(t, err)
	assert.True(t, AsBool(v))
	assert.Equal(t, 0, e.LiveRefs())
}

type sprite struct{ Freed *int }

func TestDestructorsRunOnDestroyOrClose(t *testing.T) {
	e := NewEngine(Options{}, zaptest.NewLogger(t))
	reg := e.Registry()
	freed := 0
	th, err := RegisterTypeOf[sprite](reg, "Sprite", ReferenceType)
	require.NoError(t, err)
	require.NoError(t, reg.AddConstructDestructHooks(th, "()",
		func(Args) (any, error) { return &sprite{Freed: &freed}, nil },
		func(obj any) { *obj.(*sprite).Freed++ }))

	h, err := e.LoadScript(writeScript(t, t.TempDir(), "s.lua", `
function One() return Sprite() end
function Two() local a, b = Sprite(), Sprite() end
`))
	require.NoError(t, err)

	v, err := e.CallFunction(h, "One", nil, TagObject)
	require.NoError(t, err)
	assert.True(t, reg.Destroy(AsRef(v)))
	assert.False(t, reg.Destroy(AsRef(v)))
	ReleaseValue(v)
	assert.Equal(t, 1, freed)

	_, err = e.CallFunction(h, "Two", nil, TagVoid)
	require.NoError(t, err)
	e.Close()
	assert.Equal(t, 3, freed)
}

func TestWrappedPointersStayGoOwned(t *testing.T) {
	e := NewEngine(Options{}, zaptest.NewLogger(t))
	reg := e.Registry()
	freed := 0
	th, err := RegisterTypeOf[sprite](reg, "Sprite", ReferenceType)
	require.NoError(t, err)
	require.NoError(t, reg.AddConstructDestructHooks(th, "()",
		func(Args) (any, error) { return &sprite{Freed: &freed}, nil },
		func(obj any) { *obj.(*sprite).Freed++ }))

	own := &sprite{Freed: &freed}
	ref, err := e.Wrap(own)
	require.NoError(t, err)
	assert.Same(t, own, ref.Native())
	assert.False(t, reg.Destroy(ref))
	ref.Release()

	e.Close()
	assert.Zero(t, freed)
}

func TestInterfaceImplementation(t *testing.T) {
	e := newTestEngine(t, Options{})
	reg := e.Registry()
	require.NoError(t, reg.RegisterInterface("INamed"))
	require.NoError(t, reg.AddInterfaceMethod("INamed", "string GetName()"))
	require.NoError(t, reg.AddInterfaceMethod("INamed", "void Rename(const string &in)"))
	assert.Equal(t, []string{"GetName", "Rename"}, reg.InterfaceMethods("INamed"))

	h, err := e.LoadScript(writeScript(t, t.TempDir(), "p.lua", playerClass))
	require.NoError(t, err)
	obj, err := e.Alloc(h, "CPlayer")
	require.NoError(t, err)
	defer obj.Release()

	missing, err := e.Implements(obj, "INamed")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rename"}, missing)
}

func TestPrecompileWarmsCache(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.lua", "b.lua", "c.lua"} {
		paths = append(paths, writeScript(t, dir, name, "function F() return 1 end"))
	}
	e := newTestEngine(t, Options{})
	require.NoError(t, e.Precompile(context.Background(), paths, 2))
	assert.Equal(t, 3, e.CachedSections())

	bad := writeScript(t, dir, "bad.lua", "function (")
	err := e.Precompile(context.Background(), append(paths, bad), 2)
	var cerr *CompileError
	assert.True(t, errors.As(err, &cerr))

	_, err = e.LoadScript(paths[0])
	require.NoError(t, err)
}
