package scripting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casualgame/engine/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Options configures an Engine.
type Options struct {
	// MaxCallDepth bounds nested marshaled calls (Go -> script -> native ->
	// script ...). Zero selects 64.
	MaxCallDepth int
	// CallTimeout, when positive, aborts an outermost call that runs longer.
	CallTimeout time.Duration
	// Includes decides where #include directives resolve.
	Includes IncludePolicy
	// Diagnostics receives build messages in addition to the logger.
	Diagnostics DiagnosticHandler
}

// Engine wraps a single gopher-lua VM together with the type registry, the
// loaded script modules and the references Go holds into the VM.
// Single-goroutine access only (game loop); Precompile is the exception.
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	opts    Options
	reg     *Registry
	modules *ecs.Slots[*Module]
	refs    map[lua.LValue]*Ref
	calls   []*callContext
	cache   *protoCache
	methods map[string]*Signature
	closed  bool
}

// callContext is the per-invocation state of one marshaled call. Nested
// calls push their own context, so re-entrant calls never share buffers.
type callContext struct {
	target    string
	module    ModuleHandle
	nativeErr error
}

func NewEngine(opts Options, log *zap.Logger) *Engine {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:      vm,
		log:     log,
		opts:    opts,
		modules: ecs.NewSlots[*Module](),
		refs:    make(map[lua.LValue]*Ref, 64),
		cache:   newProtoCache(),
		methods: make(map[string]*Signature),
	}
	e.reg = newRegistry(e)
	return e
}

// Registry returns the type registry. Registration must finish before the
// first LoadScript.
func (e *Engine) Registry() *Registry { return e.reg }

func (e *Engine) current() *callContext {
	if len(e.calls) == 0 {
		return nil
	}
	return e.calls[len(e.calls)-1]
}

// Depth is the number of marshaled calls currently on the stack.
func (e *Engine) Depth() int { return len(e.calls) }

// pcall runs fn in protected mode with a fresh call context and leaves nret
// results on the stack on success.
func (e *Engine) pcall(target string, module ModuleHandle, fn lua.LValue, nret int, args ...lua.LValue) error {
	if len(e.calls) >= e.opts.MaxCallDepth {
		return callErr(ErrExecution, target, fmt.Errorf("call depth limit %d reached", e.opts.MaxCallDepth))
	}
	cc := &callContext{target: target, module: module}
	e.calls = append(e.calls, cc)
	if len(e.calls) == 1 && e.opts.CallTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.CallTimeout)
		e.vm.SetContext(ctx)
		defer func() {
			e.vm.RemoveContext()
			cancel()
		}()
	}
	err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, args...)
	e.calls = e.calls[:len(e.calls)-1]
	if err != nil {
		if cc.nativeErr != nil {
			err = errors.Join(cc.nativeErr, err)
		}
		return callErr(ErrExecution, target, err)
	}
	return nil
}

// field looks up obj[name] honoring metatables, in protected mode so a
// failing __index never unwinds the Go stack.
func (e *Engine) field(obj lua.LValue, name string) lua.LValue {
	switch obj.(type) {
	case *lua.LTable, *lua.LUserData:
	default:
		return lua.LNil
	}
	top := e.vm.GetTop()
	err := e.vm.GPCall(func(L *lua.LState) int {
		L.Push(L.GetField(obj, name))
		return 1
	}, lua.LNil)
	if err != nil {
		e.vm.SetTop(top)
		return lua.LNil
	}
	lv := e.vm.Get(-1)
	e.vm.SetTop(top)
	return lv
}

// toLua converts a marshaled value for the script side. spec may be nil.
func (e *Engine) toLua(v Value, spec *TypeSpec) (lua.LValue, error) {
	switch x := v.(type) {
	case nil, Void:
		return nil, fmt.Errorf("void is not a value")
	case Byte:
		if spec != nil && spec.Bool {
			return lua.LBool(x != 0), nil
		}
		if spec != nil && spec.Signed {
			return lua.LNumber(int8(x)), nil
		}
		return lua.LNumber(x), nil
	case Word:
		if spec != nil && spec.Signed {
			return lua.LNumber(int16(x)), nil
		}
		return lua.LNumber(x), nil
	case DWord:
		if spec == nil || spec.Signed {
			return lua.LNumber(int32(x)), nil
		}
		return lua.LNumber(x), nil
	case QWord:
		if spec == nil || spec.Signed {
			return lua.LNumber(int64(x)), nil
		}
		return lua.LNumber(x), nil
	case Float:
		return lua.LNumber(x), nil
	case Double:
		return lua.LNumber(x), nil
	case String:
		return lua.LString(x), nil
	case Pointer:
		if x.P == nil {
			return lua.LNil, nil
		}
		ud := e.vm.NewUserData()
		ud.Value = x.P
		return ud, nil
	case Object:
		if x.Ref == nil {
			return lua.LNil, nil
		}
		if !x.Ref.Alive() {
			return nil, ErrNullInstance
		}
		return x.Ref.lv, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

// fromLua reads lv with the expected tag. Object results are acquired for the
// caller and attributed to module.
func (e *Engine) fromLua(lv lua.LValue, spec TypeSpec, module ModuleHandle) (Value, error) {
	bad := func() (Value, error) {
		return nil, fmt.Errorf("cannot read %s as %s", lv.Type(), spec.Tag)
	}
	switch spec.Tag {
	case TagVoid:
		return Void{}, nil
	case TagByte:
		switch x := lv.(type) {
		case lua.LBool:
			return Bool(bool(x)), nil
		case *lua.LNilType:
			if spec.Bool {
				return Bool(false), nil
			}
		case lua.LNumber:
			if spec.Bool {
				return Bool(x != 0), nil
			}
			return Byte(int64(x)), nil
		}
		return bad()
	case TagWord, TagDWord, TagQWord:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return bad()
		}
		switch spec.Tag {
		case TagWord:
			return Word(int64(n)), nil
		case TagDWord:
			return DWord(int64(n)), nil
		}
		if spec.Signed {
			return QWord(int64(n)), nil
		}
		return QWord(uint64(n)), nil
	case TagFloat, TagDouble:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return bad()
		}
		if spec.Tag == TagFloat {
			return Float(n), nil
		}
		return Double(n), nil
	case TagString:
		switch x := lv.(type) {
		case lua.LString:
			return String(x), nil
		case lua.LNumber:
			return String(x.String()), nil
		}
		return bad()
	case TagPointer:
		switch x := lv.(type) {
		case *lua.LNilType:
			return Pointer{}, nil
		case *lua.LUserData:
			return Pointer{P: x.Value}, nil
		}
		return bad()
	case TagObject:
		switch lv.(type) {
		case *lua.LNilType:
			return Object{}, nil
		case *lua.LTable:
			return Object{Ref: e.acquire(lv, module)}, nil
		case *lua.LUserData:
			ud := lv.(*lua.LUserData)
			if ti := e.reg.types[spec.Name]; ti != nil && !ti.owns(ud) {
				return nil, fmt.Errorf("cannot read %s as %s", e.reg.userDataName(ud), spec.Name)
			}
			return Object{Ref: e.acquire(lv, 0)}, nil
		}
		return bad()
	}
	return bad()
}

// Wrap exposes a Go pointer of a registered type to scripts. The returned
// Ref is acquired; pass it as an Object value and release it afterwards.
func (e *Engine) Wrap(ptr any) (*Ref, error) {
	ti := e.reg.typeOfGo(ptr)
	if ti == nil {
		return nil, fmt.Errorf("%w: %T is not a registered type", ErrArgumentBinding, ptr)
	}
	return e.acquire(e.reg.newUserData(ti, ptr, false), 0), nil
}

// Close runs pending native destructors and shuts down the Lua VM.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.reg.destroyAll()
	e.refs = map[lua.LValue]*Ref{}
	e.vm.Close()
}
