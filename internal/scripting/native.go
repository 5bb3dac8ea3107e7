package scripting

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Args are the converted arguments of a native call, one per declared
// parameter with defaults filled in.
type Args []Value

func (a Args) at(i int) Value {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

func (a Args) Int(i int) int       { return AsInt(a.at(i)) }
func (a Args) Uint(i int) uint64   { return AsUint(a.at(i)) }
func (a Args) Float(i int) float64 { return AsFloat(a.at(i)) }
func (a Args) Bool(i int) bool     { return AsBool(a.at(i)) }
func (a Args) String(i int) string { return AsString(a.at(i)) }
func (a Args) Ref(i int) *Ref      { return AsRef(a.at(i)) }
func (a Args) Native(i int) any    { return a.Ref(i).Native() }
func (a Args) Pointer(i int) any {
	if p, ok := a.at(i).(Pointer); ok {
		return p.P
	}
	return nil
}

// NativeFunc implements a registered global function. Object arguments are
// borrowed for the duration of the call; Clone what must outlive it. A
// returned Object is handed over to the script.
type NativeFunc func(args Args) (Value, error)

// MethodFunc implements a method of a registered type; self is the Go
// pointer bound to the receiver.
type MethodFunc func(self any, args Args) (Value, error)

// CtorFunc builds the Go pointer behind a new script-visible object.
type CtorFunc func(args Args) (any, error)

// DtorFunc releases resources of a constructed object.
type DtorFunc func(obj any)

func (e *Engine) currentModule() ModuleHandle {
	if cc := e.current(); cc != nil {
		return cc.module
	}
	return 0
}

// raise records err for the enclosing marshaled call and raises it as a
// script error. It does not return.
func (e *Engine) raise(L *lua.LState, err error) {
	if cc := e.current(); cc != nil && cc.nativeErr == nil {
		cc.nativeErr = err
	}
	L.RaiseError("%s", err.Error())
}

// readArgs converts the stack slots from base on according to sig.
func (e *Engine) readArgs(L *lua.LState, sig *Signature, base int) (Args, []*Ref, error) {
	n := L.GetTop() - base + 1
	if n < 0 {
		n = 0
	}
	if n > len(sig.Params) {
		return nil, nil, fmt.Errorf("%s takes %d arguments, got %d", sig.Name, len(sig.Params), n)
	}
	args := make(Args, len(sig.Params))
	var refs []*Ref
	for i, p := range sig.Params {
		var lv lua.LValue
		switch {
		case i < n:
			lv = L.Get(base + i)
		case p.Default != "":
			var err error
			if lv, err = e.literal(p.Default, p.Type); err != nil {
				return nil, refs, fmt.Errorf("argument %d default: %w", i+1, err)
			}
		default:
			return nil, refs, fmt.Errorf("missing argument %d (%s %s)", i+1, p.Type.Name, p.Name)
		}
		v, err := e.fromLua(lv, p.Type, e.currentModule())
		if err != nil {
			return nil, refs, fmt.Errorf("argument %d: %w", i+1, err)
		}
		if o, ok := v.(Object); ok {
			if o.Ref == nil && !p.Type.Handle {
				return nil, refs, fmt.Errorf("argument %d: null %s reference", i+1, p.Type.Name)
			}
			if o.Ref != nil {
				refs = append(refs, o.Ref)
			}
		}
		args[i] = v
	}
	return args, refs, nil
}

func releaseAll(refs []*Ref) {
	for _, r := range refs {
		r.Release()
	}
}

// wrap turns a native implementation into a Lua function. base is the
// first stack slot holding a declared argument (2 for methods).
func (e *Engine) wrap(sig *Signature, base int, call func(L *lua.LState, args Args) (Value, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		args, refs, err := e.readArgs(L, sig, base)
		if err != nil {
			releaseAll(refs)
			e.raise(L, callErr(ErrArgumentBinding, sig.Name, err))
		}
		ret, err := call(L, args)
		releaseAll(refs)
		if err != nil {
			e.raise(L, err)
		}
		if sig.Return.Tag == TagVoid {
			return 0
		}
		if ret == nil {
			if sig.Return.Tag != TagObject {
				e.raise(L, callErr(ErrArgumentBinding, sig.Name, fmt.Errorf("missing %s return value", sig.Return.Tag)))
			}
			ret = Object{}
		}
		if ret.Tag() != sig.Return.Tag {
			ReleaseValue(ret)
			e.raise(L, callErr(ErrArgumentBinding, sig.Name,
				fmt.Errorf("returned %s, declared %s", ret.Tag(), sig.Return.Tag)))
		}
		lv, err := e.toLua(ret, &sig.Return)
		ReleaseValue(ret)
		if err != nil {
			e.raise(L, callErr(ErrArgumentBinding, sig.Name, fmt.Errorf("return value: %w", err)))
		}
		L.Push(lv)
		return 1
	}
}

// literal converts a default-value literal from a declaration.
func (e *Engine) literal(text string, spec TypeSpec) (lua.LValue, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "true":
		return lua.LTrue, nil
	case text == "false":
		return lua.LFalse, nil
	case text == "null":
		return lua.LNil, nil
	case len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"':
		return lua.LString(text[1 : len(text)-1]), nil
	}
	if n, err := strconv.ParseFloat(strings.TrimSuffix(text, "f"), 64); err == nil {
		return lua.LNumber(n), nil
	}
	if v, ok := e.reg.enumValue(text); ok {
		return lua.LNumber(v), nil
	}
	return nil, fmt.Errorf("unsupported default %q for %s", text, spec.Name)
}
