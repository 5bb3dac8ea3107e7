package scripting

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Function is a script function resolved inside a module.
type Function struct {
	module ModuleHandle
	name   string
	sig    *Signature
	fn     *lua.LFunction
}

func (f *Function) Name() string          { return f.name }
func (f *Function) Module() ModuleHandle  { return f.module }
func (f *Function) Signature() *Signature { return f.sig }

// CallFunction resolves nameOrDecl in the module and calls it. A string
// containing '(' is treated as a declaration.
func (e *Engine) CallFunction(h ModuleHandle, nameOrDecl string, args []Value, ret Tag) (Value, error) {
	var fn *Function
	if strings.ContainsRune(nameOrDecl, '(') {
		fn = e.FindFunctionBySignature(h, nameOrDecl)
	} else {
		fn = e.FindFunctionByName(h, nameOrDecl)
	}
	if fn == nil {
		return nil, callErr(ErrResolution, nameOrDecl, fmt.Errorf("not found in module %v", h))
	}
	return e.Call(fn, args, ret)
}

// Call invokes an already resolved function.
func (e *Engine) Call(fn *Function, args []Value, ret Tag) (Value, error) {
	if fn == nil {
		return nil, callErr(ErrResolution, "<nil>", nil)
	}
	if _, ok := e.modules.Get(fn.module.id()); !ok {
		return nil, callErr(ErrResolution, fn.name, fmt.Errorf("module %v unloaded", fn.module))
	}
	lvArgs, err := e.bindArgs(fn.sig, args)
	if err != nil {
		return nil, callErr(ErrArgumentBinding, fn.name, err)
	}
	return e.invoke(fn.name, fn.module, fn.fn, lvArgs, e.retSpec(fn.sig, ret))
}

// CallMethod invokes a method on a script object; the object is bound as the
// receiver (self) ahead of args. methodDecl is a bare name or a declaration.
func (e *Engine) CallMethod(obj *Ref, methodDecl string, args []Value, ret Tag) (Value, error) {
	if !obj.Alive() {
		return nil, callErr(ErrNullInstance, methodDecl, nil)
	}
	if obj.module != 0 {
		if _, ok := e.modules.Get(obj.module.id()); !ok {
			return nil, callErr(ErrResolution, methodDecl, fmt.Errorf("module %v unloaded", obj.module))
		}
	}
	name, sig, err := e.methodSignature(methodDecl)
	if err != nil {
		return nil, callErr(ErrResolution, methodDecl, err)
	}
	fn, ok := e.field(obj.lv, name).(*lua.LFunction)
	if !ok {
		return nil, callErr(ErrResolution, name, fmt.Errorf("method not found on %s", obj.TypeName()))
	}
	lvArgs, err := e.bindArgs(sig, args)
	if err != nil {
		return nil, callErr(ErrArgumentBinding, name, err)
	}
	lvArgs = append([]lua.LValue{obj.lv}, lvArgs...)
	return e.invoke(name, obj.module, fn, lvArgs, e.retSpec(sig, ret))
}

// HasMethod reports whether obj resolves name to a function.
func (e *Engine) HasMethod(obj *Ref, name string) bool {
	if !obj.Alive() {
		return false
	}
	_, ok := e.field(obj.lv, name).(*lua.LFunction)
	return ok
}

// Alloc instantiates a script class through its factory: ClassName.new()
// when the module defines a class table, else a module function New_<ClassName>.
// The returned Ref is owned by the caller.
func (e *Engine) Alloc(h ModuleHandle, className string) (*Ref, error) {
	mod, ok := e.modules.Get(h.id())
	if !ok {
		return nil, callErr(ErrResolution, className, fmt.Errorf("module %v not loaded", h))
	}
	var (
		factory lua.LValue = lua.LNil
		args    []lua.LValue
	)
	if cls, ok := mod.env.RawGetString(className).(*lua.LTable); ok {
		factory = cls.RawGetString("new")
		args = []lua.LValue{cls}
	}
	if _, ok := factory.(*lua.LFunction); !ok {
		factory = mod.env.RawGetString("New_" + className)
		args = nil
	}
	if _, ok := factory.(*lua.LFunction); !ok {
		return nil, callErr(ErrResolution, className, fmt.Errorf("no factory in %s", mod.path))
	}
	v, err := e.invoke(className+".new", h, factory, args, TypeSpec{Tag: TagObject})
	if err != nil {
		return nil, err
	}
	ref := AsRef(v)
	if ref == nil {
		return nil, callErr(ErrNullInstance, className, fmt.Errorf("factory returned nil"))
	}
	return ref, nil
}

// Implements returns the methods of the registered interface that obj lacks.
func (e *Engine) Implements(obj *Ref, iface string) ([]string, error) {
	in, ok := e.reg.interfaces[iface]
	if !ok {
		return nil, fmt.Errorf("%w: interface %s not registered", ErrResolution, iface)
	}
	if !obj.Alive() {
		return nil, ErrNullInstance
	}
	var missing []string
	for _, m := range in.methods {
		if !e.HasMethod(obj, m.Name) {
			missing = append(missing, m.Name)
		}
	}
	return missing, nil
}

func (e *Engine) invoke(target string, module ModuleHandle, fn lua.LValue, args []lua.LValue, ret TypeSpec) (Value, error) {
	if err := e.pcall(target, module, fn, 1, args...); err != nil {
		return nil, err
	}
	lv := e.vm.Get(-1)
	e.vm.Pop(1)
	v, err := e.fromLua(lv, ret, module)
	if err != nil {
		return nil, callErr(ErrArgumentBinding, target, fmt.Errorf("bind return value: %w", err))
	}
	return v, nil
}

// bindArgs converts args, checking them against sig when one is known.
func (e *Engine) bindArgs(sig *Signature, args []Value) ([]lua.LValue, error) {
	if sig != nil {
		if len(args) < sig.Required() || len(args) > len(sig.Params) {
			return nil, fmt.Errorf("%s takes %d arguments, got %d", sig.Name, len(sig.Params), len(args))
		}
	}
	out := make([]lua.LValue, 0, len(args))
	for i, a := range args {
		var spec *TypeSpec
		if sig != nil {
			spec = &sig.Params[i].Type
			if a == nil || a.Tag() != spec.Tag {
				return nil, fmt.Errorf("argument %d: have %s, want %s", i+1, tagOf(a), spec.Tag)
			}
		}
		lv, err := e.toLua(a, spec)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, lv)
	}
	if sig != nil {
		for _, p := range sig.Params[len(args):] {
			lv, err := e.literal(p.Default, p.Type)
			if err != nil {
				return nil, fmt.Errorf("default of %s: %w", p.Name, err)
			}
			out = append(out, lv)
		}
	}
	return out, nil
}

func tagOf(v Value) Tag {
	if v == nil {
		return TagVoid
	}
	return v.Tag()
}

func (e *Engine) retSpec(sig *Signature, ret Tag) TypeSpec {
	if sig != nil && sig.Return.Tag == ret {
		return sig.Return
	}
	return TypeSpec{Tag: ret, Signed: true}
}

func (e *Engine) methodSignature(decl string) (string, *Signature, error) {
	if !strings.ContainsRune(decl, '(') {
		return decl, nil, nil
	}
	if sig, ok := e.methods[decl]; ok {
		return sig.Name, sig, nil
	}
	sig, err := parseSignature(decl, e.reg.resolveType)
	if err != nil {
		return "", nil, err
	}
	e.methods[decl] = sig
	return sig.Name, sig, nil
}
