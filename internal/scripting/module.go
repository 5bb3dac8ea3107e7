package scripting

import (
	"fmt"
	"sort"

	"github.com/casualgame/engine/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ModuleHandle identifies a loaded script module. Handles are generational:
// after UnloadScript every copy of the handle stops resolving, even when a
// later load reuses the slot.
type ModuleHandle uint64

func (h ModuleHandle) id() ecs.ID   { return ecs.ID(h) }
func (h ModuleHandle) IsZero() bool { return h == 0 }
func (h ModuleHandle) String() string {
	return fmt.Sprintf("%d#%d", ecs.ID(h).Index(), ecs.ID(h).Generation())
}

// Module is one built script unit: the main file plus its includes, sharing
// one environment table that falls back to the engine globals.
type Module struct {
	handle   ModuleHandle
	path     string
	env      *lua.LTable
	sections []string
}

func (m *Module) Path() string       { return m.path }
func (m *Module) Sections() []string { return m.sections }

// LoadScript builds and runs the script at path in a fresh module
// environment. The first call seals the registry.
func (e *Engine) LoadScript(path string) (ModuleHandle, error) {
	e.reg.seal()

	u, err := e.opts.Includes.build(path)
	if err != nil {
		return 0, err
	}
	e.report(u.diags...)

	protos, diags := e.cache.compileUnit(u)
	e.report(diags...)
	if hasErrors(diags) {
		return 0, &CompileError{Module: path, Diagnostics: append(u.diags, diags...)}
	}

	env := e.vm.NewTable()
	meta := e.vm.NewTable()
	meta.RawSetString("__index", e.vm.G.Global)
	e.vm.SetMetatable(env, meta)

	mod := &Module{path: path, env: env}
	h := ModuleHandle(e.modules.Insert(mod))
	mod.handle = h

	for i, proto := range protos {
		fn := e.vm.NewFunctionFromProto(proto)
		fn.Env = env
		if err := e.pcall("load "+u.sections[i].name, h, fn, 0); err != nil {
			e.modules.Remove(h.id())
			d := Diagnostic{Section: u.sections[i].name, Severity: SeverityError, Message: err.Error()}
			e.report(d)
			return 0, &CompileError{Module: path, Diagnostics: append(u.diags, d)}
		}
		mod.sections = append(mod.sections, u.sections[i].name)
	}

	var shadowed []string
	env.ForEach(func(k, _ lua.LValue) {
		if name, ok := k.(lua.LString); ok && e.vm.G.Global.RawGetString(string(name)) != lua.LNil {
			shadowed = append(shadowed, string(name))
		}
	})
	sort.Strings(shadowed)
	for _, name := range shadowed {
		e.report(Diagnostic{
			Section:  path,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("module global %q shadows an engine global", name),
		})
	}

	e.log.Info("script module loaded",
		zap.String("path", path),
		zap.Stringer("handle", h),
		zap.Int("sections", len(mod.sections)))
	return h, nil
}

// UnloadScript discards a module. Objects it created stay referenced but any
// call through them fails with ErrResolution.
func (e *Engine) UnloadScript(h ModuleHandle) error {
	mod, ok := e.modules.Remove(h.id())
	if !ok {
		return fmt.Errorf("%w: module %v not loaded", ErrResolution, h)
	}
	e.log.Info("script module unloaded", zap.String("path", mod.path), zap.Stringer("handle", h))
	return nil
}

// Module returns the loaded module for h.
func (e *Engine) Module(h ModuleHandle) (*Module, bool) {
	return e.modules.Get(h.id())
}

// ModuleCount is the number of loaded modules.
func (e *Engine) ModuleCount() int { return e.modules.Len() }

// FindFunctionByName returns the module-level function name, or nil.
func (e *Engine) FindFunctionByName(h ModuleHandle, name string) *Function {
	mod, ok := e.modules.Get(h.id())
	if !ok {
		return nil
	}
	fn, ok := mod.env.RawGetString(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	return &Function{module: h, name: name, fn: fn}
}

// FindFunctionBySignature resolves a declaration. A script function matches
// when its name matches and it accepts exactly the declared parameters (or is
// variadic).
func (e *Engine) FindFunctionBySignature(h ModuleHandle, decl string) *Function {
	sig, err := parseSignature(decl, e.reg.resolveType)
	if err != nil {
		e.log.Debug("bad declaration", zap.String("decl", decl), zap.Error(err))
		return nil
	}
	fn := e.FindFunctionByName(h, sig.Name)
	if fn == nil {
		return nil
	}
	if p := fn.fn.Proto; p != nil && p.IsVarArg == 0 && int(p.NumParameters) != len(sig.Params) {
		return nil
	}
	fn.sig = sig
	return fn
}

func (e *Engine) report(diags ...Diagnostic) {
	for _, d := range diags {
		if e.opts.Diagnostics != nil {
			e.opts.Diagnostics(d)
		}
		fields := []zap.Field{
			zap.String("section", d.Section),
			zap.Int("row", d.Row),
			zap.Int("col", d.Col),
		}
		switch d.Severity {
		case SeverityInfo:
			e.log.Info(d.Message, fields...)
		case SeverityWarning:
			e.log.Warn(d.Message, fields...)
		default:
			e.log.Error(d.Message, fields...)
		}
	}
}

func hasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
