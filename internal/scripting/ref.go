package scripting

import lua "github.com/yuin/gopher-lua"

// Ref is a counted handle to a script table or a registered native object.
// The engine keeps exactly one Ref per underlying object, so Clone returns
// the receiver and identity comparisons on *Ref are meaningful. Every
// acquisition (Alloc, an Object return value, Clone) must be paired with one
// Release.
type Ref struct {
	e      *Engine
	lv     lua.LValue
	count  int
	module ModuleHandle
}

// acquire returns the Ref for lv with its count incremented.
func (e *Engine) acquire(lv lua.LValue, module ModuleHandle) *Ref {
	if r, ok := e.refs[lv]; ok {
		r.count++
		return r
	}
	r := &Ref{e: e, lv: lv, count: 1, module: module}
	e.refs[lv] = r
	return r
}

func (r *Ref) Clone() *Ref {
	if !r.Alive() {
		return nil
	}
	r.count++
	return r
}

// Release drops one reference. Releasing a dead Ref is a no-op.
func (r *Ref) Release() {
	if !r.Alive() {
		return
	}
	r.count--
	if r.count == 0 {
		delete(r.e.refs, r.lv)
	}
}

func (r *Ref) Alive() bool { return r != nil && r.count > 0 }

// Count is the number of outstanding acquisitions.
func (r *Ref) Count() int {
	if r == nil {
		return 0
	}
	return r.count
}

// Module is the module the object was created by, zero for native objects.
func (r *Ref) Module() ModuleHandle { return r.module }

// Native returns the Go value behind a registered native object, or nil for
// script tables.
func (r *Ref) Native() any {
	if r == nil {
		return nil
	}
	if ud, ok := r.lv.(*lua.LUserData); ok {
		return ud.Value
	}
	return nil
}

// TypeName is the registered type of a native object or "table".
func (r *Ref) TypeName() string {
	if r == nil {
		return ""
	}
	if ud, ok := r.lv.(*lua.LUserData); ok {
		if ti := r.e.reg.typeOfUserData(ud); ti != nil {
			return ti.name
		}
		return "userdata"
	}
	return r.lv.Type().String()
}

// LiveRefs reports how many distinct objects are currently referenced from Go.
func (e *Engine) LiveRefs() int { return len(e.refs) }
