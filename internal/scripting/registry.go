package scripting

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unsafe"

	lua "github.com/yuin/gopher-lua"
)

// TypeKind selects copy or reference semantics for a registered type.
type TypeKind int

const (
	ValueType TypeKind = iota
	ReferenceType
)

// TypeHandle and EnumHandle address registered entries; zero is invalid.
type (
	TypeHandle int
	EnumHandle int
)

type member struct {
	index []int
	spec  TypeSpec
	elem  *typeInfo // registered struct members are exposed by reference
}

type ctor struct {
	sig *Signature
	fn  CtorFunc
}

type typeInfo struct {
	name    string
	size    int
	kind    TypeKind
	goType  reflect.Type
	meta    *lua.LTable
	members map[string]member
	methods map[string]*lua.LFunction
	ctors   []ctor
	dtor    DtorFunc
}

func (ti *typeInfo) owns(ud *lua.LUserData) bool { return ud.Metatable == ti.meta }

type enumInfo struct {
	name   string
	values *lua.LTable
	names  map[string]int
}

type interfaceInfo struct {
	name    string
	methods []*Signature
}

// Registry declares the native surface visible to scripts: enumerations,
// type aliases, value and reference types with members, methods and
// constructors, script interfaces and global functions. It is sealed by the
// first LoadScript; registration errors are meant to abort bring-up.
type Registry struct {
	e      *Engine
	sealed bool

	types    map[string]*typeInfo
	typeList []*typeInfo
	byGo     map[reflect.Type]*typeInfo
	byMeta   map[*lua.LTable]*typeInfo
	live     map[*lua.LUserData]*typeInfo

	enums    map[string]*enumInfo
	enumList []*enumInfo

	typedefs   map[string]string
	interfaces map[string]*interfaceInfo
	funcKeys   map[string]bool
	funcNames  map[string]bool
}

func newRegistry(e *Engine) *Registry {
	return &Registry{
		e:          e,
		types:      make(map[string]*typeInfo),
		byGo:       make(map[reflect.Type]*typeInfo),
		byMeta:     make(map[*lua.LTable]*typeInfo),
		live:       make(map[*lua.LUserData]*typeInfo),
		enums:      make(map[string]*enumInfo),
		typedefs:   make(map[string]string),
		interfaces: make(map[string]*interfaceInfo),
		funcKeys:   make(map[string]bool),
		funcNames:  make(map[string]bool),
	}
}

func (r *Registry) seal() { r.sealed = true }

// Sealed reports whether registration is closed.
func (r *Registry) Sealed() bool { return r.sealed }

func regErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRegistration, fmt.Sprintf(format, args...))
}

func (r *Registry) check(name string) error {
	if r.sealed {
		return fmt.Errorf("%w: %s", ErrRegistrySealed, name)
	}
	if !isIdent(name) {
		return regErr("invalid name %q", name)
	}
	if r.known(name) {
		return regErr("%s already registered", name)
	}
	return nil
}

func (r *Registry) known(name string) bool {
	if _, ok := builtinTypes[name]; ok {
		return true
	}
	_, t := r.types[name]
	_, en := r.enums[name]
	_, td := r.typedefs[name]
	_, in := r.interfaces[name]
	return t || en || td || in || r.funcNames[name]
}

// resolveType maps a type name used in a declaration to its spec.
func (r *Registry) resolveType(name string) (TypeSpec, bool) {
	for i := 0; i < 8; i++ {
		target, ok := r.typedefs[name]
		if !ok {
			break
		}
		if ts, ok := builtinTypes[target]; ok {
			ts.Name = name
			return ts, true
		}
		name = target
	}
	if _, ok := r.enums[name]; ok {
		return TypeSpec{Name: name, Tag: TagDWord, Signed: true}, true
	}
	if _, ok := r.types[name]; ok {
		return TypeSpec{Name: name, Tag: TagObject}, true
	}
	if _, ok := r.interfaces[name]; ok {
		return TypeSpec{Name: name, Tag: TagObject}, true
	}
	return TypeSpec{}, false
}

func (r *Registry) parse(decl string) (*Signature, error) {
	sig, err := parseSignature(decl, r.resolveType)
	if err != nil {
		return nil, regErr("%v", err)
	}
	return sig, nil
}

// --- enumerations ---

// RegisterEnum creates an enumeration scripts read as Name.Value.
func (r *Registry) RegisterEnum(name string) (EnumHandle, error) {
	if err := r.check(name); err != nil {
		return 0, err
	}
	vm := r.e.vm
	values := vm.NewTable()
	proxy := vm.NewTable()
	meta := vm.NewTable()
	meta.RawSetString("__index", values)
	meta.RawSetString("__newindex", vm.NewFunction(func(L *lua.LState) int {
		L.RaiseError("enum %s is read-only", name)
		return 0
	}))
	vm.SetMetatable(proxy, meta)
	vm.SetGlobal(name, proxy)

	en := &enumInfo{name: name, values: values, names: make(map[string]int)}
	r.enums[name] = en
	r.enumList = append(r.enumList, en)
	return EnumHandle(len(r.enumList)), nil
}

func (r *Registry) AddEnumValue(h EnumHandle, name string, value int) error {
	if r.sealed {
		return fmt.Errorf("%w: %s", ErrRegistrySealed, name)
	}
	if h <= 0 || int(h) > len(r.enumList) {
		return regErr("invalid enum handle %d", h)
	}
	en := r.enumList[h-1]
	if !isIdent(name) {
		return regErr("invalid enum value name %q", name)
	}
	if _, dup := en.names[name]; dup {
		return regErr("%s.%s already registered", en.name, name)
	}
	en.names[name] = value
	en.values.RawSetString(name, lua.LNumber(value))
	return nil
}

// EnumValue looks up a registered enumeration value.
func (r *Registry) EnumValue(enum, name string) (int, bool) {
	en, ok := r.enums[enum]
	if !ok {
		return 0, false
	}
	v, ok := en.names[name]
	return v, ok
}

// enumValue resolves "Enum::Value", "Enum.Value" or a bare value name.
func (r *Registry) enumValue(text string) (int, bool) {
	for _, sep := range []string{"::", "."} {
		if i := strings.Index(text, sep); i > 0 {
			return r.EnumValue(text[:i], text[i+len(sep):])
		}
	}
	for _, en := range r.enumList {
		if v, ok := en.names[text]; ok {
			return v, true
		}
	}
	return 0, false
}

// --- type aliases ---

// RegisterTypeDef makes alias usable in declarations wherever target is.
func (r *Registry) RegisterTypeDef(alias, target string) error {
	if err := r.check(alias); err != nil {
		return err
	}
	if _, ok := builtinTypes[target]; !ok {
		if _, ok := r.resolveType(target); !ok {
			return regErr("typedef %s: unknown type %q", alias, target)
		}
	}
	r.typedefs[alias] = target
	return nil
}

// --- types ---

// RegisterType declares an object type. Without a bound Go type (see
// RegisterTypeOf) the type is opaque: scripts can hold and pass it but not
// construct it or read members.
func (r *Registry) RegisterType(name string, size int, kind TypeKind) (TypeHandle, error) {
	if err := r.check(name); err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, regErr("type %s: negative size", name)
	}
	vm := r.e.vm
	ti := &typeInfo{
		name:    name,
		size:    size,
		kind:    kind,
		meta:    vm.NewTable(),
		members: make(map[string]member),
		methods: make(map[string]*lua.LFunction),
	}
	r.installMeta(ti)
	vm.SetGlobal(name, vm.NewFunction(r.constructor(ti)))

	r.types[name] = ti
	r.byMeta[ti.meta] = ti
	r.typeList = append(r.typeList, ti)
	return TypeHandle(len(r.typeList)), nil
}

// RegisterTypeOf registers a type backed by the Go struct T.
func RegisterTypeOf[T any](r *Registry, name string, kind TypeKind) (TypeHandle, error) {
	var zero T
	h, err := r.RegisterType(name, int(unsafe.Sizeof(zero)), kind)
	if err != nil {
		return 0, err
	}
	if err := r.BindGoType(h, reflect.TypeOf(zero)); err != nil {
		return 0, err
	}
	return h, nil
}

// BindGoType attaches the Go struct type that backs instances of h. Its size
// must match the registered size.
func (r *Registry) BindGoType(h TypeHandle, t reflect.Type) error {
	ti, err := r.typeAt(h)
	if err != nil {
		return err
	}
	if t.Kind() != reflect.Struct {
		return regErr("type %s: %s is not a struct", ti.name, t)
	}
	if int(t.Size()) != ti.size {
		return regErr("type %s: size %d does not match %s (%d)", ti.name, ti.size, t, t.Size())
	}
	if other, dup := r.byGo[t]; dup {
		return regErr("type %s: %s already bound to %s", ti.name, t, other.name)
	}
	ti.goType = t
	r.byGo[t] = ti
	return nil
}

func (r *Registry) typeAt(h TypeHandle) (*typeInfo, error) {
	if r.sealed {
		return nil, fmt.Errorf("%w: type handle %d", ErrRegistrySealed, h)
	}
	if h <= 0 || int(h) > len(r.typeList) {
		return nil, regErr("invalid type handle %d", h)
	}
	return r.typeList[h-1], nil
}

// AddMember exposes the exported struct field at byte offset as name.
func (r *Registry) AddMember(h TypeHandle, name string, offset uintptr) error {
	ti, err := r.typeAt(h)
	if err != nil {
		return err
	}
	if ti.goType == nil {
		return regErr("type %s: members need a bound Go type", ti.name)
	}
	if _, dup := ti.members[name]; dup {
		return regErr("%s.%s already registered", ti.name, name)
	}
	for i := 0; i < ti.goType.NumField(); i++ {
		f := ti.goType.Field(i)
		if f.Offset != offset || f.Type.Size() == 0 {
			continue
		}
		if !f.IsExported() {
			return regErr("%s.%s: field %s is unexported", ti.name, name, f.Name)
		}
		spec, elem, err := r.specOfGo(f.Type)
		if err != nil {
			return regErr("%s.%s: %v", ti.name, name, err)
		}
		ti.members[name] = member{index: f.Index, spec: spec, elem: elem}
		return nil
	}
	return regErr("%s.%s: no field at offset %d", ti.name, name, offset)
}

func (r *Registry) specOfGo(t reflect.Type) (TypeSpec, *typeInfo, error) {
	switch t.Kind() {
	case reflect.Bool:
		return TypeSpec{Name: "bool", Tag: TagByte, Bool: true}, nil, nil
	case reflect.Int8:
		return TypeSpec{Name: "int8", Tag: TagByte, Signed: true}, nil, nil
	case reflect.Uint8:
		return TypeSpec{Name: "uint8", Tag: TagByte}, nil, nil
	case reflect.Int16:
		return TypeSpec{Name: "int16", Tag: TagWord, Signed: true}, nil, nil
	case reflect.Uint16:
		return TypeSpec{Name: "uint16", Tag: TagWord}, nil, nil
	case reflect.Int, reflect.Int32:
		return TypeSpec{Name: "int", Tag: TagDWord, Signed: true}, nil, nil
	case reflect.Uint, reflect.Uint32:
		return TypeSpec{Name: "uint", Tag: TagDWord}, nil, nil
	case reflect.Int64:
		return TypeSpec{Name: "int64", Tag: TagQWord, Signed: true}, nil, nil
	case reflect.Uint64:
		return TypeSpec{Name: "uint64", Tag: TagQWord}, nil, nil
	case reflect.Float32:
		return TypeSpec{Name: "float", Tag: TagFloat}, nil, nil
	case reflect.Float64:
		return TypeSpec{Name: "double", Tag: TagDouble}, nil, nil
	case reflect.String:
		return TypeSpec{Name: "string", Tag: TagString}, nil, nil
	case reflect.Struct:
		if ti, ok := r.byGo[t]; ok {
			return TypeSpec{Name: ti.name, Tag: TagObject}, ti, nil
		}
	}
	return TypeSpec{}, nil, fmt.Errorf("unsupported field type %s", t)
}

// AddMethod binds a method callable from scripts as obj:Name(...).
func (r *Registry) AddMethod(h TypeHandle, decl string, fn MethodFunc) error {
	ti, err := r.typeAt(h)
	if err != nil {
		return err
	}
	sig, err := r.parse(decl)
	if err != nil {
		return err
	}
	if _, dup := ti.methods[sig.Name]; dup {
		return regErr("%s.%s already registered", ti.name, sig.Name)
	}
	if _, clash := ti.members[sig.Name]; clash {
		return regErr("%s.%s clashes with a member", ti.name, sig.Name)
	}
	e := r.e
	ti.methods[sig.Name] = e.vm.NewFunction(e.wrap(sig, 2, func(L *lua.LState, args Args) (Value, error) {
		ud, ok := L.Get(1).(*lua.LUserData)
		if !ok || !ti.owns(ud) {
			return nil, callErr(ErrNullInstance, ti.name+":"+sig.Name, fmt.Errorf("receiver is not a %s", ti.name))
		}
		return fn(ud.Value, args)
	}))
	return nil
}

// AddConstructDestructHooks installs the construction and destruction hooks
// of h. ctorDecl lists the constructor parameters, e.g. "(int x, int y)";
// an empty declaration with a nil ctor keeps the zero-value default.
// Destructors run on Destroy or when the engine closes.
func (r *Registry) AddConstructDestructHooks(h TypeHandle, ctorDecl string, ctorFn CtorFunc, dtor DtorFunc) error {
	ti, err := r.typeAt(h)
	if err != nil {
		return err
	}
	if ti.dtor != nil && dtor != nil {
		return regErr("type %s: destructor already registered", ti.name)
	}
	if ctorFn != nil {
		if err := r.AddConstructor(h, ctorDecl, ctorFn); err != nil {
			return err
		}
	}
	if dtor != nil {
		ti.dtor = dtor
	}
	return nil
}

// AddConstructor adds a constructor overload. Overloads are chosen by
// argument count, first registered first.
func (r *Registry) AddConstructor(h TypeHandle, decl string, fn CtorFunc) error {
	ti, err := r.typeAt(h)
	if err != nil {
		return err
	}
	if ti.goType == nil {
		return regErr("type %s: constructors need a bound Go type", ti.name)
	}
	decl = strings.TrimSpace(decl)
	if decl == "" {
		decl = "()"
	}
	if strings.HasPrefix(decl, "(") {
		decl = "void " + ti.name + decl
	}
	sig, err := r.parse(decl)
	if err != nil {
		return err
	}
	for _, c := range ti.ctors {
		if c.sig.Key() == sig.Key() {
			return regErr("constructor %s already registered", sig.Key())
		}
	}
	ti.ctors = append(ti.ctors, ctor{sig: sig, fn: fn})
	return nil
}

func (r *Registry) constructor(ti *typeInfo) lua.LGFunction {
	e := r.e
	return func(L *lua.LState) int {
		n := L.GetTop()
		if len(ti.ctors) == 0 && ti.goType != nil && n == 0 {
			L.Push(r.newUserData(ti, reflect.New(ti.goType).Interface(), true))
			return 1
		}
		var lastErr error
		for _, c := range ti.ctors {
			if n < c.sig.Required() || n > len(c.sig.Params) {
				continue
			}
			args, refs, err := e.readArgs(L, c.sig, 1)
			if err != nil {
				releaseAll(refs)
				lastErr = err
				continue
			}
			obj, err := c.fn(args)
			releaseAll(refs)
			if err != nil {
				e.raise(L, err)
			}
			L.Push(r.newUserData(ti, obj, true))
			return 1
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no constructor takes %d arguments", n)
		}
		e.raise(L, callErr(ErrArgumentBinding, ti.name, lastErr))
		return 0
	}
}

func (r *Registry) installMeta(ti *typeInfo) {
	vm := r.e.vm
	ti.meta.RawSetString("__name", lua.LString(ti.name))
	ti.meta.RawSetString("__index", vm.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		key := L.CheckString(2)
		if fn, ok := ti.methods[key]; ok {
			L.Push(fn)
			return 1
		}
		if m, ok := ti.members[key]; ok && ud.Value != nil {
			L.Push(r.memberGet(ud.Value, m))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	}))
	ti.meta.RawSetString("__newindex", vm.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		key := L.CheckString(2)
		m, ok := ti.members[key]
		if !ok || ud.Value == nil {
			L.RaiseError("%s has no member %s", ti.name, key)
			return 0
		}
		if err := r.memberSet(ud.Value, m, L.Get(3)); err != nil {
			L.RaiseError("%s.%s: %v", ti.name, key, err)
		}
		return 0
	}))
	ti.meta.RawSetString("__tostring", vm.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		L.Push(lua.LString(fmt.Sprintf("%s%+v", ti.name, reflect.Indirect(reflect.ValueOf(ud.Value)))))
		return 1
	}))
	if ti.kind == ValueType {
		ti.meta.RawSetString("__eq", vm.NewFunction(func(L *lua.LState) int {
			a, b := L.CheckUserData(1), L.CheckUserData(2)
			L.Push(lua.LBool(reflect.DeepEqual(a.Value, b.Value)))
			return 1
		}))
	}
}

func (r *Registry) memberGet(obj any, m member) lua.LValue {
	fv := reflect.ValueOf(obj).Elem().FieldByIndex(m.index)
	switch fv.Kind() {
	case reflect.Bool:
		return lua.LBool(fv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(fv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(fv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(fv.Float())
	case reflect.String:
		return lua.LString(fv.String())
	case reflect.Struct:
		if m.elem != nil {
			return r.newUserData(m.elem, fv.Addr().Interface(), false)
		}
	}
	return lua.LNil
}

func (r *Registry) memberSet(obj any, m member, lv lua.LValue) error {
	fv := reflect.ValueOf(obj).Elem().FieldByIndex(m.index)
	switch fv.Kind() {
	case reflect.Bool:
		fv.SetBool(lua.LVAsBool(lv))
		return nil
	case reflect.String:
		s, ok := lv.(lua.LString)
		if !ok {
			return fmt.Errorf("want string, got %s", lv.Type())
		}
		fv.SetString(string(s))
		return nil
	case reflect.Struct:
		ud, ok := lv.(*lua.LUserData)
		if !ok || m.elem == nil || !m.elem.owns(ud) {
			return fmt.Errorf("want %s, got %s", m.spec.Name, lv.Type())
		}
		fv.Set(reflect.ValueOf(ud.Value).Elem())
		return nil
	}
	n, ok := lv.(lua.LNumber)
	if !ok {
		return fmt.Errorf("want number, got %s", lv.Type())
	}
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fv.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		fv.SetFloat(float64(n))
	}
	return nil
}

// newUserData wraps a Go pointer. Owned objects are destroyed with the
// engine unless Destroy ran first.
func (r *Registry) newUserData(ti *typeInfo, obj any, owned bool) *lua.LUserData {
	ud := r.e.vm.NewUserData()
	ud.Value = obj
	ud.Metatable = ti.meta
	if owned && ti.dtor != nil {
		r.live[ud] = ti
	}
	return ud
}

func (r *Registry) typeOfUserData(ud *lua.LUserData) *typeInfo {
	mt, ok := ud.Metatable.(*lua.LTable)
	if !ok {
		return nil
	}
	return r.byMeta[mt]
}

func (r *Registry) userDataName(ud *lua.LUserData) string {
	if ti := r.typeOfUserData(ud); ti != nil {
		return ti.name
	}
	return "userdata"
}

func (r *Registry) typeOfGo(ptr any) *typeInfo {
	t := reflect.TypeOf(ptr)
	if t == nil || t.Kind() != reflect.Pointer {
		return nil
	}
	return r.byGo[t.Elem()]
}

// Destroy runs the destructor of an object constructed by a script.
func (r *Registry) Destroy(obj *Ref) bool {
	if !obj.Alive() {
		return false
	}
	ud, ok := obj.lv.(*lua.LUserData)
	if !ok {
		return false
	}
	ti, ok := r.live[ud]
	if !ok {
		return false
	}
	delete(r.live, ud)
	ti.dtor(ud.Value)
	return true
}

func (r *Registry) destroyAll() {
	for ud, ti := range r.live {
		ti.dtor(ud.Value)
	}
	r.live = make(map[*lua.LUserData]*typeInfo)
}

// --- interfaces ---

// RegisterInterface declares a contract script classes implement.
func (r *Registry) RegisterInterface(name string) error {
	if err := r.check(name); err != nil {
		return err
	}
	r.interfaces[name] = &interfaceInfo{name: name}
	return nil
}

func (r *Registry) AddInterfaceMethod(iface, decl string) error {
	if r.sealed {
		return fmt.Errorf("%w: %s", ErrRegistrySealed, iface)
	}
	in, ok := r.interfaces[iface]
	if !ok {
		return regErr("interface %s not registered", iface)
	}
	sig, err := r.parse(decl)
	if err != nil {
		return err
	}
	for _, m := range in.methods {
		if m.Name == sig.Name {
			return regErr("%s.%s already registered", iface, sig.Name)
		}
	}
	in.methods = append(in.methods, sig)
	return nil
}

// InterfaceMethods lists the declared method names of iface, sorted.
func (r *Registry) InterfaceMethods(iface string) []string {
	in, ok := r.interfaces[iface]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(in.methods))
	for _, m := range in.methods {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// --- global functions ---

// RegisterGlobalFunction exposes fn to every module under the declared name.
func (r *Registry) RegisterGlobalFunction(decl string, fn NativeFunc) error {
	if r.sealed {
		return fmt.Errorf("%w: %s", ErrRegistrySealed, decl)
	}
	sig, err := r.parse(decl)
	if err != nil {
		return err
	}
	if r.funcKeys[sig.Key()] {
		return regErr("function %s already registered", sig.Key())
	}
	if r.known(sig.Name) {
		return regErr("function name %s already registered", sig.Name)
	}
	r.funcKeys[sig.Key()] = true
	r.funcNames[sig.Name] = true
	r.e.vm.SetGlobal(sig.Name, r.e.vm.NewFunction(r.e.wrap(sig, 1, func(_ *lua.LState, args Args) (Value, error) {
		return fn(args)
	})))
	return nil
}
