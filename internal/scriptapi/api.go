// Package scriptapi registers the engine functions game scripts call: drawing,
// sound, entity queries, console variables, HUD, localization and property
// storage. Everything is registered once, before the first script loads.
package scriptapi

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/cvar"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/hud"
	"github.com/casualgame/engine/internal/input"
	"github.com/casualgame/engine/internal/locale"
	"github.com/casualgame/engine/internal/persist"
	"github.com/casualgame/engine/internal/render"
	"github.com/casualgame/engine/internal/scripting"
	"github.com/casualgame/engine/internal/sound"
)

// Package describes the running game package.
type Package struct {
	Name       string
	Path       string // package directory, with trailing separator
	CommonPath string // shared directory, with trailing separator
}

// Session is the game-level control surface. LoadMap and SaveGame are
// expected to defer their work until the current tick ends.
type Session interface {
	CurrentMap() string
	LoadMap(name string)
	SaveGame()
	Started() bool
}

// Deps are the services the API forwards to. Sound, HUD, Locale, Props,
// Bindings and Session may be nil; the functions backed by them then report
// failure or a neutral value.
type Deps struct {
	Engine   *scripting.Engine
	Entities *entity.Manager
	Renderer render.Renderer
	Sound    sound.Player
	CVars    *cvar.Store
	HUD      *hud.HUD
	Locale   *locale.Catalog
	Props    persist.PropStore
	Bindings *input.Bindings
	Session  Session
	Package  Package
	FPS      int
	Rand     *rand.Rand
	Log      *zap.Logger

	// PropsTimeout bounds a single property store operation.
	PropsTimeout time.Duration
}

type api struct {
	Deps
	script *zap.Logger
}

type fn struct {
	decl string
	call scripting.NativeFunc
}

// Register installs the whole API into d.Engine's registry. The entity
// script types (Vector, Model, interfaces) must already be registered.
func Register(d Deps) error {
	if d.Engine == nil || d.Entities == nil || d.Renderer == nil || d.CVars == nil {
		return fmt.Errorf("scriptapi: engine, entities, renderer and cvars are required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if d.FPS <= 0 {
		d.FPS = 60
	}
	if d.PropsTimeout <= 0 {
		d.PropsTimeout = 5 * time.Second
	}
	a := &api{Deps: d, script: d.Log.Named("script")}

	if err := a.registerTypes(); err != nil {
		return err
	}
	groups := [][]fn{
		a.gameFuncs(),
		a.renderFuncs(),
		a.soundFuncs(),
		a.entityFuncs(),
		a.utilFuncs(),
		a.cvarFuncs(),
		a.hudFuncs(),
	}
	reg := d.Engine.Registry()
	for _, g := range groups {
		for _, f := range g {
			if err := reg.RegisterGlobalFunction(f.decl, f.call); err != nil {
				return fmt.Errorf("register %s: %w", f.decl, err)
			}
		}
	}
	return nil
}

func (a *api) registerTypes() error {
	reg := a.Engine.Registry()
	for _, alias := range []string{"FontHandle", "SoundHandle", "CVarHandle"} {
		if err := reg.RegisterTypeDef(alias, "uint64"); err != nil {
			return err
		}
	}
	enums := []struct {
		name   string
		values []string
	}{
		{"HudInfoMessageColor", hud.MessageColorNames},
		{"CVarType", []string{"CVAR_TYPE_BOOL", "CVAR_TYPE_INT", "CVAR_TYPE_FLOAT", "CVAR_TYPE_STRING"}},
	}
	for _, en := range enums {
		h, err := reg.RegisterEnum(en.name)
		if err != nil {
			return err
		}
		for i, v := range en.values {
			if err := reg.AddEnumValue(h, v, i); err != nil {
				return err
			}
		}
	}
	return registerColor(reg)
}

func registerColor(reg *scripting.Registry) error {
	h, err := scripting.RegisterTypeOf[render.Color](reg, "Color", scripting.ValueType)
	if err != nil {
		return err
	}
	var c render.Color
	for _, m := range []struct {
		name   string
		offset uintptr
	}{
		{"r", unsafe.Offsetof(c.R)}, {"g", unsafe.Offsetof(c.G)},
		{"b", unsafe.Offsetof(c.B)}, {"a", unsafe.Offsetof(c.A)},
	} {
		if err := reg.AddMember(h, m.name, m.offset); err != nil {
			return err
		}
	}
	if err := reg.AddConstructor(h, "()", func(scripting.Args) (any, error) {
		return &render.Color{}, nil
	}); err != nil {
		return err
	}
	return reg.AddConstructor(h, "(uint8 r, uint8 g, uint8 b, uint8 a)", func(a scripting.Args) (any, error) {
		return &render.Color{R: uint8(a.Uint(0)), G: uint8(a.Uint(1)), B: uint8(a.Uint(2)), A: uint8(a.Uint(3))}, nil
	})
}

func vec(a scripting.Args, i int) geom.Vector {
	if v, ok := a.Native(i).(*geom.Vector); ok && v != nil {
		return *v
	}
	return geom.Vector{}
}

func color(a scripting.Args, i int) render.Color {
	if c, ok := a.Native(i).(*render.Color); ok && c != nil {
		return *c
	}
	return render.White
}

// object hands a fresh reference to ent's script object to the caller.
func object(ent *entity.Entity) scripting.Value {
	if ent == nil {
		return scripting.Object{}
	}
	return scripting.Object{Ref: ent.Object().Clone()}
}

func (a *api) wrapVector(v geom.Vector) (scripting.Value, error) {
	ref, err := a.Engine.Wrap(&v)
	if err != nil {
		return nil, err
	}
	return scripting.Object{Ref: ref}, nil
}

func (a *api) propsCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.PropsTimeout)
}

func (a *api) gameFuncs() []fn {
	str := func(s func() string) scripting.NativeFunc {
		return func(scripting.Args) (scripting.Value, error) { return scripting.String(s()), nil }
	}
	return []fn{
		{"string GetPackageName()", str(func() string { return a.Package.Name })},
		{"string GetPackagePath()", str(func() string { return a.Package.Path })},
		{"string GetCommonPath()", str(func() string { return a.Package.CommonPath })},
		{"string GetCurrentMap()", str(func() string {
			if a.Session == nil {
				return ""
			}
			return a.Session.CurrentMap()
		})},
		{"void LoadMap(const string &in map)", func(args scripting.Args) (scripting.Value, error) {
			if a.Session != nil {
				a.Session.LoadMap(args.String(0))
			}
			return nil, nil
		}},
		{"void TriggerGameSave()", func(scripting.Args) (scripting.Value, error) {
			if a.Session != nil {
				a.Session.SaveGame()
			}
			return nil, nil
		}},
		{"void Print(const string& in)", func(args scripting.Args) (scripting.Value, error) {
			a.script.Info(args.String(0))
			return nil, nil
		}},
		{"void PrintClr(const string& in, const Color &in)", func(args scripting.Args) (scripting.Value, error) {
			c := color(args, 1)
			a.script.Info(args.String(0), zap.String("color", fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)))
			return nil, nil
		}},
		{"int GetKeyBinding(const string &in)", func(args scripting.Args) (scripting.Value, error) {
			if a.Bindings == nil {
				return scripting.Int(input.Unbound), nil
			}
			return scripting.Int(a.Bindings.Code(args.String(0))), nil
		}},
	}
}
