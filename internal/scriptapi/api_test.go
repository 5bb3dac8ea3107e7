package scriptapi

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/casualgame/engine/internal/cvar"
	"github.com/casualgame/engine/internal/entity"
	"github.com/casualgame/engine/internal/entity/entitytest"
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/hud"
	"github.com/casualgame/engine/internal/input"
	"github.com/casualgame/engine/internal/locale"
	"github.com/casualgame/engine/internal/persist"
	"github.com/casualgame/engine/internal/render"
	"github.com/casualgame/engine/internal/scripting"
)

type fakeSession struct {
	started bool
	loads   []string
	saves   int
}

func (s *fakeSession) CurrentMap() string  { return "level1" }
func (s *fakeSession) LoadMap(name string) { s.loads = append(s.loads, name) }
func (s *fakeSession) SaveGame()           { s.saves++ }
func (s *fakeSession) Started() bool       { return s.started }

type fixture struct {
	e       *scripting.Engine
	mgr     *entity.Manager
	rec     *render.Recorder
	cvars   *cvar.Store
	hud     *hud.HUD
	session *fakeSession
	pkgDir  string
	mod     scripting.ModuleHandle
}

const apiScript = `
CCoin = CEntity.extend()
function CCoin:Init()
	CEntity.Init(self)
	self.name = "coin"
end

function PackageInfo()
	return GetPackageName() .. "|" .. GetCurrentMap() .. "|" .. GetKeyBinding("ATTACK") .. "|" .. GetKeyBinding("JUMP")
end

function DrawScene()
	local spr = R_LoadSprite("hero.png", 4, 16, 16, 2, false)
	local bad = R_LoadSprite("broken.png", 0, 16, 16, 2, false)
	R_DrawSprite(spr, Vector(5, 6), 3, 0.0, Vector(), 1.0, 1.0, true, Color(1, 2, 3, 4))
	R_DrawString(R_GetDefaultFont(), "hello", Vector(0, 0), Color())
	R_DrawFilledBox(Vector(1, 2), Vector(3, 4), Color(9, 9, 9, 255))
	R_FreeSprite(spr)
	return bad
end

function Camera()
	if not R_ShouldDraw(Vector(150, 50), Vector(32, 32)) then return -1 end
	if R_ShouldDraw(Vector(5000, 50), Vector(32, 32)) then return -2 end
	local p = R_GetDrawingPosition(Vector(150, 50), Vector(32, 32))
	return p.x * 1000 + p.y
end

function Entities()
	local before = Ent_GetEntityCount()
	local coin = CCoin:new()
	if Ent_IsValid(coin) then return -1 end
	if not Ent_SpawnEntity("coin", coin, Vector(40, 40)) then return -2 end
	if not Ent_IsValid(coin) then return -3 end
	if Ent_GetPlayerEntity():GetName() ~= "player" then return -4 end
	if Ent_GetEntityHandle(Ent_GetId(coin)) ~= coin then return -5 end
	if Ent_GetEntityHandle(99) ~= nil then return -6 end
	return (Ent_GetEntityCount() - before) * 10 + Ent_GetEntityNameCount("coin")
end

function Cvars()
	CVar_Register("sv_gravity", CVarType.CVAR_TYPE_INT, "800")
	CVar_SetInt("sv_gravity", 600)
	CVar_Register("cl_name", CVarType.CVAR_TYPE_STRING, "anon")
	return CVar_GetInt("sv_gravity", 0) + CVar_GetInt("missing", 7)
end

function Hud()
	HUD_AddAmmoItem("shells", "gfx/shells.png")
	HUD_UpdateAmmoItem("shells", 5, 50)
	HUD_AddCollectable("coin", "gfx/coin.png", true)
	HUD_UpdateCollectable("coin", 3)
	HUD_UpdateHealth(90)
	HUD_AddMessage("picked up", HudInfoMessageColor.HUD_MSG_COLOR_GREEN)
	HUD_SetEnableStatus(false)
	return HUD_GetAmmoItemCurrent("shells") * 100 + HUD_GetAmmoItemMax("shells") + HUD_GetCollectableCount("coin") * 1000
end

function Props()
	local p = Props_CreateProperty("level", "3") .. Props_CreateProperty("score", "10")
	if not Props_SaveToFile(p, "progress") then return "save failed" end
	if Props_SaveToFile(p, "../escape") then return "escaped" end
	return Props_ExtractValue(Props_GetFromFile("progress"), "score") .. "|" .. Props_GetFromFile("missing")
end

function Lang()
	return _("hud.score") .. "|" .. Lang_QueryPhrase("hud.none", "dflt") .. "|" .. _("hud.none")
end

function Util()
	local r = Util_Random(3, 5)
	if r < 3 or r >= 5 then return "random out of range" end
	return Util_StrReplace("a-b-c", "-", "+") .. "|" .. Util_Random(4, 4)
end

function Session()
	LoadMap("level2")
	TriggerGameSave()
	return S_PlaySound(1, 10)
end
`

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	f := &fixture{
		rec:     render.NewRecorder(geom.Vec(800, 600)),
		cvars:   cvar.NewStore(nil, log),
		session: &fakeSession{},
		pkgDir:  t.TempDir(),
	}
	f.e = scripting.NewEngine(scripting.Options{}, log)
	t.Cleanup(f.e.Close)
	require.NoError(t, entity.RegisterScriptTypes(f.e, f.rec))
	require.NoError(t, f.e.Registry().RegisterGlobalFunction("void Record(const string &in)", func(scripting.Args) (scripting.Value, error) {
		return nil, nil
	}))

	f.mgr = entity.NewManager(f.e, entity.Options{Resolution: geom.Vec(800, 600)}, log)
	t.Cleanup(f.mgr.Release)
	f.hud = hud.New(f.rec, nil, log)

	langDir := filepath.Join(f.pkgDir, "lang", "en")
	require.NoError(t, os.MkdirAll(langDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(langDir, "hud.yaml"), []byte("score: Score\n"), 0o644))
	cat, err := locale.Open(filepath.Join(f.pkgDir, "lang"), "en-US", log)
	require.NoError(t, err)

	bindings, err := input.NewBindings(map[string]string{"ATTACK": "Space"}, func(string) (int, bool) { return 53, true })
	require.NoError(t, err)

	require.NoError(t, Register(Deps{
		Engine:   f.e,
		Entities: f.mgr,
		Renderer: f.rec,
		CVars:    f.cvars,
		HUD:      f.hud,
		Locale:   cat,
		Props:    persist.NewFileStore(f.pkgDir),
		Bindings: bindings,
		Session:  f.session,
		Package:  Package{Name: "demo", Path: f.pkgDir + "/"},
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Log:      log,
	}))

	path := filepath.Join(t.TempDir(), "api.lua")
	require.NoError(t, os.WriteFile(path, []byte(entitytest.Base+entitytest.Player+apiScript), 0o644))
	f.mod, err = f.e.LoadScript(path)
	require.NoError(t, err)
	return f
}

func (f *fixture) call(t *testing.T, decl string, ret scripting.Tag) scripting.Value {
	t.Helper()
	v, err := f.e.CallFunction(f.mod, decl, nil, ret)
	require.NoError(t, err)
	return v
}

func TestRegisterRequiresCoreDeps(t *testing.T) {
	assert.Error(t, Register(Deps{}))
}

func TestPackageInfo(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "demo|level1|53|-1", scripting.AsString(f.call(t, "string PackageInfo()", scripting.TagString)))
}

func TestDrawFunctions(t *testing.T) {
	f := newFixture(t)
	bad := f.call(t, "uint64 DrawScene()", scripting.TagQWord)
	assert.Zero(t, scripting.AsUint(bad), "failed loads report the invalid handle")

	require.Len(t, f.rec.Ops, 3)
	assert.Equal(t, "sprite", f.rec.Ops[0].Kind)
	assert.Equal(t, 3, f.rec.Ops[0].Frame)
	assert.Equal(t, geom.Vec(5, 6), f.rec.Ops[0].Pos)
	assert.Equal(t, render.RGBA(1, 2, 3, 4), f.rec.Ops[0].Color)
	assert.Equal(t, "hello", f.rec.Ops[1].Text)
	assert.Equal(t, render.RGBA(9, 9, 9, 255), f.rec.Ops[2].Color)
	assert.Len(t, f.rec.Freed, 1)
}

func TestCameraFunctions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, -1, scripting.AsInt(f.call(t, "int Camera()", scripting.TagDWord)), "nothing is drawn without a player")
	require.True(t, f.mgr.SpawnNamed(entity.PlayerIdent, f.mod, "CPlayer", geom.Vec(100, 100)))
	assert.Equal(t, 434234, scripting.AsInt(f.call(t, "int Camera()", scripting.TagDWord)))
}

func TestEntityFunctions(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.mgr.SpawnNamed(entity.PlayerIdent, f.mod, "CPlayer", geom.Vec(0, 0)))
	assert.Equal(t, 11, scripting.AsInt(f.call(t, "int Entities()", scripting.TagDWord)))
	assert.Equal(t, 2, f.mgr.Count())
}

func TestCVarFunctions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 607, scripting.AsInt(f.call(t, "int Cvars()", scripting.TagDWord)))
	assert.Equal(t, "anon", f.cvars.GetString("cl_name", ""))
}

func TestHUDFunctions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 3550, scripting.AsInt(f.call(t, "int Hud()", scripting.TagDWord)))
	assert.Equal(t, 90, f.hud.Health())
	assert.False(t, f.hud.Enabled())
	assert.Equal(t, []string{"picked up"}, f.hud.Messages())
}

func TestPropsFunctions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "10|", scripting.AsString(f.call(t, "string Props()", scripting.TagString)))
	_, err := os.Stat(filepath.Join(f.pkgDir, "props", "progress"))
	assert.NoError(t, err)
}

func TestLangAndUtil(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Score|dflt|", scripting.AsString(f.call(t, "string Lang()", scripting.TagString)))
	assert.Equal(t, "a+b+c|4", scripting.AsString(f.call(t, "string Util()", scripting.TagString)))
}

func TestSessionFunctions(t *testing.T) {
	f := newFixture(t)
	assert.False(t, scripting.AsBool(f.call(t, "bool Session()", scripting.TagByte)), "no sound before the game starts")
	assert.Equal(t, []string{"level2"}, f.session.loads)
	assert.Equal(t, 1, f.session.saves)
}
