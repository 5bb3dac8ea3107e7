package entity

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/core/ecs"
	"github.com/casualgame/engine/internal/core/event"
	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/scripting"
)

// dormancyMargin is added to half the larger window dimension to get the
// distance beyond which dormancy-eligible entities are skipped.
const dormancyMargin = 200

// Scripts is the marshaling surface the manager drives entities through.
// *scripting.Engine implements it.
type Scripts interface {
	Alloc(h scripting.ModuleHandle, className string) (*scripting.Ref, error)
	CallMethod(obj *scripting.Ref, methodDecl string, args []scripting.Value, ret scripting.Tag) (scripting.Value, error)
	Implements(obj *scripting.Ref, iface string) ([]string, error)
	HasMethod(obj *scripting.Ref, name string) bool
	Wrap(ptr any) (*scripting.Ref, error)
}

// ModuleResolver maps an entity ident to the module that defines it.
type ModuleResolver interface {
	ModuleOf(ident string) (scripting.ModuleHandle, bool)
}

// Options carries the manager's collaborators.
type Options struct {
	// Resolution is the window size in pixels; it sets the dormancy radius.
	Resolution geom.Vector
	// Bus receives EntitySpawned, EntityReleased and GameOver. Optional.
	Bus *event.Bus
	// Modules resolves idents for SpawnObject. When nil the object's own
	// module is used.
	Modules ModuleResolver
	// Walls blocks Move. Optional.
	Walls WallChecker
}

// WallChecker reports whether a rectangle at pos overlaps level geometry.
type WallChecker interface {
	InsideWall(pos, size geom.Vector) bool
}

// Manager owns the scripted entity list and the player slot. It runs on the
// game loop goroutine only.
type Manager struct {
	scripts Scripts
	log     *zap.Logger
	opts    Options

	world  *ecs.World
	list   []*Entity
	byID   map[ecs.ID]*Entity
	player *Entity

	// halt is the player that ended the game during the last pass; draw
	// passes stop after it.
	halt    *Entity
	visited []collider
}

type collider struct {
	ent   *Entity
	pos   geom.Vector
	model *geom.Model
	ref   *scripting.Ref // keeps model alive for the pass
}

func NewManager(scripts Scripts, opts Options, log *zap.Logger) *Manager {
	return &Manager{
		scripts: scripts,
		log:     log,
		opts:    opts,
		world:   ecs.NewWorld(),
		byID:    make(map[ecs.ID]*Entity),
	}
}

// SetResolution updates the window size used for dormancy.
func (m *Manager) SetResolution(res geom.Vector) { m.opts.Resolution = res }

// Spawn instantiates className from module and spawns it under className as
// ident. Nothing is inserted when any step fails.
func (m *Manager) Spawn(module scripting.ModuleHandle, className string, pos geom.Vector) bool {
	return m.SpawnNamed(className, module, className, pos)
}

// SpawnNamed is Spawn with an explicit ident, e.g. PlayerIdent.
func (m *Manager) SpawnNamed(ident string, module scripting.ModuleHandle, className string, pos geom.Vector) bool {
	obj, err := m.scripts.Alloc(module, className)
	if err != nil {
		m.log.Warn("entity alloc failed",
			zap.String("ident", ident), zap.String("class", className), zap.Error(err))
		return false
	}
	if _, err := m.add(ident, module, obj, pos); err != nil {
		obj.Release()
		m.log.Warn("entity spawn failed", zap.String("ident", ident), zap.Error(err))
		return false
	}
	return true
}

// SpawnObject spawns an object a script already constructed. The manager
// takes its own reference; the caller keeps theirs.
func (m *Manager) SpawnObject(ident string, obj *scripting.Ref, pos geom.Vector) bool {
	if !obj.Alive() {
		return false
	}
	module := obj.Module()
	if m.opts.Modules != nil {
		h, ok := m.opts.Modules.ModuleOf(ident)
		if !ok {
			m.log.Warn("entity spawn: unknown ident", zap.String("ident", ident))
			return false
		}
		module = h
	}
	own := obj.Clone()
	if _, err := m.add(ident, module, own, pos); err != nil {
		own.Release()
		m.log.Warn("entity spawn failed", zap.String("ident", ident), zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) add(ident string, module scripting.ModuleHandle, obj *scripting.Ref, pos geom.Vector) (*Entity, error) {
	if !obj.Alive() {
		return nil, scripting.ErrNullInstance
	}
	missing, err := m.scripts.Implements(obj, IScriptedEntity)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s lacks %s", IScriptedEntity, strings.Join(missing, ", "))
	}

	ent := &Entity{ident: ident, module: module, obj: obj, state: StateSpawning}
	const onSpawn = "void OnSpawn(const Vector &in)"
	m.logCallErr(ent, onSpawn, m.callWithVector(ent, onSpawn, pos))
	ent.id = m.world.CreateEntity()
	ent.state = StateActive
	m.list = append(m.list, ent)
	m.byID[ent.id] = ent
	if ident == PlayerIdent {
		m.player = ent
	}
	if m.opts.Bus != nil {
		event.Emit(m.opts.Bus, event.EntitySpawned{EntityID: ent.id, Ident: ident})
	}
	m.log.Debug("entity spawned",
		zap.String("ident", ident), zap.Uint64("id", uint64(ent.id)),
		zap.Int("x", pos.X), zap.Int("y", pos.Y))
	return ent, nil
}

// Process runs one tick over the entity list. It returns true when the
// player entity asked to be removed; the pass stops at the player and the
// caller is expected to switch to its game-over state.
func (m *Manager) Process() bool {
	m.halt = nil
	playerPos, hasPlayer := m.PlayerPosition()

	m.visited = m.visited[:0]
	defer m.releaseVisited()

	gameOver := false
	// Entities spawned during the pass are appended and processed in it.
	for i := 0; i < len(m.list); i++ {
		ent := m.list[i]
		if ent.state != StateActive {
			continue
		}
		ent.dormant = m.isDormant(ent, playerPos, hasPlayer)
		if ent.dormant {
			continue
		}
		m.call(ent, "void OnProcess()")
		if ent.state != StateActive {
			continue
		}
		m.collide(ent)

		if !m.callBool(ent, "bool NeedsRemoval()") {
			continue
		}
		if m.callString(ent, "string GetName()") == PlayerIdent {
			m.halt = ent
			gameOver = true
			m.emitGameOver(ent)
			break
		}
		ent.state = StatePendingRemoval
		m.world.MarkForDestruction(ent.id)
	}
	m.compact()
	return gameOver
}

// collide tests ent against every entity processed earlier in this pass, so
// each unordered pair is tested once per tick.
func (m *Manager) collide(ent *Entity) {
	if !m.callBool(ent, "bool IsCollidable()") {
		return
	}
	model, ref := m.model(ent)
	if model == nil {
		return
	}
	pos, ok := m.position(ent)
	if !ok {
		ref.Release()
		return
	}
	for _, other := range m.visited {
		if other.ent.state != StateActive || ent.state != StateActive {
			continue
		}
		if model.Collides(pos, other.pos, other.model) {
			m.notifyCollision(ent, other.ent)
			m.notifyCollision(other.ent, ent)
		}
	}
	m.visited = append(m.visited, collider{ent: ent, pos: pos, model: model, ref: ref})
}

func (m *Manager) notifyCollision(ent, peer *Entity) {
	p := peer.obj.Clone()
	defer p.Release()
	_, err := m.scripts.CallMethod(ent.obj, "void OnCollided(IScriptedEntity@)",
		[]scripting.Value{scripting.Object{Ref: p}}, scripting.TagVoid)
	m.logCallErr(ent, "OnCollided", err)
}

func (m *Manager) releaseVisited() {
	for _, c := range m.visited {
		c.ref.Release()
	}
	m.visited = m.visited[:0]
}

func (m *Manager) emitGameOver(player *Entity) {
	score := 0
	if m.scripts.HasMethod(player.obj, "GetPlayerScore") {
		v, err := m.scripts.CallMethod(player.obj, "int GetPlayerScore()", nil, scripting.TagDWord)
		if err == nil {
			score = scripting.AsInt(v)
		}
	}
	m.log.Info("player removed, game over", zap.Int("score", score))
	if m.opts.Bus != nil {
		event.Emit(m.opts.Bus, event.GameOver{PlayerID: player.id, Score: score})
	}
}

// compact releases entities marked during the pass and drops them from the
// list in one step.
func (m *Manager) compact() {
	m.world.FlushDestroyQueue(func(id ecs.ID) {
		if ent, ok := m.byID[id]; ok {
			m.release(ent)
		}
	})
	kept := m.list[:0]
	for _, ent := range m.list {
		if ent.state != StateReleased {
			kept = append(kept, ent)
		}
	}
	for i := len(kept); i < len(m.list); i++ {
		m.list[i] = nil
	}
	m.list = kept
}

func (m *Manager) release(ent *Entity) {
	if ent.state == StateReleased {
		return
	}
	m.call(ent, "void OnRelease()")
	ent.obj.Release()
	ent.state = StateReleased
	delete(m.byID, ent.id)
	if m.player == ent {
		m.player = nil
	}
	if m.opts.Bus != nil {
		event.Emit(m.opts.Bus, event.EntityReleased{EntityID: ent.id, Ident: ent.ident})
	}
}

// Draw calls OnDraw on every visible entity.
func (m *Manager) Draw() { m.drawPass("void OnDraw()") }

// DrawOnTop calls OnDrawOnTop on every visible entity. Run it after Draw.
func (m *Manager) DrawOnTop() { m.drawPass("void OnDrawOnTop()") }

// Render runs both draw passes.
func (m *Manager) Render() {
	m.Draw()
	m.DrawOnTop()
}

func (m *Manager) drawPass(decl string) {
	playerPos, hasPlayer := m.PlayerPosition()
	for _, ent := range m.list {
		if ent.state != StateActive {
			continue
		}
		if !m.isDormant(ent, playerPos, hasPlayer) {
			m.call(ent, decl)
		}
		if ent == m.halt {
			return
		}
	}
}

// Release calls OnRelease on every entity, drops them and clears the player.
// Entities spawned from OnRelease are released in a further round.
func (m *Manager) Release() {
	for len(m.list) > 0 {
		batch := m.list
		m.list = nil
		for _, ent := range batch {
			m.release(ent)
			m.world.DestroyNow(ent.id)
		}
	}
	m.player = nil
	m.halt = nil
}

func (m *Manager) isDormant(ent *Entity, playerPos geom.Vector, hasPlayer bool) bool {
	if !m.callBool(ent, "bool CanBeDormant()") {
		return false
	}
	if !hasPlayer {
		return true
	}
	pos, ok := m.position(ent)
	if !ok {
		return true
	}
	return pos.Distance(playerPos) > m.DormancyRadius()
}

// DormancyRadius is half the larger window dimension plus a fixed margin.
func (m *Manager) DormancyRadius() int {
	res := m.opts.Resolution
	return max(res.X, res.Y)/2 + dormancyMargin
}

// --- accessors ---

func (m *Manager) Count() int { return len(m.list) }

// NameCount counts entities whose GetName() equals name.
func (m *Manager) NameCount(name string) int {
	n := 0
	for _, ent := range m.list {
		if ent.state == StateActive && m.callString(ent, "string GetName()") == name {
			n++
		}
	}
	return n
}

// HandleAt returns the entity at list index i, or nil.
func (m *Manager) HandleAt(i int) *Entity {
	if i < 0 || i >= len(m.list) {
		return nil
	}
	return m.list[i]
}

func (m *Manager) Get(id ecs.ID) (*Entity, bool) {
	ent, ok := m.byID[id]
	return ent, ok
}

func (m *Manager) Player() *Entity { return m.player }

// PlayerPosition queries the player's current position.
func (m *Manager) PlayerPosition() (geom.Vector, bool) {
	if m.player == nil || m.player.state != StateActive {
		return geom.Vector{}, false
	}
	return m.position(m.player)
}

// PlayerSize queries the player's current size.
func (m *Manager) PlayerSize() (geom.Vector, bool) {
	if m.player == nil || m.player.state != StateActive {
		return geom.Vector{}, false
	}
	return m.vector(m.player, "Vector& GetSize()")
}

// Find returns the live entity holding obj.
func (m *Manager) Find(obj *scripting.Ref) *Entity {
	if obj == nil {
		return nil
	}
	for _, ent := range m.list {
		if ent.obj == obj && ent.state != StateReleased {
			return ent
		}
	}
	return nil
}

func (m *Manager) IsValid(obj *scripting.Ref) bool { return m.Find(obj) != nil }

// IndexOf returns the list index of obj's entity or -1.
func (m *Manager) IndexOf(obj *scripting.Ref) int {
	for i, ent := range m.list {
		if ent.obj == obj {
			return i
		}
	}
	return -1
}

// ModuleUsers counts the live entities spawned from module h.
func (m *Manager) ModuleUsers(h scripting.ModuleHandle) int {
	n := 0
	for _, ent := range m.list {
		if ent.module == h && ent.state != StateReleased {
			n++
		}
	}
	return n
}

// Position queries an entity's current position.
func (m *Manager) Position(ent *Entity) (geom.Vector, bool) { return m.position(ent) }

// --- script calls ---

func (m *Manager) call(ent *Entity, decl string) {
	_, err := m.scripts.CallMethod(ent.obj, decl, nil, scripting.TagVoid)
	m.logCallErr(ent, decl, err)
}

func (m *Manager) callBool(ent *Entity, decl string) bool {
	v, err := m.scripts.CallMethod(ent.obj, decl, nil, scripting.TagByte)
	if err != nil {
		m.logCallErr(ent, decl, err)
		return false
	}
	return scripting.AsBool(v)
}

func (m *Manager) callString(ent *Entity, decl string) string {
	v, err := m.scripts.CallMethod(ent.obj, decl, nil, scripting.TagString)
	if err != nil {
		m.logCallErr(ent, decl, err)
		return ""
	}
	return scripting.AsString(v)
}

func (m *Manager) callFloat(ent *Entity, decl string) float64 {
	v, err := m.scripts.CallMethod(ent.obj, decl, nil, scripting.TagFloat)
	if err != nil {
		m.logCallErr(ent, decl, err)
		return 0
	}
	return scripting.AsFloat(v)
}

// callWithVector passes v as a wrapped Vector for the duration of the call.
func (m *Manager) callWithVector(ent *Entity, decl string, v geom.Vector) error {
	arg, err := m.scripts.Wrap(&v)
	if err != nil {
		return err
	}
	defer arg.Release()
	_, err = m.scripts.CallMethod(ent.obj, decl, []scripting.Value{scripting.Object{Ref: arg}}, scripting.TagVoid)
	return err
}

func (m *Manager) position(ent *Entity) (geom.Vector, bool) {
	return m.vector(ent, "Vector& GetPosition()")
}

func (m *Manager) vector(ent *Entity, decl string) (geom.Vector, bool) {
	v, err := m.scripts.CallMethod(ent.obj, decl, nil, scripting.TagObject)
	if err != nil {
		m.logCallErr(ent, decl, err)
		return geom.Vector{}, false
	}
	defer scripting.ReleaseValue(v)
	p, ok := scripting.AsRef(v).Native().(*geom.Vector)
	if !ok || p == nil {
		return geom.Vector{}, false
	}
	return *p, true
}

// model returns the entity's ready model and the reference that keeps it
// reachable. Both are nil when the entity has no usable model.
func (m *Manager) model(ent *Entity) (*geom.Model, *scripting.Ref) {
	v, err := m.scripts.CallMethod(ent.obj, "Model& GetModel()", nil, scripting.TagObject)
	if err != nil {
		m.logCallErr(ent, "GetModel", err)
		return nil, nil
	}
	ref := scripting.AsRef(v)
	mdl, ok := ref.Native().(*geom.Model)
	if !ok || !mdl.Ready() {
		scripting.ReleaseValue(v)
		return nil, nil
	}
	return mdl, ref
}

func (m *Manager) logCallErr(ent *Entity, method string, err error) {
	if err == nil {
		return
	}
	m.log.Debug("entity call failed",
		zap.String("ident", ent.ident), zap.String("method", method), zap.Error(err))
}
