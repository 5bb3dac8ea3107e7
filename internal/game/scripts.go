package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/casualgame/engine/internal/geom"
	"github.com/casualgame/engine/internal/scripting"
)

// createEntityDecl is the factory every entity script exports. It receives
// the spawn position, rotation, its own ident, the package path and the
// spawn properties, and is expected to call Ent_SpawnEntity.
const createEntityDecl = "void CreateEntity(const Vector &in, float, const string &in, const string &in, const string &in)"

var ErrNoEntityScript = errors.New("entity script not found")

// ModuleUsers reports how many live entities were spawned from a module.
type ModuleUsers interface {
	ModuleUsers(h scripting.ModuleHandle) int
}

// EntityScripts maps entity idents to their loaded script modules. A script
// is looked up as entities/<ident>.lua in the package, then in the common
// directory, and stays loaded for the rest of the session.
type EntityScripts struct {
	engine  *scripting.Engine
	pkg     *Package
	modules map[string]scripting.ModuleHandle
	users   ModuleUsers
	log     *zap.Logger
}

func NewEntityScripts(e *scripting.Engine, pkg *Package, log *zap.Logger) *EntityScripts {
	return &EntityScripts{
		engine:  e,
		pkg:     pkg,
		modules: make(map[string]scripting.ModuleHandle),
		log:     log,
	}
}

// SetUsers lets Spawn keep a failed script loaded while entities it
// spawned are still alive.
func (s *EntityScripts) SetUsers(u ModuleUsers) { s.users = u }

// Path returns the script file of ident.
func (s *EntityScripts) Path(ident string) (string, error) {
	if !validIdent(ident) {
		return "", fmt.Errorf("%w: invalid ident %q", ErrNoEntityScript, ident)
	}
	rel := filepath.Join("entities", ident+".lua")
	for _, dir := range []string{s.pkg.Dir, s.pkg.Common} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, rel)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoEntityScript, ident)
}

// Require loads the script of ident unless it is loaded already. fresh
// reports whether this call loaded it.
func (s *EntityScripts) Require(ident string) (h scripting.ModuleHandle, fresh bool, err error) {
	if h, ok := s.modules[ident]; ok {
		return h, false, nil
	}
	path, err := s.Path(ident)
	if err != nil {
		return 0, false, err
	}
	h, err = s.engine.LoadScript(path)
	if err != nil {
		return 0, false, fmt.Errorf("load entity script %s: %w", ident, err)
	}
	s.modules[ident] = h
	s.log.Debug("entity script loaded", zap.String("ident", ident), zap.String("path", path))
	return h, true, nil
}

// ModuleOf implements entity.ModuleResolver over the loaded scripts.
func (s *EntityScripts) ModuleOf(ident string) (scripting.ModuleHandle, bool) {
	h, ok := s.modules[ident]
	return h, ok
}

// Loaded is the number of loaded entity scripts.
func (s *EntityScripts) Loaded() int { return len(s.modules) }

// Spawn loads the script of sp.Ident and calls its CreateEntity. A script
// loaded by this call is unloaded again when CreateEntity fails, unless it
// already spawned entities.
func (s *EntityScripts) Spawn(sp Spawn) error {
	h, fresh, err := s.Require(sp.Ident)
	if err != nil {
		return err
	}
	pos := geom.Vec(sp.X, sp.Y)
	ref, err := s.engine.Wrap(&pos)
	if err != nil {
		return err
	}
	defer ref.Release()

	args := []scripting.Value{
		scripting.Object{Ref: ref},
		scripting.Float(sp.Rot),
		scripting.String(sp.Ident),
		scripting.String(s.pkg.Path()),
		scripting.String(sp.Props),
	}
	if _, err := s.engine.CallFunction(h, createEntityDecl, args, scripting.TagVoid); err != nil {
		if fresh && (s.users == nil || s.users.ModuleUsers(h) == 0) {
			delete(s.modules, sp.Ident)
			if uerr := s.engine.UnloadScript(h); uerr != nil {
				s.log.Warn("entity script unload failed", zap.String("ident", sp.Ident), zap.Error(uerr))
			}
		}
		return fmt.Errorf("create entity %s: %w", sp.Ident, err)
	}
	return nil
}

// Paths resolves the scripts of idents for precompilation. Idents without a
// script are skipped.
func (s *EntityScripts) Paths(idents []string) []string {
	paths := make([]string, 0, len(idents))
	for _, ident := range idents {
		if path, err := s.Path(ident); err == nil {
			paths = append(paths, path)
		}
	}
	return paths
}

// UnloadAll unloads every entity script. Entities must be released first.
func (s *EntityScripts) UnloadAll() {
	for ident, h := range s.modules {
		if err := s.engine.UnloadScript(h); err != nil {
			s.log.Warn("entity script unload failed", zap.String("ident", ident), zap.Error(err))
		}
	}
	clear(s.modules)
}
