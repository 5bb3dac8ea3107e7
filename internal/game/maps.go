package game

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Spawn places one entity. Props is passed to the entity script's
// CreateEntity unchanged.
type Spawn struct {
	Ident string  `yaml:"ident"`
	X     int     `yaml:"x"`
	Y     int     `yaml:"y"`
	Rot   float32 `yaml:"rot"`
	Props string  `yaml:"props"`
}

// Map is one map file: maps/<name>.yaml inside a package.
type Map struct {
	Name       string  `yaml:"name"`
	Background string  `yaml:"background"`
	Entities   []Spawn `yaml:"entities"`
}

// LoadMap reads maps/<name>.yaml from the package.
func (p *Package) LoadMap(name string) (*Map, error) {
	if !validIdent(name) {
		return nil, fmt.Errorf("invalid map name %q", name)
	}
	raw, err := os.ReadFile(filepath.Join(p.Dir, "maps", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", name, err)
	}
	var m Map
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", name, err)
	}
	if m.Name == "" {
		m.Name = name
	}
	for i, sp := range m.Entities {
		if !validIdent(sp.Ident) {
			return nil, fmt.Errorf("map %s: entity %d has invalid ident %q", name, i, sp.Ident)
		}
	}
	return &m, nil
}
