// Package game ties a game package on disk to the running engine: the
// package manifest, map files, the entity script registry and the session
// that loads maps and save games between ticks.
package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name inside a package directory.
const ManifestFile = "package.yaml"

// Manifest is the package description read from package.yaml.
type Manifest struct {
	Name      string   `yaml:"name"`
	Version   string   `yaml:"version"`
	Author    string   `yaml:"author"`
	Contact   string   `yaml:"contact"`
	StartMap  string   `yaml:"start_map"`
	Require   []string `yaml:"require"`    // entity idents loaded before the first map
	HintSound string   `yaml:"hint_sound"` // played with HUD messages, relative to the package
}

// Package is a loaded game package.
type Package struct {
	Ident    string // directory name
	Dir      string
	Common   string
	Manifest Manifest
}

// Open reads the manifest of root/ident. commonDir holds the shared
// entities and assets every package may fall back to.
func Open(root, ident, commonDir string) (*Package, error) {
	if !validIdent(ident) {
		return nil, fmt.Errorf("invalid package name %q", ident)
	}
	dir := filepath.Join(root, ident)
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read package manifest: %w", err)
	}
	p := &Package{Ident: ident, Dir: dir, Common: commonDir}
	if err := yaml.Unmarshal(raw, &p.Manifest); err != nil {
		return nil, fmt.Errorf("parse package manifest: %w", err)
	}
	if p.Manifest.Name == "" {
		p.Manifest.Name = ident
	}
	if p.Manifest.StartMap == "" {
		return nil, errors.New("package manifest has no start_map")
	}
	return p, nil
}

// Path returns the package directory with a trailing separator, the form
// scripts concatenate file names onto.
func (p *Package) Path() string { return p.Dir + string(filepath.Separator) }

// CommonPath is Path for the shared directory.
func (p *Package) CommonPath() string {
	if p.Common == "" {
		return ""
	}
	return p.Common + string(filepath.Separator)
}

// Asset resolves a package-relative file, falling back to the common
// directory when the package does not ship it.
func (p *Package) Asset(rel string) string {
	path := filepath.Join(p.Dir, rel)
	if _, err := os.Stat(path); err == nil || p.Common == "" {
		return path
	}
	common := filepath.Join(p.Common, rel)
	if _, err := os.Stat(common); err == nil {
		return common
	}
	return path
}

func validIdent(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\:;,`)
}
