// Package cvar holds typed console variables. Values can be seeded from the
// config file before the owning script registers them.
package cvar

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Type int

const (
	Bool Type = iota
	Int
	Float
	String
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Handle addresses a registered variable. Zero is invalid.
type Handle uint32

type Var struct {
	Name string
	Type Type

	b bool
	i int
	f float64
	s string
}

func (v *Var) set(text string) error {
	switch v.Type {
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return err
		}
		v.b = b
	case Int:
		i, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return err
		}
		v.i = i
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return err
		}
		v.f = f
	default:
		v.s = text
	}
	return nil
}

// Text formats the current value the way set parses it.
func (v *Var) Text() string {
	switch v.Type {
	case Bool:
		if v.b {
			return "1"
		}
		return "0"
	case Int:
		return strconv.Itoa(v.i)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return v.s
}

type Store struct {
	log    *zap.Logger
	vars   []*Var
	byName map[string]Handle
	seeds  map[string]string
}

// NewStore creates a store. seeds maps variable names to values applied when
// the variable is registered.
func NewStore(seeds map[string]string, log *zap.Logger) *Store {
	s := &Store{log: log, byName: make(map[string]Handle), seeds: make(map[string]string)}
	for k, v := range seeds {
		s.seeds[k] = v
	}
	return s
}

// Register adds a variable. Registering an existing name with the same type
// returns its handle unchanged.
func (s *Store) Register(name string, t Type, initial string) (Handle, error) {
	if name == "" {
		return 0, fmt.Errorf("cvar: empty name")
	}
	if t < Bool || t > String {
		return 0, fmt.Errorf("cvar %s: unknown type %d", name, int(t))
	}
	if h, ok := s.byName[name]; ok {
		if v := s.vars[h-1]; v.Type != t {
			return 0, fmt.Errorf("cvar %s already registered as %s", name, v.Type)
		}
		return h, nil
	}
	v := &Var{Name: name, Type: t}
	if err := v.set(initial); err != nil {
		return 0, fmt.Errorf("cvar %s: initial value %q: %w", name, initial, err)
	}
	if seed, ok := s.seeds[name]; ok {
		if err := v.set(seed); err != nil {
			s.log.Warn("cvar seed ignored", zap.String("cvar", name), zap.String("value", seed), zap.Error(err))
		}
		delete(s.seeds, name)
	}
	s.vars = append(s.vars, v)
	h := Handle(len(s.vars))
	s.byName[name] = h
	return h, nil
}

func (s *Store) Find(name string) *Var {
	if h, ok := s.byName[name]; ok {
		return s.vars[h-1]
	}
	return nil
}

func (s *Store) lookup(name string, t Type) *Var {
	if v := s.Find(name); v != nil && v.Type == t {
		return v
	}
	return nil
}

func (s *Store) GetBool(name string, fallback bool) bool {
	if v := s.lookup(name, Bool); v != nil {
		return v.b
	}
	return fallback
}

func (s *Store) GetInt(name string, fallback int) int {
	if v := s.lookup(name, Int); v != nil {
		return v.i
	}
	return fallback
}

func (s *Store) GetFloat(name string, fallback float64) float64 {
	if v := s.lookup(name, Float); v != nil {
		return v.f
	}
	return fallback
}

func (s *Store) GetString(name string, fallback string) string {
	if v := s.lookup(name, String); v != nil {
		return v.s
	}
	return fallback
}

// Setters ignore unknown names and type mismatches.

func (s *Store) SetBool(name string, value bool) {
	if v := s.lookup(name, Bool); v != nil {
		v.b = value
	}
}

func (s *Store) SetInt(name string, value int) {
	if v := s.lookup(name, Int); v != nil {
		v.i = value
	}
}

func (s *Store) SetFloat(name string, value float64) {
	if v := s.lookup(name, Float); v != nil {
		v.f = value
	}
}

func (s *Store) SetString(name string, value string) {
	if v := s.lookup(name, String); v != nil {
		v.s = value
	}
}

// Exec applies a config file of "name value" lines. Blank lines and lines
// starting with # or // are skipped. Values for names not yet registered
// become seeds. A malformed value is reported but does not stop the file.
func (s *Store) Exec(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	defer f.Close()

	var bad int
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		name, value, _ := strings.Cut(text, " ")
		value = strings.Trim(strings.TrimSpace(value), `"`)
		v := s.Find(name)
		if v == nil {
			s.seeds[name] = value
			continue
		}
		if err := v.set(value); err != nil {
			bad++
			s.log.Warn("cvar value rejected",
				zap.String("file", path), zap.Int("line", line), zap.String("cvar", name), zap.Error(err))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	if bad > 0 {
		return fmt.Errorf("exec %s: %d rejected values", path, bad)
	}
	return nil
}
