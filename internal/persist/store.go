package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("props not found")
	ErrInvalidName = errors.New("invalid props name")
)

// PropStore persists named property strings of one game package.
type PropStore interface {
	Save(ctx context.Context, name, props string) error
	Load(ctx context.Context, name string) (string, error)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// FileStore keeps each property string in its own file under Dir, one item
// per line.
type FileStore struct {
	Dir string
}

func NewFileStore(packageDir string) *FileStore {
	return &FileStore{Dir: filepath.Join(packageDir, "props")}
}

func (s *FileStore) Save(_ context.Context, name, props string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create props dir: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, []byte(toLines(props)), 0o644); err != nil {
		return fmt.Errorf("write props %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read props %s: %w", name, err)
	}
	return fromLines(string(data)), nil
}
