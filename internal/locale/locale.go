// Package locale serves package phrases. Phrases live in
// <root>/<locale>/<file>.yaml as flat ident: text maps and are queried as
// "file.ident". The locale directory is chosen by language matching against
// the configured preference.
package locale

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	log    *zap.Logger
	dir    string // selected locale directory, empty when none exists
	locale string
	files  map[string]map[string]string
}

// Open picks the locale under root that best matches pref. A missing root
// yields an empty catalog that answers every query with its default.
func Open(root, pref string, log *zap.Logger) (*Catalog, error) {
	c := &Catalog{log: log, files: make(map[string]map[string]string)}
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read locales %s: %w", root, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := language.Parse(e.Name()); err != nil {
			log.Warn("locale directory skipped", zap.String("dir", e.Name()), zap.Error(err))
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return c, nil
	}
	// The first tag is the matcher's fallback.
	sort.SliceStable(names, func(i, j int) bool { return isEnglish(names[i]) && !isEnglish(names[j]) })
	tags := make([]language.Tag, len(names))
	for i, n := range names {
		tags[i] = language.MustParse(n)
	}

	want, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(want) == 0 {
		want = []language.Tag{language.English}
	}
	_, idx, _ := language.NewMatcher(tags).Match(want...)
	c.locale = names[idx]
	c.dir = filepath.Join(root, names[idx])
	log.Info("locale selected", zap.String("preference", pref), zap.String("locale", c.locale))
	return c, nil
}

func isEnglish(name string) bool {
	base, _ := language.MustParse(name).Base()
	return base.String() == "en"
}

// Locale is the selected locale directory name.
func (c *Catalog) Locale() string { return c.locale }

// Query returns the phrase for "file.ident" or def when it is unknown.
func (c *Catalog) Query(ident, def string) string {
	file, key, ok := strings.Cut(ident, ".")
	if !ok || c.dir == "" {
		return def
	}
	phrases, err := c.load(file)
	if err != nil {
		c.log.Debug("phrase file unavailable", zap.String("file", file), zap.Error(err))
		return def
	}
	if p, ok := phrases[key]; ok {
		return p
	}
	return def
}

func (c *Catalog) load(file string) (map[string]string, error) {
	if p, ok := c.files[file]; ok {
		return p, nil
	}
	data, err := os.ReadFile(filepath.Join(c.dir, file+".yaml"))
	if err != nil {
		c.files[file] = nil
		return nil, err
	}
	phrases := make(map[string]string)
	if err := yaml.Unmarshal(data, &phrases); err != nil {
		c.files[file] = nil
		return nil, fmt.Errorf("parse %s.yaml: %w", file, err)
	}
	c.files[file] = phrases
	return phrases, nil
}
