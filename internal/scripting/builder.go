package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CommonMacro expands to the shared script root inside include directives.
const CommonMacro = "${COMMON}"

// IncludePolicy resolves #include directives. Includes written by files under
// CommonRoot resolve against CommonRoot/entities; all others resolve against
// PackageRoot/entities. ${COMMON} always expands to CommonRoot.
type IncludePolicy struct {
	CommonRoot  string
	PackageRoot string
}

func (p IncludePolicy) Resolve(from, include string) string {
	if strings.Contains(include, CommonMacro) {
		return filepath.Clean(strings.ReplaceAll(include, CommonMacro, p.CommonRoot))
	}
	if p.CommonRoot != "" && isWithin(from, p.CommonRoot) {
		return filepath.Join(p.CommonRoot, "entities", include)
	}
	return filepath.Join(p.PackageRoot, "entities", include)
}

func isWithin(path, root string) bool {
	ap, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	ar, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(ar, ap)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type section struct {
	name   string
	source string
}

// unit is a module's source before compilation: sections in execution order
// (includes ahead of the file that includes them) and build diagnostics.
type unit struct {
	main     string
	sections []section
	diags    []Diagnostic
}

func (p IncludePolicy) build(path string) (*unit, error) {
	u := &unit{main: path}
	seen := make(map[string]bool)
	if err := p.addSection(u, seen, path, "", 0); err != nil {
		return nil, err
	}
	return u, nil
}

func (p IncludePolicy) addSection(u *unit, seen map[string]bool, file, from string, line int) error {
	key := file
	if abs, err := filepath.Abs(file); err == nil {
		key = abs
	}
	if seen[key] {
		return nil
	}
	seen[key] = true

	data, err := os.ReadFile(file)
	if err != nil {
		if from == "" {
			return fmt.Errorf("%w: read %s: %v", ErrIO, file, err)
		}
		u.diags = append(u.diags, Diagnostic{
			Section:  from,
			Row:      line,
			Col:      1,
			Severity: SeverityError,
			Message:  fmt.Sprintf("include file %q not found", file),
		})
		return nil
	}

	src, includes, bad := preprocess(string(data))
	for _, row := range bad {
		u.diags = append(u.diags, Diagnostic{
			Section:  file,
			Row:      row,
			Col:      1,
			Severity: SeverityError,
			Message:  "malformed #include directive",
		})
	}
	for _, inc := range includes {
		target := p.Resolve(file, inc.path)
		if err := p.addSection(u, seen, target, file, inc.row); err != nil {
			return err
		}
	}
	u.sections = append(u.sections, section{name: file, source: src})
	u.diags = append(u.diags, Diagnostic{
		Section:  file,
		Severity: SeverityInfo,
		Message:  "section added",
	})
	return nil
}

type includeDirective struct {
	path string
	row  int
}

// preprocess strips #include lines, keeping the line count so compiler
// positions still match the file.
func preprocess(src string) (string, []includeDirective, []int) {
	lines := strings.Split(src, "\n")
	var (
		includes []includeDirective
		bad      []int
	)
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if !strings.HasPrefix(t, "#include") {
			continue
		}
		lines[i] = ""
		rest := strings.TrimSpace(strings.TrimPrefix(t, "#include"))
		if len(rest) < 2 || rest[0] != '"' || strings.IndexByte(rest[1:], '"') < 0 {
			bad = append(bad, i+1)
			continue
		}
		includes = append(includes, includeDirective{path: rest[1 : 1+strings.IndexByte(rest[1:], '"')], row: i + 1})
	}
	return strings.Join(lines, "\n"), includes, bad
}
