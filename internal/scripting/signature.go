package scripting

import (
	"fmt"
	"strings"
	"unicode"
)

// TypeSpec is a resolved parameter or return type of a declaration.
type TypeSpec struct {
	Name   string
	Tag    Tag
	Signed bool
	Bool   bool
	Handle bool // declared with @
	Const  bool
	InRef  bool // declared with &in
}

type Param struct {
	Type    TypeSpec
	Name    string
	Default string // literal text after '=', empty when required
}

// Signature is a parsed declaration such as "void S_PlaySound(size_t h, int32 vol, bool bLoop = false)".
type Signature struct {
	Decl   string
	Return TypeSpec
	Name   string
	Params []Param
}

// Required is the number of leading parameters without a default value.
func (s *Signature) Required() int {
	n := 0
	for _, p := range s.Params {
		if p.Default != "" {
			break
		}
		n++
	}
	return n
}

// Key identifies the signature for duplicate detection.
func (s *Signature) Key() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Type.Name)
		if p.Type.Handle {
			b.WriteByte('@')
		}
	}
	b.WriteByte(')')
	return b.String()
}

// typeResolver maps a bare type name to its spec.
type typeResolver func(name string) (TypeSpec, bool)

var builtinTypes = map[string]TypeSpec{
	"void":   {Tag: TagVoid},
	"bool":   {Tag: TagByte, Bool: true},
	"int8":   {Tag: TagByte, Signed: true},
	"uint8":  {Tag: TagByte},
	"byte":   {Tag: TagByte},
	"int16":  {Tag: TagWord, Signed: true},
	"uint16": {Tag: TagWord},
	"word":   {Tag: TagWord},
	"int":    {Tag: TagDWord, Signed: true},
	"int32":  {Tag: TagDWord, Signed: true},
	"uint":   {Tag: TagDWord},
	"uint32": {Tag: TagDWord},
	"dword":  {Tag: TagDWord},
	"int64":  {Tag: TagQWord, Signed: true},
	"uint64": {Tag: TagQWord},
	"qword":  {Tag: TagQWord},
	"size_t": {Tag: TagQWord},
	"float":  {Tag: TagFloat},
	"double": {Tag: TagDouble},
	"string": {Tag: TagString},
	"ptr":    {Tag: TagPointer},
}

// parseSignature parses decl and resolves every type through resolve.
func parseSignature(decl string, resolve typeResolver) (*Signature, error) {
	decl = strings.TrimSpace(decl)
	open := strings.IndexByte(decl, '(')
	if open < 0 || !strings.HasSuffix(decl, ")") {
		return nil, fmt.Errorf("declaration %q: missing parameter list", decl)
	}

	head := tokenize(decl[:open])
	if len(head) < 2 {
		return nil, fmt.Errorf("declaration %q: want return type and name", decl)
	}
	name := head[len(head)-1]
	if !isIdent(name) {
		return nil, fmt.Errorf("declaration %q: bad function name %q", decl, name)
	}
	ret, _, err := parseType(head[:len(head)-1], resolve)
	if err != nil {
		return nil, fmt.Errorf("declaration %q: return type: %w", decl, err)
	}

	sig := &Signature{Decl: decl, Return: ret, Name: name}
	body := strings.TrimSpace(decl[open+1 : len(decl)-1])
	if body == "" || body == "void" {
		return sig, nil
	}
	seenDefault := false
	for i, part := range strings.Split(body, ",") {
		var def string
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			def = strings.TrimSpace(part[eq+1:])
			part = part[:eq]
			if def == "" {
				return nil, fmt.Errorf("declaration %q: parameter %d: empty default", decl, i+1)
			}
			seenDefault = true
		} else if seenDefault {
			return nil, fmt.Errorf("declaration %q: parameter %d: required after default", decl, i+1)
		}
		ts, pname, err := parseType(tokenize(part), resolve)
		if err != nil {
			return nil, fmt.Errorf("declaration %q: parameter %d: %w", decl, i+1, err)
		}
		if ts.Tag == TagVoid {
			return nil, fmt.Errorf("declaration %q: parameter %d: void parameter", decl, i+1)
		}
		sig.Params = append(sig.Params, Param{Type: ts, Name: pname, Default: def})
	}
	return sig, nil
}

// parseType consumes "[const] type [&[in]|@[+]] [name]".
func parseType(toks []string, resolve typeResolver) (TypeSpec, string, error) {
	var (
		ts       TypeSpec
		typeName string
		varName  string
	)
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch {
		case tok == "const":
			ts.Const = true
		case tok == "&":
			mode := "in"
			if i+1 < len(toks) && (toks[i+1] == "in" || toks[i+1] == "out" || toks[i+1] == "inout") {
				mode = toks[i+1]
				i++
			}
			if mode != "in" {
				return ts, "", fmt.Errorf("&%s references are not supported", mode)
			}
			ts.InRef = true
		case tok == "@":
			ts.Handle = true
			if i+1 < len(toks) && toks[i+1] == "+" {
				i++
			}
		case typeName == "":
			typeName = tok
		case varName == "":
			varName = tok
		default:
			return ts, "", fmt.Errorf("unexpected token %q", tok)
		}
	}
	if typeName == "" {
		return ts, "", fmt.Errorf("missing type")
	}
	if varName != "" && !isIdent(varName) {
		return ts, "", fmt.Errorf("bad parameter name %q", varName)
	}
	resolved, ok := builtinTypes[typeName]
	if !ok && resolve != nil {
		resolved, ok = resolve(typeName)
	}
	if !ok {
		return ts, "", fmt.Errorf("unknown type %q", typeName)
	}
	resolved.Const = ts.Const
	resolved.InRef = ts.InRef
	resolved.Handle = ts.Handle
	if resolved.Name == "" {
		resolved.Name = typeName
	}
	return resolved, varName, nil
}

func tokenize(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '&' || r == '@' || r == '+':
			flush()
			out = append(out, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
