package scripting

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"golang.org/x/sync/errgroup"
)

// protoCache holds compiled sections keyed by name and source hash, so a
// warm cache survives an unchanged reload. Safe for concurrent use.
type protoCache struct {
	mu     sync.Mutex
	protos map[string]cachedProto
}

type cachedProto struct {
	sum   uint64
	proto *lua.FunctionProto
}

func newProtoCache() *protoCache {
	return &protoCache{protos: make(map[string]cachedProto)}
}

func sourceSum(src string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(src))
	return h.Sum64()
}

func (c *protoCache) get(s section) (*lua.FunctionProto, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp, ok := c.protos[s.name]
	if !ok || cp.sum != sourceSum(s.source) {
		return nil, false
	}
	return cp.proto, true
}

func (c *protoCache) put(s section, p *lua.FunctionProto) {
	c.mu.Lock()
	c.protos[s.name] = cachedProto{sum: sourceSum(s.source), proto: p}
	c.mu.Unlock()
}

func (c *protoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.protos)
}

// compileUnit compiles every section, reusing cached protos.
func (c *protoCache) compileUnit(u *unit) ([]*lua.FunctionProto, []Diagnostic) {
	protos := make([]*lua.FunctionProto, len(u.sections))
	var diags []Diagnostic
	for i, s := range u.sections {
		if p, ok := c.get(s); ok {
			protos[i] = p
			continue
		}
		p, d := compileSection(s)
		if d != nil {
			diags = append(diags, *d)
			continue
		}
		c.put(s, p)
		protos[i] = p
	}
	return protos, diags
}

func compileSection(s section) (*lua.FunctionProto, *Diagnostic) {
	chunk, err := parse.Parse(strings.NewReader(s.source), s.name)
	if err != nil {
		d := &Diagnostic{Section: s.name, Severity: SeverityError, Message: err.Error()}
		var perr *parse.Error
		if errors.As(err, &perr) {
			d.Row, d.Col = max(perr.Pos.Line, 0), perr.Pos.Column
			d.Message = perr.Message
			if perr.Token != "" {
				d.Message = fmt.Sprintf("%s near '%s'", perr.Message, perr.Token)
			}
		}
		return nil, d
	}
	proto, err := lua.Compile(chunk, s.name)
	if err != nil {
		d := &Diagnostic{Section: s.name, Severity: SeverityError, Message: err.Error()}
		var cerr *lua.CompileError
		if errors.As(err, &cerr) {
			d.Row, d.Message = cerr.Line, cerr.Message
		}
		return nil, d
	}
	return proto, nil
}

// Precompile builds and compiles the given scripts on up to workers
// goroutines so later LoadScript calls only execute. It touches no VM state.
// The first build or compile failure is returned after all workers finish.
func (e *Engine) Precompile(ctx context.Context, paths []string, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			u, err := e.opts.Includes.build(path)
			if err != nil {
				return err
			}
			if _, diags := e.cache.compileUnit(u); hasErrors(diags) {
				return &CompileError{Module: path, Diagnostics: diags}
			}
			return nil
		})
	}
	return g.Wait()
}

// CachedSections reports how many compiled sections are cached.
func (e *Engine) CachedSections() int { return e.cache.Len() }
