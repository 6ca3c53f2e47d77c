// Package faults injects panics at chosen call sites so the panic path can
// be exercised on a live runtime.
package faults

import (
	"fmt"
	"strings"
	"sync/atomic"

	"loom/internal/errctx"
)

// Plan is a set of call sites that panic the first time they are recorded.
// A nil Plan never fires. Plans are safe for concurrent use.
type Plan struct {
	sites map[errctx.ContextType]*atomic.Bool
}

// Parse builds a plan from specs such as "screen:Render" or "pty:SpawnTerminal".
// Comma-separated lists are accepted within a single spec.
func Parse(specs ...string) (*Plan, error) {
	p := &Plan{sites: make(map[errctx.ContextType]*atomic.Bool)}
	for _, spec := range specs {
		for _, part := range strings.Split(spec, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ct, err := errctx.ParseContextType(part)
			if err != nil {
				return nil, fmt.Errorf("fault %q: %w", part, err)
			}
			p.sites[ct] = new(atomic.Bool)
		}
	}
	return p, nil
}

// Empty reports whether the plan has no sites.
func (p *Plan) Empty() bool {
	return p == nil || len(p.sites) == 0
}

// Sites lists the planned call sites in taxonomy order.
func (p *Plan) Sites() []errctx.ContextType {
	if p.Empty() {
		return nil
	}
	var out []errctx.ContextType
	for _, ct := range errctx.All() {
		if _, ok := p.sites[ct]; ok {
			out = append(out, ct)
		}
	}
	return out
}

// Check panics if tag is planned and has not fired yet.
func (p *Plan) Check(tag errctx.ContextType) {
	if p.Empty() {
		return
	}
	fired, ok := p.sites[tag]
	if !ok || !fired.CompareAndSwap(false, true) {
		return
	}
	panic(fmt.Sprintf("injected fault at %s", tag.Plain()))
}
