// Package route holds the static routing table and resolves inbound paths
// to a backend target.
package route

import (
	"fmt"
	"regexp"
	"strings"

	"api-gateway-go/internal/config"
)

// Rewrite is a compiled pattern/replacement pair.
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Definition is one immutable routing table entry.
type Definition struct {
	Name        string
	Contexts    []string
	Target      string
	PathRewrite []Rewrite
}

// Table is the ordered, read-only set of route definitions.
// It is never mutated after construction and is safe for concurrent use.
type Table struct {
	routes []Definition
}

// NewTable compiles the configured routes into a Table, preserving their order.
func NewTable(routes []config.RouteConfig) (*Table, error) {
	defs := make([]Definition, 0, len(routes))
	for _, rc := range routes {
		def := Definition{
			Name:     rc.Name,
			Contexts: append([]string(nil), rc.Context...),
			Target:   rc.Target,
		}
		for _, rw := range rc.PathRewrite {
			re, err := regexp.Compile(rw.Pattern)
			if err != nil {
				return nil, fmt.Errorf("route %s: compile path_rewrite %q: %w", rc.Name, rw.Pattern, err)
			}
			def.PathRewrite = append(def.PathRewrite, Rewrite{Pattern: re, Replacement: rw.Replacement})
		}
		defs = append(defs, def)
	}
	return &Table{routes: defs}, nil
}

// NewTableFromConfig builds the Table from the loaded configuration.
func NewTableFromConfig(cfg *config.Config) (*Table, error) {
	return NewTable(cfg.Routes)
}

// FindRoute returns the first route with a context that prefixes path.
// Matching is case-sensitive and has no wildcard syntax.
func (t *Table) FindRoute(path string) (*Definition, bool) {
	for i := range t.routes {
		for _, ctx := range t.routes[i].Contexts {
			if strings.HasPrefix(path, ctx) {
				return &t.routes[i], true
			}
		}
	}
	return nil, false
}

// Contexts returns every configured context prefix, flattened in table order.
func (t *Table) Contexts() []string {
	var out []string
	for _, r := range t.routes {
		out = append(out, r.Contexts...)
	}
	return out
}

// Routes returns a copy of the table entries.
func (t *Table) Routes() []Definition {
	return append([]Definition(nil), t.routes...)
}
