package route

import (
	"errors"
	"fmt"
)

// ErrRouteNotFound indicates that no route context matched the path.
var ErrRouteNotFound = errors.New("no matching route found")

// NotFoundError reports a routing miss together with the configured contexts.
// Available is diagnostic only.
type NotFoundError struct {
	Path      string
	Available []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s", e.Path)
}

// Is matches ErrRouteNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrRouteNotFound
}

// Match is a resolved route and the path to forward.
type Match struct {
	Route *Definition
	Path  string
}

// Router resolves inbound paths against a Table.
type Router struct {
	table *Table
}

// NewRouter creates a Router over the given table.
func NewRouter(t *Table) *Router {
	return &Router{table: t}
}

// Route finds the route for path and applies its rewrites.
func (r *Router) Route(path string) (*Match, error) {
	def, ok := r.table.FindRoute(path)
	if !ok {
		return nil, &NotFoundError{Path: path, Available: r.table.Contexts()}
	}
	return &Match{Route: def, Path: Rewritten(path, def.PathRewrite)}, nil
}

// Rewritten applies each rewrite in order to the output of the previous one.
// Only the first occurrence of a pattern is replaced; $n and ${name} in the
// replacement expand to submatches.
func Rewritten(path string, rewrites []Rewrite) string {
	for _, rw := range rewrites {
		loc := rw.Pattern.FindStringSubmatchIndex(path)
		if loc == nil {
			continue
		}
		repl := rw.Pattern.ExpandString(nil, rw.Replacement, path, loc)
		path = path[:loc[0]] + string(repl) + path[loc[1]:]
	}
	return path
}
