// Package tool defines the external tool contract consumed by the graph's
// tool dispatch node: named executables looked up in a Registry and
// invoked with structured arguments.
//
// The engine never interprets a tool's result; it only correlates results
// back to the requests that produced them. Tools should therefore return
// values that serialize cleanly with the run's state codec.
package tool

import (
	"context"
	"sort"

	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
)

// Tool is an executable capability invoked by name from the graph.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Handle errors gracefully and return them rather than panicking
//   - Be safe for concurrent use; one dispatch round runs calls in parallel
//   - Respect the context for cancellation and deadlines
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool
	// does, for the routing-decision source or model layer to consume.
	Description() string

	// Execute runs the tool with structured arguments.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry is a process-wide lookup of tools by name.
// Register tools at startup; the dispatch node only reads.
type Registry struct {
	entries *registry.Registry[string, Tool]
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{entries: registry.New[string, Tool]()}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool under its name.
func (r *Registry) Register(t Tool) {
	if t == nil {
		return
	}
	r.entries.Register(t.Name(), t)
}

// Lookup returns the tool with the given name and whether it exists.
func (r *Registry) Lookup(name string) (Tool, bool) {
	return r.entries.Get(name)
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := r.entries.Keys()
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return r.entries.Len()
}
