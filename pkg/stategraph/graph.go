package stategraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddKey, AddNode, AddEdge,
// AddConditionalEdge, and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine to
// construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := stategraph.NewGraph().
//	    AddKey("messages", stategraph.Append()).
//	    AddNode("agent", agentNode).
//	    AddNode("tools", stategraph.ToolsNode(registry)).
//	    AddEdge("tools", "agent").
//	    AddConditionalEdge("agent", route, "tools", stategraph.END).
//	    SetEntry("agent")
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu          sync.RWMutex
	nodes       map[string]NodeFunc
	reducers    map[string]Reducer
	edges       map[string][]string
	conditional map[string]*conditionalEdge
	errorEdges  map[string]string
	entryPoint  string
}

// conditionalEdge pairs a router with its declared target set.
type conditionalEdge struct {
	router  RouterFunc
	targets map[string]bool
	// declared preserves declaration order for introspection.
	declared []string
}

// NewGraph creates a new graph builder. The well-known tool keys are
// pre-registered: tool results accumulate with Append, pending tool calls
// use Replace.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]NodeFunc),
		reducers: map[string]Reducer{
			KeyToolCalls:   Replace(),
			KeyToolResults: Append(),
		},
		edges:       make(map[string][]string),
		conditional: make(map[string]*conditionalEdge),
		errorEdges:  make(map[string]string),
	}
}

// AddKey registers the merge reducer for a state key.
// Returns the graph for method chaining.
//
// A key's reducer is fixed for the graph's lifetime: registering the same
// key twice panics. Keys never registered default to Replace.
func (g *Graph) AddKey(key string, reducer Reducer) *Graph {
	if key == "" {
		panic("stategraph: state key cannot be empty")
	}
	if reducer == nil {
		panic("stategraph: reducer cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.reducers[key]; exists {
		panic(fmt.Sprintf("stategraph: reducer already registered for key: %s", key))
	}

	g.reducers[key] = reducer
	return g
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph) AddNode(id string, fn NodeFunc) *Graph {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("stategraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("stategraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds a static edge from one node to another.
// The target can be a node ID or stategraph.END.
// Returns the graph for method chaining.
//
// Adding several edges from the same node fans out to all those targets
// in parallel in the next scheduling step.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc determines
// the next node(s) at runtime based on state. The router may only return
// names from the declared targets (which may include stategraph.END);
// anything else fails the run with a *RoutingError.
// Returns the graph for method chaining.
//
// A node can have either static edges or a conditional edge, not both.
// If both are present, the conditional edge takes precedence.
func (g *Graph) AddConditionalEdge(from string, router RouterFunc, targets ...string) *Graph {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}
	if len(targets) == 0 {
		panic("stategraph: conditional edge requires at least one declared target")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	set := make(map[string]bool, len(targets))
	declared := make([]string, 0, len(targets))
	for _, t := range targets {
		if !set[t] {
			set[t] = true
			declared = append(declared, t)
		}
	}

	g.conditional[from] = &conditionalEdge{
		router:   router,
		targets:  set,
		declared: declared,
	}
	return g
}

// AddErrorEdge declares that a NodeError at from is caught and routed to
// the given node instead of failing the run. The failing node's update is
// discarded; the error is recorded under KeyLastError for the target to
// inspect. Returns the graph for method chaining.
func (g *Graph) AddErrorEdge(from, to string) *Graph {
	if to == "" || to == END {
		panic("stategraph: error edge target must be a node ID")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.errorEdges[from] = to
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph) SetEntry(id string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
