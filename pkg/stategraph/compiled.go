package stategraph

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls; each run owns its own state store. The graph structure
// cannot be modified after compilation.
//
// Use the introspection methods (NodeIDs, Successors, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph struct {
	nodes       map[string]NodeFunc
	reducers    map[string]Reducer
	edges       map[string][]string
	conditional map[string]*conditionalEdge
	errorEdges  map[string]string
	entryPoint  string

	// Pre-computed for efficient lookup
	predecessors map[string][]string
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the static edge targets for the given node.
// Returns nil for END or unknown nodes.
// Does not include targets of conditional edges (those are runtime-determined).
func (cg *CompiledGraph) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the node IDs that have static edges to the given node.
// Returns nil for the entry node or unknown nodes.
func (cg *CompiledGraph) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph) IsConditional(id string) bool {
	_, exists := cg.conditional[id]
	return exists
}

// DeclaredTargets returns the declared target set of a node's conditional
// edge, in declaration order. Returns nil for nodes without one.
func (cg *CompiledGraph) DeclaredTargets(id string) []string {
	if ce, exists := cg.conditional[id]; exists {
		return ce.declared
	}
	return nil
}

// ErrorTarget returns the error edge target for a node and whether one
// is declared.
func (cg *CompiledGraph) ErrorTarget(id string) (string, bool) {
	to, ok := cg.errorEdges[id]
	return to, ok
}

// Reducers returns a copy of the per-key reducer table fixed at
// definition time.
func (cg *CompiledGraph) Reducers() map[string]Reducer {
	out := make(map[string]Reducer, len(cg.reducers))
	for k, r := range cg.reducers {
		out[k] = r
	}
	return out
}

// getNode returns the node function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph) getNode(id string) (NodeFunc, bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}
