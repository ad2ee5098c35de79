package stategraph

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. All edge sources and targets must reference existing nodes or END
//  4. All declared conditional targets must reference existing nodes or END
//  5. Error edge endpoints must reference existing nodes
//  6. Every node reachable from entry must have an outgoing edge
//  7. A path from entry to END must exist
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1 & 2. Entry point
	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	// 3. Static edge references
	for from, targets := range g.edges {
		if from != END {
			if _, exists := g.nodes[from]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
			}
		}
		for _, to := range targets {
			if to != END {
				if _, exists := g.nodes[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
				}
			}
		}
	}

	// 4. Conditional edge references and declared targets
	for from, ce := range g.conditional {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, t := range ce.declared {
			if t != END {
				if _, exists := g.nodes[t]; !exists {
					errs = append(errs, fmt.Errorf("%w: declared target '%s' of conditional edge from '%s' does not exist",
						ErrNodeNotFound, t, from))
				}
			}
		}
	}

	// 5. Error edge references
	for from, to := range g.errorEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: error edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if _, exists := g.nodes[to]; !exists {
			errs = append(errs, fmt.Errorf("%w: error edge target '%s' does not exist", ErrNodeNotFound, to))
		}
	}

	// 6. Every reachable node needs a way out.
	for _, id := range g.reachableFromEntry() {
		if len(g.edges[id]) == 0 && g.conditional[id] == nil {
			errs = append(errs, fmt.Errorf("%w: node '%s'", ErrNoOutgoingEdge, id))
		}
	}

	// 7. Path to END
	if g.entryPoint != "" {
		if _, exists := g.nodes[g.entryPoint]; exists {
			if !g.hasPathToEnd() {
				errs = append(errs, ErrNoPathToEnd)
			}
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// hasPathToEnd checks if there's a path from entry to END using reverse
// reachability. Nodes with conditional edges are assumed to potentially
// reach any of their declared targets.
func (g *Graph) hasPathToEnd() bool {
	canReachEnd := make(map[string]bool)
	canReachEnd[END] = true

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		for from, ce := range g.conditional {
			if canReachEnd[from] {
				continue
			}
			for _, t := range ce.declared {
				if canReachEnd[t] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := make(map[string]bool)
	for _, id := range g.reachableFromEntry() {
		reachable[id] = true
	}

	for nodeID := range g.nodes {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// reachableFromEntry returns the nodes reachable from the entry point,
// following static edges, declared conditional targets, and error edges.
func (g *Graph) reachableFromEntry() []string {
	if g.entryPoint == "" {
		return nil
	}
	if _, exists := g.nodes[g.entryPoint]; !exists {
		return nil
	}

	seen := map[string]bool{g.entryPoint: true}
	order := []string{g.entryPoint}
	queue := []string{g.entryPoint}

	visit := func(target string) {
		if target == END || seen[target] {
			return
		}
		if _, exists := g.nodes[target]; !exists {
			return
		}
		seen[target] = true
		order = append(order, target)
		queue = append(queue, target)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.edges[current] {
			visit(target)
		}
		if ce := g.conditional[current]; ce != nil {
			for _, target := range ce.declared {
				visit(target)
			}
		}
		if target, ok := g.errorEdges[current]; ok {
			visit(target)
		}
	}

	return order
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph() *CompiledGraph {
	nodes := make(map[string]NodeFunc, len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	reducers := make(map[string]Reducer, len(g.reducers))
	for k, r := range g.reducers {
		reducers[k] = r
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = append([]string(nil), targets...)
	}

	conditional := make(map[string]*conditionalEdge, len(g.conditional))
	for from, ce := range g.conditional {
		targets := make(map[string]bool, len(ce.targets))
		for t := range ce.targets {
			targets[t] = true
		}
		conditional[from] = &conditionalEdge{
			router:   ce.router,
			targets:  targets,
			declared: append([]string(nil), ce.declared...),
		}
	}

	errorEdges := make(map[string]string, len(g.errorEdges))
	for from, to := range g.errorEdges {
		errorEdges[from] = to
	}

	predecessors := make(map[string][]string)
	for from, targets := range edges {
		for _, to := range targets {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	return &CompiledGraph{
		nodes:        nodes,
		reducers:     reducers,
		edges:        edges,
		conditional:  conditional,
		errorEdges:   errorEdges,
		entryPoint:   g.entryPoint,
		predecessors: predecessors,
	}
}
