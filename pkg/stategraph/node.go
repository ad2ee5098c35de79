package stategraph

// END is the terminal marker. Use it as an edge target, or return it from
// a router, to indicate the branch should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and a read-only state snapshot,
// and return a partial update (or nil) and any error.
//
// Nodes must not retain the snapshot past their own invocation; all
// writes flow back through the returned Update.
//
// Example:
//
//	func plan(ctx stategraph.Context, s stategraph.State) (stategraph.Update, error) {
//	    return stategraph.Update{"plan": "fetch then summarize"}, nil
//	}
type NodeFunc func(ctx Context, state State) (Update, error)

// RouterFunc selects the next node(s) for a conditional edge based on the
// current state. Every returned name must be in the edge's declared target
// set (or END); anything else fails the run with a *RoutingError.
// Returning more than one name fans out to parallel successors.
//
// Example:
//
//	func route(ctx stategraph.Context, s stategraph.State) []string {
//	    if s.Bool("done", false) {
//	        return []string{stategraph.END}
//	    }
//	    return []string{"agent"}
//	}
type RouterFunc func(ctx Context, state State) []string
