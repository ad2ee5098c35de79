/*
Package stategraph provides stateful graph orchestration for agentic
workflows.

# Overview

stategraph is a Go library for building and executing directed graphs where
nodes read a shared key-value state and contribute partial updates, and
edges define flow. Execution proceeds in supersteps: every node in the
current frontier runs concurrently against the same immutable state
snapshot, their updates merge atomically through per-key reducers, and
routing against the merged state produces the next frontier. Runs can be
checkpointed after every step and resumed after a crash.

# Basic Usage

Create a graph with nodes and edges, then compile and run:

	g := stategraph.NewGraph().
	    AddNode("process", func(ctx stategraph.Context, s stategraph.State) (stategraph.Update, error) {
	        input := s.String("input", "")
	        return stategraph.Update{"output": "Processed: " + input}, nil
	    }).
	    AddEdge("process", stategraph.END).
	    SetEntry("process")

	compiled, err := g.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := stategraph.NewContext(context.Background())
	final, err := compiled.Run(ctx, stategraph.Update{"input": "hello"})
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(final.String("output", "")) // "Processed: hello"

# State and Reducers

State is a versioned map. Each key can register a reducer that combines an
existing value with an incoming one; unregistered keys default to replace.
Append accumulates ordered sequences, which is how parallel branches write
to the same key without clobbering each other:

	g := stategraph.NewGraph().
	    AddKey("findings", stategraph.Append())

A whole step's updates merge as one batch, in frontier scheduling order,
with keys inside one update applied in sorted order. The same inputs always
produce the same merged state.

# Parallel Fan-Out

Multiple static edges from one node put all targets in the next frontier:

	g.AddEdge("plan", "research")
	g.AddEdge("plan", "summarize")

Both nodes run concurrently against the same snapshot in the next step.

# Conditional Branching

Conditional edges declare their possible targets up front; the router picks
among them at runtime and may fan out by returning several:

	g.AddConditionalEdge("review",
	    stategraph.Route(func(ctx stategraph.Context, s stategraph.State) string {
	        if s.Bool("approved", false) {
	            return "publish"
	        }
	        return "revise"
	    }),
	    "publish", "revise")

A router that returns nothing, or a name outside the declared set, fails
the run with a *RoutingError.

# Loops

Routers that return earlier nodes create loops, bounded by the step ceiling
(default 1000, see WithMaxSteps). Hitting the ceiling returns a
*StepLimitError carrying the state and frontier at the stop point.

# Tool Dispatch

ToolsNode executes the pending calls in the "tool_calls" state key against
a tool registry, fanning out concurrently and appending results in request
order to "tool_results". Per-call failures become error results, not node
failures. See the tool subpackage.

# Error Edges

AddErrorEdge(from, to) absorbs a node's failure: details land in the
"last_error" state key and execution routes to the handler node instead of
failing the run.

# Checkpointing and Resume

	store, _ := checkpoint.NewSQLiteStore("runs.db")
	final, err := compiled.Run(ctx, initial,
	    stategraph.WithCheckpointStore(store),
	    stategraph.WithRunID("run-123"))

	// After a crash:
	final, err = compiled.Resume(ctx, store, "run-123",
	    stategraph.WithCheckpointStore(store))

A checkpoint is written after every superstep. Resume restores the state
snapshot and recomputes the next frontier by re-evaluating routing, so
routers must be pure functions of state.

# Observability

Structured logging via log/slog is on by default through the context
logger. WithMetrics and WithTracing add OpenTelemetry metrics and spans;
WithListener subscribes to lifecycle events.
*/
package stategraph
