package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/tool"
)

// BenchmarkRun_Linear_5 runs a 5-node linear graph.
func BenchmarkRun_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_Linear_10 runs a 10-node linear graph.
func BenchmarkRun_Linear_10(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_Linear_50 runs a 50-node linear graph.
func BenchmarkRun_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_Linear_100 runs a 100-node linear graph.
func BenchmarkRun_Linear_100(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(100))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_Branching runs a graph with conditional edges.
func BenchmarkRun_Branching(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, stategraph.Update{"value": i})
	}
}

// BenchmarkRun_FanOut runs an 8-way parallel frontier per step.
func BenchmarkRun_FanOut(b *testing.B) {
	compiled := mustCompile(buildFanOutGraph(8))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_Loop runs a looping graph (3 iterations).
func BenchmarkRun_Loop(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(3))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_Loop_10 runs a looping graph (10 iterations).
func BenchmarkRun_Loop_10(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkRun_ToolDispatch_8 dispatches 8 tool calls per round.
func BenchmarkRun_ToolDispatch_8(b *testing.B) {
	registry := tool.NewRegistry(
		tool.NewFunc("echo", "", func(_ context.Context, args map[string]any) (any, error) {
			return args["v"], nil
		}),
	)

	calls := make([]stategraph.ToolCallRequest, 8)
	for i := range calls {
		calls[i] = stategraph.ToolCallRequest{
			ID:        nodeID(i),
			Name:      "echo",
			Arguments: map[string]any{"v": i},
		}
	}

	graph := stategraph.NewGraph().
		AddNode("emit", func(stategraph.Context, stategraph.State) (stategraph.Update, error) {
			return stategraph.Update{stategraph.KeyToolCalls: calls}, nil
		}).
		AddNode("tools", stategraph.ToolsNode(registry)).
		AddEdge("emit", "tools").
		AddEdge("tools", stategraph.END).
		SetEntry("emit")

	compiled := mustCompile(graph)
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, nil)
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		stategraph.NewContext(bg)
	}
}

// Helper functions

func mustCompile(g *stategraph.Graph) *stategraph.CompiledGraph {
	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

func buildLoopGraph(iterations int) *stategraph.Graph {
	loopNode := func(ctx stategraph.Context, s stategraph.State) (stategraph.Update, error) {
		return stategraph.Update{"value": s.Int("value", 0) + 1}, nil
	}

	router := func(ctx stategraph.Context, s stategraph.State) string {
		if s.Int("value", 0) >= iterations {
			return "done"
		}
		return "loop"
	}

	return stategraph.NewGraph().
		AddKey("value", stategraph.Replace()).
		AddNode("loop", loopNode).
		AddNode("done", noopNode).
		AddConditionalEdge("loop", stategraph.Route(router), "loop", "done").
		AddEdge("done", stategraph.END).
		SetEntry("loop")
}

func buildFanOutGraph(width int) *stategraph.Graph {
	graph := stategraph.NewGraph().
		AddKey("results", stategraph.Append()).
		AddNode("start", noopNode).
		AddNode("join", noopNode)

	targets := make([]string, 0, width)
	for i := 0; i < width; i++ {
		id := "worker-" + nodeID(i)
		targets = append(targets, id)
		graph.AddNode(id, func(ctx stategraph.Context, s stategraph.State) (stategraph.Update, error) {
			return stategraph.Update{"results": ctx.NodeID()}, nil
		})
		graph.AddEdge(id, "join")
	}

	graph.AddConditionalEdge("start", stategraph.FanOut(targets...), targets...)
	graph.AddEdge("join", stategraph.END)
	graph.SetEntry("start")
	return graph
}
