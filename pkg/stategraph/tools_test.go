package stategraph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/tool"
)

// echoTool returns its "msg" argument.
func echoTool() tool.Tool {
	return tool.NewFunc("echo", "echoes the msg argument",
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["msg"], nil
		})
}

// failTool always fails.
func failTool() tool.Tool {
	return tool.NewFunc("fail", "always fails",
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("tool broke")
		})
}

// runTools executes a single ToolsNode graph with the given pending calls.
func runTools(t *testing.T, reg *tool.Registry, calls []ToolCallRequest, opts ...ToolsOption) State {
	t.Helper()

	compiled, err := NewGraph().
		AddNode("tools", ToolsNode(reg, opts...)).
		AddEdge("tools", END).
		SetEntry("tools").
		Compile()
	require.NoError(t, err)

	final, err := compiled.Run(testCtx(), Update{KeyToolCalls: calls})
	require.NoError(t, err)
	return final
}

// toolResults extracts the accumulated results from state.
func toolResults(t *testing.T, s State) []ToolCallResult {
	t.Helper()
	raw, ok := s.Get(KeyToolResults)
	require.True(t, ok)
	seq, ok := raw.([]any)
	require.True(t, ok, "tool_results is %T", raw)

	out := make([]ToolCallResult, len(seq))
	for i, item := range seq {
		r, ok := item.(ToolCallResult)
		require.True(t, ok, "tool_results[%d] is %T", i, item)
		out[i] = r
	}
	return out
}

// TestToolsNode_Dispatch tests K requests produce K correlated results in
// request order.
func TestToolsNode_Dispatch(t *testing.T) {
	reg := tool.NewRegistry(echoTool())

	final := runTools(t, reg, []ToolCallRequest{
		{ID: "c1", Name: "echo", Arguments: map[string]any{"msg": "one"}},
		{ID: "c2", Name: "echo", Arguments: map[string]any{"msg": "two"}},
		{ID: "c3", Name: "echo", Arguments: map[string]any{"msg": "three"}},
	})

	results := toolResults(t, final)
	require.Len(t, results, 3)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, "one", results[0].Content)
	assert.Equal(t, "c2", results[1].ID)
	assert.Equal(t, "two", results[1].Content)
	assert.Equal(t, "c3", results[2].ID)
	assert.Equal(t, "three", results[2].Content)

	// The pending batch is cleared.
	calls, err := PendingToolCalls(final)
	require.NoError(t, err)
	assert.Empty(t, calls)
}

// TestToolsNode_ResultOrderIgnoresCompletionOrder tests request-order
// results despite uneven tool latencies.
func TestToolsNode_ResultOrderIgnoresCompletionOrder(t *testing.T) {
	slow := tool.NewFunc("slow", "", func(ctx context.Context, args map[string]any) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return "slow done", nil
	})
	fast := tool.NewFunc("fast", "", func(ctx context.Context, args map[string]any) (any, error) {
		return "fast done", nil
	})

	final := runTools(t, tool.NewRegistry(slow, fast), []ToolCallRequest{
		{ID: "c1", Name: "slow"},
		{ID: "c2", Name: "fast"},
	})

	results := toolResults(t, final)
	require.Len(t, results, 2)
	assert.Equal(t, "slow done", results[0].Content)
	assert.Equal(t, "fast done", results[1].Content)
}

// TestToolsNode_PartialFailure tests a failed call becomes an error result
// without disturbing siblings or failing the node.
func TestToolsNode_PartialFailure(t *testing.T) {
	reg := tool.NewRegistry(echoTool(), failTool())

	final := runTools(t, reg, []ToolCallRequest{
		{ID: "c1", Name: "fail"},
		{ID: "c2", Name: "echo", Arguments: map[string]any{"msg": "fine"}},
	})

	results := toolResults(t, final)
	require.Len(t, results, 2)
	assert.Equal(t, "tool broke", results[0].Error)
	assert.Nil(t, results[0].Content)
	assert.Empty(t, results[1].Error)
	assert.Equal(t, "fine", results[1].Content)
}

// TestToolsNode_UnknownTool tests unknown names yield error results.
func TestToolsNode_UnknownTool(t *testing.T) {
	final := runTools(t, tool.NewRegistry(), []ToolCallRequest{
		{ID: "c1", Name: "missing"},
	})

	results := toolResults(t, final)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "unknown tool: missing")
}

// TestToolsNode_PanickingTool tests a panicking tool becomes an error result.
func TestToolsNode_PanickingTool(t *testing.T) {
	angry := tool.NewFunc("angry", "", func(ctx context.Context, args map[string]any) (any, error) {
		panic("tool bug")
	})

	final := runTools(t, tool.NewRegistry(angry), []ToolCallRequest{
		{ID: "c1", Name: "angry"},
	})

	results := toolResults(t, final)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "tool bug")
}

// TestToolsNode_CallTimeout tests per-call timeouts produce error results.
func TestToolsNode_CallTimeout(t *testing.T) {
	stuck := tool.NewFunc("stuck", "", func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(5 * time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	start := time.Now()
	final := runTools(t, tool.NewRegistry(stuck),
		[]ToolCallRequest{{ID: "c1", Name: "stuck"}},
		WithCallTimeout(50*time.Millisecond))

	assert.Less(t, time.Since(start), 2*time.Second)
	results := toolResults(t, final)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Error)
}

// TestToolsNode_MaxConcurrency tests the concurrency cap is honored.
func TestToolsNode_MaxConcurrency(t *testing.T) {
	var active, peak int32
	counting := tool.NewFunc("count", "", func(ctx context.Context, args map[string]any) (any, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil, nil
	})

	calls := make([]ToolCallRequest, 8)
	for i := range calls {
		calls[i] = ToolCallRequest{ID: string(rune('a' + i)), Name: "count"}
	}

	runTools(t, tool.NewRegistry(counting), calls, WithMaxConcurrency(2))

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

// TestToolsNode_NoPendingCalls tests an empty batch is a no-op.
func TestToolsNode_NoPendingCalls(t *testing.T) {
	compiled, err := NewGraph().
		AddNode("tools", ToolsNode(tool.NewRegistry(echoTool()))).
		AddEdge("tools", END).
		SetEntry("tools").
		Compile()
	require.NoError(t, err)

	final, err := compiled.Run(testCtx(), nil)

	require.NoError(t, err)
	assert.False(t, final.Has(KeyToolResults))
}

// TestToolsNode_ResultsAccumulateAcrossBatches tests the append reducer
// keeps earlier batches.
func TestToolsNode_ResultsAccumulateAcrossBatches(t *testing.T) {
	reg := tool.NewRegistry(echoTool())

	seed := func(msg string) NodeFunc {
		return writerNode(Update{KeyToolCalls: []ToolCallRequest{
			{ID: msg, Name: "echo", Arguments: map[string]any{"msg": msg}},
		}})
	}

	compiled, err := NewGraph().
		AddNode("seed1", seed("first")).
		AddNode("tools1", ToolsNode(reg)).
		AddNode("seed2", seed("second")).
		AddNode("tools2", ToolsNode(reg)).
		AddEdge("seed1", "tools1").
		AddEdge("tools1", "seed2").
		AddEdge("seed2", "tools2").
		AddEdge("tools2", END).
		SetEntry("seed1").
		Compile()
	require.NoError(t, err)

	final, err := compiled.Run(testCtx(), nil)
	require.NoError(t, err)

	results := toolResults(t, final)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Content)
	assert.Equal(t, "second", results[1].Content)
}

// TestPendingToolCalls_DeserializedShape tests coercion of the []any of
// maps shape a resumed run produces.
func TestPendingToolCalls_DeserializedShape(t *testing.T) {
	st := NewStore(nil)
	_, err := st.Merge([]Update{{KeyToolCalls: []any{
		map[string]any{"id": "c1", "name": "echo", "arguments": map[string]any{"msg": "hi"}},
		map[string]any{"id": "c2", "name": "other"},
	}}})
	require.NoError(t, err)

	calls, err := PendingToolCalls(st.Snapshot())
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, ToolCallRequest{ID: "c1", Name: "echo", Arguments: map[string]any{"msg": "hi"}}, calls[0])
	assert.Equal(t, ToolCallRequest{ID: "c2", Name: "other"}, calls[1])
}

// TestPendingToolCalls_BadShape tests malformed pending calls error.
func TestPendingToolCalls_BadShape(t *testing.T) {
	st := NewStore(nil)
	_, err := st.Merge([]Update{{KeyToolCalls: "not a list"}})
	require.NoError(t, err)

	_, err = PendingToolCalls(st.Snapshot())
	assert.Error(t, err)
}
