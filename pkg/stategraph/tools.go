package stategraph

import (
	"context"
	"fmt"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"github.com/randalmurphal/stategraph/pkg/stategraph/tool"
)

// Well-known state keys used by the tool dispatch node and error edges.
// KeyToolCalls and KeyToolResults have reducers pre-registered by NewGraph:
// calls replace, results append.
const (
	// KeyToolCalls holds the pending []ToolCallRequest for the next
	// ToolsNode invocation.
	KeyToolCalls = "tool_calls"

	// KeyToolResults accumulates []ToolCallResult across the run.
	KeyToolResults = "tool_results"

	// KeyLastError holds details of the most recent failure absorbed by an
	// error edge.
	KeyLastError = "last_error"
)

// ToolCallRequest asks for one tool invocation. ID correlates the request
// with its result.
type ToolCallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the outcome of one tool invocation. Exactly one of
// Content and Error is meaningful: Error is empty on success.
type ToolCallResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content any    `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// toolsConfig holds ToolsNode settings.
type toolsConfig struct {
	callTimeout    time.Duration
	maxConcurrency int
	metrics        observability.MetricsRecorder
}

// ToolsOption configures a ToolsNode.
type ToolsOption func(*toolsConfig)

// WithCallTimeout bounds each individual tool call. A call that exceeds the
// timeout produces an error result; other calls are unaffected.
func WithCallTimeout(d time.Duration) ToolsOption {
	return func(c *toolsConfig) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithMaxConcurrency caps how many tool calls run at once.
// Zero (the default) means unbounded.
func WithMaxConcurrency(n int) ToolsOption {
	return func(c *toolsConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithToolMetrics records per-call metrics on the given recorder.
func WithToolMetrics(m observability.MetricsRecorder) ToolsOption {
	return func(c *toolsConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// ToolsNode returns a node that executes the pending tool calls in
// KeyToolCalls. Calls fan out concurrently; results are collected in
// request order regardless of completion order and appended to
// KeyToolResults. A failed or unknown tool produces an error result in the
// same position and never fails the node or disturbs sibling calls.
//
// The returned update also clears KeyToolCalls so a routing loop back
// through the node does not re-execute the same batch.
func ToolsNode(reg *tool.Registry, opts ...ToolsOption) NodeFunc {
	cfg := toolsConfig{metrics: observability.NoopMetrics{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx Context, state State) (Update, error) {
		calls, err := PendingToolCalls(state)
		if err != nil {
			return nil, err
		}
		if len(calls) == 0 {
			return Update{KeyToolCalls: []ToolCallRequest{}}, nil
		}

		results := make([]ToolCallResult, len(calls))

		var sem chan struct{}
		if cfg.maxConcurrency > 0 {
			sem = make(chan struct{}, cfg.maxConcurrency)
		}

		done := make(chan int, len(calls))
		for i, call := range calls {
			go func(i int, call ToolCallRequest) {
				if sem != nil {
					sem <- struct{}{}
					defer func() { <-sem }()
				}
				results[i] = dispatchCall(ctx, reg, call, &cfg)
				done <- i
			}(i, call)
		}
		for range calls {
			<-done
		}

		return Update{
			KeyToolCalls:   []ToolCallRequest{},
			KeyToolResults: results,
		}, nil
	}
}

// dispatchCall runs one tool call with panic recovery, optional timeout,
// and per-call observability.
func dispatchCall(ctx Context, reg *tool.Registry, call ToolCallRequest, cfg *toolsConfig) (result ToolCallResult) {
	result = ToolCallResult{ID: call.ID, Name: call.Name}

	t, ok := reg.Lookup(call.Name)
	if !ok {
		result.Error = fmt.Sprintf("unknown tool: %s", call.Name)
		return result
	}

	callCtx := context.Context(ctx)
	if cfg.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, cfg.callTimeout)
		defer cancel()
	}

	spanCtx, span := observability.StartToolSpan(callCtx, call.Name, call.ID)
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		var err error
		if result.Error != "" {
			err = fmt.Errorf("%s", result.Error)
		}
		cfg.metrics.RecordToolCall(spanCtx, call.Name, duration, err)
		observability.EndSpanWithError(span, err)
		observability.LogToolCall(ctx.Logger(), call.Name, call.ID, float64(duration.Milliseconds()), err)
	}()

	defer func() {
		if r := recover(); r != nil {
			result.Content = nil
			result.Error = fmt.Sprintf("tool panicked: %v", r)
		}
	}()

	content, err := t.Execute(spanCtx, call.Arguments)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Content = content
	return result
}

// PendingToolCalls reads KeyToolCalls from state, coercing the shapes a
// resumed run produces: the live []ToolCallRequest, or the []any of
// map[string]any that JSON decoding yields.
func PendingToolCalls(state State) ([]ToolCallRequest, error) {
	raw, ok := state.Get(KeyToolCalls)
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []ToolCallRequest:
		return v, nil
	case []any:
		calls := make([]ToolCallRequest, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: unexpected type %T", KeyToolCalls, i, item)
			}
			call := ToolCallRequest{}
			if id, ok := m["id"].(string); ok {
				call.ID = id
			}
			if name, ok := m["name"].(string); ok {
				call.Name = name
			}
			if args, ok := m["arguments"].(map[string]any); ok {
				call.Arguments = args
			}
			calls = append(calls, call)
		}
		return calls, nil
	default:
		return nil, fmt.Errorf("%s: unexpected type %T", KeyToolCalls, raw)
	}
}
