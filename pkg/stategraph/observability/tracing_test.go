package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Re-resolve the package tracer against the test provider.
	tracer = otel.Tracer("stategraph")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		tracer = otel.Tracer("stategraph")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func findSpan(spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

func TestStartRunSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("creates span with correct name and attributes", func(t *testing.T) {
		ctx := context.Background()
		_, span := sm.StartRunSpan(ctx, "my-graph", "run-123")
		require.NotNil(t, span)

		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, "stategraph.run", s.Name)

		var graphName, runID string
		for _, attr := range s.Attributes {
			switch attr.Key {
			case "graph.name":
				graphName = attr.Value.AsString()
			case "run.id":
				runID = attr.Value.AsString()
			}
		}
		assert.Equal(t, "my-graph", graphName)
		assert.Equal(t, "run-123", runID)
	})

	t.Run("returns context with span", func(t *testing.T) {
		exporter.Reset()

		ctx := context.Background()
		newCtx, span := sm.StartRunSpan(ctx, "test", "run-456")
		assert.NotEqual(t, ctx, newCtx)

		span.End()
		require.Len(t, exporter.GetSpans(), 1)
	})
}

func TestStartStepSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	_, span := sm.StartStepSpan(context.Background(), 4)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "stategraph.step.4", spans[0].Name)

	var step int64
	for _, attr := range spans[0].Attributes {
		if attr.Key == "step" {
			step = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(4), step)
}

func TestStartNodeSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("creates span with node name suffix", func(t *testing.T) {
		_, span := sm.StartNodeSpan(context.Background(), "process")
		require.NotNil(t, span)

		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "stategraph.node.process", spans[0].Name)

		var nodeID string
		for _, attr := range spans[0].Attributes {
			if attr.Key == "node.id" {
				nodeID = attr.Value.AsString()
			}
		}
		assert.Equal(t, "process", nodeID)
	})

	t.Run("node spans nest under step spans", func(t *testing.T) {
		exporter.Reset()

		ctx := context.Background()
		ctx, runSpan := sm.StartRunSpan(ctx, "graph", "run-1")
		ctx, stepSpan := sm.StartStepSpan(ctx, 0)
		_, nodeSpan := sm.StartNodeSpan(ctx, "fetch")

		nodeSpan.End()
		stepSpan.End()
		runSpan.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 3)

		nodeStub := findSpan(spans, "stategraph.node.fetch")
		require.NotNil(t, nodeStub)
		assert.True(t, nodeStub.Parent.IsValid())

		stepStub := findSpan(spans, "stategraph.step.0")
		require.NotNil(t, stepStub)
		assert.Equal(t, stepStub.SpanContext.SpanID(), nodeStub.Parent.SpanID())
	})
}

func TestStartToolSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	_, span := StartToolSpan(context.Background(), "web_search", "call-7")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "stategraph.tool.web_search", spans[0].Name)

	var toolName, callID string
	for _, attr := range spans[0].Attributes {
		switch attr.Key {
		case "tool.name":
			toolName = attr.Value.AsString()
		case "tool.call_id":
			callID = attr.Value.AsString()
		}
	}
	assert.Equal(t, "web_search", toolName)
	assert.Equal(t, "call-7", callID)
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("sets OK status for nil error", func(t *testing.T) {
		_, span := sm.StartRunSpan(context.Background(), "test", "run-1")

		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
		assert.Equal(t, "", spans[0].Status.Description)
	})

	t.Run("sets Error status and records error", func(t *testing.T) {
		exporter.Reset()

		_, span := sm.StartRunSpan(context.Background(), "test", "run-2")
		testErr := errors.New("something went wrong")

		sm.EndSpanWithError(span, testErr)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, codes.Error, s.Status.Code)
		assert.Equal(t, "something went wrong", s.Status.Description)

		require.NotEmpty(t, s.Events)
		found := false
		for _, event := range s.Events {
			if event.Name == "exception" {
				found = true
			}
		}
		assert.True(t, found, "Expected exception event")
	})

	t.Run("nil span does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, nil)
			EndSpanWithError(nil, errors.New("test"))
		})
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	t.Run("adds event to recording span", func(t *testing.T) {
		ctx, span := StartToolSpan(context.Background(), "echo", "call-1")

		AddSpanEvent(ctx, "retrying", attribute.Int("attempt", 2))
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		found := false
		for _, event := range spans[0].Events {
			if event.Name == "retrying" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("no span in context does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			AddSpanEvent(context.Background(), "orphan")
		})
	})
}
