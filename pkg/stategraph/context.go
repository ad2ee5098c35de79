package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Context provides execution context to nodes and routers.
// It extends context.Context with run-scoped services and metadata.
//
// Context is immutable after creation. The executor derives a context per
// node invocation with the node ID and step set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run, node, and
	// step attributes during execution. Never nil; defaults to
	// slog.Default() if not configured.
	Logger() *slog.Logger

	// Checkpointer returns the checkpoint store, or nil if not configured.
	// Nodes should check for nil before using.
	Checkpointer() checkpoint.Store

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the node currently being executed.
	// Empty string outside node execution.
	NodeID() string

	// Step returns the zero-based superstep index of the current
	// invocation. -1 outside node execution.
	Step() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger       *slog.Logger
	checkpointer checkpoint.Store
	runID        string
	nodeID       string
	step         int
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// Checkpointer returns the checkpoint store.
func (c *executionContext) Checkpointer() checkpoint.Store {
	return c.checkpointer
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Step returns the current superstep index.
func (c *executionContext) Step() int {
	return c.step
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger is enriched with run_id, node_id, and step during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithCheckpointer sets the checkpoint store exposed to nodes via the
// context. For checkpointing the run itself, use WithCheckpointStore as a
// RunOption with Run().
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) {
		c.checkpointer = store
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID is auto-generated. Used for logging and tracing;
// for checkpointing, use WithRunID() as a RunOption with Run().
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(myLogger),
//	    stategraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
		step:    -1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNode returns a derived context for a single node invocation.
func (c *executionContext) withNode(nodeID string, step int) *executionContext {
	return &executionContext{
		Context:      c.Context,
		logger:       c.logger.With("run_id", c.runID, "node_id", nodeID, "step", step),
		checkpointer: c.checkpointer,
		runID:        c.runID,
		nodeID:       nodeID,
		step:         step,
	}
}

// withParent swaps the embedded context.Context, preserving services and
// metadata. Used to thread trace span contexts and per-node timeouts.
func (c *executionContext) withParent(parent context.Context) *executionContext {
	return &executionContext{
		Context:      parent,
		logger:       c.logger,
		checkpointer: c.checkpointer,
		runID:        c.runID,
		nodeID:       c.nodeID,
		step:         c.step,
	}
}

// asExecutionContext normalizes any Context into the internal type so the
// executor can derive per-node contexts from caller-supplied implementations.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context:      ctx,
		logger:       ctx.Logger(),
		checkpointer: ctx.Checkpointer(),
		runID:        ctx.RunID(),
		nodeID:       ctx.NodeID(),
		step:         ctx.Step(),
	}
}
