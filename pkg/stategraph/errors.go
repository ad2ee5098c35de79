package stategraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge indicates a reachable node has no outgoing edge
	// and is not explicitly terminal.
	ErrNoOutgoingEdge = errors.New("node has no outgoing edge")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")
)

// Sentinel errors for execution.
var (
	// ErrStepLimit indicates the run exceeded the configured step ceiling.
	ErrStepLimit = errors.New("exceeded maximum steps")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNodeTimeout indicates a node invocation exceeded its timeout.
	ErrNodeTimeout = errors.New("node invocation timed out")

	// ErrEmptyRoute indicates a router function returned no targets.
	ErrEmptyRoute = errors.New("router returned no targets")

	// ErrUndeclaredTarget indicates a router returned a name outside its
	// declared target set. This is a definition bug and is always fatal.
	ErrUndeclaredTarget = errors.New("router returned undeclared target")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrRunIDRequired indicates checkpointing was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrDecodeState indicates state deserialization failed.
	ErrDecodeState = errors.New("failed to decode state")

	// ErrNoCheckpoints indicates no checkpoints exist for the run.
	ErrNoCheckpoints = errors.New("no checkpoints found for run")

	// ErrCheckpointVersionMismatch indicates the checkpoint version is incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// NodeError wraps an error with node context.
// It reports which node failed, at which step, and what operation was attempted.
type NodeError struct {
	// Node is the identifier of the node that failed.
	Node string
	// Step is the scheduling step at which the failure occurred.
	Step int
	// Op is the operation that failed (e.g., "execute", "timeout").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (step %d): %s: %v", e.Node, e.Step, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RoutingError indicates a conditional edge produced an invalid decision.
// Routing errors signal definition bugs and always fail the run.
type RoutingError struct {
	// FromNode is the node with the conditional edge.
	FromNode string
	// Step is the scheduling step at which routing was evaluated.
	Step int
	// Returned are the target names the router returned.
	Returned []string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing from %s (step %d) returned [%s]: %v",
		e.FromNode, e.Step, strings.Join(e.Returned, ", "), e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RoutingError) Unwrap() error {
	return e.Err
}

// ReducerError indicates a custom merge reducer failed or panicked while
// applying a step's updates. The store keeps the prior state version; the
// executor treats this as the merging step's failure, not store corruption.
type ReducerError struct {
	// Key is the state key whose reducer failed.
	Key string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ReducerError) Error() string {
	return fmt.Sprintf("reducer for key %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ReducerError) Unwrap() error {
	return e.Err
}

// StepLimitError reports that the run hit the configured step ceiling.
// It carries the frontier that would have run next and the last fully
// merged state for diagnosis.
type StepLimitError struct {
	// Max is the configured step limit.
	Max int
	// Frontier holds the node names scheduled when the limit was hit.
	Frontier []string
	// State is the last successfully merged state.
	State State
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("exceeded maximum steps (%d) with frontier [%s]",
		e.Max, strings.Join(e.Frontier, ", "))
}

// Unwrap returns ErrStepLimit for errors.Is support.
func (e *StepLimitError) Unwrap() error {
	return ErrStepLimit
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// Node is the identifier of the node that panicked.
	Node string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}

// CancellationError captures the point at which a run was cancelled.
// It preserves the last fully merged state for recovery.
type CancellationError struct {
	// Step is the step boundary at which cancellation was observed.
	Step int
	// Frontier holds the node names that were scheduled next.
	Frontier []string
	// State is the last successfully merged state.
	State State
	// Cause is the underlying cancellation cause
	// (context.Canceled or context.DeadlineExceeded).
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("run cancelled at step %d: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// Step is the step boundary being checkpointed.
	Step int
	// Op is the operation that failed ("encode", "marshal", "save").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at step %d: %v", e.Op, e.Step, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}
