// Package event provides run-lifecycle events for stategraph executions.
//
// The executor emits an Event at every significant transition (run start,
// step boundaries, node completions, checkpoints). Listeners subscribe on
// an Emitter and receive events synchronously in emission order, which
// makes them suitable for progress reporting, audit trails, and tests.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

// Event types emitted by the executor.
const (
	RunStarted      Type = "run.started"
	RunCompleted    Type = "run.completed"
	RunFailed       Type = "run.failed"
	StepStarted     Type = "step.started"
	StepCompleted   Type = "step.completed"
	NodeStarted     Type = "node.started"
	NodeCompleted   Type = "node.completed"
	NodeFailed      Type = "node.failed"
	CheckpointSaved Type = "checkpoint.saved"
)

// Event records one execution transition. Events are immutable once created.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`
	// RunID identifies the run that produced the event.
	RunID string `json:"run_id"`
	// Type identifies the transition.
	Type Type `json:"type"`
	// Step is the scheduling step the event belongs to (0 for run-level events).
	Step int `json:"step,omitempty"`
	// Node is the node involved, if any.
	Node string `json:"node,omitempty"`
	// Err carries the error message for failure events.
	Err string `json:"error,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// New creates an event for a run. Step, node, and error fields are set by
// the With helpers.
func New(runID string, t Type) Event {
	return Event{
		ID:        uuid.New().String(),
		RunID:     runID,
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// WithStep returns a copy of the event tagged with a step number.
func (e Event) WithStep(step int) Event {
	e.Step = step
	return e
}

// WithNode returns a copy of the event tagged with a node name.
func (e Event) WithNode(node string) Event {
	e.Node = node
	return e
}

// WithError returns a copy of the event carrying an error message.
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Err = err.Error()
	}
	return e
}
