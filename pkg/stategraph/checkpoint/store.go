// Package checkpoint provides persistent checkpoint storage for crash
// recovery. Checkpoints are written by the executor at step boundaries
// only, so a stored checkpoint always holds a fully merged state.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints keyed by run identifier and step number.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint for a run at a specific step.
	// Overwrites if a checkpoint for (runID, step) already exists.
	Save(runID string, step int, data []byte) error

	// Load retrieves the checkpoint for (runID, step).
	// Returns ErrNotFound if the checkpoint doesn't exist.
	Load(runID string, step int) ([]byte, error)

	// Latest retrieves the checkpoint with the highest step for a run.
	// Returns ErrNotFound if the run has no checkpoints.
	Latest(runID string) ([]byte, error)

	// List returns metadata for all of a run's checkpoints, ordered by step.
	// Returns an empty slice (not an error) if the run has no checkpoints.
	List(runID string) ([]Info, error)

	// Delete removes a specific checkpoint.
	// Returns nil if the checkpoint doesn't exist.
	Delete(runID string, step int) error

	// DeleteRun removes all checkpoints for a run.
	// Returns nil if the run has no checkpoints.
	DeleteRun(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides checkpoint metadata without loading the full state.
type Info struct {
	RunID     string
	Step      int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
