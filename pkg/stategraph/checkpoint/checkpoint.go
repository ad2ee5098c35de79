package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is the persisted snapshot taken at a step boundary.
// It contains all information needed to resume execution: the fully
// merged state bytes, the step counter, and the nodes that completed in
// that step so the resuming executor can re-evaluate routing.
type Checkpoint struct {
	// Metadata
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`

	// Execution state
	State json.RawMessage `json:"state"`

	// LastNodes are the nodes that completed in this step.
	LastNodes []string `json:"last_nodes,omitempty"`

	// Frontier holds the successors computed for the next step,
	// kept for diagnostics; resumption re-derives the frontier from
	// LastNodes and the restored state.
	Frontier []string `json:"frontier,omitempty"`
}

// New creates a checkpoint for a step boundary.
// State must already be serialized by the run's codec.
func New(runID string, step int, state []byte, lastNodes, frontier []string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		Step:      step,
		Timestamp: time.Now().UTC(),
		State:     state,
		LastNodes: append([]string(nil), lastNodes...),
		Frontier:  append([]string(nil), frontier...),
	}
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
