package stategraph

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Resume continues a run from its latest checkpoint in store.
//
// The checkpointed state is restored through the configured codec and the
// next frontier is recomputed by re-evaluating routing for the nodes that
// completed in the checkpointed step, against the restored state. Routing
// must be a pure function of state for resume to reproduce the original
// schedule; routers that close over external mutable data may route
// differently after a resume.
//
// Returns ErrNoCheckpoints if the run has no checkpoints. Passing
// WithCheckpointStore keeps checkpointing enabled for the resumed portion;
// the run ID defaults to the resumed run's ID unless WithRunID overrides it.
func (cg *CompiledGraph) Resume(ctx Context, store checkpoint.Store, runID string, opts ...RunOption) (State, error) {
	if ctx == nil {
		return State{}, ErrNilContext
	}
	if runID == "" {
		return State{}, ErrRunIDRequired
	}

	data, err := store.Latest(runID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return State{}, fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
		}
		return State{}, &CheckpointError{Op: "load", Err: err}
	}

	return cg.resumeFrom(ctx, data, runID, opts...)
}

// ResumeAt continues a run from the checkpoint at a specific step,
// discarding the effects of any later checkpoints. Useful for replaying a
// run from a known-good point.
func (cg *CompiledGraph) ResumeAt(ctx Context, store checkpoint.Store, runID string, step int, opts ...RunOption) (State, error) {
	if ctx == nil {
		return State{}, ErrNilContext
	}
	if runID == "" {
		return State{}, ErrRunIDRequired
	}

	data, err := store.Load(runID, step)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return State{}, fmt.Errorf("%w: %s step %d", ErrNoCheckpoints, runID, step)
		}
		return State{}, &CheckpointError{Step: step, Op: "load", Err: err}
	}

	return cg.resumeFrom(ctx, data, runID, opts...)
}

// resumeFrom rehydrates a marshalled checkpoint and re-enters the run loop
// at the following step.
func (cg *CompiledGraph) resumeFrom(ctx Context, data []byte, runID string, opts ...RunOption) (State, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.checkpointStore != nil && cfg.runID == "" {
		// Continue checkpointing under the same run.
		cfg.runID = runID
	}
	if cfg.logger == nil {
		cfg.logger = ctx.Logger()
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return State{}, &CheckpointError{Op: "unmarshal", Err: err}
	}
	if cp.Version != checkpoint.Version {
		return State{}, fmt.Errorf("%w: checkpoint v%d, supported v%d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	restored, err := cfg.codec.DecodeState(cp.State)
	if err != nil {
		return State{}, err
	}

	store := newStoreAt(cg.reducers, restored)
	ec := asExecutionContext(ctx)

	frontier, err := cg.recomputeFrontier(ec, cp, restored)
	if err != nil {
		return restored, err
	}

	return cg.runLoop(ctx, store, frontier, cp.Step+1, runID, &cfg)
}

// recomputeFrontier re-evaluates routing for the checkpointed step's nodes.
// A node the checkpoint routed through its error edge keeps that route; the
// failure that caused it is not re-executed.
func (cg *CompiledGraph) recomputeFrontier(ec *executionContext, cp *checkpoint.Checkpoint, restored State) ([]string, error) {
	stored := make(map[string]bool, len(cp.Frontier))
	for _, n := range cp.Frontier {
		stored[n] = true
	}

	results := make([]nodeResult, len(cp.LastNodes))
	for i, nodeID := range cp.LastNodes {
		results[i] = nodeResult{idx: i, node: nodeID}
		if target, ok := cg.errorEdges[nodeID]; ok && stored[target] {
			// The stored frontier shows this node took its error edge.
			results[i].forcedTarget = target
		}
	}

	return cg.routeFrontier(ec, results, restored, cp.Step)
}
