package stategraph

import (
	"context"
	"errors"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/event"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph until the frontier drains to END or an error occurs.
//
// The initial update is merged into an empty store before the first step,
// honoring key reducers. Execution proceeds in supersteps: every node in the
// current frontier runs concurrently against the same state snapshot, all
// updates merge as one atomic batch in frontier scheduling order, then
// routing against the merged state produces the next frontier.
//
// On success, Run returns the final merged state. On error, it returns the
// last fully merged state together with the failure; partially executed
// steps are never visible in the returned state.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	final, err := compiled.Run(ctx, stategraph.Update{"input": "hello"})
func (cg *CompiledGraph) Run(ctx Context, initial Update, opts ...RunOption) (result State, runErr error) {
	if ctx == nil {
		return State{}, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.checkpointStore != nil && cfg.runID == "" {
		return State{}, ErrRunIDRequired
	}
	if cfg.logger == nil {
		cfg.logger = ctx.Logger()
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	store := NewStore(cg.reducers)
	if len(initial) > 0 {
		if _, err := store.Merge([]Update{initial}); err != nil {
			return store.Snapshot(), err
		}
	}

	return cg.runLoop(ctx, store, []string{cg.entryPoint}, 0, runID, &cfg)
}

// runLoop drives supersteps from a given frontier and step index until the
// frontier drains. Shared by Run and Resume.
func (cg *CompiledGraph) runLoop(ctx Context, store *Store, frontier []string, startStep int, runID string, cfg *runConfig) (result State, runErr error) {
	ec := asExecutionContext(ctx)

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)
	cfg.emitter.Emit(event.New(runID, event.RunStarted))

	var tracingCtx context.Context = ec
	var runSpan trace.Span
	if cfg.tracingEnabled {
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ec, "stategraph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	step := startStep
	defer func() {
		duration := time.Since(startTime)
		cfg.metrics.RecordGraphRun(ec, runErr == nil, duration)
		if runErr != nil {
			observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), step)
			cfg.emitter.Emit(event.New(runID, event.RunFailed).WithStep(step).WithError(runErr))
		} else {
			observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), step-startStep)
			cfg.emitter.Emit(event.New(runID, event.RunCompleted).WithStep(step))
		}
	}()

	for len(frontier) > 0 {
		if step >= cfg.maxSteps {
			return store.Snapshot(), &StepLimitError{
				Max:      cfg.maxSteps,
				Frontier: frontier,
				State:    store.Snapshot(),
			}
		}

		select {
		case <-ec.Done():
			return store.Snapshot(), &CancellationError{
				Step:     step,
				Frontier: frontier,
				State:    store.Snapshot(),
				Cause:    context.Cause(ec),
			}
		default:
		}

		next, err := cg.runStep(ec, tracingCtx, store, frontier, step, runID, cfg)
		if err != nil {
			return store.Snapshot(), err
		}

		frontier = next
		step++
	}

	return store.Snapshot(), nil
}

// runStep executes one superstep: invoke the frontier concurrently, merge
// the batch, route the next frontier, checkpoint. Returns the next frontier.
func (cg *CompiledGraph) runStep(ec *executionContext, tracingCtx context.Context, store *Store, frontier []string, step int, runID string, cfg *runConfig) (next []string, stepErr error) {
	snapshot := store.Snapshot()

	observability.LogStepStart(cfg.logger, step, frontier)
	cfg.emitter.Emit(event.New(runID, event.StepStarted).WithStep(step))

	stepCtx := tracingCtx
	var stepSpan trace.Span
	if cfg.tracingEnabled {
		stepCtx, stepSpan = cfg.spans.StartStepSpan(tracingCtx, step)
		defer func() {
			cfg.spans.EndSpanWithError(stepSpan, stepErr)
		}()
	}

	stepStart := time.Now()

	results, cancelErr := cg.runFrontier(ec, stepCtx, snapshot, frontier, step, runID, cfg)
	if cancelErr != nil {
		return nil, cancelErr
	}

	// Results arrive in frontier scheduling order. A failed node with a
	// declared error edge converts into a KeyLastError write and a forced
	// route; any other failure fails the step before merging.
	batch := make([]Update, 0, len(results))
	for i := range results {
		r := &results[i]
		if r.err == nil {
			observability.LogNodeComplete(cfg.logger, r.node, r.durationMs)
			cfg.emitter.Emit(event.New(runID, event.NodeCompleted).WithStep(step).WithNode(r.node))
			if r.update != nil {
				batch = append(batch, r.update)
			}
			continue
		}

		observability.LogNodeError(cfg.logger, r.node, r.err)
		cfg.emitter.Emit(event.New(runID, event.NodeFailed).WithStep(step).WithNode(r.node).WithError(r.err))

		target, ok := cg.errorEdges[r.node]
		if !ok {
			return nil, r.err
		}
		r.forcedTarget = target
		batch = append(batch, Update{KeyLastError: map[string]any{
			"node":  r.node,
			"step":  step,
			"error": r.err.Error(),
		}})
		r.err = nil
	}

	merged, err := store.Merge(batch)
	if err != nil {
		return nil, err
	}

	next, err = cg.routeFrontier(ec, results, merged, step)
	if err != nil {
		return nil, err
	}

	stepDuration := time.Since(stepStart)
	cfg.metrics.RecordStep(stepCtx, len(frontier), stepDuration)
	observability.LogStepComplete(cfg.logger, step, merged.Version(), float64(stepDuration.Milliseconds()))
	cfg.emitter.Emit(event.New(runID, event.StepCompleted).WithStep(step))

	if cfg.checkpointStore != nil {
		if err := cg.saveCheckpoint(ec, cfg, runID, step, merged, frontier, next); err != nil {
			return nil, err
		}
	}

	return next, nil
}

// nodeResult carries one frontier invocation's outcome.
type nodeResult struct {
	idx        int
	node       string
	update     Update
	err        error
	durationMs float64

	// forcedTarget overrides routing when an error edge absorbed a failure.
	forcedTarget string
}

// runFrontier invokes every frontier node concurrently against the same
// snapshot and collects results indexed by frontier position. Under
// CancelAbandon a cancellation returns immediately and in-flight results
// are discarded; under CancelWait collection always completes.
func (cg *CompiledGraph) runFrontier(ec *executionContext, tracingCtx context.Context, snapshot State, frontier []string, step int, runID string, cfg *runConfig) ([]nodeResult, error) {
	ch := make(chan nodeResult, len(frontier))

	for i, nodeID := range frontier {
		observability.LogNodeStart(cfg.logger, nodeID, step)
		cfg.emitter.Emit(event.New(runID, event.NodeStarted).WithStep(step).WithNode(nodeID))

		go func(idx int, nodeID string) {
			nodeCtx := tracingCtx
			var nodeSpan trace.Span
			if cfg.tracingEnabled {
				nodeCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, nodeID)
			}

			start := time.Now()
			upd, err := cg.invokeNode(ec, nodeCtx, nodeID, step, snapshot, cfg)
			duration := time.Since(start)

			cfg.metrics.RecordNodeExecution(nodeCtx, nodeID, duration, err)
			if cfg.tracingEnabled {
				cfg.spans.EndSpanWithError(nodeSpan, err)
			}

			ch <- nodeResult{
				idx:        idx,
				node:       nodeID,
				update:     upd,
				err:        err,
				durationMs: float64(duration.Milliseconds()),
			}
		}(i, nodeID)
	}

	results := make([]nodeResult, len(frontier))
	for remaining := len(frontier); remaining > 0; remaining-- {
		if cfg.cancelPolicy == CancelAbandon {
			select {
			case r := <-ch:
				results[r.idx] = r
			case <-ec.Done():
				return nil, &CancellationError{
					Step:     step,
					Frontier: frontier,
					State:    snapshot,
					Cause:    context.Cause(ec),
				}
			}
		} else {
			r := <-ch
			results[r.idx] = r
		}
	}

	return results, nil
}

// invokeNode runs one node with retry. Timeouts, panics, and context
// cancellation are not retried.
func (cg *CompiledGraph) invokeNode(ec *executionContext, tracingCtx context.Context, nodeID string, step int, snapshot State, cfg *runConfig) (Update, error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable after successful compilation.
		return nil, &NodeError{Node: nodeID, Step: step, Op: "lookup", Err: ErrNodeNotFound}
	}

	nodeCtx := ec.withNode(nodeID, step).withParent(tracingCtx)

	var lastErr error
	for attempt := 1; attempt <= cfg.retry.MaxAttempts; attempt++ {
		upd, err := callNode(nodeCtx, fn, snapshot, cfg.nodeTimeout)
		if err == nil {
			return upd, nil
		}
		lastErr = err

		if !retryable(err) || attempt == cfg.retry.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg.retry, attempt)
		nodeCtx.logger.Warn("node failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.retry.MaxAttempts,
			"backoff", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ec.Done():
			return nil, wrapNodeErr(nodeID, step, context.Cause(ec))
		}
	}

	return nil, wrapNodeErr(nodeID, step, lastErr)
}

// callNode executes the node function with panic recovery and an optional
// per-invocation timeout. On timeout the node goroutine is left to drain;
// its update is discarded.
func callNode(nodeCtx *executionContext, fn NodeFunc, snapshot State, timeout time.Duration) (Update, error) {
	invoke := func(ctx *executionContext) (upd Update, err error) {
		defer func() {
			if r := recover(); r != nil {
				upd = nil
				err = &PanicError{
					Node:  ctx.nodeID,
					Value: r,
					Stack: string(debug.Stack()),
				}
			}
		}()
		return fn(ctx, snapshot)
	}

	if timeout <= 0 {
		return invoke(nodeCtx)
	}

	timeoutCtx, cancel := context.WithTimeout(nodeCtx.Context, timeout)
	defer cancel()

	type outcome struct {
		upd Update
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		upd, err := invoke(nodeCtx.withParent(timeoutCtx))
		done <- outcome{upd, err}
	}()

	select {
	case o := <-done:
		return o.upd, o.err
	case <-timeoutCtx.Done():
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrNodeTimeout
		}
		return nil, timeoutCtx.Err()
	}
}

// wrapNodeErr normalizes a node failure into a typed error. Panics keep
// their own type so callers can inspect the stack.
func wrapNodeErr(nodeID string, step int, err error) error {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe
	}
	op := "execute"
	if errors.Is(err, ErrNodeTimeout) {
		op = "timeout"
	}
	return &NodeError{Node: nodeID, Step: step, Op: op, Err: err}
}

// retryable reports whether a node failure is worth retrying.
func retryable(err error) bool {
	var pe *PanicError
	if errors.As(err, &pe) {
		return false
	}
	return !errors.Is(err, ErrNodeTimeout) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// backoffDelay computes the delay before retry attempt+1.
func backoffDelay(p RetryPolicy, attempt int) time.Duration {
	delay := p.InitialBackoff
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * factor)
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}
	if p.Jitter > 0 && delay > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}
	return delay
}

// routeFrontier computes the next frontier from a step's results and the
// merged state. Targets are unioned in frontier scheduling order with
// first-occurrence dedup; END is dropped from the union.
func (cg *CompiledGraph) routeFrontier(ec *executionContext, results []nodeResult, merged State, step int) ([]string, error) {
	var next []string
	seen := make(map[string]bool)

	for i := range results {
		r := &results[i]

		var targets []string
		if r.forcedTarget != "" {
			targets = []string{r.forcedTarget}
		} else {
			var err error
			targets, err = cg.routeNode(ec, r.node, merged, step)
			if err != nil {
				return nil, err
			}
		}

		for _, t := range targets {
			if t == END || seen[t] {
				continue
			}
			seen[t] = true
			next = append(next, t)
		}
	}

	return next, nil
}

// routeNode evaluates one node's outgoing edges against the merged state.
// Conditional edges take precedence over static edges.
func (cg *CompiledGraph) routeNode(ec *executionContext, nodeID string, merged State, step int) ([]string, error) {
	if ce, exists := cg.conditional[nodeID]; exists {
		routerCtx := ec.withNode(nodeID, step)
		targets := ce.router(routerCtx, merged)

		if len(targets) == 0 {
			return nil, &RoutingError{
				FromNode: nodeID,
				Step:     step,
				Returned: targets,
				Err:      ErrEmptyRoute,
			}
		}
		for _, t := range targets {
			if !ce.targets[t] {
				return nil, &RoutingError{
					FromNode: nodeID,
					Step:     step,
					Returned: targets,
					Err:      ErrUndeclaredTarget,
				}
			}
		}
		return targets, nil
	}

	edges := cg.edges[nodeID]
	if len(edges) == 0 {
		// Unreachable after successful compilation.
		return nil, &NodeError{Node: nodeID, Step: step, Op: "routing", Err: ErrNoOutgoingEdge}
	}
	return edges, nil
}

// saveCheckpoint persists the step's merged state plus the nodes that just
// ran and the frontier that comes next. Failures are fatal only when
// configured; otherwise they are logged and the run continues.
func (cg *CompiledGraph) saveCheckpoint(ec *executionContext, cfg *runConfig, runID string, step int, merged State, lastNodes, nextFrontier []string) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{Step: step, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, step, op, err)
		return nil
	}

	stateBytes, err := cfg.codec.EncodeState(merged)
	if err != nil {
		return fail("encode", err)
	}

	cp := checkpoint.New(runID, step, stateBytes, lastNodes, nextFrontier)
	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(runID, step, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, step, len(data))
	cfg.metrics.RecordCheckpoint(ec, step, int64(len(data)))
	cfg.emitter.Emit(event.New(runID, event.CheckpointSaved).WithStep(step))
	return nil
}
