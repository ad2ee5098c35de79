package stategraph

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
	"github.com/randalmurphal/stategraph/pkg/stategraph/event"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// CancellationPolicy controls what happens to the in-flight superstep when
// the run context is cancelled.
type CancellationPolicy int

const (
	// CancelWait waits for nodes already invoked in the current superstep
	// to finish, merges their updates, then stops at the step boundary.
	// This is the default: the final checkpoint reflects completed work.
	CancelWait CancellationPolicy = iota

	// CancelAbandon returns as soon as cancellation is observed. In-flight
	// node goroutines are signalled through their contexts but their
	// updates are discarded.
	CancelAbandon
)

// RetryPolicy controls per-node retry on error.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1 (no retry).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the delay after each attempt. Values below
	// 1 are treated as 1 (constant backoff).
	BackoffFactor float64

	// Jitter adds up to this fraction of the delay as random noise.
	// 0.2 means each delay varies by up to +20%.
	Jitter float64
}

// DefaultRetry retries twice with exponential backoff.
func DefaultRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.2,
	}
}

// NoRetry disables retries. This is the default.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxSteps               int
	nodeTimeout            time.Duration
	retry                  RetryPolicy
	cancelPolicy           CancellationPolicy
	checkpointStore        checkpoint.Store
	checkpointFailureFatal bool
	runID                  string
	codec                  Codec
	logger                 *slog.Logger
	metrics                observability.MetricsRecorder
	spans                  observability.SpanManager
	tracingEnabled         bool
	emitter                *event.Emitter
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: 1000,
		retry:    NoRetry(),
		codec:    JSONCodec{},
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of supersteps.
// Default: 1000
//
// This bounds cyclic graphs. If a run reaches the ceiling before the
// frontier drains to END, Run returns a *StepLimitError wrapping
// ErrStepLimit, carrying the state and frontier at the stop point.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithNodeTimeout bounds each node invocation. A node that exceeds the
// timeout fails with a *NodeError wrapping ErrNodeTimeout; its update is
// discarded. Zero (the default) means no timeout.
func WithNodeTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.nodeTimeout = d
		}
	}
}

// WithRetry sets the retry policy applied to node errors. Timeouts and
// panics are not retried.
func WithRetry(p RetryPolicy) RunOption {
	return func(c *runConfig) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		c.retry = p
	}
}

// WithCancellation sets the cancellation policy. Default: CancelWait.
func WithCancellation(p CancellationPolicy) RunOption {
	return func(c *runConfig) {
		c.cancelPolicy = p
	}
}

// WithCheckpointStore enables checkpointing to the given store.
// Requires WithRunID; Run returns ErrRunIDRequired otherwise.
//
// A checkpoint is written after every superstep. Checkpoint failures are
// logged and skipped unless WithCheckpointFailureFatal is set.
func WithCheckpointStore(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithRunID sets the run identifier used as the checkpoint key.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithCheckpointFailureFatal makes checkpoint write failures abort the run
// with a *CheckpointError instead of logging and continuing.
func WithCheckpointFailureFatal() RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = true
	}
}

// WithCodec sets the state codec used for checkpoints. Default: JSONCodec.
func WithCodec(codec Codec) RunOption {
	return func(c *runConfig) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithRunLogger overrides the logger for run-level events. Node-level
// logging uses the context logger; this option is for callers that want
// run lifecycle logs on a separate logger.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
// Use observability.NewMetricsRecorder() for OpenTelemetry metrics.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run, each superstep, and
// each node invocation.
func WithTracing() RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = true
		c.spans = observability.NewSpanManager()
	}
}

// WithListener subscribes a listener to run lifecycle events.
// May be given multiple times.
func WithListener(fn event.Listener) RunOption {
	return func(c *runConfig) {
		if c.emitter == nil {
			c.emitter = event.NewEmitter()
		}
		c.emitter.Subscribe(fn)
	}
}

// OptionsFromConfig derives run options from a loaded config. Recognized
// keys:
//
//	max_steps        int
//	node_timeout     duration
//	cancellation     "wait" | "abandon"
//	tracing          bool
//	retry:
//	  max_attempts    int
//	  initial_backoff duration
//	  max_backoff     duration
//	  backoff_factor  float
//	  jitter          float
//	checkpoint:
//	  run_id          string
//	  failure_fatal   bool
//
// Unknown keys are ignored. The checkpoint store itself is code, not
// config; pass it with WithCheckpointStore.
func OptionsFromConfig(cfg config.Config) []RunOption {
	var opts []RunOption

	if cfg.Has("max_steps") {
		opts = append(opts, WithMaxSteps(cfg.Int("max_steps", 1000)))
	}
	if cfg.Has("node_timeout") {
		opts = append(opts, WithNodeTimeout(cfg.Duration("node_timeout", 0)))
	}
	if cfg.String("cancellation", "") == "abandon" {
		opts = append(opts, WithCancellation(CancelAbandon))
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithTracing())
	}

	if cfg.Has("retry") {
		rc := cfg.Sub("retry")
		d := DefaultRetry()
		opts = append(opts, WithRetry(RetryPolicy{
			MaxAttempts:    rc.Int("max_attempts", d.MaxAttempts),
			InitialBackoff: rc.Duration("initial_backoff", d.InitialBackoff),
			MaxBackoff:     rc.Duration("max_backoff", d.MaxBackoff),
			BackoffFactor:  rc.Float("backoff_factor", d.BackoffFactor),
			Jitter:         rc.Float("jitter", d.Jitter),
		}))
	}

	if cfg.Has("checkpoint") {
		cc := cfg.Sub("checkpoint")
		if id := cc.String("run_id", ""); id != "" {
			opts = append(opts, WithRunID(id))
		}
		if cc.Bool("failure_fatal", false) {
			opts = append(opts, WithCheckpointFailureFatal())
		}
	}

	return opts
}
