package graph

import "time"

// BufferStrategy selects the policy applied when a node's bounded input
// buffer is full. The chosen strategy is applied uniformly across the
// graph; mixing strategies per node is not supported.
type BufferStrategy string

const (
	// BufferDropNewest drops the incoming packet when the buffer is full.
	// This is the default.
	BufferDropNewest BufferStrategy = "drop-newest"
	// BufferBlock applies backpressure to the caller until space frees up.
	BufferBlock BufferStrategy = "block"
	// BufferSliding drops the oldest buffered packet to make room (a ring buffer).
	BufferSliding BufferStrategy = "sliding"
)

// ErrorStrategy selects how the runner reacts to a node-level fatal error.
type ErrorStrategy string

const (
	// ErrorContinue logs node errors and keeps the runner running.
	ErrorContinue ErrorStrategy = "continue"
	// ErrorStop stops the whole runner when any node enters the error state.
	ErrorStop ErrorStrategy = "stop"
	// ErrorRetry defers entirely to node-level RetryPolicy; the runner itself
	// takes no additional action beyond logging.
	ErrorRetry ErrorStrategy = "retry"
)

const (
	defaultBufferSize         = 1000
	defaultMaxConcurrency     = 0 // 0 means unbounded
	defaultCheckpointInterval = 30 * time.Second
	defaultMetricsTick        = 5 * time.Second
)

// Config enumerates the runtime-wide options carried by a GraphDefinition.
type Config struct {
	// MaxConcurrency bounds the number of concurrent user-function
	// invocations runtime-wide. Zero means unbounded.
	MaxConcurrency int

	// DefaultTimeout is the fallback per-packet timeout used by nodes that
	// don't specify their own.
	DefaultTimeout time.Duration

	// BufferStrategy is the policy applied when a bounded buffer is full.
	BufferStrategy BufferStrategy

	// ErrorStrategy controls the runner's reaction to node-level errors.
	ErrorStrategy ErrorStrategy

	// CheckpointInterval is the period between state snapshots written to
	// the persistence adapter, when EnableCheckpointing is true.
	CheckpointInterval time.Duration

	// AllowCycles, if false (the default), makes the runner refuse to
	// initialize a cyclic graph.
	AllowCycles bool

	// MaxIterations bounds the number of edges a single packet may cross
	// (its hop count, carried in packet metadata), on cyclic and acyclic
	// paths alike. Enforced by the edge fabric whenever it is greater than
	// zero, independent of AllowCycles — AllowCycles only gates whether
	// Initialize accepts a cyclic graph at all.
	MaxIterations int

	// EnableCheckpointing toggles periodic and on-stop persistence calls.
	EnableCheckpointing bool

	// StreamingMode is an advisory flag that, when true, changes aggregate
	// nodes' default emission strategy to incremental.
	StreamingMode bool
}

// DefaultConfig returns the runtime's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:      defaultMaxConcurrency,
		DefaultTimeout:      30 * time.Second,
		BufferStrategy:      BufferDropNewest,
		ErrorStrategy:       ErrorContinue,
		CheckpointInterval:  defaultCheckpointInterval,
		AllowCycles:         false,
		MaxIterations:       0,
		EnableCheckpointing: false,
		StreamingMode:       false,
	}
}

// normalize fills zero-valued fields with documented defaults, so a
// partially-specified Config behaves as if every field had been set.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.BufferStrategy == "" {
		c.BufferStrategy = d.BufferStrategy
	}
	if c.ErrorStrategy == "" {
		c.ErrorStrategy = d.ErrorStrategy
	}
	if c.CheckpointInterval == 0 {
		c.CheckpointInterval = d.CheckpointInterval
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = d.DefaultTimeout
	}
	return c
}
