package container

import (
	"time"

	"go.uber.org/zap"
)

// ── Container options ─────────────────────────────────────────────────────────

// Option configures a Container in New.
type Option func(*Container)

// WithLogger sets the logger used for dispose failures and lifecycle debug
// lines. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Container) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithDisposeTimeout bounds each DisposeAsync call made by the container.
// Zero leaves the caller's context as is.
func WithDisposeTimeout(d time.Duration) Option {
	return func(c *Container) { c.disposeTimeout = d }
}

// ── Registration options ──────────────────────────────────────────────────────

type registerOptions struct {
	reborn bool
	yield  bool
}

// RegisterOption tunes a single registration.
type RegisterOption func(*registerOptions)

// Reborn keeps the builder of a lazy registration after its instance is
// removed, so the next lookup builds a fresh one.
//
//	c.RegisterLazy(key, newSession, container.Reborn())
func Reborn() RegisterOption {
	return func(o *registerOptions) { o.reborn = true }
}

// YieldToExisting makes RegisterAsync give way when another registration
// for the same key landed while its builder was running. The freshly built
// value is disposed and the existing registration is resolved instead.
func YieldToExisting() RegisterOption {
	return func(o *registerOptions) { o.yield = true }
}

func applyRegisterOptions(opts []RegisterOption) registerOptions {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
