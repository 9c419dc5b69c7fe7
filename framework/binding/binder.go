// Package binding subscribes consumers to reactive values held in a
// container and reference counts them per key.
//
//	b := binding.New(app, binding.AutoCleanup())
//	h, err := binding.Acquire(b, "cart", func(items []Item) { render(items) })
//	...
//	h.Release() // last release removes "cart" from the container
package binding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/reactive"
)

// Option configures a Binder.
type Option func(*Binder)

// AutoCleanup removes a value from the container once its last handle is
// released and nothing else listens to it.
func AutoCleanup() Option {
	return func(b *Binder) { b.autoCleanup = true }
}

// WithLogger sets the logger used for cleanup failures.
func WithLogger(l *zap.Logger) Option {
	return func(b *Binder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Binder hands out listener handles for reactive values in a container.
//
// Acquire and Release are serialised per Binder, so a builder run by
// Acquire must not call back into the same Binder.
type Binder struct {
	c           *container.Container
	autoCleanup bool
	logger      *zap.Logger

	mu   sync.Mutex
	refs map[container.Key]int
}

// New creates a Binder over c.
func New(c *container.Container, opts ...Option) *Binder {
	b := &Binder{
		c:      c,
		logger: zap.NewNop(),
		refs:   make(map[container.Key]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// subscription is the part of reactive.Value a handle needs after the
// element type is gone.
type subscription interface {
	RemoveListener(id reactive.ListenerID)
	ListenerCount() int
}

// Handle is one subscription. Release it when the consumer goes away.
type Handle struct {
	b   *Binder
	key container.Key
	src subscription
	id  reactive.ListenerID

	once sync.Once
	err  error
}

// Key returns the container key the handle is bound to.
func (h *Handle) Key() container.Key { return h.key }

// Acquire resolves the *reactive.Value[T] registered under tag, subscribes fn
// and counts the reference.
func Acquire[T any](b *Binder, tag string, fn reactive.Listener[T]) (*Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := container.Get[*reactive.Value[T]](b.c, tag)
	if err != nil {
		return nil, err
	}
	return subscribeLocked(b, tag, v, fn)
}

// AcquireAsync is Acquire for values registered with an async builder.
func AcquireAsync[T any](ctx context.Context, b *Binder, tag string, fn reactive.Listener[T]) (*Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := container.GetAsync[*reactive.Value[T]](ctx, b.c, tag)
	if err != nil {
		return nil, err
	}
	return subscribeLocked(b, tag, v, fn)
}

func subscribeLocked[T any](b *Binder, tag string, v *reactive.Value[T], fn reactive.Listener[T]) (*Handle, error) {
	k := container.KeyOf[*reactive.Value[T]](tag)
	id, err := v.AddListener(fn)
	if err != nil {
		return nil, fmt.Errorf("binding: subscribe %s: %w", k, err)
	}
	b.refs[k]++
	return &Handle{b: b, key: k, src: v, id: id}, nil
}

// Release unsubscribes the handle. With AutoCleanup, releasing the last
// handle of a key whose value has no other listeners removes it from the
// container. Releasing twice is a no-op.
func (h *Handle) Release() error {
	h.once.Do(func() { h.err = h.b.release(h) })
	return h.err
}

func (b *Binder) release(h *Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h.src.RemoveListener(h.id)
	b.refs[h.key]--
	if b.refs[h.key] > 0 {
		return nil
	}
	delete(b.refs, h.key)

	if !b.autoCleanup || h.src.ListenerCount() > 0 {
		return nil
	}
	if _, err := b.c.Remove(h.key); err != nil {
		b.logger.Warn("binding: cleanup failed",
			zap.Stringer("key", h.key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Refs returns the number of unreleased handles for k.
func (b *Binder) Refs(k container.Key) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs[k]
}
