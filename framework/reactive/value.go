package reactive

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrDisposed is returned by mutating calls on a disposed Value.
	ErrDisposed = errors.New("reactive: value is disposed")

	// ErrInvalidMode is returned when an auto-notify method is used on a
	// manual Value or the other way round.
	ErrInvalidMode = errors.New("reactive: operation not allowed in this notify mode")

	// ErrBatchClosed is returned by Commit on a batch that was already
	// committed or discarded.
	ErrBatchClosed = errors.New("reactive: batch already committed or discarded")
)

// Mode selects how a Value reports mutations.
type Mode int

const (
	// ModeAuto notifies listeners on every effective Set/Update.
	ModeAuto Mode = iota
	// ModeManual applies updates silently; listeners only hear ForceNotify.
	ModeManual
)

func (m Mode) String() string {
	if m == ModeManual {
		return "manual"
	}
	return "auto"
}

// ListenerID identifies a subscription returned by AddListener.
type ListenerID uint64

// Listener receives the current value on every notification.
type Listener[T any] func(T)

// ── Options ───────────────────────────────────────────────────────────────────

type settings struct {
	tag    string
	mode   Mode
	paused bool
}

// Option configures a Value at construction.
type Option func(*settings)

// WithTag sets the identity tag. Without it a random UUID is used.
func WithTag(tag string) Option { return func(s *settings) { s.tag = tag } }

// Manual creates the Value in manual (silent update) mode.
func Manual() Option { return func(s *settings) { s.mode = ModeManual } }

// Paused creates the Value with notifications suppressed.
func Paused() Option { return func(s *settings) { s.paused = true } }

// ── Value ─────────────────────────────────────────────────────────────────────

// Value is a mutable holder that notifies listeners when its content changes.
//
// Reads are always legal, even after Dispose. Listeners are invoked outside
// the internal lock, in subscription order.
type Value[T any] struct {
	mu sync.Mutex

	current  T
	previous T
	equal    func(a, b T) bool

	tag      string
	mode     Mode
	paused   bool
	disposed bool

	nextID    ListenerID
	listeners map[ListenerID]Listener[T]
	order     []ListenerID
}

// New creates a Value whose equality is reflect.DeepEqual.
//
//	count := reactive.New(0, reactive.WithTag("counter"))
//	_ = count.Set(1) // notifies
//	_ = count.Set(1) // equal, no-op
func New[T any](initial T, opts ...Option) *Value[T] {
	return NewFunc(initial, func(a, b T) bool { return reflect.DeepEqual(a, b) }, opts...)
}

// NewFunc creates a Value using equal to detect no-op updates.
func NewFunc[T any](initial T, equal func(a, b T) bool, opts ...Option) *Value[T] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.tag == "" {
		s.tag = uuid.NewString()
	}
	return &Value[T]{
		current:   initial,
		previous:  initial,
		equal:     equal,
		tag:       s.tag,
		mode:      s.mode,
		paused:    s.paused,
		listeners: make(map[ListenerID]Listener[T]),
	}
}

// Value returns the current content.
func (v *Value[T]) Value() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Previous returns the content before the last effective mutation.
func (v *Value[T]) Previous() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.previous
}

// Tag returns the identity tag.
func (v *Value[T]) Tag() string { return v.tag }

// Mode returns the notify mode.
func (v *Value[T]) Mode() Mode { return v.mode }

// IsDisposed reports whether Dispose has been called.
func (v *Value[T]) IsDisposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}

// IsPaused reports whether notifications are suppressed.
func (v *Value[T]) IsPaused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// Pause suppresses notifications from Set/Update. ForceNotify still fires.
func (v *Value[T]) Pause() {
	v.mu.Lock()
	v.paused = true
	v.mu.Unlock()
}

// Resume re-enables notifications. Nothing is replayed.
func (v *Value[T]) Resume() {
	v.mu.Lock()
	v.paused = false
	v.mu.Unlock()
}

// ── Mutation ──────────────────────────────────────────────────────────────────

// Set replaces the content and notifies once if it changed.
func (v *Value[T]) Set(next T) error {
	return v.Update(func(T) T { return next })
}

// Update applies fn to the current content, like Set.
func (v *Value[T]) Update(fn func(T) T) error {
	v.mu.Lock()
	if err := v.checkLocked(ModeAuto); err != nil {
		v.mu.Unlock()
		return err
	}
	changed := v.applyLocked(v.transformLocked(fn))
	v.flushLocked(changed && !v.paused)
	return nil
}

// SetSilently replaces the content of a manual Value without notifying.
func (v *Value[T]) SetSilently(next T) error {
	return v.UpdateSilently(func(T) T { return next })
}

// UpdateSilently applies fn to the content of a manual Value without notifying.
func (v *Value[T]) UpdateSilently(fn func(T) T) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkLocked(ModeManual); err != nil {
		return err
	}
	v.applyLocked(fn(v.current))
	return nil
}

// UpdateAsync runs fn without holding the lock and applies its result like
// Set. Listeners hear about it once, after fn returns. An error from fn leaves
// the Value untouched.
func (v *Value[T]) UpdateAsync(ctx context.Context, fn func(context.Context, T) (T, error)) error {
	v.mu.Lock()
	if err := v.checkLocked(ModeAuto); err != nil {
		v.mu.Unlock()
		return err
	}
	start := v.current
	v.mu.Unlock()

	next, err := fn(ctx, start)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if err := v.checkLocked(ModeAuto); err != nil {
		v.mu.Unlock()
		return err
	}
	changed := v.applyLocked(next)
	v.flushLocked(changed && !v.paused)
	return nil
}

// ForceNotify notifies every listener with the current content, in any mode
// and regardless of pause. It is a no-op after Dispose.
func (v *Value[T]) ForceNotify() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.flushLocked(true)
}

// ── Listeners ─────────────────────────────────────────────────────────────────

// AddListener subscribes fn and returns its id.
func (v *Value[T]) AddListener(fn Listener[T]) (ListenerID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return 0, ErrDisposed
	}
	v.nextID++
	id := v.nextID
	v.listeners[id] = fn
	v.order = append(v.order, id)
	return id, nil
}

// RemoveListener unsubscribes id. Unknown ids and disposed Values are ignored.
func (v *Value[T]) RemoveListener(id ListenerID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.listeners[id]; !ok {
		return
	}
	delete(v.listeners, id)
	for i, cur := range v.order {
		if cur == id {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// ListenerCount returns the number of live subscriptions.
func (v *Value[T]) ListenerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.order)
}

// Dispose releases every listener and rejects further mutation. Calling it
// again does nothing.
func (v *Value[T]) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.disposed = true
	v.listeners = make(map[ListenerID]Listener[T])
	v.order = nil
}

// ── internals ─────────────────────────────────────────────────────────────────

func (v *Value[T]) checkLocked(want Mode) error {
	if v.disposed {
		return ErrDisposed
	}
	if v.mode != want {
		return ErrInvalidMode
	}
	return nil
}

// transformLocked returns fn(current). If fn panics the lock is released
// before the panic propagates.
func (v *Value[T]) transformLocked(fn func(T) T) T {
	done := false
	defer func() {
		if !done {
			v.mu.Unlock()
		}
	}()
	next := fn(v.current)
	done = true
	return next
}

// applyLocked stores next and reports whether it differed from the current
// content. Equal values leave previous untouched.
func (v *Value[T]) applyLocked(next T) bool {
	if v.equal(v.current, next) {
		return false
	}
	v.previous = v.current
	v.current = next
	return true
}

// flushLocked releases the lock and, if notify is set, calls a snapshot of
// the listeners with the content captured under the lock.
func (v *Value[T]) flushLocked(notify bool) {
	if !notify || len(v.order) == 0 {
		v.mu.Unlock()
		return
	}
	value := v.current
	fns := make([]Listener[T], 0, len(v.order))
	for _, id := range v.order {
		fns = append(fns, v.listeners[id])
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
