package reactive

// Batch collects transforms and applies them to a Value in one step.
//
//	err := v.Batch().
//	    Apply(func(n int) int { return n + 1 }).
//	    Apply(func(n int) int { return n * 2 }).
//	    Commit()
type Batch[T any] struct {
	v      *Value[T]
	steps  []func(T) T
	closed bool
}

// Batch starts a new batch. Nothing happens until Commit.
func (v *Value[T]) Batch() *Batch[T] {
	return &Batch[T]{v: v}
}

// Apply queues fn. Calls on a closed batch are ignored.
func (b *Batch[T]) Apply(fn func(T) T) *Batch[T] {
	if !b.closed {
		b.steps = append(b.steps, fn)
	}
	return b
}

// Len returns the number of queued transforms.
func (b *Batch[T]) Len() int { return len(b.steps) }

// Commit runs the queued transforms in order. An auto Value notifies at most
// once, and only when the final content differs from the content at commit
// time. A manual Value commits silently.
func (b *Batch[T]) Commit() error {
	if b.closed {
		return ErrBatchClosed
	}

	v := b.v
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return ErrDisposed
	}
	b.closed = true

	steps := b.steps
	b.steps = nil
	next := v.transformLocked(func(cur T) T {
		for _, fn := range steps {
			cur = fn(cur)
		}
		return cur
	})

	changed := v.applyLocked(next)
	v.flushLocked(changed && v.mode == ModeAuto && !v.paused)
	return nil
}

// Discard drops every queued transform without touching the Value.
func (b *Batch[T]) Discard() {
	b.closed = true
	b.steps = nil
}
