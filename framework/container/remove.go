package container

import (
	"context"

	"go.uber.org/zap"
)

// ── Removal ───────────────────────────────────────────────────────────────────

// removal is what a locked removal step hands back for the unlocked part.
type removal struct {
	key      Key
	instance any
	live     bool
}

// Remove deletes k.
//
// With a live instance: fails with ErrStillDepended while a live dependent
// exists, and with ErrRequiresAsyncRemoval if the instance implements
// AsyncDisposer; in both cases nothing changes. Otherwise the instance and
// its edges go away and the instance is disposed. A reborn builder survives,
// so the next Resolve builds a new instance.
//
// Without an instance: any builders registered for k are dropped.
//
// Remove reports false, with no error, when there was nothing to remove,
// so calling it twice is safe.
func (c *Container) Remove(k Key) (bool, error) {
	c.mu.Lock()
	r, ok, err := c.detachLocked(k, false)
	c.mu.Unlock()
	if err != nil || !ok {
		return false, err
	}
	if r.live {
		c.disposeSync(k, r.instance)
	}
	c.removed(k, false)
	return true, nil
}

// RemoveAsync is Remove with async-first disposal.
func (c *Container) RemoveAsync(ctx context.Context, k Key) (bool, error) {
	c.mu.Lock()
	r, ok, err := c.detachLocked(k, true)
	c.mu.Unlock()
	if err != nil || !ok {
		return false, err
	}
	if r.live {
		c.disposeAsync(ctx, k, r.instance)
	}
	c.removed(k, true)
	return true, nil
}

// RemoveByTag removes the earliest registered key carrying tag, following
// the rules of Remove.
func (c *Container) RemoveByTag(tag string) (bool, error) {
	k, err := c.keyByTag(tag)
	if err != nil {
		if isNotFoundFor(err, tagKey(tag)) {
			return false, nil
		}
		return false, err
	}
	return c.Remove(k)
}

// RemoveByTagAsync removes the earliest registered key carrying tag, following
// the rules of RemoveAsync.
func (c *Container) RemoveByTagAsync(ctx context.Context, tag string) (bool, error) {
	k, err := c.keyByTag(tag)
	if err != nil {
		if isNotFoundFor(err, tagKey(tag)) {
			return false, nil
		}
		return false, err
	}
	return c.RemoveAsync(ctx, k)
}

// detachLocked performs the bookkeeping half of a removal.
func (c *Container) detachLocked(k Key, async bool) (removal, bool, error) {
	if c.disposed {
		return removal{}, false, keyErr(k, ErrAlreadyDisposed)
	}

	if inst, ok := c.instances.get(k); ok {
		if live := c.liveDependentsLocked(k); len(live) > 0 {
			return removal{}, false, &KeyError{Key: k, Err: ErrStillDepended, Dependents: live}
		}
		if !async && isAsyncDisposable(inst) {
			return removal{}, false, keyErr(k, ErrRequiresAsyncRemoval)
		}
		c.instances.delete(k)
		c.deps.ClearEdgesFor(k)
		// A surviving reborn builder keeps the key's place in tag order.
		if !c.occupiedLocked(k) {
			delete(c.stamps, k)
		}
		return removal{key: k, instance: inst, live: true}, true, nil
	}

	if c.occupiedLocked(k) {
		c.clearKeyLocked(k)
		return removal{key: k}, true, nil
	}
	return removal{}, false, nil
}

// liveDependentsLocked filters the declared dependents of k down to the ones
// that currently have an instance.
func (c *Container) liveDependentsLocked(k Key) []Key {
	if !c.deps.HasDependents(k) {
		return nil
	}
	var live []Key
	for _, d := range c.deps.Dependents(k) {
		if c.instances.has(d) {
			live = append(live, d)
		}
	}
	return live
}

// RemoveAll disposes every instance in registration order and clears every
// table and edge. Dependencies are not consulted.
//
// If any instance implements AsyncDisposer, RemoveAll fails with
// ErrRequiresAsyncRemoval before touching anything.
func (c *Container) RemoveAll() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return keyErr(Key{}, ErrAlreadyDisposed)
	}
	for _, k := range c.instances.keys() {
		inst, _ := c.instances.get(k)
		if isAsyncDisposable(inst) {
			c.mu.Unlock()
			return keyErr(k, ErrRequiresAsyncRemoval)
		}
	}
	drained := c.drainLocked()
	c.mu.Unlock()

	for _, r := range drained {
		c.disposeSync(r.key, r.instance)
		c.removed(r.key, false)
	}
	return nil
}

// RemoveAllAsync disposes every instance in registration order, async first,
// and clears every table and edge.
func (c *Container) RemoveAllAsync(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return keyErr(Key{}, ErrAlreadyDisposed)
	}
	drained := c.drainLocked()
	c.mu.Unlock()

	c.disposeDrained(ctx, drained)
	return nil
}

// Close tears the container down like RemoveAllAsync and marks it disposed.
// Every later call fails with ErrAlreadyDisposed. Closing twice is a no-op.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	drained := c.drainLocked()
	c.disposed = true
	c.mu.Unlock()

	c.disposeDrained(ctx, drained)
	c.logger.Debug("container closed", zap.Int("disposed", len(drained)))
	return nil
}

func (c *Container) disposeDrained(ctx context.Context, drained []removal) {
	for _, r := range drained {
		c.disposeAsync(ctx, r.key, r.instance)
		c.removed(r.key, true)
	}
}

// drainLocked empties every table and returns the instances in insertion
// order.
func (c *Container) drainLocked() []removal {
	keys := c.instances.keys()
	out := make([]removal, 0, len(keys))
	for _, k := range keys {
		inst, _ := c.instances.get(k)
		out = append(out, removal{key: k, instance: inst, live: true})
	}

	c.instances.reset()
	c.factories.reset()
	c.lazy.reset()
	c.lazyAsync.reset()
	c.reborn.reset()
	c.rebornAsync.reset()
	c.deps.Reset()
	c.stamps = make(map[Key]uint64)
	return out
}

func (c *Container) removed(k Key, async bool) {
	c.recorder.Removed(async)
	c.logger.Debug("removed", zap.Stringer("key", k), zap.Bool("async", async))
	c.fireAfterRemoving(k)
}
