package container

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve looks k up. First match wins:
//
//  1. a live instance is returned as is
//  2. a lazy builder runs once; its result is cached and the builder dropped
//  3. a reborn builder runs and its result is cached; the builder stays
//  4. an async-only registration fails with ErrRequiresAsyncResolution
//  5. a factory runs and its result is returned uncached
//  6. otherwise ErrNotFound
//
// If k is removed or re-registered while its builder runs, the built value
// is returned without being cached. The registry never disposes such a
// value; the caller owns it.
func (c *Container) Resolve(k Key) (any, error) {
	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return nil, keyErr(k, ErrAlreadyDisposed)
	}
	if inst, ok := c.instances.get(k); ok {
		c.mu.RUnlock()
		return c.resolved(k, KindInstance, inst), nil
	}
	if e, ok := c.lazy.get(k); ok {
		c.mu.RUnlock()
		return c.buildLazy(k, e)
	}
	if e, ok := c.reborn.get(k); ok {
		c.mu.RUnlock()
		return c.buildReborn(k, e)
	}
	if c.lazyAsync.has(k) || c.rebornAsync.has(k) {
		c.mu.RUnlock()
		return nil, keyErr(k, ErrRequiresAsyncResolution)
	}
	if f, ok := c.factories.get(k); ok {
		c.mu.RUnlock()
		return c.buildFactory(k, f)
	}
	c.mu.RUnlock()
	return nil, keyErr(k, ErrNotFound)
}

// ResolveAsync follows the same precedence as Resolve but awaits async
// builders first and falls back to the sync ones. A build overtaken by a
// removal is handed to the caller as with Resolve.
func (c *Container) ResolveAsync(ctx context.Context, k Key) (any, error) {
	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return nil, keyErr(k, ErrAlreadyDisposed)
	}
	if inst, ok := c.instances.get(k); ok {
		c.mu.RUnlock()
		return c.resolved(k, KindInstance, inst), nil
	}
	if e, ok := c.lazyAsync.get(k); ok {
		c.mu.RUnlock()
		return c.buildLazyAsync(ctx, k, e)
	}
	if e, ok := c.rebornAsync.get(k); ok {
		c.mu.RUnlock()
		return c.buildRebornAsync(ctx, k, e)
	}
	if e, ok := c.lazy.get(k); ok {
		c.mu.RUnlock()
		return c.buildLazy(k, e)
	}
	if e, ok := c.reborn.get(k); ok {
		c.mu.RUnlock()
		return c.buildReborn(k, e)
	}
	if f, ok := c.factories.get(k); ok {
		c.mu.RUnlock()
		return c.buildFactory(k, f)
	}
	c.mu.RUnlock()
	return nil, keyErr(k, ErrNotFound)
}

// TryResolve is Resolve with not-found reported as ok=false. Every other
// failure is still returned.
func (c *Container) TryResolve(k Key) (any, bool, error) {
	v, err := c.Resolve(k)
	return tryResult(k, v, err)
}

// TryResolveAsync is ResolveAsync with not-found reported as ok=false.
func (c *Container) TryResolveAsync(ctx context.Context, k Key) (any, bool, error) {
	v, err := c.ResolveAsync(ctx, k)
	return tryResult(k, v, err)
}

func tryResult(k Key, v any, err error) (any, bool, error) {
	if err != nil {
		if isNotFoundFor(err, k) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// ResolveByTag resolves the earliest registered key carrying tag.
func (c *Container) ResolveByTag(tag string) (any, error) {
	k, err := c.keyByTag(tag)
	if err != nil {
		return nil, err
	}
	return c.Resolve(k)
}

// ResolveByTagAsync is the async analogue of ResolveByTag.
func (c *Container) ResolveByTagAsync(ctx context.Context, tag string) (any, error) {
	k, err := c.keyByTag(tag)
	if err != nil {
		return nil, err
	}
	return c.ResolveAsync(ctx, k)
}

// TryResolveByTag is ResolveByTag with not-found reported as ok=false.
func (c *Container) TryResolveByTag(tag string) (any, bool, error) {
	k, err := c.keyByTag(tag)
	if err != nil {
		return tryResult(tagKey(tag), nil, err)
	}
	return c.TryResolve(k)
}

// TryResolveByTagAsync is ResolveByTagAsync with not-found reported as ok=false.
func (c *Container) TryResolveByTagAsync(ctx context.Context, tag string) (any, bool, error) {
	k, err := c.keyByTag(tag)
	if err != nil {
		return tryResult(tagKey(tag), nil, err)
	}
	return c.TryResolveAsync(ctx, k)
}

// tagKey is the typeless key used to report tag lookups that matched nothing.
func tagKey(tag string) Key { return Key{Tag: tag} }

func (c *Container) keyByTag(tag string) (Key, error) {
	if tag == "" {
		return Key{}, keyErr(tagKey(tag), ErrInvalidTag)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disposed {
		return Key{}, keyErr(tagKey(tag), ErrAlreadyDisposed)
	}
	for _, k := range c.keysLocked() {
		if k.Tag == tag {
			return k, nil
		}
	}
	return Key{}, keyErr(tagKey(tag), ErrNotFound)
}

// ── Builds ────────────────────────────────────────────────────────────────────

// buildLazy runs a lazy builder at most once per entry. Concurrent callers
// share one build. The result is cached only if e is still the registered
// entry when the builder returns; otherwise it is handed back uncached and
// belongs to the caller.
func (c *Container) buildLazy(k Key, e *lazyEntry) (any, error) {
	v, err, _ := c.flight.Do(e.id, func() (any, error) {
		c.mu.RLock()
		inst, live := c.instances.get(k)
		current, _ := c.lazy.get(k)
		c.mu.RUnlock()
		if current != e {
			if live {
				return inst, nil
			}
			return c.Resolve(k)
		}

		v, err := c.runBuilder(k, KindLazy, e.build)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		cached := false
		if current, _ := c.lazy.get(k); current == e && !c.disposed {
			c.lazy.delete(k)
			c.instances.set(k, v)
			cached = true
		}
		c.mu.Unlock()
		if !cached {
			c.handOff(k, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return c.resolved(k, KindLazy, v), nil
}

// buildReborn runs a reborn builder and caches the result. The builder
// itself stays registered.
func (c *Container) buildReborn(k Key, e *lazyEntry) (any, error) {
	v, err, _ := c.flight.Do(e.id, func() (any, error) {
		c.mu.RLock()
		inst, live := c.instances.get(k)
		current, _ := c.reborn.get(k)
		c.mu.RUnlock()
		if live {
			return inst, nil
		}
		if current != e {
			return c.Resolve(k)
		}

		v, err := c.runBuilder(k, KindReborn, e.build)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		cached := false
		if current, _ := c.reborn.get(k); current == e && !c.instances.has(k) && !c.disposed {
			c.instances.set(k, v)
			cached = true
		}
		c.mu.Unlock()
		if !cached {
			c.handOff(k, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return c.resolved(k, KindReborn, v), nil
}

func (c *Container) buildLazyAsync(ctx context.Context, k Key, e *asyncEntry) (any, error) {
	v, err, _ := c.flight.Do(e.id, func() (any, error) {
		c.mu.RLock()
		inst, live := c.instances.get(k)
		current, _ := c.lazyAsync.get(k)
		c.mu.RUnlock()
		if current != e {
			if live {
				return inst, nil
			}
			return c.ResolveAsync(ctx, k)
		}

		v, err := c.runAsyncBuilder(ctx, k, KindLazyAsync, e.build)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		cached := false
		if current, _ := c.lazyAsync.get(k); current == e && !c.disposed {
			c.lazyAsync.delete(k)
			c.instances.set(k, v)
			cached = true
		}
		c.mu.Unlock()
		if !cached {
			c.handOff(k, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return c.resolved(k, KindLazyAsync, v), nil
}

func (c *Container) buildRebornAsync(ctx context.Context, k Key, e *asyncEntry) (any, error) {
	v, err, _ := c.flight.Do(e.id, func() (any, error) {
		c.mu.RLock()
		inst, live := c.instances.get(k)
		current, _ := c.rebornAsync.get(k)
		c.mu.RUnlock()
		if live {
			return inst, nil
		}
		if current != e {
			return c.ResolveAsync(ctx, k)
		}

		v, err := c.runAsyncBuilder(ctx, k, KindRebornAsync, e.build)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		cached := false
		if current, _ := c.rebornAsync.get(k); current == e && !c.instances.has(k) && !c.disposed {
			c.instances.set(k, v)
			cached = true
		}
		c.mu.Unlock()
		if !cached {
			c.handOff(k, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return c.resolved(k, KindRebornAsync, v), nil
}

// handOff logs a built value the registry did not keep. A builder that
// registered and resolved its own key returns the stored instance, which
// is not an orphan.
func (c *Container) handOff(k Key, v any) {
	c.mu.RLock()
	inst, ok := c.instances.get(k)
	c.mu.RUnlock()
	if ok && sameInstance(inst, v) {
		return
	}
	c.logger.Debug("build result not cached, caller owns it", zap.Stringer("key", k))
}

func (c *Container) buildFactory(k Key, f Builder) (any, error) {
	v, err := c.runBuilder(k, KindFactory, f)
	if err != nil {
		return nil, err
	}
	return c.resolved(k, KindFactory, v), nil
}

func (c *Container) runBuilder(k Key, kind Kind, b Builder) (any, error) {
	start := time.Now()
	v, err := b(c)
	c.recorder.Built(kind, time.Since(start))
	if err != nil {
		return nil, &BuildError{Key: k, Err: err}
	}
	return v, nil
}

func (c *Container) runAsyncBuilder(ctx context.Context, k Key, kind Kind, b AsyncBuilder) (any, error) {
	start := time.Now()
	v, err := b(ctx, c)
	c.recorder.Built(kind, time.Since(start))
	if err != nil {
		return nil, &BuildError{Key: k, Err: err}
	}
	return v, nil
}

func (c *Container) resolved(k Key, kind Kind, v any) any {
	c.recorder.Resolved(kind)
	c.fireAfterResolving(k, v)
	return v
}
