package container

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/km-arc/go-fenix/framework/graph"
)

// ── Builder types ─────────────────────────────────────────────────────────────

// Builder constructs a value. It receives the container so it can resolve
// its own dependencies.
type Builder func(c *Container) (any, error)

// AsyncBuilder constructs a value that has to wait on something.
type AsyncBuilder func(ctx context.Context, c *Container) (any, error)

// lazyEntry and asyncEntry are stored by pointer so a build can tell, after
// it returns, whether the entry it ran is still the registered one.
type lazyEntry struct {
	id    string
	build Builder
}

type asyncEntry struct {
	id    string
	build AsyncBuilder
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the dependency registry.
//
// It supports:
//   - Register / RegisterAsync: eager instances
//   - RegisterLazy / RegisterLazyAsync: built on first lookup, optionally reborn
//   - RegisterFactory: built on every lookup
//   - Resolve / ResolveAsync / TryResolve / ResolveByTag
//   - Remove / RemoveAsync / RemoveByTag / RemoveAll: with disposal
//   - BindDependency: removal of a live dependency is refused
//
// Builders and disposers always run with the internal lock released.
type Container struct {
	mu sync.RWMutex

	// key → eager or cached instance
	instances *table[any]

	// key → builder run on every Resolve
	factories *table[Builder]

	// key → builder run once, then cached in instances
	lazy      *table[*lazyEntry]
	lazyAsync *table[*asyncEntry]

	// key → builder kept after the instance is removed
	reborn      *table[*lazyEntry]
	rebornAsync *table[*asyncEntry]

	// dependent → dependency edges
	deps *graph.Graph[Key]

	// key → sequence number of its latest registration change
	stamps map[Key]uint64
	seq    uint64

	disposed bool

	flight singleflight.Group

	logger         *zap.Logger
	recorder       Recorder
	disposeTimeout time.Duration

	afterResolving []func(Key, any)
	afterRemoving  []func(Key)
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		instances:   newTable[any](),
		factories:   newTable[Builder](),
		lazy:        newTable[*lazyEntry](),
		lazyAsync:   newTable[*asyncEntry](),
		reborn:      newTable[*lazyEntry](),
		rebornAsync: newTable[*asyncEntry](),
		deps:        graph.New[Key](),
		stamps:      make(map[Key]uint64),
		logger:      zap.NewNop(),
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores instance under k, replacing whatever was there.
//
// A replaced instance is disposed. If it implements AsyncDisposer the call
// fails with ErrStillAsyncDisposable and nothing changes; use RegisterAsync
// or RemoveAsync first.
//
//	c.Register(container.KeyOf[*Config](""), cfg)
func (c *Container) Register(k Key, instance any) (any, error) {
	if !k.valid() {
		return nil, keyErr(k, ErrInvalidKey)
	}
	c.mu.Lock()
	old, err := c.prepareSyncLocked(k, instance)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.instances.set(k, instance)
	c.touchLocked(k)
	c.mu.Unlock()

	if old != nil {
		c.disposeSync(k, old)
	}
	c.registered(k, KindInstance)
	return instance, nil
}

// RegisterAsync awaits build and stores the result like Register. A replaced
// instance goes through the async dispose path.
//
// The builder runs without the lock, so the key may be registered again
// while it is pending. By default the built value replaces that registration;
// with YieldToExisting the built value is disposed and the registration that
// won is resolved and returned.
func (c *Container) RegisterAsync(ctx context.Context, k Key, build AsyncBuilder, opts ...RegisterOption) (any, error) {
	if !k.valid() {
		return nil, keyErr(k, ErrInvalidKey)
	}
	o := applyRegisterOptions(opts)

	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return nil, keyErr(k, ErrAlreadyDisposed)
	}
	stamp := c.stamps[k]
	c.mu.RUnlock()

	start := time.Now()
	v, err := build(ctx, c)
	c.recorder.Built(KindInstance, time.Since(start))
	if err != nil {
		return nil, &BuildError{Key: k, Err: err}
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		c.disposeAsync(ctx, k, v)
		return nil, keyErr(k, ErrAlreadyDisposed)
	}
	if o.yield && c.stamps[k] != stamp && c.occupiedLocked(k) {
		c.mu.Unlock()
		c.logger.Debug("async registration yielded", zap.Stringer("key", k))
		c.disposeAsync(ctx, k, v)
		return c.ResolveAsync(ctx, k)
	}
	old := c.prepareLocked(k, v)
	c.instances.set(k, v)
	c.touchLocked(k)
	c.mu.Unlock()

	if old != nil {
		c.disposeAsync(ctx, k, old)
	}
	c.registered(k, KindInstance)
	return v, nil
}

// RegisterLazy stores a builder that runs on the first Resolve; its result is
// cached and the builder dropped. With Reborn the builder is also kept as a
// fallback so the key comes back to life after Remove.
//
//	c.RegisterLazy(container.KeyOf[*Cache](""), func(c *container.Container) (any, error) {
//	    return cache.New(), nil
//	}, container.Reborn())
func (c *Container) RegisterLazy(k Key, build Builder, opts ...RegisterOption) error {
	if !k.valid() {
		return keyErr(k, ErrInvalidKey)
	}
	o := applyRegisterOptions(opts)

	c.mu.Lock()
	old, err := c.prepareSyncLocked(k, nil)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.lazy.set(k, &lazyEntry{id: c.nextIDLocked(), build: build})
	if o.reborn {
		c.reborn.set(k, &lazyEntry{id: c.nextIDLocked(), build: build})
	}
	c.touchLocked(k)
	c.mu.Unlock()

	if old != nil {
		c.disposeSync(k, old)
	}
	c.registered(k, KindLazy)
	if o.reborn {
		c.recorder.Registered(KindReborn)
	}
	return nil
}

// RegisterLazyAsync is the async analogue of RegisterLazy. ctx is only used
// to dispose a replaced instance; the builder gets the context of the
// ResolveAsync call that triggers it.
func (c *Container) RegisterLazyAsync(ctx context.Context, k Key, build AsyncBuilder, opts ...RegisterOption) error {
	if !k.valid() {
		return keyErr(k, ErrInvalidKey)
	}
	o := applyRegisterOptions(opts)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return keyErr(k, ErrAlreadyDisposed)
	}
	old := c.prepareLocked(k, nil)
	c.lazyAsync.set(k, &asyncEntry{id: c.nextIDLocked(), build: build})
	if o.reborn {
		c.rebornAsync.set(k, &asyncEntry{id: c.nextIDLocked(), build: build})
	}
	c.touchLocked(k)
	c.mu.Unlock()

	if old != nil {
		c.disposeAsync(ctx, k, old)
	}
	c.registered(k, KindLazyAsync)
	if o.reborn {
		c.recorder.Registered(KindRebornAsync)
	}
	return nil
}

// RegisterFactory stores a builder that runs on every Resolve. Results are
// never cached and never disposed by the container.
func (c *Container) RegisterFactory(k Key, build Builder) error {
	if !k.valid() {
		return keyErr(k, ErrInvalidKey)
	}
	c.mu.Lock()
	old, err := c.prepareSyncLocked(k, nil)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.factories.set(k, build)
	c.touchLocked(k)
	c.mu.Unlock()

	if old != nil {
		c.disposeSync(k, old)
	}
	c.registered(k, KindFactory)
	return nil
}

// BindDependency records that dependent needs dependency. While dependent
// has a live instance, dependency cannot be removed. Binding the same pair
// again is a no-op. Neither key has to be registered yet.
func (c *Container) BindDependency(dependent, dependency Key) error {
	if !dependent.valid() {
		return keyErr(dependent, ErrInvalidKey)
	}
	if !dependency.valid() {
		return keyErr(dependency, ErrInvalidKey)
	}
	if dependent == dependency {
		return keyErr(dependent, ErrSelfDependency)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return keyErr(dependent, ErrAlreadyDisposed)
	}
	c.deps.Bind(dependent, dependency)
	return nil
}

// prepareSyncLocked clears k for a synchronous registration of next and
// returns the instance the caller must dispose, if any.
func (c *Container) prepareSyncLocked(k Key, next any) (any, error) {
	if c.disposed {
		return nil, keyErr(k, ErrAlreadyDisposed)
	}
	if old, ok := c.instances.get(k); ok && !sameInstance(old, next) && isAsyncDisposable(old) {
		return nil, keyErr(k, ErrStillAsyncDisposable)
	}
	return c.prepareLocked(k, next), nil
}

// prepareLocked drops every entry and edge of k. It returns the previous
// instance unless that is next itself.
func (c *Container) prepareLocked(k Key, next any) any {
	old, had := c.instances.get(k)
	c.clearKeyLocked(k)
	if !had || sameInstance(old, next) {
		return nil
	}
	return old
}

func (c *Container) clearKeyLocked(k Key) {
	c.instances.delete(k)
	c.factories.delete(k)
	c.lazy.delete(k)
	c.lazyAsync.delete(k)
	c.reborn.delete(k)
	c.rebornAsync.delete(k)
	c.deps.ClearEdgesFor(k)
	delete(c.stamps, k)
}

func (c *Container) occupiedLocked(k Key) bool {
	return c.instances.has(k) ||
		c.factories.has(k) ||
		c.lazy.has(k) ||
		c.lazyAsync.has(k) ||
		c.reborn.has(k) ||
		c.rebornAsync.has(k)
}

func (c *Container) touchLocked(k Key) {
	c.seq++
	c.stamps[k] = c.seq
}

func (c *Container) nextIDLocked() string {
	c.seq++
	return strconv.FormatUint(c.seq, 10)
}

func (c *Container) registered(k Key, kind Kind) {
	c.recorder.Registered(kind)
	c.logger.Debug("registered", zap.Stringer("key", k), zap.Stringer("kind", kind))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// IsRegistered reports whether any table holds an entry for k.
func (c *Container) IsRegistered(k Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.occupiedLocked(k)
}

// IsLive reports whether k currently has an instance.
func (c *Container) IsLive(k Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instances.has(k)
}

// IsDisposed reports whether Close has been called.
func (c *Container) IsDisposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// Keys returns every registered key in registration order (for debugging).
func (c *Container) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keysLocked()
}

// keysLocked orders the union of all tables by latest registration.
func (c *Container) keysLocked() []Key {
	out := make([]Key, 0, len(c.stamps))
	for k := range c.stamps {
		if c.occupiedLocked(k) {
			out = append(out, k)
		}
	}
	sortByStamp(out, c.stamps)
	return out
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every successful lookup.
func (c *Container) AfterResolving(cb func(k Key, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// AfterRemoving registers a callback fired after a key's instance or
// registration has been removed and disposed.
func (c *Container) AfterRemoving(cb func(k Key)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterRemoving = append(c.afterRemoving, cb)
}

func (c *Container) fireAfterResolving(k Key, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(k, instance)
	}
}

func (c *Container) fireAfterRemoving(k Key) {
	c.mu.RLock()
	cbs := c.afterRemoving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(k)
	}
}
