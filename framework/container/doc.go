// Package container provides a dependency registry with lazy and async
// construction, tag based identity, dependency tracking and ordered disposal.
//
// # Keys
//
// Every registration lives under a Key: the declared type plus an optional
// tag. The generic helpers derive the key from their type parameter:
//
//	c := container.New()
//	container.Provide(c, "", cfg)                       // *config.Config
//	container.Provide(c, "primary", db)                 // *sql.DB#primary
//	db := container.MustGet[*sql.DB](c, "primary")
//
// # Registration kinds
//
//	// Eager instance
//	c.Register(container.KeyOf[*Config](""), cfg)
//
//	// Lazy: built on first Resolve, cached afterwards
//	container.ProvideLazy(c, "", func(c *container.Container) (*Cache, error) {
//	    return cache.New(container.MustGet[*Config](c, "")), nil
//	})
//
//	// Reborn: lazy, and rebuilt after Remove
//	container.ProvideLazy(c, "", newSession, container.Reborn())
//
//	// Factory: built on every Resolve, never cached
//	container.ProvideFactory(c, "", func(*container.Container) (*Request, error) {
//	    return &Request{}, nil
//	})
//
//	// Async: the builder may block on I/O
//	container.ProvideLazyAsync(ctx, c, "", func(ctx context.Context, c *container.Container) (*Client, error) {
//	    return dial(ctx)
//	})
//	client, err := container.GetAsync[*Client](ctx, c, "")
//
// Resolving an async-only key through the sync path fails with
// ErrRequiresAsyncResolution.
//
// # Dependencies and removal
//
//	container.DependsOn[*Repo, *Api](c, "r", "a")
//	c.Remove(container.KeyOf[*Api]("a"))  // ErrStillDepended while Repo#r is live
//	c.Remove(container.KeyOf[*Repo]("r")) // ok
//	c.Remove(container.KeyOf[*Api]("a"))  // ok
//
// Removed instances are disposed when they implement Disposer or
// AsyncDisposer. The sync paths refuse to drop an AsyncDisposer
// (ErrRequiresAsyncRemoval, ErrStillAsyncDisposable) rather than leak it. A
// panic or error from an object's own dispose is logged and does not stop
// the registry from forgetting it.
//
// # Service Providers
//
//	type StoreProvider struct{ container.BaseProvider }
//
//	func (p *StoreProvider) Register(app *container.Container) error {
//	    return container.ProvideLazy(app, "", NewStore)
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&StoreProvider{})
//	registry.Boot()
//
// A provider whose IsDeferred returns true is only registered when one of
// its Provides keys is first resolved.
package container
