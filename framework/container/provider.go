package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register is called when the provider is added (or, for deferred providers,
// on first lookup of one of its keys). Boot is called after every eager
// provider has been registered, so it may resolve anything.
//
//	type StoreProvider struct{ container.BaseProvider }
//
//	func (p *StoreProvider) Register(app *container.Container) error {
//	    return container.ProvideLazy(app, "", func(c *container.Container) (*Store, error) {
//	        return NewStore(container.MustGet[*config.Config](c, "")), nil
//	    })
//	}
type ServiceProvider interface {
	// Register binds services into the container. Do not resolve other
	// bindings here; use Boot for that.
	Register(app *Container) error

	// Boot runs after all eager providers are registered.
	Boot(app *Container) error

	// Provides lists the keys a deferred provider registers.
	Provides() []Key

	// IsDeferred makes the provider load only when one of its Provides keys
	// is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider gives no-op Boot, Provides and IsDeferred. Embed it and
// implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Key         { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots providers against one container,
// including deferred ones.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	registered map[ServiceProvider]bool
	loaders    map[ServiceProvider]*sync.Once
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
		loaders:    make(map[ServiceProvider]*sync.Once),
	}
}

// Register adds a provider. Eager providers register immediately and, if the
// registry was already booted, boot immediately. Adding the same provider
// twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true
	booted := r.booted
	r.mu.Unlock()

	if provider.IsDeferred() {
		return r.interceptDeferred(provider)
	}

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("container: register %T: %w", provider, err)
	}
	r.mu.Lock()
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("container: boot %T: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred installs a lazy placeholder for each provided key. The
// first lookup registers the provider for real, which replaces the
// placeholders, and then resolves the real registration.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	once := &sync.Once{}
	r.mu.Lock()
	r.loaders[provider] = once
	r.mu.Unlock()

	var loadErr error
	load := func(c *Container) error {
		once.Do(func() {
			// Drop the placeholders first so a key the provider forgets to
			// register reports ErrNotFound instead of building itself.
			for _, k := range provider.Provides() {
				if !c.IsLive(k) {
					if _, err := c.Remove(k); err != nil {
						loadErr = err
						return
					}
				}
			}
			if err := provider.Register(c); err != nil {
				loadErr = fmt.Errorf("container: register deferred %T: %w", provider, err)
				return
			}
			r.mu.Lock()
			booted := r.booted
			r.mu.Unlock()
			if booted {
				if err := provider.Boot(c); err != nil {
					loadErr = fmt.Errorf("container: boot deferred %T: %w", provider, err)
				}
			}
		})
		return loadErr
	}

	for _, k := range provider.Provides() {
		k := k
		err := r.app.RegisterLazy(k, func(c *Container) (any, error) {
			if err := load(c); err != nil {
				return nil, err
			}
			return c.Resolve(k)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Boot calls Boot on every eager provider, in registration order. Later calls
// are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range eager {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("container: boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}
