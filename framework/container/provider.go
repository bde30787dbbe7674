package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/km-arc/go-dipend/framework/dependency"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register is called first for every eager provider. Boot is called after
// ALL providers have been registered, making it safe to resolve other
// dependencies inside Boot().
//
//	type StorageProvider struct{ container.BaseProvider }
//
//	func (p *StorageProvider) Register(c *container.Container) error {
//	    return c.AddSingleton(dependency.New1(NewRepo))
//	}
//
//	func (p *StorageProvider) Boot(ctx context.Context, c *container.Container) error {
//	    repo, err := container.Get[*Repo](ctx, c)
//	    if err != nil {
//	        return err
//	    }
//	    return repo.Migrate(ctx)
//	}
type ServiceProvider interface {
	// Register adds dependencies to the container.
	// Do NOT resolve other dependencies here, use Boot() for that.
	Register(c *Container) error

	// Boot is called after all providers are registered.
	Boot(ctx context.Context, c *Container) error

	// Provides returns the tokens this provider registers.
	// Used for deferred (lazy) provider loading.
	Provides() []any

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() tokens is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(c *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(context.Context, *Container) error { return nil }
func (p *BaseProvider) Provides() []any                        { return nil }
func (p *BaseProvider) IsDeferred() bool                       { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers.
type ProviderRegistry struct {
	c *Container

	mu         sync.Mutex
	eager      []ServiceProvider
	deferred   map[ServiceProvider]bool // provider → still waiting to load
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	c.AddStrategy(dependency.Deferred, dependency.StrategyFunc(c.resolveDeferred))
	return &ProviderRegistry{
		c:          c,
		deferred:   make(map[ServiceProvider]bool),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method (unless deferred).
// Providers added after Boot are booted immediately.
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		r.deferred[provider] = true
		r.mu.Unlock()
		return r.interceptDeferred(provider)
	}

	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(r.c); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	if booted {
		if err := provider.Boot(ctx, r.c); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred registers a placeholder for each deferred token. The
// first resolution loads the provider, whose own registrations replace the
// placeholders.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	l := &deferredLoad{provider: provider, load: func(ctx context.Context) error {
		return r.load(ctx, provider)
	}}
	for _, tok := range provider.Provides() {
		err := r.c.Add(AddInput{
			Lifecycle: dependency.Deferred,
			Token:     tok,
			Builder: func() (any, error) {
				return nil, fmt.Errorf("deferred provider %T not loaded", provider)
			},
		})
		if err != nil {
			return fmt.Errorf("defer %T: %w", provider, err)
		}
		id, err := r.c.tokens.ResolveOrCreateID(tok)
		if err != nil {
			return fmt.Errorf("defer %T: %w", provider, err)
		}
		r.c.deferred.Store(id, l)
	}
	return nil
}

// load registers a deferred provider and, once the registry is booted,
// boots it with the context of the resolution that triggered it.
func (r *ProviderRegistry) load(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	delete(r.deferred, provider)
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(r.c); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	if booted {
		if err := provider.Boot(ctx, r.c); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	r.c.logger.Debug().Str("provider", fmt.Sprintf("%T", provider)).Msg("deferred provider loaded")
	return nil
}

// deferredLoad is shared by every placeholder of one provider.
type deferredLoad struct {
	provider ServiceProvider
	load     func(ctx context.Context) error

	once sync.Once
	err  error
}

// resolveDeferred is the strategy of deferred placeholders. Concurrent first
// resolutions wait for the single load, then resolve whatever the provider
// registered in the caller's context.
func (c *Container) resolveDeferred(ctx context.Context, in dependency.StrategyInput) (any, error) {
	id := in.Registration.ID
	v, ok := c.deferred.Load(id)
	if !ok {
		return dependency.Materialize(in)
	}
	l := v.(*deferredLoad)

	l.once.Do(func() { l.err = l.load(ctx) })
	if l.err != nil {
		return nil, l.err
	}

	if reg, err := c.store.Get(id); err == nil && reg == in.Registration {
		return nil, fmt.Errorf("deferred provider %T does not register %s", l.provider, c.displayName(id))
	}
	return c.resolver.Resolve(ctx, id)
}

// Boot calls Boot() on all eager providers.
// Must be called after ALL providers have been registered.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(ctx, r.c); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Pending returns the number of deferred providers not loaded yet.
func (r *ProviderRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deferred)
}
