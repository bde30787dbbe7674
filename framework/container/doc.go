// Package container provides the dependency container and the Service
// Provider system built on top of it.
//
// # Overview
//
// The container manages the construction and lifecycle of your application's
// dependencies. A dependency is identified by a token (a reflect.Type from
// token.Of, or any comparable value such as a string) optionally followed by
// qualifier tokens that select one of several mapped implementations.
//
// Go has no runtime constructor reflection worth relying on, so constructor
// parameters are declared explicitly through dependency.New1..New4 (derived
// from the function signature) or dependency.Func.
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(log))
//  2. Register providers: registry.Register(ctx, &MyProvider{})
//  3. Boot: registry.Boot(ctx), then c.BuildSingletons(ctx)
//  4. Per request: reqCtx, err := c.NewContext(r.Context())
//
// # Registrations
//
//	// Singleton, created once and shared
//	c.AddSingleton(dependency.New0(NewRepo))
//	c.AddSingleton(dependency.New1(NewService)) // func(*Repo) *Service
//
//	// Transient, new instance every resolution
//	c.AddMappedTransientBuilder("shape", "circle", func() (any, error) { return &Circle{}, nil })
//
//	// Per context, one instance per logical context
//	c.AddPerContext(dependency.New0(NewRequestID))
//
//	// Pre-built value
//	c.AddSingletonInstance(token.Of[*config.Config](), cfg)
//
//	// Fluent form
//	c.Bind(nil).To(dependency.New1(NewService)).Inject(0, "replica").Singleton()
//
// # Resolving
//
//	// Untyped, optional
//	opt, err := c.GetDependency(ctx, token.Of[*Cache]())
//
//	// Generic (preferred, no type assertion required)
//	svc, err := container.Get[*Service](ctx, c)
//	circle, err := container.GetAs[Shape](ctx, c, "shape", "circle")
//
// # Errors
//
// Structural failures (missing dependencies, cycles, invalid lifecycles)
// are returned as *errs.EnrichedError naming the tokens involved, and match
// the errs sentinels with errors.Is:
//
//	error: Missing dependency - caused by: [(*app.Repo)]
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *container.Container) error {
//	    return c.AddSingleton(dependency.New1(mail.NewSMTP))
//	}
//
//	func (p *AppServiceProvider) Boot(ctx context.Context, c *container.Container) error {
//	    // safe to resolve other dependencies here
//	    return nil
//	}
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool { return true }
//	func (p *HeavyProvider) Provides() []any  { return []any{"heavy"} }
//	func (p *HeavyProvider) Register(c *container.Container) error {
//	    // only called on the first resolution of "heavy"
//	    return c.AddSingletonBuilder("heavy", heavySetup)
//	}
package container
