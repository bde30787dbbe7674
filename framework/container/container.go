package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/multierr"

	"github.com/km-arc/go-dipend/framework/dependency"
	"github.com/km-arc/go-dipend/framework/errs"
	"github.com/km-arc/go-dipend/framework/scope"
	"github.com/km-arc/go-dipend/framework/token"
)

// ── Input errors ──────────────────────────────────────────────────────────────

// Input errors are returned immediately and never enriched.
var (
	ErrTokenRequired       = errors.New("container: missing dependency token")
	ErrQualifierRequired   = errors.New("container: missing qualifier tokens")
	ErrBuilderRequired     = errors.New("container: missing builder function")
	ErrInstanceRequired    = errors.New("container: missing instance")
	ErrConstructorRequired = errors.New("container: missing constructor")
	ErrSingletonsNotBuilt  = errors.New("container: singletons not built, call BuildSingletons() before retrieving dependencies")
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container registers dependencies and builds them on demand.
//
// It supports:
//   - Singleton / Transient / PerContext lifecycles
//   - Constructors, builders and pre-built instances
//   - Mapped (qualified) registrations under the same token
//   - Eager building of singletons and context-scoped dependencies
//   - Custom lifecycle strategies
type Container struct {
	tokens   *token.Registry
	names    *token.Namer
	store    *dependency.Store
	resolver *dependency.Resolver
	scopes   *scope.Store

	logger   zerolog.Logger
	observer Observer

	selfToken               any
	buildSingletonsRequired bool
	singletonsBuilt         atomic.Bool

	deferred sync.Map // id → *deferredLoad
}

// New creates a container and registers it as a singleton instance under
// token.Of[*Container]().
func New(opts ...Option) *Container {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	scopes := o.scopes
	if scopes == nil {
		scopes = scope.NewStore()
	}

	store := dependency.NewStore()
	c := &Container{
		tokens:                  token.NewRegistry(),
		names:                   token.NewNamer(!o.noDefaultTokenNames),
		store:                   store,
		resolver:                dependency.NewResolver(store),
		scopes:                  scopes,
		logger:                  o.logger,
		observer:                o.observer,
		selfToken:               o.containerToken,
		buildSingletonsRequired: o.buildSingletonsRequired,
	}
	if c.selfToken == nil {
		c.selfToken = token.Of[*Container]()
	}

	if !o.noDefaultStrategies {
		c.resolver.UseDefaultStrategies(scopes)
	}
	for l, s := range o.strategies {
		c.resolver.SetStrategy(l, s)
	}
	for _, s := range o.nameStrategies {
		c.names.Set(s)
	}

	c.registerSelf()
	return c
}

func (c *Container) registerSelf() {
	// Cannot fail: the token is set and an instance needs no arguments.
	_ = c.Add(AddInput{
		Lifecycle: dependency.Singleton,
		Token:     c.selfToken,
		Instance:  c,
	})
}

// Scopes returns the store holding context-scoped instances.
func (c *Container) Scopes() *scope.Store { return c.scopes }

// AddStrategy installs or replaces the strategy of a lifecycle.
//
//	c.AddStrategy("pooled", myPoolStrategy)
func (c *Container) AddStrategy(l dependency.Lifecycle, s dependency.Strategy) {
	c.resolver.SetStrategy(l, s)
}

// ── Registration ──────────────────────────────────────────────────────────────

// AddInput is the raw form every registration helper reduces to.
type AddInput struct {
	Lifecycle dependency.Lifecycle

	// Token identifies the dependency. When nil the constructor's produced
	// type is used.
	Token any

	// CheckQualifier demands at least one non-nil qualifier.
	CheckQualifier bool
	Qualifiers     []any

	Constructor *dependency.Constructor
	Builder     dependency.Builder
	Instance    any
}

// Add registers a dependency, replacing any registration with the same
// token and qualifiers.
func (c *Container) Add(in AddInput) error {
	tok := in.Token
	if tok == nil && in.Constructor != nil {
		tok = in.Constructor.Produces
	}
	if tok == nil {
		return ErrTokenRequired
	}
	if in.CheckQualifier && len(nonNil(in.Qualifiers)) == 0 {
		return ErrQualifierRequired
	}

	id, err := c.tokens.ResolveOrCreateID(append([]any{tok}, in.Qualifiers...)...)
	if err != nil {
		return err
	}

	impl := &dependency.Implementation{
		Constructor: in.Constructor,
		Builder:     in.Builder,
	}
	if in.Instance != nil {
		impl.SetInstance(in.Instance)
	}

	if in.Constructor != nil {
		ids, err := c.argumentIDs(id, in.Constructor)
		if err != nil {
			return c.enrich(err)
		}
		impl.ArgumentIDs = ids
	}

	c.store.Add(dependency.NewRegistration(id, in.Lifecycle, impl))
	c.observer.DependencyAdded(id, in.Lifecycle)
	c.observer.RegistrationsChanged(c.store.Len())
	c.logger.Debug().
		Str("dependency", c.displayName(id)).
		Str("lifecycle", string(in.Lifecycle)).
		Int("arguments", len(impl.ArgumentIDs)).
		Msg("dependency added")
	return nil
}

// argumentIDs resolves the dependency id of every constructor parameter.
func (c *Container) argumentIDs(id string, ctor *dependency.Constructor) ([]string, error) {
	ids := make([]string, 0, len(ctor.Params))
	for i, p := range ctor.Params {
		if token.IsUndeclared(p) {
			return nil, errs.CanNotConstructDependency(id)
		}
		argID, err := c.tokens.ResolveOrCreateID(ctor.ParamTokens(i)...)
		if err != nil {
			return nil, err
		}
		ids = append(ids, argID)
	}
	return ids, nil
}

func nonNil(tokens []any) []any {
	return lo.Filter(tokens, func(t any, _ int) bool { return t != nil })
}

// ── Singleton ─────────────────────────────────────────────────────────────────

// AddSingleton registers a constructor under the type it produces.
//
//	c.AddSingleton(dependency.New1(NewService))   // resolves *Repo first
func (c *Container) AddSingleton(ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Singleton, nil, nil, ctor)
}

// AddSingletonAs registers a constructor under an explicit token.
func (c *Container) AddSingletonAs(tok any, ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Singleton, tok, nil, ctor)
}

// AddMappedSingleton registers a constructor under token + qualifier.
func (c *Container) AddMappedSingleton(tok, qualifier any, ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Singleton, tok, []any{qualifier}, ctor)
}

// AddSingletonBuilder registers a builder whose result is built once.
//
//	c.AddSingletonBuilder("clock", func() (any, error) { return time.Now, nil })
func (c *Container) AddSingletonBuilder(tok any, builder dependency.Builder) error {
	return c.addBuilder(dependency.Singleton, tok, nil, builder)
}

// AddMappedSingletonBuilder registers a builder under token + qualifier.
func (c *Container) AddMappedSingletonBuilder(tok, qualifier any, builder dependency.Builder) error {
	return c.addBuilder(dependency.Singleton, tok, []any{qualifier}, builder)
}

// AddSingletonInstance registers a pre-built value.
//
//	c.AddSingletonInstance(token.Of[*config.Config](), cfg)
func (c *Container) AddSingletonInstance(tok, instance any) error {
	return c.addInstance(tok, nil, instance)
}

// AddMappedSingletonInstance registers a pre-built value under token + qualifier.
func (c *Container) AddMappedSingletonInstance(tok, qualifier, instance any) error {
	return c.addInstance(tok, []any{qualifier}, instance)
}

// ── Transient ─────────────────────────────────────────────────────────────────

// AddTransient registers a constructor called on every resolution.
func (c *Container) AddTransient(ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Transient, nil, nil, ctor)
}

// AddTransientAs registers a transient constructor under an explicit token.
func (c *Container) AddTransientAs(tok any, ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Transient, tok, nil, ctor)
}

// AddMappedTransient registers a transient constructor under token + qualifier.
func (c *Container) AddMappedTransient(tok, qualifier any, ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Transient, tok, []any{qualifier}, ctor)
}

// AddTransientBuilder registers a builder called on every resolution.
func (c *Container) AddTransientBuilder(tok any, builder dependency.Builder) error {
	return c.addBuilder(dependency.Transient, tok, nil, builder)
}

// AddMappedTransientBuilder registers a transient builder under token + qualifier.
//
//	c.AddMappedTransientBuilder("shape", "circle", func() (any, error) { return &Circle{}, nil })
func (c *Container) AddMappedTransientBuilder(tok, qualifier any, builder dependency.Builder) error {
	return c.addBuilder(dependency.Transient, tok, []any{qualifier}, builder)
}

// ── Per context ───────────────────────────────────────────────────────────────

// AddPerContext registers a constructor built once per logical context.
func (c *Container) AddPerContext(ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Context, nil, nil, ctor)
}

// AddPerContextAs registers a per-context constructor under an explicit token.
func (c *Container) AddPerContextAs(tok any, ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Context, tok, nil, ctor)
}

// AddMappedPerContext registers a per-context constructor under token + qualifier.
func (c *Container) AddMappedPerContext(tok, qualifier any, ctor *dependency.Constructor) error {
	return c.addConstructor(dependency.Context, tok, []any{qualifier}, ctor)
}

// AddPerContextBuilder registers a builder called once per logical context.
func (c *Container) AddPerContextBuilder(tok any, builder dependency.Builder) error {
	return c.addBuilder(dependency.Context, tok, nil, builder)
}

// AddMappedPerContextBuilder registers a per-context builder under token + qualifier.
func (c *Container) AddMappedPerContextBuilder(tok, qualifier any, builder dependency.Builder) error {
	return c.addBuilder(dependency.Context, tok, []any{qualifier}, builder)
}

// ── Registration helpers ──────────────────────────────────────────────────────

func (c *Container) addConstructor(l dependency.Lifecycle, tok any, qualifiers []any, ctor *dependency.Constructor) error {
	if ctor == nil {
		return ErrConstructorRequired
	}
	return c.Add(AddInput{
		Lifecycle:      l,
		Token:          tok,
		CheckQualifier: qualifiers != nil,
		Qualifiers:     qualifiers,
		Constructor:    ctor,
	})
}

func (c *Container) addBuilder(l dependency.Lifecycle, tok any, qualifiers []any, builder dependency.Builder) error {
	if builder == nil {
		return ErrBuilderRequired
	}
	return c.Add(AddInput{
		Lifecycle:      l,
		Token:          tok,
		CheckQualifier: qualifiers != nil,
		Qualifiers:     qualifiers,
		Builder:        builder,
	})
}

func (c *Container) addInstance(tok any, qualifiers []any, instance any) error {
	if instance == nil {
		return ErrInstanceRequired
	}
	return c.Add(AddInput{
		Lifecycle:      dependency.Singleton,
		Token:          tok,
		CheckQualifier: qualifiers != nil,
		Qualifiers:     qualifiers,
		Instance:       instance,
	})
}

// ── Resolution ────────────────────────────────────────────────────────────────

// GetDependency resolves tok. A token without registration yields mo.None;
// missing arguments of a registered dependency are still errors.
//
//	opt, err := c.GetDependency(ctx, token.Of[*Cache]())
//	cache, ok := opt.Get()
func (c *Container) GetDependency(ctx context.Context, tok any) (mo.Option[any], error) {
	return c.retrieve(ctx, tok, nil, false, false)
}

// GetRequiredDependency resolves tok or fails with MissingDependency.
func (c *Container) GetRequiredDependency(ctx context.Context, tok any) (any, error) {
	opt, err := c.retrieve(ctx, tok, nil, false, true)
	return opt.OrEmpty(), err
}

// GetMappedDependency resolves token + qualifier, yielding mo.None when absent.
func (c *Container) GetMappedDependency(ctx context.Context, tok, qualifier any) (mo.Option[any], error) {
	return c.retrieve(ctx, tok, []any{qualifier}, true, false)
}

// GetRequiredMappedDependency resolves token + qualifier or fails.
func (c *Container) GetRequiredMappedDependency(ctx context.Context, tok, qualifier any) (any, error) {
	opt, err := c.retrieve(ctx, tok, []any{qualifier}, true, true)
	return opt.OrEmpty(), err
}

func (c *Container) retrieve(ctx context.Context, tok any, qualifiers []any, checkQualifier, required bool) (mo.Option[any], error) {
	if tok == nil {
		return mo.None[any](), ErrTokenRequired
	}
	if checkQualifier && len(nonNil(qualifiers)) == 0 {
		return mo.None[any](), ErrQualifierRequired
	}
	if c.buildSingletonsRequired && !c.singletonsBuilt.Load() {
		return mo.None[any](), ErrSingletonsNotBuilt
	}

	id, err := c.tokens.ResolveOrCreateID(append([]any{tok}, qualifiers...)...)
	if err != nil {
		return mo.None[any](), err
	}
	if !required && !c.store.Has(id) {
		return mo.None[any](), nil
	}

	v, err := c.resolve(ctx, id)
	if err != nil {
		return mo.None[any](), err
	}
	return mo.Some(v), nil
}

// resolve runs the resolver for one id, observing and enriching.
func (c *Container) resolve(ctx context.Context, id string) (any, error) {
	start := time.Now()
	v, err := c.resolver.Resolve(ctx, id)
	c.observer.DependencyResolved(id, c.lifecycleOf(id), time.Since(start), err)
	if err != nil {
		err = c.enrich(err)
		c.logger.Warn().Err(err).Str("dependency", c.displayName(id)).Msg("dependency resolution failed")
		return nil, err
	}
	return v, nil
}

func (c *Container) lifecycleOf(id string) dependency.Lifecycle {
	reg, err := c.store.Get(id)
	if err != nil {
		return ""
	}
	return reg.Lifecycle
}

// ── Eager building ────────────────────────────────────────────────────────────

// BuildSingletons builds every singleton in dependency order. Typically
// called once at startup, after all registrations.
func (c *Container) BuildSingletons(ctx context.Context) error {
	if err := c.resolveLifecycles(ctx, dependency.Singleton); err != nil {
		return err
	}
	c.singletonsBuilt.Store(true)
	return nil
}

// BuildContext builds every context-scoped dependency in the logical context
// carried by ctx.
func (c *Container) BuildContext(ctx context.Context) error {
	return c.resolveLifecycles(ctx, dependency.Context)
}

// NewContext starts a logical context and builds its context-scoped
// dependencies.
//
//	reqCtx, err := c.NewContext(r.Context())
func (c *Container) NewContext(ctx context.Context) (context.Context, error) {
	ctx = scope.WithScope(ctx)
	if err := c.BuildContext(ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (c *Container) resolveLifecycles(ctx context.Context, lifecycles ...dependency.Lifecycle) error {
	start := time.Now()
	if err := c.resolver.ResolveLifecycles(ctx, lifecycles...); err != nil {
		return c.enrich(err)
	}
	c.logger.Debug().
		Strs("lifecycles", lo.Map(lifecycles, func(l dependency.Lifecycle, _ int) string { return string(l) })).
		Dur("elapsed", time.Since(start)).
		Msg("lifecycles built")
	return nil
}

// ── Maintenance ───────────────────────────────────────────────────────────────

// DeleteDependency removes the registration for token + qualifier and both
// token entries. Ids composed from those tokens elsewhere stop resolving.
func (c *Container) DeleteDependency(tok, qualifier any) error {
	id, err := c.tokens.ResolveOrCreateID(tok, qualifier)
	if err != nil {
		return err
	}
	c.store.Delete(id)
	c.tokens.Delete(tok)
	c.tokens.Delete(qualifier)
	c.observer.RegistrationsChanged(c.store.Len())
	return nil
}

// Reset forgets every registration and token, then registers the container
// itself again.
func (c *Container) Reset() {
	c.tokens.Reset()
	c.store.Reset()
	c.deferred.Clear()
	c.singletonsBuilt.Store(false)
	c.registerSelf()
}

// SingletonsBuilt reports whether BuildSingletons has succeeded.
func (c *Container) SingletonsBuilt() bool { return c.singletonsBuilt.Load() }

// Validate reports, all at once, cycles, constructor arguments without a
// registration and registrations that can never be constructed.
func (c *Container) Validate() error {
	var result error

	if _, err := c.store.SortedIDs(); err != nil {
		result = multierr.Append(result, c.enrich(err))
	}

	missing := lo.Uniq(lo.FilterMap(c.store.Edges(), func(e dependency.Edge, _ int) (string, bool) {
		return e.To, !c.store.Has(e.To)
	}))
	for _, id := range missing {
		result = multierr.Append(result, c.enrich(errs.MissingDependency(id)))
	}

	for _, id := range c.store.IDs() {
		reg, err := c.store.Get(id)
		if err != nil {
			continue
		}
		impl := reg.Implementation
		if _, ok := impl.Instance(); ok || impl.Builder != nil || impl.Constructor != nil {
			continue
		}
		result = multierr.Append(result, c.enrich(errs.CanNotConstructDependency(id)))
	}
	return result
}

// ── Graph access ──────────────────────────────────────────────────────────────

// SortedIDs returns every dependency id, arguments before consumers.
func (c *Container) SortedIDs() ([]string, error) {
	ids, err := c.store.SortedIDs()
	if err != nil {
		return nil, c.enrich(err)
	}
	return ids, nil
}

// Edges returns every consumer → argument edge.
func (c *Container) Edges() []dependency.Edge { return c.store.Edges() }

// NodeName renders an id as its token names joined by ":".
func (c *Container) NodeName(id string) (string, error) {
	names, err := c.tokenNames(id)
	if err != nil {
		return "", c.enrich(err)
	}
	return strings.Join(names, ":"), nil
}

// Lifecycle returns the lifecycle registered for id.
func (c *Container) Lifecycle(id string) (dependency.Lifecycle, error) {
	reg, err := c.store.Get(id)
	if err != nil {
		return "", c.enrich(err)
	}
	return reg.Lifecycle, nil
}

// DependencyID returns the id of token + qualifiers without creating tokens.
func (c *Container) DependencyID(tokens ...any) (string, bool) {
	for _, t := range nonNil(tokens) {
		if !c.tokens.Has(t) {
			return "", false
		}
	}
	id, err := c.tokens.ResolveOrCreateID(tokens...)
	return id, err == nil && id != ""
}

func (c *Container) tokenNames(id string) ([]string, error) {
	tokens, err := c.tokens.Tokens(id)
	if err != nil {
		return nil, err
	}
	return lo.Map(tokens, func(t any, _ int) string { return c.names.Name(t) }), nil
}

// displayName is a best-effort name for logs.
func (c *Container) displayName(id string) string {
	names, err := c.tokenNames(id)
	if err != nil {
		return fmt.Sprintf("unknown dependency id: %s", id)
	}
	return strings.Join(names, " - ")
}
