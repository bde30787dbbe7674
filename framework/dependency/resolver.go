// Package dependency holds registrations, orders them and resolves them into
// instances through pluggable lifecycle strategies.
package dependency

import (
	"context"
	"slices"
	"sync"

	"github.com/km-arc/go-dipend/framework/errs"
	"github.com/km-arc/go-dipend/framework/scope"
)

// Resolver turns dependency ids into instances. It owns no registrations; it
// reads them from a Store and delegates caching to the lifecycle strategies.
type Resolver struct {
	store *Store

	mu         sync.RWMutex
	strategies map[Lifecycle]Strategy
}

// NewResolver creates a resolver without strategies.
func NewResolver(store *Store) *Resolver {
	return &Resolver{
		store:      store,
		strategies: make(map[Lifecycle]Strategy),
	}
}

// UseDefaultStrategies installs the singleton, transient and context
// strategies. Context instances are kept in scopes.
func (r *Resolver) UseDefaultStrategies(scopes *scope.Store) {
	r.SetStrategy(Singleton, NewSingletonStrategy())
	r.SetStrategy(Transient, NewTransientStrategy())
	r.SetStrategy(Context, NewContextStrategy(scopes))
}

// SetStrategy installs or replaces the strategy of a lifecycle.
func (r *Resolver) SetStrategy(l Lifecycle, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[l] = s
}

// Strategy returns the strategy of a lifecycle.
func (r *Resolver) Strategy(l Lifecycle) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[l]
	return s, ok
}

// Resolve returns the instance for id, resolving its constructor arguments
// first. A cycle met on the way fails with CyclicDependencies naming the ids
// on the cycle.
func (r *Resolver) Resolve(ctx context.Context, id string) (any, error) {
	return r.resolve(ctx, id, nil)
}

func (r *Resolver) resolve(ctx context.Context, id string, path []string) (any, error) {
	reg, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}

	if v, ok := reg.Implementation.Instance(); ok {
		return v, nil
	}

	if i := slices.Index(path, id); i >= 0 {
		return nil, errs.CyclicDependencies(slices.Clone(path[i:])...)
	}
	path = append(path, id)

	args := make([]any, 0, len(reg.Implementation.ArgumentIDs))
	for _, argID := range reg.Implementation.ArgumentIDs {
		v, err := r.resolve(ctx, argID, path)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	return r.apply(ctx, reg, args)
}

// apply dispatches to the lifecycle strategy of reg.
func (r *Resolver) apply(ctx context.Context, reg *Registration, args []any) (any, error) {
	strategy, ok := r.Strategy(reg.Lifecycle)
	if !ok {
		return nil, errs.InvalidLifecycle(reg.ID, string(reg.Lifecycle))
	}
	return strategy.Resolve(ctx, StrategyInput{Registration: reg, Arguments: args})
}

// ResolveLifecycles eagerly resolves, in dependency-first order, every
// registration whose lifecycle is listed. Ids referenced only as arguments
// are skipped here and surface when a consumer resolves them.
func (r *Resolver) ResolveLifecycles(ctx context.Context, lifecycles ...Lifecycle) error {
	ids, err := r.store.SortedIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		reg, err := r.store.Get(id)
		if err != nil {
			continue
		}
		if !slices.Contains(lifecycles, reg.Lifecycle) {
			continue
		}
		if _, err := r.resolve(ctx, id, nil); err != nil {
			return err
		}
	}
	return nil
}
