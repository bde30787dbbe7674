package dependency

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/km-arc/go-dipend/framework/errs"
	"github.com/km-arc/go-dipend/framework/scope"
)

// StrategyInput is what a lifecycle strategy receives: the registration and
// its constructor arguments, already resolved and in declared order.
type StrategyInput struct {
	Registration *Registration
	Arguments    []any
}

// Strategy applies a lifecycle policy to produce an instance.
type Strategy interface {
	Resolve(ctx context.Context, in StrategyInput) (any, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, in StrategyInput) (any, error)

func (f StrategyFunc) Resolve(ctx context.Context, in StrategyInput) (any, error) {
	return f(ctx, in)
}

// Materialize builds an instance from the registration's producers: the
// pre-built instance first, then the builder, then the constructor.
func Materialize(in StrategyInput) (any, error) {
	reg := in.Registration
	impl := reg.Implementation

	if v, ok := impl.Instance(); ok {
		return v, nil
	}
	if impl.Builder != nil {
		v, err := impl.Builder()
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", reg.ID, err)
		}
		return v, nil
	}
	if impl.Constructor == nil {
		return nil, errs.CanNotConstructDependency(reg.ID)
	}
	v, err := impl.Constructor.invoke(in.Arguments)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", reg.ID, err)
	}
	return v, nil
}

// ── Singleton ─────────────────────────────────────────────────────────────────

// SingletonStrategy caches the instance on the registration itself.
type SingletonStrategy struct {
	flight singleflight.Group
}

func NewSingletonStrategy() *SingletonStrategy { return &SingletonStrategy{} }

func (s *SingletonStrategy) Resolve(_ context.Context, in StrategyInput) (any, error) {
	impl := in.Registration.Implementation
	if v, ok := impl.Instance(); ok {
		return v, nil
	}

	v, err, _ := s.flight.Do(in.Registration.ID, func() (any, error) {
		if v, ok := impl.Instance(); ok {
			return v, nil
		}
		v, err := Materialize(in)
		if err != nil {
			return nil, err
		}
		impl.SetInstance(v)
		return v, nil
	})
	return v, err
}

// ── Transient ─────────────────────────────────────────────────────────────────

// TransientStrategy never caches.
type TransientStrategy struct{}

func NewTransientStrategy() *TransientStrategy { return &TransientStrategy{} }

func (TransientStrategy) Resolve(_ context.Context, in StrategyInput) (any, error) {
	return Materialize(in)
}

// ── Context ───────────────────────────────────────────────────────────────────

// ContextStrategy caches the instance in the caller's logical context.
type ContextStrategy struct {
	store *scope.Store
}

func NewContextStrategy(store *scope.Store) *ContextStrategy {
	if store == nil {
		store = scope.NewStore()
	}
	return &ContextStrategy{store: store}
}

// Store returns the scope store backing the strategy.
func (s *ContextStrategy) Store() *scope.Store { return s.store }

func (s *ContextStrategy) Resolve(ctx context.Context, in StrategyInput) (any, error) {
	return s.store.GetOrCreate(ctx, in.Registration.ID, func() (any, error) {
		return Materialize(in)
	})
}
