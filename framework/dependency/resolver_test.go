package dependency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dipend/framework/errs"
	"github.com/km-arc/go-dipend/framework/scope"
	"github.com/km-arc/go-dipend/framework/token"
)

type repo struct{ name string }

type service struct{ repo *repo }

func newResolver(t *testing.T) (*Store, *Resolver) {
	t.Helper()
	s := NewStore()
	r := NewResolver(s)
	r.UseDefaultStrategies(scope.NewStore())
	return s, r
}

func counting(calls *atomic.Int64) Builder {
	return func() (any, error) {
		calls.Add(1)
		return &repo{}, nil
	}
}

// ── Materialize ───────────────────────────────────────────────────────────────

func TestMaterialize_Priority(t *testing.T) {
	ctor := New0(func() *repo { return &repo{name: "ctor"} })
	builder := Builder(func() (any, error) { return &repo{name: "builder"}, nil })

	impl := &Implementation{Constructor: ctor, Builder: builder}
	impl.SetInstance(&repo{name: "instance"})
	v, err := Materialize(StrategyInput{Registration: NewRegistration("x", Singleton, impl)})
	require.NoError(t, err)
	assert.Equal(t, "instance", v.(*repo).name)

	v, err = Materialize(StrategyInput{Registration: NewRegistration("x", Singleton,
		&Implementation{Constructor: ctor, Builder: builder})})
	require.NoError(t, err)
	assert.Equal(t, "builder", v.(*repo).name)

	v, err = Materialize(StrategyInput{Registration: NewRegistration("x", Singleton,
		&Implementation{Constructor: ctor})})
	require.NoError(t, err)
	assert.Equal(t, "ctor", v.(*repo).name)

	_, err = Materialize(StrategyInput{Registration: NewRegistration("x", Singleton, nil)})
	assert.ErrorIs(t, err, errs.ErrCanNotConstructDependency)
}

func TestMaterialize_ArgumentsInOrder(t *testing.T) {
	ctor := New2(func(a, b string) string { return a + b })
	v, err := Materialize(StrategyInput{
		Registration: NewRegistration("x", Transient, &Implementation{Constructor: ctor}),
		Arguments:    []any{"left-", "right"},
	})
	require.NoError(t, err)
	assert.Equal(t, "left-right", v)
}

// ── Strategies ────────────────────────────────────────────────────────────────

func TestResolver_Singleton(t *testing.T) {
	s, r := newResolver(t)
	var calls atomic.Int64
	s.Add(NewRegistration("repo", Singleton, &Implementation{Builder: counting(&calls)}))

	a, err := r.Resolve(context.Background(), "repo")
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), "repo")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.EqualValues(t, 1, calls.Load())
}

func TestResolver_Transient(t *testing.T) {
	s, r := newResolver(t)
	var calls atomic.Int64
	s.Add(NewRegistration("repo", Transient, &Implementation{Builder: counting(&calls)}))

	a, _ := r.Resolve(context.Background(), "repo")
	b, _ := r.Resolve(context.Background(), "repo")

	assert.NotSame(t, a, b)
	assert.EqualValues(t, 2, calls.Load())
}

func TestResolver_Context(t *testing.T) {
	s, r := newResolver(t)
	var calls atomic.Int64
	s.Add(NewRegistration("repo", Context, &Implementation{Builder: counting(&calls)}))

	ctxA := scope.WithScope(context.Background())
	ctxB := scope.WithScope(context.Background())

	a1, _ := r.Resolve(ctxA, "repo")
	a2, _ := r.Resolve(ctxA, "repo")
	b1, _ := r.Resolve(ctxB, "repo")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)
	assert.EqualValues(t, 2, calls.Load())
}

func TestResolver_InvalidLifecycle(t *testing.T) {
	s, r := newResolver(t)
	s.Add(NewRegistration("repo", "pooled", &Implementation{Builder: func() (any, error) { return 1, nil }}))

	_, err := r.Resolve(context.Background(), "repo")
	require.ErrorIs(t, err, errs.ErrInvalidLifecycle)
	e, _ := errs.As(err)
	assert.Equal(t, "pooled", e.Lifecycle)
	assert.Equal(t, []string{"repo"}, e.DependencyIDs)
}

func TestResolver_Missing(t *testing.T) {
	_, r := newResolver(t)
	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrMissingDependency)
}

// ── Recursion ─────────────────────────────────────────────────────────────────

func TestResolver_ResolvesArgumentsFirst(t *testing.T) {
	s, r := newResolver(t)
	s.Add(NewRegistration("repo", Singleton, &Implementation{
		Constructor: New0(func() *repo { return &repo{name: "primary"} }),
	}))
	s.Add(NewRegistration("service", Singleton, &Implementation{
		Constructor: New1(func(rp *repo) *service { return &service{repo: rp} }),
		ArgumentIDs: []string{"repo"},
	}))

	v, err := r.Resolve(context.Background(), "service")
	require.NoError(t, err)
	rp, _ := r.Resolve(context.Background(), "repo")
	assert.Same(t, rp, v.(*service).repo)
}

func TestResolver_InstanceSkipsArguments(t *testing.T) {
	s, r := newResolver(t)
	s.Add(NewRegistration("service", Singleton, &Implementation{
		ArgumentIDs: []string{"never-registered"},
	}))
	reg, _ := s.Get("service")
	reg.Implementation.SetInstance("ready")

	v, err := r.Resolve(context.Background(), "service")
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
}

func TestResolver_CycleDetectedWhileResolving(t *testing.T) {
	s, r := newResolver(t)
	s.Add(NewRegistration("a", Transient, &Implementation{Constructor: Func("a", []any{"b"}, nil), ArgumentIDs: []string{"b"}}))
	s.Add(NewRegistration("b", Transient, &Implementation{Constructor: Func("b", []any{"c"}, nil), ArgumentIDs: []string{"c"}}))
	s.Add(NewRegistration("c", Transient, &Implementation{Constructor: Func("c", []any{"b"}, nil), ArgumentIDs: []string{"b"}}))

	_, err := r.Resolve(context.Background(), "a")
	require.ErrorIs(t, err, errs.ErrCyclicDependencies)
	e, _ := errs.As(err)
	assert.Equal(t, []string{"b", "c"}, e.DependencyIDs)
}

func TestResolver_ConstructorErrorWrapped(t *testing.T) {
	s, r := newResolver(t)
	boom := errors.New("boom")
	s.Add(NewRegistration("x", Singleton, &Implementation{
		Constructor: NewE1(func(string) (*repo, error) { return nil, boom }),
		ArgumentIDs: []string{"arg"},
	}))
	s.Add(NewRegistration("arg", Singleton, NewInstance("value")))

	_, err := r.Resolve(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	reg, _ := s.Get("x")
	_, cached := reg.Implementation.Instance()
	assert.False(t, cached, "failed singletons are not cached")
}

// ── Bulk resolution ───────────────────────────────────────────────────────────

func TestResolver_ResolveLifecycles(t *testing.T) {
	s, r := newResolver(t)
	var singletons, transients atomic.Int64
	s.Add(NewRegistration("one", Singleton, &Implementation{Builder: counting(&singletons)}))
	s.Add(NewRegistration("two", Singleton, &Implementation{Builder: counting(&singletons)}))
	s.Add(NewRegistration("three", Transient, &Implementation{Builder: counting(&transients)}))

	require.NoError(t, r.ResolveLifecycles(context.Background(), Singleton))
	assert.EqualValues(t, 2, singletons.Load())
	assert.EqualValues(t, 0, transients.Load())

	reg, _ := s.Get("one")
	_, ok := reg.Implementation.Instance()
	assert.True(t, ok)
}

func TestResolver_ResolveLifecyclesCycle(t *testing.T) {
	s, r := newResolver(t)
	s.Add(NewRegistration("a", Singleton, &Implementation{ArgumentIDs: []string{"b"}}))
	s.Add(NewRegistration("b", Singleton, &Implementation{ArgumentIDs: []string{"a"}}))

	err := r.ResolveLifecycles(context.Background(), Singleton)
	assert.ErrorIs(t, err, errs.ErrCyclicDependencies)
}

func TestResolver_CustomStrategy(t *testing.T) {
	s, r := newResolver(t)
	var seen []string
	r.SetStrategy("audited", StrategyFunc(func(_ context.Context, in StrategyInput) (any, error) {
		seen = append(seen, in.Registration.ID)
		return Materialize(in)
	}))
	s.Add(NewRegistration("x", "audited", NewInstance(nil)))
	s.Add(NewRegistration("y", "audited", &Implementation{Builder: func() (any, error) { return 1, nil }}))

	_, err := r.Resolve(context.Background(), "y")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, seen)

	_, ok := r.Strategy("audited")
	assert.True(t, ok)
}

// ── Constructors ──────────────────────────────────────────────────────────────

func TestConstructor_TypedHelpers(t *testing.T) {
	ctor := New1(func(r *repo) *service { return &service{repo: r} })
	assert.Equal(t, token.Of[*service](), ctor.Produces)
	assert.Equal(t, []any{token.Of[*repo]()}, ctor.Params)

	v, err := ctor.invoke([]any{nil})
	require.NoError(t, err)
	assert.Nil(t, v.(*service).repo)

	_, err = ctor.invoke([]any{"wrong"})
	assert.Error(t, err)
}

func TestConstructor_Inject(t *testing.T) {
	base := New2(func(a, b *repo) *service { return nil })
	injected := base.Inject(1, "replica")

	assert.Empty(t, base.Qualifiers, "Inject copies the constructor")
	assert.Equal(t, []any{token.Of[*repo]()}, injected.ParamTokens(0))
	assert.Equal(t, []any{token.Of[*repo](), "replica"}, injected.ParamTokens(1))
}
