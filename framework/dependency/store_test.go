package dependency

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dipend/framework/errs"
)

// node registers id as a transient consumer of args.
func node(s *Store, id string, args ...string) {
	s.Add(NewRegistration(id, Transient, &Implementation{ArgumentIDs: args}))
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore()
	_, err := s.Get("x")
	assert.ErrorIs(t, err, errs.ErrMissingDependency)

	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, e.DependencyIDs)
}

func TestStore_AddOverwrites(t *testing.T) {
	s := NewStore()
	node(s, "a")
	node(s, "a", "b")

	assert.Equal(t, 1, s.Len())
	reg, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, reg.Implementation.ArgumentIDs)
}

func TestStore_SortedIDs_DependenciesFirst(t *testing.T) {
	s := NewStore()
	node(s, "service", "repo", "cache")
	node(s, "repo", "db")
	node(s, "cache")
	node(s, "db")
	node(s, "lonely")

	ids, err := s.SortedIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"service", "repo", "cache", "db", "lonely"}, ids)

	before := func(a, b string) {
		assert.Less(t, slices.Index(ids, a), slices.Index(ids, b), "%s should precede %s", a, b)
	}
	before("repo", "service")
	before("cache", "service")
	before("db", "repo")
}

func TestStore_SortedIDs_IncludesArgumentOnlyIDs(t *testing.T) {
	s := NewStore()
	node(s, "service", "unregistered")

	ids, err := s.SortedIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"unregistered", "service"}, ids)
}

func TestStore_SortedIDs_Cycle(t *testing.T) {
	s := NewStore()
	node(s, "a", "b")
	node(s, "b", "a")
	node(s, "c")

	_, err := s.SortedIDs()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCyclicDependencies)

	e, ok := errs.As(err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, e.DependencyIDs)
}

func TestStore_SortedIDs_CycleExcludesLeaves(t *testing.T) {
	s := NewStore()
	node(s, "a", "b")
	node(s, "b", "a", "leaf")

	_, err := s.SortedIDs()
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, e.DependencyIDs)
}

func TestStore_SortedIDs_Cached(t *testing.T) {
	s := NewStore()
	node(s, "a", "b")
	node(s, "b")

	first, err := s.SortedIDs()
	require.NoError(t, err)
	second, err := s.SortedIDs()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.rebuild)

	// callers cannot corrupt the cache
	first[0] = "mutated"
	third, _ := s.SortedIDs()
	assert.Equal(t, second, third)

	node(s, "c", "a")
	_, _ = s.SortedIDs()
	assert.Equal(t, 2, s.rebuild)

	s.Delete("c")
	_, _ = s.SortedIDs()
	assert.Equal(t, 3, s.rebuild)

	s.Reset()
	ids, _ := s.SortedIDs()
	assert.Empty(t, ids)
	assert.Equal(t, 4, s.rebuild)
}

func TestStore_DeleteAndEdges(t *testing.T) {
	s := NewStore()
	node(s, "a", "b")
	node(s, "b")

	assert.Equal(t, []Edge{{From: "a", To: "b"}}, s.Edges())

	s.Delete("a")
	assert.False(t, s.Has("a"))
	assert.Equal(t, []string{"b"}, s.IDs())
	assert.Empty(t, s.Edges())

	s.Delete("missing") // no-op
	assert.Equal(t, 1, s.Len())
}
