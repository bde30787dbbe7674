package dependency

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for dependency ordering

func TestStore_SortProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Edges only point from a higher index to a lower one, so every generated
	// graph is acyclic.
	acyclic := func(picks []int) *Store {
		s := NewStore()
		for i, p := range picks {
			var args []string
			if i > 0 {
				for j := 0; j < i; j++ {
					if p&(1<<(j%16)) != 0 {
						args = append(args, fmt.Sprintf("n%d", j))
					}
				}
			}
			node(s, fmt.Sprintf("n%d", i), args...)
		}
		return s
	}

	// Property 1: every argument precedes its consumer
	properties.Property("arguments before consumers", prop.ForAll(
		func(picks []int) bool {
			s := acyclic(picks)
			ids, err := s.SortedIDs()
			if err != nil {
				return false
			}
			for _, e := range s.Edges() {
				if slices.Index(ids, e.To) > slices.Index(ids, e.From) {
					return false
				}
			}
			return len(ids) == s.Len()
		},
		gen.SliceOfN(12, gen.IntRange(0, 1<<16-1)),
	))

	// Property 2: a repeated call returns the cached order
	properties.Property("sort is cached", prop.ForAll(
		func(picks []int) bool {
			s := acyclic(picks)
			first, err := s.SortedIDs()
			if err != nil {
				return false
			}
			second, _ := s.SortedIDs()
			return slices.Equal(first, second) && s.rebuild == 1
		},
		gen.SliceOfN(12, gen.IntRange(0, 1<<16-1)),
	))

	properties.TestingRun(t)
}
