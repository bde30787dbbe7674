package dependency

import (
	"fmt"
	"maps"
	"slices"

	"github.com/km-arc/go-dipend/framework/token"
)

// Constructor builds a value from already-resolved arguments.
//
// Params lists the token of every parameter in call order; token.Undeclared
// marks a parameter whose type is unknown. Qualifiers adds extra qualifier
// tokens to the parameter at the given index, selecting a mapped dependency.
//
// Prefer the typed helpers, which derive Params from the function signature:
//
//	dependency.New1(NewService)                    // func(*Repo) *Service
//	dependency.New1(NewService).Inject(0, "replica")
type Constructor struct {
	Produces   any
	Params     []any
	Qualifiers map[int][]any
	Call       func(args []any) (any, error)
}

// Func declares a constructor by hand.
//
//	dependency.Func("mailer", []any{"smtp-host", token.Of[*Config]()},
//	    func(args []any) (any, error) { ... })
func Func(produces any, params []any, call func(args []any) (any, error)) *Constructor {
	return &Constructor{Produces: produces, Params: params, Call: call}
}

// Inject returns a copy of c whose parameter at index resolves the dependency
// registered under its token plus the given qualifiers.
func (c *Constructor) Inject(index int, qualifiers ...any) *Constructor {
	cp := *c
	cp.Params = slices.Clone(c.Params)
	cp.Qualifiers = maps.Clone(c.Qualifiers)
	if cp.Qualifiers == nil {
		cp.Qualifiers = make(map[int][]any)
	}
	cp.Qualifiers[index] = slices.Clone(qualifiers)
	return &cp
}

// ParamTokens returns the token list of the parameter at index: the declared
// token followed by its qualifiers.
func (c *Constructor) ParamTokens(index int) []any {
	return append([]any{c.Params[index]}, c.Qualifiers[index]...)
}

// invoke calls the constructor with args.
func (c *Constructor) invoke(args []any) (any, error) {
	if c.Call == nil {
		return nil, fmt.Errorf("constructor for %v has no call function", c.Produces)
	}
	return c.Call(args)
}

// ── Typed helpers ─────────────────────────────────────────────────────────────

// arg converts args[i] to A; a nil argument becomes A's zero value.
func arg[A any](args []any, i int) (A, error) {
	var zero A
	if i >= len(args) {
		return zero, fmt.Errorf("argument %d: missing", i)
	}
	if args[i] == nil {
		return zero, nil
	}
	v, ok := args[i].(A)
	if !ok {
		return zero, fmt.Errorf("argument %d: got %T, want %s", i, args[i], token.Of[A]())
	}
	return v, nil
}

// New0 wraps a function without parameters.
func New0[T any](fn func() T) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{},
		Call: func([]any) (any, error) {
			return fn(), nil
		},
	}
}

// New1 wraps a one-parameter function.
func New1[T, A1 any](fn func(A1) T) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{token.Of[A1]()},
		Call: func(args []any) (any, error) {
			a1, err := arg[A1](args, 0)
			if err != nil {
				return nil, err
			}
			return fn(a1), nil
		},
	}
}

// New2 wraps a two-parameter function.
func New2[T, A1, A2 any](fn func(A1, A2) T) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{token.Of[A1](), token.Of[A2]()},
		Call: func(args []any) (any, error) {
			a1, err := arg[A1](args, 0)
			if err != nil {
				return nil, err
			}
			a2, err := arg[A2](args, 1)
			if err != nil {
				return nil, err
			}
			return fn(a1, a2), nil
		},
	}
}

// New3 wraps a three-parameter function.
func New3[T, A1, A2, A3 any](fn func(A1, A2, A3) T) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{token.Of[A1](), token.Of[A2](), token.Of[A3]()},
		Call: func(args []any) (any, error) {
			a1, err := arg[A1](args, 0)
			if err != nil {
				return nil, err
			}
			a2, err := arg[A2](args, 1)
			if err != nil {
				return nil, err
			}
			a3, err := arg[A3](args, 2)
			if err != nil {
				return nil, err
			}
			return fn(a1, a2, a3), nil
		},
	}
}

// New4 wraps a four-parameter function.
func New4[T, A1, A2, A3, A4 any](fn func(A1, A2, A3, A4) T) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{token.Of[A1](), token.Of[A2](), token.Of[A3](), token.Of[A4]()},
		Call: func(args []any) (any, error) {
			a1, err := arg[A1](args, 0)
			if err != nil {
				return nil, err
			}
			a2, err := arg[A2](args, 1)
			if err != nil {
				return nil, err
			}
			a3, err := arg[A3](args, 2)
			if err != nil {
				return nil, err
			}
			a4, err := arg[A4](args, 3)
			if err != nil {
				return nil, err
			}
			return fn(a1, a2, a3, a4), nil
		},
	}
}

// NewE1 wraps a one-parameter function that may fail.
func NewE1[T, A1 any](fn func(A1) (T, error)) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{token.Of[A1]()},
		Call: func(args []any) (any, error) {
			a1, err := arg[A1](args, 0)
			if err != nil {
				return nil, err
			}
			return fn(a1)
		},
	}
}

// NewE2 wraps a two-parameter function that may fail.
func NewE2[T, A1, A2 any](fn func(A1, A2) (T, error)) *Constructor {
	return &Constructor{
		Produces: token.Of[T](),
		Params:   []any{token.Of[A1](), token.Of[A2]()},
		Call: func(args []any) (any, error) {
			a1, err := arg[A1](args, 0)
			if err != nil {
				return nil, err
			}
			a2, err := arg[A2](args, 1)
			if err != nil {
				return nil, err
			}
			return fn(a1, a2)
		},
	}
}
