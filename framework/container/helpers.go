package container

import (
	"context"
	"fmt"

	"github.com/samber/mo"

	"github.com/km-arc/go-dipend/framework/token"
)

// ── Generic helpers ───────────────────────────────────────────────────────────

// Get resolves the dependency registered under token.Of[T]() and asserts
// its type.
//
//	svc, err := container.Get[*Service](ctx, c)
func Get[T any](ctx context.Context, c *Container, qualifiers ...any) (T, error) {
	return GetAs[T](ctx, c, token.Of[T](), qualifiers...)
}

// GetAs resolves the dependency registered under tok + qualifiers as a T.
//
//	shape, err := container.GetAs[Shape](ctx, c, "shape", "circle")
func GetAs[T any](ctx context.Context, c *Container, tok any, qualifiers ...any) (T, error) {
	var zero T

	var (
		v   any
		err error
	)
	if len(qualifiers) == 0 {
		v, err = c.GetRequiredDependency(ctx, tok)
	} else {
		v, err = c.getRequired(ctx, tok, qualifiers)
	}
	if err != nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: dependency %s is %T, not %s", c.names.Name(tok), v, token.Of[T]())
	}
	return typed, nil
}

// Lookup is the optional form of Get: mo.None when nothing is registered.
func Lookup[T any](ctx context.Context, c *Container) (mo.Option[T], error) {
	opt, err := c.GetDependency(ctx, token.Of[T]())
	if err != nil {
		return mo.None[T](), err
	}
	v, ok := opt.Get()
	if !ok {
		return mo.None[T](), nil
	}
	typed, ok := v.(T)
	if !ok {
		return mo.None[T](), fmt.Errorf("container: dependency %s is %T, not %s", token.Of[T](), v, token.Of[T]())
	}
	return mo.Some(typed), nil
}

// MustGet is like Get but panics on error. Intended for bootstrap code.
//
//	cfg := container.MustGet[*config.Config](ctx, c)
func MustGet[T any](ctx context.Context, c *Container, qualifiers ...any) T {
	v, err := Get[T](ctx, c, qualifiers...)
	if err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
	return v
}

// getRequired resolves tok with any number of qualifiers.
func (c *Container) getRequired(ctx context.Context, tok any, qualifiers []any) (any, error) {
	opt, err := c.retrieve(ctx, tok, qualifiers, true, true)
	return opt.OrEmpty(), err
}
