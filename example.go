package main

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/km-arc/go-dipend/framework/config"
	"github.com/km-arc/go-dipend/framework/container"
	"github.com/km-arc/go-dipend/framework/dependency"
	"github.com/km-arc/go-dipend/framework/token"
)

// ── Demo domain ───────────────────────────────────────────────────────────────

type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Store stands in for a repository shared by every consumer.
type Store struct {
	clock   Clock
	started time.Time
}

func NewStore(clock Clock) *Store { return &Store{clock: clock, started: clock.Now()} }

// Greeter depends on the store and the application config.
type Greeter struct {
	store *Store
	addr  string
}

func NewGreeter(store *Store, cfg *config.Config) *Greeter {
	return &Greeter{store: store, addr: cfg.Server.Addr()}
}

type Shape interface{ Area() float64 }

type Circle struct{ R float64 }

func (c Circle) Area() float64 { return math.Pi * c.R * c.R }

type Square struct{ S float64 }

func (s Square) Area() float64 { return s.S * s.S }

// RequestID is unique per logical context.
type RequestID string

// Handler is rebuilt on every resolution and sees the current request id.
type Handler struct {
	ID      RequestID
	Greeter *Greeter
}

// ── Provider ──────────────────────────────────────────────────────────────────

type demoProvider struct {
	container.BaseProvider
}

func (p *demoProvider) Register(c *container.Container) error {
	steps := []func() error{
		func() error {
			return c.AddSingletonAs(token.Of[Clock](), dependency.New0(func() Clock { return systemClock{} }))
		},
		func() error { return c.AddSingleton(dependency.New1(NewStore)) },
		func() error { return c.AddSingleton(dependency.New2(NewGreeter)) },
		func() error {
			return c.AddMappedTransientBuilder(token.Of[Shape](), "circle", func() (any, error) { return Circle{R: 1}, nil })
		},
		func() error {
			return c.AddMappedTransientBuilder(token.Of[Shape](), "square", func() (any, error) { return Square{S: 2}, nil })
		},
		func() error {
			return c.AddPerContextBuilder(token.Of[RequestID](), func() (any, error) {
				return RequestID(uuid.NewString()), nil
			})
		},
		func() error {
			return c.AddTransient(dependency.New2(func(id RequestID, g *Greeter) *Handler {
				return &Handler{ID: id, Greeter: g}
			}))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Boot checks a request-scoped resolution end to end.
func (p *demoProvider) Boot(ctx context.Context, c *container.Container) error {
	reqCtx, err := c.NewContext(ctx)
	if err != nil {
		return err
	}
	_, err = container.Get[*Handler](reqCtx, c)
	return err
}
