package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-dipend/framework/config"
	"github.com/km-arc/go-dipend/framework/container"
	"github.com/km-arc/go-dipend/framework/graph"
	"github.com/km-arc/go-dipend/framework/logging"
	"github.com/km-arc/go-dipend/framework/metrics"
	"github.com/km-arc/go-dipend/framework/providers"
)

// Application is the top-level application container.
// It embeds the dependency Container and ProviderRegistry so user code can
// call app.AddSingleton(), app.Register() and friends directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config  *config.Config
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New creates the application from cfg and registers the framework
// providers. A nil cfg is loaded from .env and the environment.
func New(ctx context.Context, cfg *config.Config, opts ...container.Option) (*Application, error) {
	if cfg == nil {
		cfg = config.Load()
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	collector := metrics.New()

	base := []container.Option{
		container.FromConfig(cfg.Container),
		container.WithLogger(logger),
		container.WithObserver(collector),
	}
	c := container.New(append(base, opts...)...)

	a := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		logger:    logger,
		metrics:   collector,
	}

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: &logger},
		&providers.MetricsServiceProvider{Collector: collector},
		&providers.GraphServiceProvider{},
	}
	for _, p := range core {
		if err := a.Providers.Register(ctx, p); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(ctx context.Context, provider container.ServiceProvider) error {
	return a.Providers.Register(ctx, provider)
}

// Boot builds all singletons, then boots every provider.
func (a *Application) Boot(ctx context.Context) error {
	if err := a.BuildSingletons(ctx); err != nil {
		return err
	}
	if err := a.Providers.Boot(ctx); err != nil {
		return err
	}
	a.logger.Debug().Int("pending_providers", a.Providers.Pending()).Msg("application booted")
	return nil
}

// Config returns the configuration the application was created with.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the shared logger.
func (a *Application) Logger() zerolog.Logger { return a.logger }

// Metrics returns the collector observing the container.
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// Graph resolves the dependency graph server.
func (a *Application) Graph(ctx context.Context) (*graph.Server, error) {
	return container.Get[*graph.Server](ctx, a.Container)
}

// ServeGraph boots the application (if needed) and serves the dependency
// graph until ctx is cancelled.
func (a *Application) ServeGraph(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(ctx); err != nil {
			return err
		}
	}
	srv, err := a.Graph(ctx)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
