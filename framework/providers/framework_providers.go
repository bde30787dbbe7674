package providers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-dipend/framework/config"
	"github.com/km-arc/go-dipend/framework/container"
	"github.com/km-arc/go-dipend/framework/dependency"
	"github.com/km-arc/go-dipend/framework/graph"
	"github.com/km-arc/go-dipend/framework/logging"
	"github.com/km-arc/go-dipend/framework/metrics"
	"github.com/km-arc/go-dipend/framework/token"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the application configuration.
//
// Bound tokens:
//   - *config.Config
//
// When Config is nil the configuration is loaded from EnvFiles (or .env)
// and the environment.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(c *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	return c.AddSingletonInstance(token.Of[*config.Config](), cfg)
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the shared logger.
//
// Bound tokens:
//   - zerolog.Logger
//
// When Logger is nil the logger is built from the bound *config.Config on
// first use.
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zerolog.Logger
}

func (p *LoggingServiceProvider) Register(c *container.Container) error {
	if p.Logger != nil {
		return c.AddSingletonInstance(token.Of[zerolog.Logger](), *p.Logger)
	}
	return c.AddSingleton(dependency.NewE1(func(cfg *config.Config) (zerolog.Logger, error) {
		return logging.New(cfg.Logging)
	}))
}

// Boot logs the active level, which also forces the logger to be built.
func (p *LoggingServiceProvider) Boot(ctx context.Context, c *container.Container) error {
	logger, err := container.Get[zerolog.Logger](ctx, c)
	if err != nil {
		return err
	}
	logger.Debug().Str("level", logger.GetLevel().String()).Msg("logger ready")
	return nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the Prometheus collector.
//
// Bound tokens:
//   - *metrics.Collector
//
// Pass the collector given to container.WithObserver so registrations and
// resolutions show up in the exported series.
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(c *container.Container) error {
	if p.Collector != nil {
		return c.AddSingletonInstance(token.Of[*metrics.Collector](), p.Collector)
	}
	return c.AddSingleton(dependency.New0(metrics.New))
}

// ── GraphServiceProvider ──────────────────────────────────────────────────────

// GraphServiceProvider binds the dependency graph server. It is deferred:
// nothing is built until *graph.Server is first resolved.
//
// Bound tokens:
//   - *graph.Server
//
// Requires *config.Config, zerolog.Logger and *metrics.Collector.
type GraphServiceProvider struct {
	container.BaseProvider
}

func (p *GraphServiceProvider) Register(c *container.Container) error {
	return c.AddSingleton(dependency.New4(newGraphServer))
}

func (p *GraphServiceProvider) Provides() []any { return []any{token.Of[*graph.Server]()} }
func (p *GraphServiceProvider) IsDeferred() bool { return true }

func newGraphServer(c *container.Container, cfg *config.Config, logger zerolog.Logger, m *metrics.Collector) *graph.Server {
	return graph.NewServer(c, cfg.Server, logger, graph.WithMetrics(m.Handler()))
}
