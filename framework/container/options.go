package container

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-dipend/framework/config"
	"github.com/km-arc/go-dipend/framework/dependency"
	"github.com/km-arc/go-dipend/framework/scope"
	"github.com/km-arc/go-dipend/framework/token"
)

// Observer is notified of registrations and top-level resolutions.
type Observer interface {
	DependencyAdded(id string, lifecycle dependency.Lifecycle)
	DependencyResolved(id string, lifecycle dependency.Lifecycle, elapsed time.Duration, err error)
	// RegistrationsChanged receives the live registration count after every
	// add, overwrite or delete.
	RegistrationsChanged(count int)
}

type nopObserver struct{}

func (nopObserver) DependencyAdded(string, dependency.Lifecycle) {}
func (nopObserver) RegistrationsChanged(int)                     {}
func (nopObserver) DependencyResolved(string, dependency.Lifecycle, time.Duration, error) {
}

// Option configures a Container.
type Option func(*options)

type options struct {
	logger                  zerolog.Logger
	observer                Observer
	scopes                  *scope.Store
	buildSingletonsRequired bool
	noDefaultStrategies     bool
	noDefaultTokenNames     bool
	containerToken          any
	strategies              map[dependency.Lifecycle]dependency.Strategy
	nameStrategies          []token.NameStrategy
}

func defaultOptions() *options {
	return &options{
		logger:     zerolog.Nop(),
		observer:   nopObserver{},
		strategies: make(map[dependency.Lifecycle]dependency.Strategy),
	}
}

// WithLogger sets the logger used for registration and resolution events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver attaches an observer, e.g. a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithScopeStore shares a scope store between containers or with callers.
func WithScopeStore(s *scope.Store) Option {
	return func(o *options) { o.scopes = s }
}

// WithBuildSingletonsRequired makes every retrieval fail with
// ErrSingletonsNotBuilt until BuildSingletons has succeeded.
func WithBuildSingletonsRequired() Option {
	return func(o *options) { o.buildSingletonsRequired = true }
}

// WithoutDefaultStrategies leaves the lifecycle strategy table empty; add
// strategies with WithStrategy or AddStrategy.
func WithoutDefaultStrategies() Option {
	return func(o *options) { o.noDefaultStrategies = true }
}

// WithoutDefaultTokenNames drops the built-in type and string token names.
func WithoutDefaultTokenNames() Option {
	return func(o *options) { o.noDefaultTokenNames = true }
}

// WithContainerToken registers the container under tok instead of
// token.Of[*Container]().
func WithContainerToken(tok any) Option {
	return func(o *options) { o.containerToken = tok }
}

// WithStrategy installs a lifecycle strategy, replacing a default one.
func WithStrategy(l dependency.Lifecycle, s dependency.Strategy) Option {
	return func(o *options) { o.strategies[l] = s }
}

// WithTokenNamer adds a token naming strategy used in error messages and
// graph node names.
func WithTokenNamer(s token.NameStrategy) Option {
	return func(o *options) { o.nameStrategies = append(o.nameStrategies, s) }
}

// FromConfig maps loaded configuration onto options.
func FromConfig(cfg config.ContainerConfig) Option {
	return func(o *options) {
		o.buildSingletonsRequired = cfg.BuildSingletonsRequired
		o.noDefaultStrategies = cfg.DisableDefaultStrategies
		o.noDefaultTokenNames = cfg.DisableDefaultTokenNames
	}
}
