package dependency

import (
	"strings"
	"sync"
)

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Lifecycle is the caching policy of a dependency's instance.
type Lifecycle string

const (
	// Singleton builds once and shares the instance with every caller.
	Singleton Lifecycle = "singleton"
	// Transient builds a new instance on every resolution.
	Transient Lifecycle = "transient"
	// Context builds once per logical context (see package scope).
	Context Lifecycle = "context"
	// Deferred marks a placeholder standing in for a provider that has not
	// been loaded yet.
	Deferred Lifecycle = "deferred"
)

// Label is the upper-cased lifecycle, e.g. "SINGLETON".
func (l Lifecycle) Label() string { return strings.ToUpper(string(l)) }

func (l Lifecycle) String() string { return string(l) }

// ── Implementation ────────────────────────────────────────────────────────────

// Builder is a zero-argument factory.
type Builder func() (any, error)

// Implementation holds the producers of a dependency. When more than one is
// set the instance wins, then the builder, then the constructor.
type Implementation struct {
	Constructor *Constructor
	Builder     Builder

	// ArgumentIDs are the dependency ids of the constructor parameters, in
	// declared order. Empty for builder and instance implementations.
	ArgumentIDs []string

	mu          sync.RWMutex
	instance    any
	hasInstance bool
}

// NewInstance returns an implementation holding a pre-built value.
func NewInstance(v any) *Implementation {
	return &Implementation{instance: v, hasInstance: true}
}

// Instance returns the held instance, pre-built or cached by a singleton.
func (i *Implementation) Instance() (any, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.instance, i.hasInstance
}

// SetInstance stores v as the resolved instance.
func (i *Implementation) SetInstance(v any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.instance = v
	i.hasInstance = true
}

// ── Registration ──────────────────────────────────────────────────────────────

// Registration binds a dependency id to a lifecycle and an implementation.
type Registration struct {
	ID             string
	Lifecycle      Lifecycle
	Implementation *Implementation
}

// NewRegistration creates a registration. A nil implementation is replaced by
// an empty one, which fails to construct.
func NewRegistration(id string, lifecycle Lifecycle, impl *Implementation) *Registration {
	if impl == nil {
		impl = &Implementation{}
	}
	return &Registration{ID: id, Lifecycle: lifecycle, Implementation: impl}
}
