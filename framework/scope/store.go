// Package scope stores values per logical context.
//
// A logical context is started with WithScope and travels inside a
// context.Context, so every goroutine handed a derived context shares it:
//
//	ctx = scope.WithScope(ctx)          // e.g. one per HTTP request
//	tok := store.Set(ctx, "user", u)
//	v := store.Get(ctx, "user")         // mo.Some(u)
//	_ = store.Reset(ctx, "user", tok)   // back to the previous value
//
// A context without a scope falls back to the store's root scope.
package scope

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/mo"
	"golang.org/x/sync/singleflight"
)

// Restore token errors.
var (
	ErrTokenUsed     = errors.New("scope: restore token has already been used")
	ErrScopeMismatch = errors.New("scope: restore token was created in a different scope")
)

type scopeKey struct{}

// Scope holds the slot values of one logical context.
type Scope struct {
	mu     sync.Mutex
	values map[*slot]any
	flight singleflight.Group
}

func newScope() *Scope {
	return &Scope{values: make(map[*slot]any)}
}

// WithScope returns a child context carrying a fresh, empty scope.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, newScope())
}

// FromContext returns the scope carried by ctx, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}

// slot is a named cell; its value lives in each Scope separately.
type slot struct {
	name string
}

// RestoreToken captures the value a slot held before a Set.
type RestoreToken struct {
	scope    *Scope
	slot     *slot
	previous any
	had      bool
	used     bool
}

// Store is a registry of named slots, lazily created on first Set.
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot
	root  *Scope
}

// NewStore creates an empty store with its own root scope.
func NewStore() *Store {
	return &Store{
		slots: make(map[string]*slot),
		root:  newScope(),
	}
}

// scopeOf picks the scope for ctx, defaulting to the root scope.
func (s *Store) scopeOf(ctx context.Context) *Scope {
	if sc, ok := FromContext(ctx); ok {
		return sc
	}
	return s.root
}

func (s *Store) lookup(name string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[name]
	return sl, ok
}

func (s *Store) slotFor(name string) *slot {
	if sl, ok := s.lookup(name); ok {
		return sl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[name]; ok {
		return sl
	}
	sl := &slot{name: name}
	s.slots[name] = sl
	return sl
}

// Set stores value for the current logical context and returns a token that
// restores the previous value.
func (s *Store) Set(ctx context.Context, name string, value any) *RestoreToken {
	sl := s.slotFor(name)
	sc := s.scopeOf(ctx)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	prev, had := sc.values[sl]
	sc.values[sl] = value
	return &RestoreToken{scope: sc, slot: sl, previous: prev, had: had}
}

// Get returns the value of the slot in the current logical context.
func (s *Store) Get(ctx context.Context, name string) mo.Option[any] {
	sl, ok := s.lookup(name)
	if !ok {
		return mo.None[any]()
	}
	sc := s.scopeOf(ctx)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if v, ok := sc.values[sl]; ok {
		return mo.Some(v)
	}
	return mo.None[any]()
}

// Reset restores the value captured by tok. It is a no-op when the slot was
// never created.
func (s *Store) Reset(ctx context.Context, name string, tok *RestoreToken) error {
	sl, ok := s.lookup(name)
	if !ok || tok == nil {
		return nil
	}
	sc := s.scopeOf(ctx)
	if tok.scope != sc || tok.slot != sl {
		return ErrScopeMismatch
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if tok.used {
		return ErrTokenUsed
	}
	tok.used = true

	if tok.had {
		sc.values[sl] = tok.previous
	} else {
		delete(sc.values, sl)
	}
	return nil
}

// GetOrCreate returns the slot value for the current logical context, calling
// create at most once per scope and name even under concurrent callers.
func (s *Store) GetOrCreate(ctx context.Context, name string, create func() (any, error)) (any, error) {
	if v, ok := s.Get(ctx, name).Get(); ok {
		return v, nil
	}
	sc := s.scopeOf(ctx)

	v, err, _ := sc.flight.Do(name, func() (any, error) {
		// Re-check: a previous flight may have finished after our Get.
		if v, ok := s.Get(ctx, name).Get(); ok {
			return v, nil
		}
		v, err := create()
		if err != nil {
			return nil, err
		}
		s.Set(ctx, name, v)
		return v, nil
	})
	return v, err
}

// Clear drops every value of the current logical context.
func (s *Store) Clear(ctx context.Context) {
	sc := s.scopeOf(ctx)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.values = make(map[*slot]any)
}
