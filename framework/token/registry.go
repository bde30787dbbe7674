package token

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/km-arc/go-dipend/framework/errs"
)

// entry is the registry record for one token.
type entry struct {
	token any
	id    string
}

// Registry maps tokens to generated ids and back.
type Registry struct {
	mu      sync.RWMutex
	byToken map[any]*entry
	byID    map[string]*entry
	newID   func() string
}

// NewRegistry creates an empty registry issuing UUID based ids.
func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[any]*entry),
		byID:    make(map[string]*entry),
		newID:   newID,
	}
}

// newID returns a fresh id. Hyphens are kept; only the Delimiter is reserved.
func newID() string {
	return uuid.NewString()
}

// ResolveOrCreateID returns the dependency id for the ordered token list,
// creating registry entries for tokens seen for the first time. Nil tokens
// are skipped, so [T, nil] and [T] yield the same id.
func (r *Registry) ResolveOrCreateID(tokens ...any) (string, error) {
	ids := make([]string, 0, len(tokens))

	for _, t := range tokens {
		if t == nil {
			continue
		}
		if err := checkComparable(t); err != nil {
			return "", err
		}
		ids = append(ids, r.idFor(t))
	}

	return strings.Join(ids, Delimiter), nil
}

// idFor looks a token up, creating its entry if absent.
func (r *Registry) idFor(t any) string {
	r.mu.RLock()
	e, ok := r.byToken[t]
	r.mu.RUnlock()
	if ok {
		return e.id
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have created it between the locks.
	if e, ok := r.byToken[t]; ok {
		return e.id
	}
	e = &entry{token: t, id: r.newID()}
	r.byToken[t] = e
	r.byID[e.id] = e
	return e.id
}

// Tokens splits a dependency id and maps every component back to its token.
// It fails with MissingDependencyToken when any component is unknown.
func (r *Registry) Tokens(dependencyID string) ([]any, error) {
	if dependencyID == "" {
		return nil, errs.MissingDependencyToken(dependencyID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	parts := strings.Split(dependencyID, Delimiter)
	tokens := make([]any, 0, len(parts))
	for _, id := range parts {
		e, ok := r.byID[id]
		if !ok {
			return nil, errs.MissingDependencyToken(dependencyID)
		}
		tokens = append(tokens, e.token)
	}
	return tokens, nil
}

// Has reports whether the token has an entry.
func (r *Registry) Has(t any) bool {
	if checkComparable(t) != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byToken[t]
	return ok
}

// Delete removes one token's entry. Composite ids already derived from it are
// left as they are and fail later lookups.
func (r *Registry) Delete(t any) {
	if t == nil || checkComparable(t) != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byToken[t]; ok {
		delete(r.byID, e.id)
		delete(r.byToken, t)
	}
}

// Reset clears every entry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken = make(map[any]*entry)
	r.byID = make(map[string]*entry)
}

// Len returns the number of known tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}
