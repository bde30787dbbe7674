// Package errs defines the structural errors raised while registering and
// resolving dependencies.
//
// Every structural error carries the dependency ids that caused it. The
// container turns those ids back into human-readable token names before the
// error reaches the caller (see EnrichedError).
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ── Sentinels ─────────────────────────────────────────────────────────────────

// Sentinels matched with errors.Is against any *Error or *EnrichedError.
var (
	ErrMissingDependency         = errors.New("missing dependency")
	ErrMissingDependencyToken    = errors.New("missing dependency token")
	ErrCyclicDependencies        = errors.New("cyclic dependencies")
	ErrCanNotConstructDependency = errors.New("can not construct dependency")
	ErrInvalidLifecycle          = errors.New("invalid lifecycle")
)

// Kind identifies which structural failure occurred.
type Kind int

const (
	KindMissingDependency Kind = iota + 1
	KindMissingDependencyToken
	KindCyclicDependencies
	KindCanNotConstructDependency
	KindInvalidLifecycle
)

var kindSentinels = map[Kind]error{
	KindMissingDependency:         ErrMissingDependency,
	KindMissingDependencyToken:    ErrMissingDependencyToken,
	KindCyclicDependencies:        ErrCyclicDependencies,
	KindCanNotConstructDependency: ErrCanNotConstructDependency,
	KindInvalidLifecycle:          ErrInvalidLifecycle,
}

var kindDescriptions = map[Kind]string{
	KindMissingDependency:         "Missing dependency",
	KindMissingDependencyToken:    "Missing dependency token",
	KindCyclicDependencies:        "Cyclic dependencies error",
	KindCanNotConstructDependency: "Can not construct dependency",
	KindInvalidLifecycle:          "Invalid lifecycle",
}

// ── Error ─────────────────────────────────────────────────────────────────────

// Error is a structural failure naming the offending dependency ids.
type Error struct {
	Kind          Kind
	DependencyIDs []string

	// Lifecycle is set for KindInvalidLifecycle only.
	Lifecycle string
}

// Description is the short human message without ids, e.g. "Missing dependency".
func (e *Error) Description() string {
	desc := kindDescriptions[e.Kind]
	if desc == "" {
		desc = "Dependency container error"
	}
	if e.Kind == KindInvalidLifecycle {
		desc += ": " + e.Lifecycle
	}
	return desc
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]", e.Description(), strings.Join(e.DependencyIDs, ", "))
}

// Unwrap exposes the per-kind sentinel.
func (e *Error) Unwrap() error {
	return kindSentinels[e.Kind]
}

// MissingDependency reports ids without a registration.
func MissingDependency(ids ...string) *Error {
	return &Error{Kind: KindMissingDependency, DependencyIDs: ids}
}

// MissingDependencyToken reports ids whose tokens cannot be reconstructed.
func MissingDependencyToken(ids ...string) *Error {
	return &Error{Kind: KindMissingDependencyToken, DependencyIDs: ids}
}

// CyclicDependencies reports ids taking part in a dependency cycle.
func CyclicDependencies(ids ...string) *Error {
	return &Error{Kind: KindCyclicDependencies, DependencyIDs: ids}
}

// CanNotConstructDependency reports ids with no usable producer or with an
// undeclared constructor parameter.
func CanNotConstructDependency(ids ...string) *Error {
	return &Error{Kind: KindCanNotConstructDependency, DependencyIDs: ids}
}

// InvalidLifecycle reports a registration whose lifecycle has no strategy.
func InvalidLifecycle(id, lifecycle string) *Error {
	return &Error{Kind: KindInvalidLifecycle, DependencyIDs: []string{id}, Lifecycle: lifecycle}
}

// ── EnrichedError ─────────────────────────────────────────────────────────────

// EnrichedError is a structural error whose ids were mapped back to token names.
//
//	error: Missing dependency - caused by: [(Service - primary)]
type EnrichedError struct {
	Err   *Error
	Names []string
}

func (e *EnrichedError) Error() string {
	return fmt.Sprintf("error: %s - caused by: [%s]", e.Err.Description(), strings.Join(e.Names, ", "))
}

func (e *EnrichedError) Unwrap() error { return e.Err }

// As returns the structural error held by err, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
