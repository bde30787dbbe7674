// Package token assigns stable identifiers to registration tokens and composes
// them into dependency ids.
//
// A token is any comparable Go value. In practice it is either a reflect.Type
// (obtained with Of) or a plain string:
//
//	repo := token.Of[*Repo]()
//	id, _ := registry.ResolveOrCreateID(repo, "primary")
package token

import (
	"errors"
	"fmt"
	"reflect"
)

// Delimiter joins the per-token ids of a composite dependency id. Generated
// ids never contain it.
const Delimiter = "_"

// ErrUncomparable is returned for tokens that cannot be used as map keys.
var ErrUncomparable = errors.New("token: token is not comparable")

// undeclared is the type of the Undeclared sentinel.
type undeclared struct{}

func (undeclared) String() string { return "<undeclared>" }

// Undeclared marks a constructor parameter whose type is unknown. A
// constructor declaring it can never be registered.
var Undeclared any = undeclared{}

// IsUndeclared reports whether t is the Undeclared sentinel (or nil).
func IsUndeclared(t any) bool {
	if t == nil {
		return true
	}
	_, ok := t.(undeclared)
	return ok
}

// Of returns the type token for T.
//
//	token.Of[*Repo]()        // *pkg.Repo
//	token.Of[io.Reader]()    // io.Reader (interfaces work too)
func Of[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// checkComparable guards map operations against values that would panic.
func checkComparable(t any) error {
	if t == nil {
		return nil
	}
	// Value, not Type: an interface field may hold an unhashable value.
	if !reflect.ValueOf(t).Comparable() {
		return fmt.Errorf("%w: %T", ErrUncomparable, t)
	}
	return nil
}
