package token

import (
	"fmt"
	"reflect"
	"sync"
)

// Unknown is the name given to tokens no strategy recognises.
const Unknown = "UNKNOWN"

// Kind classifies a token for naming purposes.
type Kind string

const (
	KindType   Kind = "type"
	KindString Kind = "string"
)

// NameStrategy recognises a kind of token and renders its name.
type NameStrategy struct {
	Kind  Kind
	Match func(t any) bool
	Name  func(t any) string
}

// Namer turns tokens into human-readable names using ordered strategies.
type Namer struct {
	mu         sync.RWMutex
	strategies []NameStrategy
}

// NewNamer creates a Namer. With defaults it knows reflect.Type and string
// tokens; without, every token is Unknown until strategies are added.
func NewNamer(defaults bool) *Namer {
	n := &Namer{}
	if defaults {
		n.Set(TypeNameStrategy())
		n.Set(StringNameStrategy())
	}
	return n
}

// Set adds a strategy, replacing any strategy of the same kind in place.
func (n *Namer) Set(s NameStrategy) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.strategies {
		if n.strategies[i].Kind == s.Kind {
			n.strategies[i] = s
			return
		}
	}
	n.strategies = append(n.strategies, s)
}

// KindOf returns the kind of the first matching strategy.
func (n *Namer) KindOf(t any) (Kind, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, s := range n.strategies {
		if s.Match(t) {
			return s.Kind, true
		}
	}
	return "", false
}

// Name renders a token name, or Unknown.
func (n *Namer) Name(t any) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, s := range n.strategies {
		if s.Match(t) {
			return s.Name(t)
		}
	}
	return Unknown
}

// TypeNameStrategy names reflect.Type tokens after the type, e.g. "*app.Repo".
func TypeNameStrategy() NameStrategy {
	return NameStrategy{
		Kind: KindType,
		Match: func(t any) bool {
			_, ok := t.(reflect.Type)
			return ok
		},
		Name: func(t any) string {
			return t.(reflect.Type).String()
		},
	}
}

// StringNameStrategy names string tokens after themselves.
func StringNameStrategy() NameStrategy {
	return NameStrategy{
		Kind: KindString,
		Match: func(t any) bool {
			_, ok := t.(string)
			return ok
		},
		Name: func(t any) string {
			if s := t.(string); s != "" {
				return s
			}
			return "Empty String"
		},
	}
}

// StringerNameStrategy names any fmt.Stringer token. It is not a default.
func StringerNameStrategy() NameStrategy {
	return NameStrategy{
		Kind: "stringer",
		Match: func(t any) bool {
			_, ok := t.(fmt.Stringer)
			return ok
		},
		Name: func(t any) string {
			return t.(fmt.Stringer).String()
		},
	}
}
