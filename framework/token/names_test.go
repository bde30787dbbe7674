package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestNamer_Defaults(t *testing.T) {
	n := NewNamer(true)

	assert.Equal(t, "*token.repo", n.Name(Of[*repo]()))
	assert.Equal(t, "shape", n.Name("shape"))
	assert.Equal(t, "Empty String", n.Name(""))
	assert.Equal(t, Unknown, n.Name(42))

	kind, ok := n.KindOf("shape")
	assert.True(t, ok)
	assert.Equal(t, KindString, kind)
}

func TestNamer_WithoutDefaults(t *testing.T) {
	n := NewNamer(false)
	assert.Equal(t, Unknown, n.Name("shape"))

	n.Set(StringerNameStrategy())
	assert.Equal(t, "label:x", n.Name(label("x")))
}

func TestNamer_SetReplacesSameKind(t *testing.T) {
	n := NewNamer(true)
	n.Set(NameStrategy{
		Kind:  KindString,
		Match: func(t any) bool { _, ok := t.(string); return ok },
		Name:  func(t any) string { return "<" + t.(string) + ">" },
	})
	assert.Equal(t, "<shape>", n.Name("shape"))
}
