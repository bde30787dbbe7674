package container

import (
	"github.com/km-arc/go-dipend/framework/dependency"
)

// Binding implements the fluent registration API.
//
//	c.Bind("shape").Qualified("circle").ToBuilder(newCircle).Transient()
//	c.Bind(token.Of[*Service]()).To(dependency.New1(NewService)).Inject(0, "replica").Singleton()
type Binding struct {
	container *Container
	in        AddInput
}

// Bind starts a registration for tok. A nil tok falls back to the produced
// type of the constructor given to To.
func (c *Container) Bind(tok any) *Binding {
	return &Binding{container: c, in: AddInput{Token: tok}}
}

// Qualified adds qualifier tokens, turning the registration into a mapped one.
func (b *Binding) Qualified(qualifiers ...any) *Binding {
	b.in.CheckQualifier = true
	b.in.Qualifiers = append(b.in.Qualifiers, qualifiers...)
	return b
}

// To sets the constructor.
func (b *Binding) To(ctor *dependency.Constructor) *Binding {
	b.in.Constructor = ctor
	return b
}

// ToBuilder sets a zero-argument builder.
func (b *Binding) ToBuilder(builder dependency.Builder) *Binding {
	b.in.Builder = builder
	return b
}

// ToInstance sets a pre-built value.
func (b *Binding) ToInstance(instance any) *Binding {
	b.in.Instance = instance
	return b
}

// Inject selects a mapped dependency for the constructor parameter at index.
// It must follow To.
func (b *Binding) Inject(index int, qualifiers ...any) *Binding {
	if b.in.Constructor != nil {
		b.in.Constructor = b.in.Constructor.Inject(index, qualifiers...)
	}
	return b
}

// Singleton registers the binding as a singleton.
func (b *Binding) Singleton() error { return b.As(dependency.Singleton) }

// Transient registers the binding as transient.
func (b *Binding) Transient() error { return b.As(dependency.Transient) }

// PerContext registers the binding as context scoped.
func (b *Binding) PerContext() error { return b.As(dependency.Context) }

// As registers the binding under any lifecycle, including custom ones added
// with AddStrategy.
func (b *Binding) As(l dependency.Lifecycle) error {
	if b.in.Constructor == nil && b.in.Builder == nil && b.in.Instance == nil {
		return ErrConstructorRequired
	}
	in := b.in
	in.Lifecycle = l
	return b.container.Add(in)
}
