package converters

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnsupportedConversion is returned when no converter exists between two types.
var ErrUnsupportedConversion = errors.New("unsupported conversion")

// Converter converts values of SourceType into values of DestinationType. Converters are
// stateless and may be shared.
type Converter interface {
	SourceType() reflect.Type
	DestinationType() reflect.Type
	// Convert converts value, which must be of SourceType, into a DestinationType value.
	Convert(value any) (any, error)
}

// Lookup resolves converters. Factories receive one to resolve conversions of member types.
type Lookup interface {
	TryGet(source, destination reflect.Type) (Converter, bool)
}

// Factory creates converters for type pairs that are not registered explicitly.
type Factory interface {
	// TryCreate returns a converter from source to destination, or false if this factory does
	// not handle the pair.
	TryCreate(lookup Lookup, source, destination reflect.Type) (Converter, bool)
}

// FactoryFunc adapts a function to the Factory interface
type FactoryFunc func(lookup Lookup, source, destination reflect.Type) (Converter, bool)

// TryCreate calls f
func (f FactoryFunc) TryCreate(lookup Lookup, source, destination reflect.Type) (Converter, bool) {
	return f(lookup, source, destination)
}

// Func is a Converter backed by a function.
type Func struct {
	Source      reflect.Type
	Destination reflect.Type
	Fn          func(value any) (any, error)
}

// NewFunc creates a new Func converter from a typed conversion function
func NewFunc[S, D any](fn func(S) (D, error)) *Func {
	return &Func{
		Source:      reflect.TypeFor[S](),
		Destination: reflect.TypeFor[D](),
		Fn: func(value any) (any, error) {
			s, _ := value.(S)
			return fn(s)
		},
	}
}

// SourceType returns the type converted from
func (f *Func) SourceType() reflect.Type {
	return f.Source
}

// DestinationType returns the type converted to
func (f *Func) DestinationType() reflect.Type {
	return f.Destination
}

// Convert calls the conversion function
func (f *Func) Convert(value any) (any, error) {
	return f.Fn(value)
}

// Typed is a type-safe view of a Converter from S to D.
type Typed[S, D any] struct {
	inner Converter
}

// NewTyped wraps a converter whose source and destination types are S and D
func NewTyped[S, D any](inner Converter) (Typed[S, D], error) {
	if inner.SourceType() != reflect.TypeFor[S]() || inner.DestinationType() != reflect.TypeFor[D]() {
		return Typed[S, D]{}, fmt.Errorf("converter %s -> %s cannot be used as %s -> %s",
			inner.SourceType(), inner.DestinationType(), reflect.TypeFor[S](), reflect.TypeFor[D]())
	}
	return Typed[S, D]{inner: inner}, nil
}

// Convert converts value
func (t Typed[S, D]) Convert(value S) (D, error) {
	var zero D
	if t.inner == nil {
		return zero, ErrUnsupportedConversion
	}
	result, err := t.inner.Convert(value)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(D), nil
}

// Untyped returns the wrapped converter
func (t Typed[S, D]) Untyped() Converter {
	return t.inner
}

// convertValue is the reflection form of Converter.Convert.
func convertValue(c Converter, value reflect.Value) (reflect.Value, error) {
	result, err := c.Convert(value.Interface())
	if err != nil {
		return reflect.Value{}, err
	}
	return valueOf(result, c.DestinationType()), nil
}

// valueOf returns v as a reflect.Value of type t; nil becomes the zero value.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t && rv.Type().AssignableTo(t) {
		converted := reflect.New(t).Elem()
		converted.Set(rv)
		return converted
	}
	return rv
}
