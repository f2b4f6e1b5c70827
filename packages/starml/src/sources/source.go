// Package sources provides value sources: pollable providers and consumers of bound values,
// read from literals, assets, translations or properties of a data context.
package sources

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

var (
	// ErrReadOnly is returned when writing to a source that cannot be written.
	ErrReadOnly = errors.New("value source is read-only")
	// ErrPropertyNotFound is returned when a context has no property with the bound name.
	ErrPropertyNotFound = errors.New("property not found")
)

// ValueSource holds the current value of one binding.
//
// Update refreshes the value when its origin changed and reports whether it did; it is
// idempotent while nothing changes. Sources that hold subscriptions also implement io.Closer.
type ValueSource interface {
	CanRead() bool
	CanWrite() bool
	// DisplayName describes the source in diagnostics.
	DisplayName() string
	ValueType() reflect.Type
	Value() any
	SetValue(value any) error
	Update() bool
}

// Close releases any subscriptions held by source.
func Close(source ValueSource) error {
	if closer, ok := source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Of is a typed view of a ValueSource whose ValueType is T.
type Of[T any] struct {
	ValueSource
}

// As returns a typed view of source, failing when its value type is not T.
func As[T any](source ValueSource) (Of[T], error) {
	if want := reflect.TypeFor[T](); source.ValueType() != want {
		return Of[T]{}, fmt.Errorf("source %s has type %s, not %s", source.DisplayName(), source.ValueType(), want)
	}
	return Of[T]{source}, nil
}

// Value returns the current value, or the zero value when there is none.
func (s Of[T]) Value() T {
	value, _ := s.ValueSource.Value().(T)
	return value
}

// SetValue writes a new value
func (s Of[T]) SetValue(value T) error {
	return s.ValueSource.SetValue(value)
}

// ConstantSource holds a fixed value.
type ConstantSource struct {
	value     any
	valueType reflect.Type
}

// NewConstantSource creates a new source for a fixed value of type valueType.
func NewConstantSource(value any, valueType reflect.Type) *ConstantSource {
	return &ConstantSource{value: value, valueType: valueType}
}

// Constant creates a source for a fixed typed value
func Constant[T any](value T) *ConstantSource {
	return NewConstantSource(value, reflect.TypeFor[T]())
}

func (s *ConstantSource) CanRead() bool           { return true }
func (s *ConstantSource) CanWrite() bool          { return false }
func (s *ConstantSource) ValueType() reflect.Type { return s.valueType }
func (s *ConstantSource) Value() any              { return s.value }
func (s *ConstantSource) Update() bool            { return false }

func (s *ConstantSource) DisplayName() string {
	return fmt.Sprintf("%q", fmt.Sprint(s.value))
}

func (s *ConstantSource) SetValue(any) error {
	return ErrReadOnly
}

// NullSource has no value. It stands in for bindings whose context is missing.
type NullSource struct {
	valueType reflect.Type
	name      string
}

// NewNullSource creates a new NullSource of valueType, described as name
func NewNullSource(valueType reflect.Type, name string) *NullSource {
	return &NullSource{valueType: valueType, name: name}
}

func (s *NullSource) CanRead() bool           { return false }
func (s *NullSource) CanWrite() bool          { return false }
func (s *NullSource) DisplayName() string     { return s.name }
func (s *NullSource) ValueType() reflect.Type { return s.valueType }
func (s *NullSource) Update() bool            { return false }
func (s *NullSource) SetValue(any) error      { return ErrReadOnly }

func (s *NullSource) Value() any {
	if s.valueType == nil {
		return nil
	}
	return reflect.Zero(s.valueType).Interface()
}

// ResolutionScope looks up localized strings.
type ResolutionScope interface {
	GetTranslation(key string) (string, bool)
}

// MapScope is a ResolutionScope backed by a map.
type MapScope map[string]string

// GetTranslation returns the translation for key
func (m MapScope) GetTranslation(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}

// TranslationSource holds a localized string resolved at construction. A missing translation
// resolves to the key itself.
type TranslationSource struct {
	key   string
	value string
	found bool
}

// NewTranslationSource resolves key in scope
func NewTranslationSource(scope ResolutionScope, key string) *TranslationSource {
	s := &TranslationSource{key: key, value: key}
	if scope != nil {
		if value, ok := scope.GetTranslation(key); ok {
			s.value, s.found = value, true
		}
	}
	return s
}

// Found reports whether the key had a translation
func (s *TranslationSource) Found() bool { return s.found }

func (s *TranslationSource) CanRead() bool           { return true }
func (s *TranslationSource) CanWrite() bool          { return false }
func (s *TranslationSource) DisplayName() string     { return "#" + s.key }
func (s *TranslationSource) ValueType() reflect.Type { return reflect.TypeFor[string]() }
func (s *TranslationSource) Value() any              { return s.value }
func (s *TranslationSource) Update() bool            { return false }
func (s *TranslationSource) SetValue(any) error      { return ErrReadOnly }
