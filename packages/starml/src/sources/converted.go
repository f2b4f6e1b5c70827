package sources

import (
	"fmt"
	"reflect"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
)

// ConvertedSource exposes an inner source as another type. The input converter maps inner
// values outward and the output converter maps written values back; either may be nil.
type ConvertedSource struct {
	inner     ValueSource
	valueType reflect.Type
	input     converters.Converter
	output    converters.Converter
	value     any
	err       error
}

// NewConvertedSource wraps inner as valueType and converts its current value.
func NewConvertedSource(inner ValueSource, valueType reflect.Type, input, output converters.Converter) *ConvertedSource {
	s := &ConvertedSource{inner: inner, valueType: valueType, input: input, output: output}
	if s.CanRead() {
		s.convertInner()
	}
	return s
}

func (s *ConvertedSource) CanRead() bool           { return s.input != nil && s.inner.CanRead() }
func (s *ConvertedSource) CanWrite() bool          { return s.output != nil && s.inner.CanWrite() }
func (s *ConvertedSource) DisplayName() string     { return s.inner.DisplayName() }
func (s *ConvertedSource) ValueType() reflect.Type { return s.valueType }

// Inner returns the wrapped source
func (s *ConvertedSource) Inner() ValueSource {
	return s.inner
}

// Err returns the error of the most recent failed conversion
func (s *ConvertedSource) Err() error {
	return s.err
}

// Value returns the converted value, or the zero value when nothing could be converted.
func (s *ConvertedSource) Value() any {
	if s.value == nil {
		return reflect.Zero(s.valueType).Interface()
	}
	return s.value
}

// SetValue converts value back to the inner type and writes it to the inner source. The value
// then reads back through the input converter, if there is one.
func (s *ConvertedSource) SetValue(value any) error {
	if s.output == nil {
		return fmt.Errorf("%s: %w: no conversion from %s", s.DisplayName(), ErrReadOnly, s.valueType)
	}
	innerValue, err := s.output.Convert(value)
	if err != nil {
		return fmt.Errorf("%s: %w", s.DisplayName(), err)
	}
	if err := s.inner.SetValue(innerValue); err != nil {
		return err
	}
	if s.input == nil {
		s.value = value
		return nil
	}
	roundTrip, err := s.input.Convert(innerValue)
	if err != nil {
		s.value = value
		return nil
	}
	s.value = roundTrip
	return nil
}

// Update converts the inner value again if the inner source changed.
func (s *ConvertedSource) Update() bool {
	if !s.inner.Update() {
		return false
	}
	if s.CanRead() {
		s.convertInner()
	}
	return true
}

// Close closes the inner source
func (s *ConvertedSource) Close() error {
	return Close(s.inner)
}

func (s *ConvertedSource) convertInner() {
	value, err := s.input.Convert(s.inner.Value())
	if err != nil {
		s.err = fmt.Errorf("%s: %w", s.DisplayName(), err)
		return
	}
	s.value, s.err = value, nil
}
