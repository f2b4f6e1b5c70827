package converters

import (
	"fmt"
	"reflect"
	"sort"
)

var stringType = reflect.TypeFor[string]()

func newFunc(source, destination reflect.Type, fn func(value any) (any, error)) *Func {
	return &Func{Source: source, Destination: destination, Fn: fn}
}

// exactOrBase returns the explicit converter for the pair. Failing that, it looks for an
// explicit converter whose source is an embedded struct of the source type or an interface the
// source type implements.
func (r *Registry) exactOrBase(key typePair) (Converter, bool) {
	if converter, ok := r.exact[key]; ok {
		return converter, true
	}
	if converter, ok := r.embeddedBase(key.source, key.destination, nil); ok {
		return converter, true
	}
	var candidates []typePair
	for pair := range r.exact {
		if pair.destination == key.destination && pair.source.Kind() == reflect.Interface &&
			key.source.Implements(pair.source) {
			candidates = append(candidates, pair)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	// Prefer the most specific interface, then a stable order.
	sort.Slice(candidates, func(i, j int) bool {
		ni, nj := candidates[i].source.NumMethod(), candidates[j].source.NumMethod()
		if ni != nj {
			return ni > nj
		}
		return candidates[i].source.String() < candidates[j].source.String()
	})
	inner := r.exact[candidates[0]]
	return &baseConverter{source: key.source, inner: inner}, true
}

// embeddedBase walks embedded struct fields breadth first, nearest embedding first.
func (r *Registry) embeddedBase(source, destination reflect.Type, index []int) (Converter, bool) {
	if source.Kind() != reflect.Struct {
		return nil, false
	}
	var nested []reflect.StructField
	for i := 0; i < source.NumField(); i++ {
		field := source.Field(i)
		if !field.Anonymous || !field.IsExported() {
			continue
		}
		fieldType := field.Type
		if fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}
		fieldIndex := append(append([]int(nil), index...), i)
		if inner, ok := r.exact[typePair{fieldType, destination}]; ok {
			return &baseConverter{source: source, inner: inner, index: fieldIndex}, true
		}
		field.Index = fieldIndex
		nested = append(nested, field)
	}
	for _, field := range nested {
		fieldType := field.Type
		if fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}
		if converter, ok := r.embeddedBase(fieldType, destination, field.Index); ok {
			base := converter.(*baseConverter)
			return &baseConverter{source: source, inner: base.inner, index: base.index}, true
		}
	}
	return nil, false
}

// baseConverter applies a converter registered for a base of the source type.
type baseConverter struct {
	source reflect.Type
	inner  Converter
	// index locates the embedded base within the source; nil for interface bases.
	index []int
}

func (c *baseConverter) SourceType() reflect.Type      { return c.source }
func (c *baseConverter) DestinationType() reflect.Type { return c.inner.DestinationType() }

func (c *baseConverter) Convert(value any) (any, error) {
	if c.index == nil {
		return c.inner.Convert(value)
	}
	base, err := embeddedValue(reflect.ValueOf(value), c.index)
	if err != nil {
		return nil, err
	}
	return c.inner.Convert(base.Interface())
}

// embeddedValue follows index through the struct, dereferencing embedded pointers. A nil
// embedded pointer is an error.
func embeddedValue(v reflect.Value, index []int) (reflect.Value, error) {
	for _, i := range index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, fmt.Errorf("embedded base of %s is nil", v.Type())
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("embedded base %s is nil", v.Type())
		}
		v = v.Elem()
	}
	return v, nil
}

func identityRule(_ *Registry, key typePair) (Converter, bool) {
	if key.source != key.destination {
		return nil, false
	}
	return newFunc(key.source, key.destination, func(value any) (any, error) {
		return value, nil
	}), true
}

func isAnyType(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

// anyCastRule boxes values into an empty interface, and unboxes them by converting from
// whatever dynamic type the interface holds at conversion time.
func anyCastRule(r *Registry, key typePair) (Converter, bool) {
	switch {
	case isAnyType(key.destination):
		return newFunc(key.source, key.destination, func(value any) (any, error) {
			return value, nil
		}), true
	case isAnyType(key.source):
		destination := key.destination
		return newFunc(key.source, destination, func(value any) (any, error) {
			if value == nil {
				return reflect.Zero(destination).Interface(), nil
			}
			dynamicType := reflect.TypeOf(value)
			if dynamicType == destination {
				return value, nil
			}
			converter, err := r.Get(dynamicType, destination)
			if err != nil {
				return nil, err
			}
			return converter.Convert(value)
		}), true
	}
	return nil, false
}

// assignableRule casts between assignable types, and between numeric types that are not
// registered enums.
func assignableRule(r *Registry, key typePair) (Converter, bool) {
	destination := key.destination
	if key.source.AssignableTo(destination) {
		return newFunc(key.source, destination, func(value any) (any, error) {
			return valueOf(value, destination).Interface(), nil
		}), true
	}
	if !isNumeric(key.source) || !isNumeric(destination) {
		return nil, false
	}
	if _, ok := r.enums[key.source]; ok {
		return nil, false
	}
	if _, ok := r.enums[destination]; ok {
		return nil, false
	}
	return newFunc(key.source, destination, func(value any) (any, error) {
		return reflect.ValueOf(value).Convert(destination).Interface(), nil
	}), true
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// nullable converts to and from pointers by converting the pointed-to values. A nil source
// converts to the zero destination.
func (r *Registry) nullable(key typePair) (Converter, bool) {
	source, destination := key.source, key.destination
	sourceIsPtr := source.Kind() == reflect.Pointer
	destIsPtr := destination.Kind() == reflect.Pointer
	if !sourceIsPtr && !destIsPtr {
		return nil, false
	}
	innerSource, innerDest := source, destination
	if sourceIsPtr {
		innerSource = source.Elem()
	}
	if destIsPtr {
		innerDest = destination.Elem()
	}
	inner, ok := r.resolve(innerSource, innerDest)
	if !ok {
		return nil, false
	}
	return newFunc(source, destination, func(value any) (any, error) {
		v := reflect.ValueOf(value)
		if !v.IsValid() || (sourceIsPtr && v.IsNil()) {
			return reflect.Zero(destination).Interface(), nil
		}
		if sourceIsPtr {
			v = v.Elem()
		}
		result, err := convertValue(inner, v)
		if err != nil {
			return nil, err
		}
		if !destIsPtr {
			return result.Interface(), nil
		}
		ptr := reflect.New(innerDest)
		ptr.Elem().Set(result)
		return ptr.Interface(), nil
	}), true
}

func toStringRule(_ *Registry, key typePair) (Converter, bool) {
	if key.destination != stringType {
		return nil, false
	}
	return newFunc(key.source, key.destination, func(value any) (any, error) {
		return fmt.Sprint(value), nil
	}), true
}
