package converters

import (
	"fmt"
	"reflect"
	"strings"
)

// Enum is the constraint for enumeration types: comparable values that name themselves.
type Enum interface {
	comparable
	fmt.Stringer
}

type enumInfo struct {
	enumType reflect.Type
	// byName maps lower-cased member names to values.
	byName map[string]reflect.Value
	names  []string
}

// RegisterEnum declares the members of enumeration type E. Registered enums convert to and from
// strings by member name, ignoring case, and to other registered enums by matching names.
func RegisterEnum[E Enum](r *Registry, values ...E) {
	info := &enumInfo{
		enumType: reflect.TypeFor[E](),
		byName:   map[string]reflect.Value{},
	}
	for _, value := range values {
		name := value.String()
		info.byName[strings.ToLower(name)] = reflect.ValueOf(value)
		info.names = append(info.names, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[info.enumType] = info
	r.resetLocked()
}

func (e *enumInfo) nameOf(v reflect.Value) (string, bool) {
	for _, name := range e.names {
		if e.byName[strings.ToLower(name)].Equal(v) {
			return name, true
		}
	}
	return "", false
}

func (r *Registry) enumName(key typePair) (Converter, bool) {
	if key.source == stringType {
		info, ok := r.enums[key.destination]
		if !ok {
			return nil, false
		}
		return newFunc(key.source, key.destination, func(value any) (any, error) {
			name := strings.TrimSpace(value.(string))
			v, ok := info.byName[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("%q is not a member of %s; expected one of %s",
					name, info.enumType, strings.Join(info.names, ", "))
			}
			return v.Interface(), nil
		}), true
	}
	if key.destination == stringType {
		info, ok := r.enums[key.source]
		if !ok {
			return nil, false
		}
		return newFunc(key.source, key.destination, func(value any) (any, error) {
			if name, ok := info.nameOf(reflect.ValueOf(value)); ok {
				return name, nil
			}
			return fmt.Sprint(value), nil
		}), true
	}
	return nil, false
}

// enumDuck converts between two registered enums by member name. Source members without a
// counterpart convert to the destination's zero value.
func (r *Registry) enumDuck(key typePair) (Converter, bool) {
	source, sourceOk := r.enums[key.source]
	destination, destOk := r.enums[key.destination]
	if !sourceOk || !destOk {
		return nil, false
	}
	zero := reflect.Zero(key.destination).Interface()
	return newFunc(key.source, key.destination, func(value any) (any, error) {
		name, ok := source.nameOf(reflect.ValueOf(value))
		if !ok {
			return zero, nil
		}
		if v, ok := destination.byName[strings.ToLower(name)]; ok {
			return v.Interface(), nil
		}
		return zero, nil
	}), true
}
