package converters

import (
	"fmt"
	"reflect"
	"strings"
)

// DuckType is embedded in a struct to allow conversion into it from any struct with
// same-named members.
type DuckType struct{}

var duckTypeType = reflect.TypeFor[DuckType]()

// ConstructorParam describes one parameter of a registered constructor. Parameters are matched
// to source members by name, ignoring case; an Optional parameter without a matching member
// receives Default, or the zero value when Default is nil.
type ConstructorParam struct {
	Name     string
	Default  any
	Optional bool
}

type constructor struct {
	fn     reflect.Value
	params []ConstructorParam
}

// RegisterConstructor registers fn as a constructor for duck conversions into D. fn must be a
// function returning D, optionally followed by an error, with one parameter per param.
func RegisterConstructor[D any](r *Registry, fn any, params ...ConstructorParam) error {
	destination := reflect.TypeFor[D]()
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("constructor for %s must be a function, got %s", destination, ft)
	}
	if ft.NumOut() < 1 || ft.NumOut() > 2 || ft.Out(0) != destination ||
		(ft.NumOut() == 2 && ft.Out(1) != reflect.TypeFor[error]()) {
		return fmt.Errorf("constructor for %s must return %s or (%s, error), got %s",
			destination, destination, destination, ft)
	}
	if ft.IsVariadic() || ft.NumIn() != len(params) {
		return fmt.Errorf("constructor %s takes %d parameters but %d were described", ft, ft.NumIn(), len(params))
	}
	for i, param := range params {
		if param.Default != nil && !reflect.TypeOf(param.Default).AssignableTo(ft.In(i)) {
			return fmt.Errorf("default for parameter %s of %s is a %T, not %s",
				param.Name, destination, param.Default, ft.In(i))
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[destination] = append(r.constructors[destination], &constructor{fn: fv, params: params})
	r.resetLocked()
	return nil
}

func isDuckType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == duckTypeType {
			return true
		}
	}
	return false
}

// sourceMember reads one named value from a source struct: an exported field or a method with
// no parameters and one result.
type sourceMember struct {
	name       string
	memberType reflect.Type
	fieldIndex []int
	method     int
}

func (m *sourceMember) get(addressable reflect.Value) (reflect.Value, error) {
	if m.fieldIndex != nil {
		v, err := addressable.FieldByIndexErr(m.fieldIndex)
		if err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	}
	return addressable.Addr().Method(m.method).Call(nil)[0], nil
}

func sourceMembers(source reflect.Type) map[string]*sourceMember {
	members := map[string]*sourceMember{}
	for _, field := range reflect.VisibleFields(source) {
		if !field.IsExported() || field.Anonymous || !exportedPath(source, field.Index, true) {
			continue
		}
		key := strings.ToLower(field.Name)
		if _, exists := members[key]; !exists {
			members[key] = &sourceMember{name: field.Name, memberType: field.Type, fieldIndex: field.Index}
		}
	}
	ptrType := reflect.PointerTo(source)
	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		// Receiver is the first input.
		if method.Type.NumIn() != 1 || method.Type.NumOut() != 1 {
			continue
		}
		key := strings.ToLower(method.Name)
		if _, exists := members[key]; !exists {
			members[key] = &sourceMember{name: method.Name, memberType: method.Type.Out(0), method: i}
		}
	}
	return members
}

// exportedPath reports whether every embedded struct along index is exported, and therefore
// readable through reflection. Embedded pointers are only allowed when allowPointers is set.
func exportedPath(t reflect.Type, index []int, allowPointers bool) bool {
	for _, i := range index[:len(index)-1] {
		field := t.Field(i)
		if !field.IsExported() {
			return false
		}
		t = field.Type
		if t.Kind() == reflect.Pointer {
			if !allowPointers {
				return false
			}
			t = t.Elem()
		}
	}
	return true
}

type memberBinding struct {
	member    *sourceMember
	converter Converter
}

func (b *memberBinding) value(addressable reflect.Value) (reflect.Value, error) {
	v, err := b.member.get(addressable)
	if err != nil {
		return reflect.Value{}, err
	}
	result, err := convertValue(b.converter, v)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("member %s: %w", b.member.name, err)
	}
	return result, nil
}

type ctorArg struct {
	binding *memberBinding
	value   reflect.Value
}

type fieldBinding struct {
	memberBinding
	index []int
}

// duckConverter builds destination values from source structs.
type duckConverter struct {
	source      reflect.Type
	destination reflect.Type
	ctor        *constructor
	args        []ctorArg
	fields      []fieldBinding
}

func (c *duckConverter) SourceType() reflect.Type      { return c.source }
func (c *duckConverter) DestinationType() reflect.Type { return c.destination }

func (c *duckConverter) Convert(value any) (any, error) {
	src := reflect.New(c.source).Elem()
	if value != nil {
		src.Set(reflect.ValueOf(value))
	}
	dest := reflect.New(c.destination).Elem()
	if c.ctor != nil {
		in := make([]reflect.Value, len(c.args))
		for i, arg := range c.args {
			if arg.binding == nil {
				in[i] = arg.value
				continue
			}
			v, err := arg.binding.value(src)
			if err != nil {
				return nil, err
			}
			in[i] = v
		}
		out := c.ctor.fn.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		dest.Set(out[0])
	}
	for _, field := range c.fields {
		v, err := field.value(src)
		if err != nil {
			return nil, err
		}
		dest.FieldByIndex(field.index).Set(v)
	}
	return dest.Interface(), nil
}

// structDuck creates a conversion into an opted-in struct from any struct whose members match
// by name. The constructor satisfying the most parameters from source members is used, then any
// remaining exported destination fields are populated from same-named members.
func (r *Registry) structDuck(key typePair) (Converter, bool) {
	source, destination := key.source, key.destination
	if source.Kind() != reflect.Struct || !isDuckType(destination) {
		return nil, false
	}
	members := sourceMembers(source)
	bind := func(name string, target reflect.Type) *memberBinding {
		member, ok := members[strings.ToLower(name)]
		if !ok {
			return nil
		}
		converter, ok := r.resolve(member.memberType, target)
		if !ok {
			return nil
		}
		return &memberBinding{member: member, converter: converter}
	}

	converter := &duckConverter{source: source, destination: destination}
	matched := 0
	consumed := map[string]bool{}
	bestScore := -1
	for _, ctor := range r.constructors[destination] {
		args, score, ok := bindConstructor(ctor, bind)
		if !ok || score < bestScore || (score == bestScore && len(args) <= len(converter.args)) {
			continue
		}
		converter.ctor, converter.args, bestScore = ctor, args, score
	}
	if converter.ctor != nil {
		matched = bestScore
		for _, param := range converter.ctor.params {
			consumed[strings.ToLower(param.Name)] = true
		}
	}
	for _, field := range reflect.VisibleFields(destination) {
		if !field.IsExported() || field.Anonymous || consumed[strings.ToLower(field.Name)] ||
			!exportedPath(destination, field.Index, false) {
			continue
		}
		if binding := bind(field.Name, field.Type); binding != nil {
			converter.fields = append(converter.fields, fieldBinding{memberBinding: *binding, index: field.Index})
			matched++
		}
	}
	if matched == 0 {
		return nil, false
	}
	return converter, true
}

// bindConstructor resolves every parameter of ctor. The score counts parameters satisfied by
// source members; ok is false when a required parameter has no convertible member.
func bindConstructor(ctor *constructor, bind func(string, reflect.Type) *memberBinding) ([]ctorArg, int, bool) {
	ft := ctor.fn.Type()
	args := make([]ctorArg, len(ctor.params))
	score := 0
	for i, param := range ctor.params {
		paramType := ft.In(i)
		if binding := bind(param.Name, paramType); binding != nil {
			args[i] = ctorArg{binding: binding}
			score++
			continue
		}
		if !param.Optional {
			return nil, 0, false
		}
		args[i] = ctorArg{value: valueOf(param.Default, paramType)}
	}
	return args, score, true
}
