package descriptors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// ReflectionFactory builds descriptors from runtime type information and caches them per type.
//
// Properties are exported struct fields, plus methods named X with no parameters and one
// result, optionally paired with a SetX method taking one value. Exported fields of type
// Event[T] are events. Every exported method is a method.
type ReflectionFactory struct {
	mu    sync.Mutex
	cache map[reflect.Type]*reflectionObject
}

// NewReflectionFactory creates a new ReflectionFactory
func NewReflectionFactory() *ReflectionFactory {
	return &ReflectionFactory{cache: map[reflect.Type]*reflectionObject{}}
}

// GetObjectDescriptor returns the cached descriptor for t, building it on first use.
func (f *ReflectionFactory) GetObjectDescriptor(t reflect.Type) (ObjectDescriptor, error) {
	if t == nil {
		return nil, errors.New("cannot describe a nil type")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cache[t]; ok {
		return cached, nil
	}
	descriptor := describe(t)
	f.cache[t] = descriptor
	return descriptor, nil
}

type reflectionObject struct {
	targetType reflect.Type
	notifies   bool
	properties map[string]PropertyDescriptor
	methods    map[string]MethodDescriptor
	events     map[string]EventDescriptor
}

func (o *reflectionObject) TargetType() reflect.Type {
	return o.targetType
}

func (o *reflectionObject) SupportsChangeNotifications() bool {
	return o.notifies
}

func (o *reflectionObject) TryGetProperty(name string) (PropertyDescriptor, bool) {
	p, ok := o.properties[strings.ToLower(name)]
	return p, ok
}

func (o *reflectionObject) TryGetMethod(name string) (MethodDescriptor, bool) {
	m, ok := o.methods[strings.ToLower(name)]
	return m, ok
}

func (o *reflectionObject) TryGetEvent(name string) (EventDescriptor, bool) {
	e, ok := o.events[strings.ToLower(name)]
	return e, ok
}

func describe(t reflect.Type) *reflectionObject {
	notifierType := reflect.TypeFor[PropertyChangeNotifier]()
	o := &reflectionObject{
		targetType: t,
		notifies:   t.Implements(notifierType) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(notifierType)),
		properties: map[string]PropertyDescriptor{},
		methods:    map[string]MethodDescriptor{},
		events:     map[string]EventDescriptor{},
	}
	structType := t
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() == reflect.Struct {
		for _, field := range reflect.VisibleFields(structType) {
			if !field.IsExported() || field.Anonymous || !exportedPath(structType, field.Index) {
				continue
			}
			key := strings.ToLower(field.Name)
			if reflect.PointerTo(field.Type).Implements(anyEventType) {
				argType := reflect.New(field.Type).Interface().(anyEvent).argumentType()
				o.events[key] = &fieldEvent{name: field.Name, index: field.Index, argType: argType}
				continue
			}
			o.properties[key] = &fieldProperty{name: field.Name, fieldType: field.Type, index: field.Index}
		}
	}

	methodSet := t
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		methodSet = reflect.PointerTo(t)
	}
	getters := map[string]reflect.Method{}
	setters := map[string]reflect.Method{}
	for i := 0; i < methodSet.NumMethod(); i++ {
		method := methodSet.Method(i)
		mt := method.Type
		offset := 1
		if methodSet.Kind() == reflect.Interface {
			offset = 0
		}
		o.methods[strings.ToLower(method.Name)] = newReflectionMethod(method.Name, mt, offset)
		switch {
		case mt.NumIn() == offset && mt.NumOut() == 1:
			getters[strings.ToLower(method.Name)] = method
		case strings.HasPrefix(method.Name, "Set") && len(method.Name) > 3 && mt.NumIn() == offset+1 &&
			(mt.NumOut() == 0 || (mt.NumOut() == 1 && mt.Out(0) == errorType)):
			setters[strings.ToLower(method.Name[3:])] = method
		}
	}
	for key, getter := range getters {
		if _, exists := o.properties[key]; exists {
			continue
		}
		property := &methodProperty{name: getter.Name, valueType: getter.Type.Out(0), getter: getter.Name}
		if setter, ok := setters[key]; ok && setter.Type.In(setter.Type.NumIn()-1) == property.valueType {
			property.setter = setter.Name
		}
		o.properties[key] = property
	}
	return o
}

// exportedPath reports whether every embedded struct along index is exported.
func exportedPath(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		field := t.Field(i)
		if !field.IsExported() {
			return false
		}
		t = field.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	}
	return true
}

// structValue dereferences target down to its struct value. The result is addressable when
// target is a pointer.
func structValue(target any) (reflect.Value, error) {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("target %T is nil", target)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target %T is not a struct", target)
	}
	return v, nil
}

// methodReceiver returns a value whose method set includes pointer receivers when possible.
func methodReceiver(target any) reflect.Value {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer && v.IsValid() {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		return ptr
	}
	return v
}

func assignable(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("value of type %s is not assignable to %s", v.Type(), t)
	}
	return v, nil
}

type fieldProperty struct {
	name      string
	fieldType reflect.Type
	index     []int
}

func (p *fieldProperty) Name() string            { return p.name }
func (p *fieldProperty) ValueType() reflect.Type { return p.fieldType }
func (p *fieldProperty) CanRead() bool           { return true }
func (p *fieldProperty) CanWrite() bool          { return true }

func (p *fieldProperty) GetValue(target any) (any, error) {
	v, err := structValue(target)
	if err != nil {
		return nil, err
	}
	field, err := v.FieldByIndexErr(p.index)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", p.name, err)
	}
	return field.Interface(), nil
}

func (p *fieldProperty) SetValue(target any, value any) error {
	v, err := structValue(target)
	if err != nil {
		return err
	}
	if !v.CanAddr() {
		return fmt.Errorf("cannot set property %s on non-pointer %T", p.name, target)
	}
	field, err := v.FieldByIndexErr(p.index)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.name, err)
	}
	rv, err := assignable(value, p.fieldType)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.name, err)
	}
	field.Set(rv)
	return nil
}

type methodProperty struct {
	name      string
	valueType reflect.Type
	getter    string
	setter    string
}

func (p *methodProperty) Name() string            { return p.name }
func (p *methodProperty) ValueType() reflect.Type { return p.valueType }
func (p *methodProperty) CanRead() bool           { return true }
func (p *methodProperty) CanWrite() bool          { return p.setter != "" }

func (p *methodProperty) GetValue(target any) (any, error) {
	method := methodReceiver(target).MethodByName(p.getter)
	if !method.IsValid() {
		return nil, fmt.Errorf("%T has no method %s", target, p.getter)
	}
	return method.Call(nil)[0].Interface(), nil
}

func (p *methodProperty) SetValue(target any, value any) error {
	if p.setter == "" {
		return fmt.Errorf("property %s is read-only", p.name)
	}
	if reflect.ValueOf(target).Kind() != reflect.Pointer {
		return fmt.Errorf("cannot set property %s on non-pointer %T", p.name, target)
	}
	rv, err := assignable(value, p.valueType)
	if err != nil {
		return fmt.Errorf("property %s: %w", p.name, err)
	}
	out := reflect.ValueOf(target).MethodByName(p.setter).Call([]reflect.Value{rv})
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

type reflectionMethod struct {
	name       string
	argTypes   []reflect.Type
	returnType reflect.Type
	returnsErr bool
}

func newReflectionMethod(name string, mt reflect.Type, offset int) *reflectionMethod {
	m := &reflectionMethod{name: name}
	for i := offset; i < mt.NumIn(); i++ {
		m.argTypes = append(m.argTypes, mt.In(i))
	}
	outs := mt.NumOut()
	if outs > 0 && mt.Out(outs-1) == errorType {
		m.returnsErr = true
		outs--
	}
	if outs > 0 {
		m.returnType = mt.Out(0)
	}
	return m
}

func (m *reflectionMethod) Name() string                  { return m.name }
func (m *reflectionMethod) ArgumentTypes() []reflect.Type { return m.argTypes }
func (m *reflectionMethod) ReturnType() reflect.Type      { return m.returnType }

func (m *reflectionMethod) Invoke(target any, args []any) (any, error) {
	if len(args) != len(m.argTypes) {
		return nil, fmt.Errorf("method %s takes %d arguments, got %d", m.name, len(m.argTypes), len(args))
	}
	method := methodReceiver(target).MethodByName(m.name)
	if !method.IsValid() {
		return nil, fmt.Errorf("%T has no method %s", target, m.name)
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := assignable(arg, m.argTypes[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, m.name, err)
		}
		in[i] = v
	}
	out := method.Call(in)
	if m.returnsErr {
		if errValue := out[len(out)-1]; !errValue.IsNil() {
			return nil, errValue.Interface().(error)
		}
	}
	if m.returnType == nil {
		return nil, nil
	}
	return out[0].Interface(), nil
}

type fieldEvent struct {
	name    string
	index   []int
	argType reflect.Type
}

func (e *fieldEvent) Name() string               { return e.name }
func (e *fieldEvent) ArgumentType() reflect.Type { return e.argType }

func (e *fieldEvent) Subscribe(target any, handler func(arg any)) (func(), error) {
	v, err := structValue(target)
	if err != nil {
		return nil, err
	}
	if !v.CanAddr() {
		return nil, fmt.Errorf("cannot subscribe to event %s on non-pointer %T", e.name, target)
	}
	field, err := v.FieldByIndexErr(e.index)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.name, err)
	}
	return field.Addr().Interface().(anyEvent).subscribeAny(handler), nil
}
