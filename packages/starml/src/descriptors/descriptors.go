// Package descriptors exposes named properties, methods and events of arbitrary objects, so
// that bindings can read and write them without knowing their concrete types.
package descriptors

import (
	"reflect"
)

// PropertyDescriptor reads and writes one named property of a target object.
type PropertyDescriptor interface {
	Name() string
	ValueType() reflect.Type
	CanRead() bool
	CanWrite() bool
	GetValue(target any) (any, error)
	SetValue(target any, value any) error
}

// MethodDescriptor invokes one named method of a target object.
type MethodDescriptor interface {
	Name() string
	ArgumentTypes() []reflect.Type
	// ReturnType is nil for methods without a non-error result.
	ReturnType() reflect.Type
	Invoke(target any, args []any) (any, error)
}

// EventDescriptor subscribes handlers to one named event of a target object.
type EventDescriptor interface {
	Name() string
	// ArgumentType is the type of the single value passed to handlers.
	ArgumentType() reflect.Type
	Subscribe(target any, handler func(arg any)) (remove func(), err error)
}

// ObjectDescriptor describes the members of one type. Member names match ignoring case.
type ObjectDescriptor interface {
	TargetType() reflect.Type
	SupportsChangeNotifications() bool
	TryGetProperty(name string) (PropertyDescriptor, bool)
	TryGetMethod(name string) (MethodDescriptor, bool)
	TryGetEvent(name string) (EventDescriptor, bool)
}

// Factory produces descriptors for runtime types.
type Factory interface {
	GetObjectDescriptor(t reflect.Type) (ObjectDescriptor, error)
}

// PropertyChangeNotifier is implemented by objects that announce changes to their properties.
type PropertyChangeNotifier interface {
	OnPropertyChanged(handler func(name string)) (remove func())
}

// Notifier is an embeddable PropertyChangeNotifier.
type Notifier struct {
	handlers []*func(string)
}

// OnPropertyChanged adds a handler, returning a function that removes it
func (n *Notifier) OnPropertyChanged(handler func(name string)) func() {
	h := &handler
	n.handlers = append(n.handlers, h)
	return func() {
		for i, existing := range n.handlers {
			if existing == h {
				n.handlers = append(n.handlers[:i:i], n.handlers[i+1:]...)
				return
			}
		}
	}
}

// NotifyPropertyChanged calls every handler with the property name
func (n *Notifier) NotifyPropertyChanged(name string) {
	for _, h := range n.handlers {
		(*h)(name)
	}
}

// Event is a field-level event with one argument of type T. Exported Event fields are
// discovered by the reflection factory.
type Event[T any] struct {
	handlers []*func(T)
}

// Subscribe adds a handler, returning a function that removes it
func (e *Event[T]) Subscribe(handler func(T)) func() {
	h := &handler
	e.handlers = append(e.handlers, h)
	return func() {
		for i, existing := range e.handlers {
			if existing == h {
				e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

// Raise calls every handler with arg
func (e *Event[T]) Raise(arg T) {
	for _, h := range e.handlers {
		(*h)(arg)
	}
}

// HandlerCount returns the number of subscribed handlers
func (e *Event[T]) HandlerCount() int {
	return len(e.handlers)
}

func (e *Event[T]) argumentType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (e *Event[T]) subscribeAny(handler func(any)) func() {
	return e.Subscribe(func(arg T) { handler(arg) })
}

// anyEvent is implemented by *Event[T] for every T.
type anyEvent interface {
	argumentType() reflect.Type
	subscribeAny(handler func(any)) func()
}

var anyEventType = reflect.TypeFor[anyEvent]()
