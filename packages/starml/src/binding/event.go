package binding

import (
	"fmt"
	"reflect"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// eventArgument produces one argument of a handler call.
type eventArgument interface {
	value(eventArg any) (any, error)
	close()
}

type sourceArgument struct {
	source sources.ValueSource
}

func (a *sourceArgument) value(any) (any, error) {
	a.source.Update()
	return a.source.Value(), nil
}

func (a *sourceArgument) close() {
	sources.Close(a.source)
}

// eventPropertyArgument reads a property of the value the event was raised with.
type eventPropertyArgument struct {
	property  descriptors.PropertyDescriptor
	converter converters.Converter
}

func (a *eventPropertyArgument) value(eventArg any) (any, error) {
	value, err := a.property.GetValue(eventArg)
	if err != nil {
		return nil, err
	}
	if a.converter == nil {
		return value, nil
	}
	return a.converter.Convert(value)
}

func (a *eventPropertyArgument) close() {}

// EventBinding calls a context method whenever a view event is raised.
type EventBinding struct {
	Event   *dom.SEvent
	remove  func()
	args    []eventArgument
	invokes int
}

// Invocations returns the number of handler calls made so far
func (b *EventBinding) Invocations() int {
	return b.invokes
}

// Close unsubscribes from the view event and releases argument sources
func (b *EventBinding) Close() error {
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
	for _, arg := range b.args {
		arg.close()
	}
	return nil
}

// EventBindingFactory creates event bindings for views.
type EventBindingFactory struct {
	descriptors descriptors.Factory
	sources     *sources.Factory
	logger      *util.OnceLogger
}

// NewEventBindingFactory creates a new EventBindingFactory
func NewEventBindingFactory(descriptorFactory descriptors.Factory, sourceFactory *sources.Factory, logger *util.OnceLogger) *EventBindingFactory {
	return &EventBindingFactory{descriptors: descriptorFactory, sources: sourceFactory, logger: logger}
}

// TryCreate subscribes to the event of view named by event, calling its handler on the
// redirected context. Handler failures are logged, not returned to the view.
func (f *EventBindingFactory) TryCreate(view any, event *dom.SEvent, context *sources.BindingContext) (*EventBinding, error) {
	viewDescriptor, err := f.descriptors.GetObjectDescriptor(reflect.TypeOf(view))
	if err != nil {
		return nil, err
	}
	viewEvent, ok := viewDescriptor.TryGetEvent(event.Name)
	if !ok {
		return nil, fmt.Errorf("%T has no event %s", view, event.Name)
	}
	handlerContext := context.Redirect(event.ContextRedirect)
	if handlerContext == nil || handlerContext.Data == nil {
		return nil, fmt.Errorf("event %s has no context for handler %s", event.Name, event.HandlerName)
	}
	method, ok := handlerContext.Descriptor.TryGetMethod(event.HandlerName)
	if !ok {
		return nil, fmt.Errorf("%T has no method %s", handlerContext.Data, event.HandlerName)
	}
	argTypes := method.ArgumentTypes()
	if len(argTypes) != len(event.Arguments) {
		return nil, fmt.Errorf("handler %s takes %d arguments but %d were given",
			event.HandlerName, len(argTypes), len(event.Arguments))
	}

	binding := &EventBinding{Event: event}
	for i, arg := range event.Arguments {
		created, err := f.argument(arg, context, viewEvent.ArgumentType(), argTypes[i])
		if err != nil {
			binding.Close()
			return nil, fmt.Errorf("argument %d of %s: %w", i, event.HandlerName, err)
		}
		binding.args = append(binding.args, created)
	}
	data := handlerContext.Data
	remove, err := viewEvent.Subscribe(view, func(eventArg any) {
		values := make([]any, len(binding.args))
		for i, arg := range binding.args {
			value, err := arg.value(eventArg)
			if err != nil {
				f.logger.Logger().Error("Event argument failed", "event", event.Name, "handler", event.HandlerName, "error", err)
				return
			}
			values[i] = value
		}
		binding.invokes++
		if _, err := method.Invoke(data, values); err != nil {
			f.logger.Logger().Error("Event handler failed", "event", event.Name, "handler", event.HandlerName, "error", err)
		}
	})
	if err != nil {
		binding.Close()
		return nil, err
	}
	binding.remove = remove
	return binding, nil
}

func (f *EventBindingFactory) argument(arg *dom.SArgument, context *sources.BindingContext, eventArgType, destType reflect.Type) (eventArgument, error) {
	if arg.ExpressionType != grammar.ArgumentExpressionTypeEventBinding {
		source, err := f.sources.GetArgumentSource(arg, context, destType)
		if err != nil {
			return nil, err
		}
		return &sourceArgument{source: source}, nil
	}
	eventDescriptor, err := f.descriptors.GetObjectDescriptor(eventArgType)
	if err != nil {
		return nil, err
	}
	property, ok := eventDescriptor.TryGetProperty(arg.Expression)
	if !ok {
		return nil, fmt.Errorf("event argument %s has no property %s", eventArgType, arg.Expression)
	}
	result := &eventPropertyArgument{property: property}
	if property.ValueType() != destType {
		if result.converter, err = f.sources.Converters().Get(property.ValueType(), destType); err != nil {
			return nil, err
		}
	}
	return result, nil
}
