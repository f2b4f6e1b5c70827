package sources

import (
	"fmt"
	"reflect"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
)

var stringType = reflect.TypeFor[string]()

// Factory creates the value sources of attributes and event arguments, converted to the types
// their destinations require.
type Factory struct {
	converters *converters.Registry
	assets     AssetCache
}

// NewFactory creates a new Factory. assets may be nil when asset bindings are not used.
func NewFactory(registry *converters.Registry, assets AssetCache) *Factory {
	return &Factory{converters: registry, assets: assets}
}

// Converters returns the registry used for conversions
func (f *Factory) Converters() *converters.Registry {
	return f.converters
}

// GetValueSource creates the source of attr, as seen from context, with values of destType.
// Translation bindings resolve through scope.
func (f *Factory) GetValueSource(attr *dom.SAttribute, context *BindingContext, scope ResolutionScope, destType reflect.Type) (ValueSource, error) {
	switch attr.ValueType {
	case grammar.AttributeValueTypeLiteral:
		return f.literal(attr.Value, destType)
	case grammar.AttributeValueTypeAssetBinding:
		if f.assets == nil {
			return nil, fmt.Errorf("asset binding @%s requires an asset cache", attr.Value)
		}
		return NewAssetSource(f.assets, attr.Value, destType), nil
	case grammar.AttributeValueTypeTranslationBinding:
		return f.convert(NewTranslationSource(scope, attr.Value), destType, true, false)
	case grammar.AttributeValueTypeInputBinding, grammar.AttributeValueTypeOneTimeBinding,
		grammar.AttributeValueTypeOutputBinding, grammar.AttributeValueTypeTwoWayBinding:
		reads := attr.ValueType != grammar.AttributeValueTypeOutputBinding
		writes := attr.ValueType == grammar.AttributeValueTypeOutputBinding ||
			attr.ValueType == grammar.AttributeValueTypeTwoWayBinding
		allowUpdates := attr.ValueType == grammar.AttributeValueTypeInputBinding ||
			attr.ValueType == grammar.AttributeValueTypeTwoWayBinding
		return f.contextSource(attr.Value, context.Redirect(attr.ContextRedirect), destType, allowUpdates, reads, writes)
	}
	return nil, fmt.Errorf("attribute %s has an unresolved %s value", attr.Name, attr.ValueType)
}

// GetArgumentSource creates the source of an event argument with values of destType. Event
// arguments are supplied by the event itself and have no source.
func (f *Factory) GetArgumentSource(arg *dom.SArgument, context *BindingContext, destType reflect.Type) (ValueSource, error) {
	switch arg.ExpressionType {
	case grammar.ArgumentExpressionTypeLiteral:
		return f.literal(arg.Expression, destType)
	case grammar.ArgumentExpressionTypeContextBinding:
		return f.contextSource(arg.Expression, context.Redirect(arg.ContextRedirect), destType, true, true, false)
	}
	return nil, fmt.Errorf("argument %s has no source of its own (%s)", arg.Expression, arg.ExpressionType)
}

// literal converts literal text once; a literal that cannot be converted is an error.
func (f *Factory) literal(text string, destType reflect.Type) (ValueSource, error) {
	source, err := f.convert(NewConstantSource(text, stringType), destType, true, false)
	if err != nil {
		return nil, err
	}
	if converted, ok := source.(*ConvertedSource); ok && converted.Err() != nil {
		return nil, converted.Err()
	}
	return source, nil
}

func (f *Factory) contextSource(name string, context *BindingContext, destType reflect.Type, allowUpdates, reads, writes bool) (ValueSource, error) {
	if context == nil || context.Data == nil {
		return NewNullSource(destType, name), nil
	}
	source, err := NewContextPropertySource(context, name, allowUpdates)
	if err != nil {
		return nil, err
	}
	converted, err := f.convert(source, destType, reads, writes)
	if err != nil {
		source.Close()
		return nil, err
	}
	return converted, nil
}

// convert wraps source so its values have type destType, resolving the converters needed for
// each direction of flow.
func (f *Factory) convert(source ValueSource, destType reflect.Type, reads, writes bool) (ValueSource, error) {
	if source.ValueType() == destType {
		return source, nil
	}
	var input, output converters.Converter
	var err error
	if reads {
		if input, err = f.converters.Get(source.ValueType(), destType); err != nil {
			return nil, fmt.Errorf("%s: %w", source.DisplayName(), err)
		}
	}
	if writes {
		if output, err = f.converters.Get(destType, source.ValueType()); err != nil {
			return nil, fmt.Errorf("%s: %w", source.DisplayName(), err)
		}
	}
	return NewConvertedSource(source, destType, input, output), nil
}
