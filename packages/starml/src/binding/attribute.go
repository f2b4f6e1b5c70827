// Package binding connects parsed markup to views and data: attribute and event bindings, the
// node binder that builds a bound view tree, and the document view that keeps it current.
package binding

import (
	"fmt"
	"reflect"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
)

// Direction is the flow of data between a context and a view property.
type Direction int

const (
	// DirectionIn flows from the context to the view on every change
	DirectionIn Direction = iota
	// DirectionOneTime flows from the context to the view once
	DirectionOneTime
	// DirectionOut flows from the view to the context
	DirectionOut
	// DirectionInOut flows both ways
	DirectionInOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "In"
	case DirectionOneTime:
		return "OneTime"
	case DirectionOut:
		return "Out"
	case DirectionInOut:
		return "InOut"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// IsIn reports whether values flow into the view
func (d Direction) IsIn() bool {
	return d != DirectionOut
}

// IsOut reports whether values flow out of the view
func (d Direction) IsOut() bool {
	return d == DirectionOut || d == DirectionInOut
}

// DirectionOf returns the direction of an attribute value type. Literals, assets and
// translations flow in.
func DirectionOf(valueType grammar.AttributeValueType) Direction {
	switch valueType {
	case grammar.AttributeValueTypeOneTimeBinding:
		return DirectionOneTime
	case grammar.AttributeValueTypeOutputBinding:
		return DirectionOut
	case grammar.AttributeValueTypeTwoWayBinding:
		return DirectionInOut
	}
	return DirectionIn
}

// AttributeBinding keeps one view property in sync with its value source.
type AttributeBinding struct {
	Attribute *dom.SAttribute
	Direction Direction
	view      any
	property  descriptors.PropertyDescriptor
	source    sources.ValueSource
	lastOut   any
	hasOut    bool
}

// Source returns the value source of the binding
func (b *AttributeBinding) Source() sources.ValueSource {
	return b.source
}

// Update applies source changes to the view, or every readable value when force is set, and
// writes changed view values back to the source. It reports whether anything was written.
func (b *AttributeBinding) Update(force bool) (bool, error) {
	changed := false
	if b.Direction.IsIn() {
		if (b.source.Update() || force) && b.source.CanRead() {
			if err := b.property.SetValue(b.view, b.source.Value()); err != nil {
				return false, fmt.Errorf("%s: %w", b.Attribute.Name, err)
			}
			changed = true
			if b.Direction.IsOut() {
				b.lastOut, b.hasOut = b.source.Value(), true
			}
		}
	}
	if b.Direction.IsOut() {
		value, err := b.property.GetValue(b.view)
		if err != nil {
			return changed, fmt.Errorf("%s: %w", b.Attribute.Name, err)
		}
		if !b.hasOut || !equalValues(value, b.lastOut) {
			b.lastOut, b.hasOut = value, true
			if err := b.source.SetValue(value); err != nil {
				return changed, fmt.Errorf("%s: %w", b.Attribute.Name, err)
			}
			changed = true
		}
	}
	return changed, nil
}

// Close releases the value source
func (b *AttributeBinding) Close() error {
	return sources.Close(b.source)
}

// AttributeBindingFactory creates attribute bindings for views.
type AttributeBindingFactory struct {
	descriptors descriptors.Factory
	sources     *sources.Factory
}

// NewAttributeBindingFactory creates a new AttributeBindingFactory
func NewAttributeBindingFactory(descriptorFactory descriptors.Factory, sourceFactory *sources.Factory) *AttributeBindingFactory {
	return &AttributeBindingFactory{descriptors: descriptorFactory, sources: sourceFactory}
}

// TryCreate binds attr to the same-named property of view and applies its initial value.
func (f *AttributeBindingFactory) TryCreate(view any, attr *dom.SAttribute, context *sources.BindingContext, scope sources.ResolutionScope) (*AttributeBinding, error) {
	viewDescriptor, err := f.descriptors.GetObjectDescriptor(reflect.TypeOf(view))
	if err != nil {
		return nil, err
	}
	property, ok := viewDescriptor.TryGetProperty(attr.Name)
	if !ok {
		return nil, fmt.Errorf("%T has no property %s", view, attr.Name)
	}
	direction := DirectionOf(attr.ValueType)
	if direction.IsIn() && !property.CanWrite() {
		return nil, fmt.Errorf("property %s of %T cannot be written", property.Name(), view)
	}
	if direction.IsOut() && !property.CanRead() {
		return nil, fmt.Errorf("property %s of %T cannot be read", property.Name(), view)
	}
	source, err := f.sources.GetValueSource(attr, context, scope, property.ValueType())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", attr.Name, err)
	}
	binding := &AttributeBinding{
		Attribute: attr,
		Direction: direction,
		view:      view,
		property:  property,
		source:    source,
	}
	if _, err := binding.Update(true); err != nil {
		binding.Close()
		return nil, err
	}
	return binding, nil
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) {
		return false
	}
	if t.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
