package sources

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
)

// BindingContext is the data a node's bindings resolve against, with its parent context for
// redirects.
type BindingContext struct {
	Data       any
	Descriptor descriptors.ObjectDescriptor
	Parent     *BindingContext
}

// CreateContext creates a context for data, described by factory. Nil data, including a nil
// pointer, yields a nil context.
func CreateContext(data any, factory descriptors.Factory, parent *BindingContext) (*BindingContext, error) {
	if data == nil {
		return nil, nil
	}
	if v := reflect.ValueOf(data); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	descriptor, err := factory.GetObjectDescriptor(reflect.TypeOf(data))
	if err != nil {
		return nil, fmt.Errorf("describe %T: %w", data, err)
	}
	return &BindingContext{Data: data, Descriptor: descriptor, Parent: parent}, nil
}

// Push creates a child context for data whose parent is c
func (c *BindingContext) Push(data any, factory descriptors.Factory) (*BindingContext, error) {
	return CreateContext(data, factory, c)
}

// Redirect returns the ancestor selected by redirect, c itself when redirect is nil, or nil when
// no ancestor matches.
func (c *BindingContext) Redirect(redirect grammar.ContextRedirect) *BindingContext {
	switch r := redirect.(type) {
	case nil:
		return c
	case grammar.DistanceRedirect:
		current := c
		for i := 0; i < r.Depth && current != nil; i++ {
			current = current.Parent
		}
		return current
	case grammar.TypeRedirect:
		for current := c; current != nil; current = current.Parent {
			if typeNameMatches(reflect.TypeOf(current.Data), r.TypeName) {
				return current
			}
		}
	}
	return nil
}

// Depth returns the number of ancestors of c
func (c *BindingContext) Depth() int {
	depth := 0
	for current := c; current != nil && current.Parent != nil; current = current.Parent {
		depth++
	}
	return depth
}

// String describes the context for diagnostics
func (c *BindingContext) String() string {
	if c == nil {
		return "<no context>"
	}
	return fmt.Sprintf("%T", c.Data)
}

func typeNameMatches(t reflect.Type, name string) bool {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && strings.EqualFold(t.Name(), name)
}
