package binding

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// Structural attribute names understood by the binder
const (
	IfAttribute      = "if"
	ContextAttribute = "context"
)

var (
	boolType = reflect.TypeFor[bool]()
	anyType  = reflect.TypeFor[any]()
)

// ViewFactory creates the views of a bound tree. Views are opaque to the binder apart from the
// properties and events their descriptors expose.
type ViewFactory interface {
	CreateView(tag string) (any, error)
	SetChildren(view any, children []any) error
}

// NodeBinder builds bound view trees from DOM nodes.
type NodeBinder struct {
	views       ViewFactory
	descriptors descriptors.Factory
	sources     *sources.Factory
	attributes  *AttributeBindingFactory
	events      *EventBindingFactory
	logger      *util.OnceLogger
}

// NewNodeBinder creates a new NodeBinder
func NewNodeBinder(views ViewFactory, descriptorFactory descriptors.Factory, sourceFactory *sources.Factory, logger *slog.Logger) *NodeBinder {
	onceLogger := util.NewOnceLogger(logger)
	return &NodeBinder{
		views:       views,
		descriptors: descriptorFactory,
		sources:     sourceFactory,
		attributes:  NewAttributeBindingFactory(descriptorFactory, sourceFactory),
		events:      NewEventBindingFactory(descriptorFactory, sourceFactory, onceLogger),
		logger:      onceLogger,
	}
}

// Logger returns the logger receiving binding warnings
func (b *NodeBinder) Logger() *util.OnceLogger {
	return b.logger
}

// Bind binds node and its descendants against context. Failures of single attributes, events
// or child nodes are logged and leave the rest of the tree bound; an error is returned only
// when the node itself cannot be created.
func (b *NodeBinder) Bind(node *dom.SNode, context *sources.BindingContext, scope sources.ResolutionScope) (*BoundNode, error) {
	bound := &BoundNode{Node: node, binder: b, parentContext: context, scope: scope}
	for _, attr := range node.Element.Attributes {
		if attr.Type != grammar.AttributeTypeStructural {
			continue
		}
		var err error
		switch strings.ToLower(attr.Name) {
		case IfAttribute:
			bound.condition, err = b.sources.GetValueSource(attr, context, scope, boolType)
			bound.negated = attr.IsNegated
		case ContextAttribute:
			bound.contextSource, err = b.sources.GetValueSource(attr, context, scope, anyType)
		case dom.OutletAttribute:
		default:
			b.warn(node, attr.Offset, "Unsupported structural attribute will be ignored", "attribute", attr.Name)
		}
		if err != nil {
			bound.Close()
			return nil, nodeError(node, err)
		}
	}
	if err := bound.build(); err != nil {
		bound.Close()
		return nil, err
	}
	return bound, nil
}

func (b *NodeBinder) warn(node *dom.SNode, offset int, msg string, args ...any) {
	key := fmt.Sprintf("%p:%d", node, offset)
	b.logger.Warn(key, msg, append([]any{"tag", node.Tag(), "offset", offset}, args...)...)
}

// NodeError is a failure to bind one element.
type NodeError struct {
	Tag    string
	Offset int
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("<%s> at offset %d: %v", e.Tag, e.Offset, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func nodeError(node *dom.SNode, err error) error {
	var existing *NodeError
	if errors.As(err, &existing) && existing.Tag == node.Tag() && existing.Offset == node.Offset {
		return err
	}
	return &NodeError{Tag: node.Tag(), Offset: node.Offset, Err: err}
}

// BoundNode is a DOM node bound to a view and a context. A node whose condition is false has no
// view until the condition becomes true.
type BoundNode struct {
	Node          *dom.SNode
	binder        *NodeBinder
	parentContext *sources.BindingContext
	scope         sources.ResolutionScope
	condition     sources.ValueSource
	negated       bool
	contextSource sources.ValueSource

	context    *sources.BindingContext
	view       any
	attributes []*AttributeBinding
	events     []*EventBinding
	children   []*BoundNode
}

// View returns the bound view, or nil when the node is hidden
func (n *BoundNode) View() any {
	return n.view
}

// Context returns the context the node's members bind against
func (n *BoundNode) Context() *sources.BindingContext {
	return n.context
}

// Children returns the bound child nodes
func (n *BoundNode) Children() []*BoundNode {
	return n.children
}

// Attributes returns the attribute bindings of the node
func (n *BoundNode) Attributes() []*AttributeBinding {
	return n.attributes
}

// Events returns the event bindings of the node
func (n *BoundNode) Events() []*EventBinding {
	return n.events
}

func (n *BoundNode) visible() bool {
	if n.condition == nil {
		return true
	}
	visible, _ := n.condition.Value().(bool)
	return visible != n.negated
}

// build creates the view, members and children for the current structural state.
func (n *BoundNode) build() error {
	n.closeContent()
	n.context = n.parentContext
	if n.contextSource != nil {
		if !n.contextSource.CanRead() {
			n.context = nil
		} else {
			pushed, err := sources.CreateContext(n.contextSource.Value(), n.binder.descriptors, n.parentContext)
			if err != nil {
				return nodeError(n.Node, err)
			}
			n.context = pushed
		}
	}
	if !n.visible() {
		return nil
	}
	view, err := n.binder.views.CreateView(n.Node.Tag())
	if err != nil {
		return nodeError(n.Node, err)
	}
	n.view = view
	for _, attr := range n.Node.Element.Attributes {
		if attr.Type == grammar.AttributeTypeStructural {
			continue
		}
		binding, err := n.binder.attributes.TryCreate(view, attr, n.context, n.scope)
		if err != nil {
			n.binder.warn(n.Node, attr.Offset, "Attribute binding failed and will be ignored", "error", err)
			continue
		}
		n.attributes = append(n.attributes, binding)
	}
	for _, event := range n.Node.Element.Events {
		binding, err := n.binder.events.TryCreate(view, event, n.context)
		if err != nil {
			n.binder.warn(n.Node, event.Offset, "Event binding failed and will be ignored", "error", err)
			continue
		}
		n.events = append(n.events, binding)
	}
	for _, child := range n.Node.ChildNodes {
		bound, err := n.binder.Bind(child, n.context, n.scope)
		if err != nil {
			n.binder.warn(child, child.Offset, "Child node could not be bound and will be ignored", "error", err)
			continue
		}
		n.children = append(n.children, bound)
	}
	return n.updateChildViews()
}

func (n *BoundNode) updateChildViews() error {
	if n.view == nil || len(n.Node.ChildNodes) == 0 {
		return nil
	}
	var views []any
	for _, child := range n.children {
		if child.view != nil {
			views = append(views, child.view)
		}
	}
	if err := n.binder.views.SetChildren(n.view, views); err != nil {
		return nodeError(n.Node, err)
	}
	return nil
}

// Update refreshes structural attributes, then property attributes, then children. It reports
// whether the node's view or any of its bindings changed.
func (n *BoundNode) Update() (bool, error) {
	structuralChanged := false
	if n.contextSource != nil && n.contextSource.Update() {
		structuralChanged = true
	}
	if n.condition != nil {
		wasVisible := n.view != nil
		n.condition.Update()
		if n.visible() != wasVisible {
			structuralChanged = true
		}
	}
	if structuralChanged {
		return true, n.build()
	}
	changed := false
	for _, attr := range n.attributes {
		updated, err := attr.Update(false)
		if err != nil {
			n.binder.warn(n.Node, attr.Attribute.Offset, "Attribute update failed", "error", err)
			continue
		}
		changed = changed || updated
	}
	childViewsChanged := false
	for _, child := range n.children {
		hadView := child.view
		updated, err := child.Update()
		if err != nil {
			n.binder.warn(child.Node, child.Node.Offset, "Child node update failed", "error", err)
		}
		changed = changed || updated
		if child.view != hadView {
			childViewsChanged = true
		}
	}
	if childViewsChanged {
		if err := n.updateChildViews(); err != nil {
			return true, err
		}
	}
	return changed, nil
}

// Close releases every binding in the subtree
func (n *BoundNode) Close() error {
	n.closeContent()
	if n.condition != nil {
		sources.Close(n.condition)
	}
	if n.contextSource != nil {
		sources.Close(n.contextSource)
	}
	return nil
}

func (n *BoundNode) closeContent() {
	for _, attr := range n.attributes {
		attr.Close()
	}
	for _, event := range n.events {
		event.Close()
	}
	for _, child := range n.children {
		child.Close()
	}
	n.view, n.attributes, n.events, n.children = nil, nil, nil, nil
}
