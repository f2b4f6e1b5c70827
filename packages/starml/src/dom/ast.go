package dom

import (
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
)

// SAttribute is the immutable DOM form of a parsed attribute
type SAttribute struct {
	Name            string
	Type            grammar.AttributeType
	IsNegated       bool
	ValueType       grammar.AttributeValueType
	Value           string
	ContextRedirect grammar.ContextRedirect
	Offset          int
}

// NewSAttribute creates a new SAttribute, copying all text out of the markup
func NewSAttribute(attr *grammar.Attribute) *SAttribute {
	return &SAttribute{
		Name:            strings.Clone(attr.Name),
		Type:            attr.Type,
		IsNegated:       attr.IsNegated,
		ValueType:       attr.ValueType,
		Value:           strings.Clone(attr.Value),
		ContextRedirect: cloneRedirect(attr.ContextRedirect()),
		Offset:          attr.Offset,
	}
}

// Visit visits the attribute with a visitor
func (a *SAttribute) Visit(visitor Visitor, context interface{}) interface{} {
	return visitor.VisitAttribute(a, context)
}

// SArgument is the immutable DOM form of an event argument
type SArgument struct {
	Expression      string
	ExpressionType  grammar.ArgumentExpressionType
	ContextRedirect grammar.ContextRedirect
}

// NewSArgument creates a new SArgument, copying all text out of the markup
func NewSArgument(arg *grammar.Argument) *SArgument {
	return &SArgument{
		Expression:      strings.Clone(arg.Expression),
		ExpressionType:  arg.ExpressionType,
		ContextRedirect: cloneRedirect(arg.ContextRedirect()),
	}
}

// SEvent is the immutable DOM form of an event binding
type SEvent struct {
	Name            string
	HandlerName     string
	Arguments       []*SArgument
	ContextRedirect grammar.ContextRedirect
	Offset          int
}

// NewSEvent creates a new SEvent, copying all text out of the markup
func NewSEvent(event *grammar.Event) *SEvent {
	var args []*SArgument
	for i := range event.Arguments {
		args = append(args, NewSArgument(&event.Arguments[i]))
	}
	return &SEvent{
		Name:            strings.Clone(event.Name),
		HandlerName:     strings.Clone(event.HandlerName),
		Arguments:       args,
		ContextRedirect: cloneRedirect(event.ContextRedirect()),
		Offset:          event.Offset,
	}
}

// Visit visits the event with a visitor
func (e *SEvent) Visit(visitor Visitor, context interface{}) interface{} {
	return visitor.VisitEvent(e, context)
}

// SElement is the per-node payload: a tag with its attributes and events
type SElement struct {
	Tag        string
	Attributes []*SAttribute
	Events     []*SEvent
}

// Attribute returns the first attribute of the given type whose name matches
// case-insensitively, or nil.
func (e *SElement) Attribute(attributeType grammar.AttributeType, name string) *SAttribute {
	for _, attr := range e.Attributes {
		if attr.Type == attributeType && strings.EqualFold(attr.Name, name) {
			return attr
		}
	}
	return nil
}

// SNode is one element of the document tree together with its children.
// ChildNodes is nil for a node without children.
type SNode struct {
	Element    *SElement
	ChildNodes []*SNode
	Offset     int
}

// Tag returns the node's tag name
func (n *SNode) Tag() string {
	return n.Element.Tag
}

// Visit visits the node with a visitor
func (n *SNode) Visit(visitor Visitor, context interface{}) interface{} {
	return visitor.VisitNode(n, context)
}

// Document is a parsed markup file: one root content node plus any number of templates.
type Document struct {
	Root      *SNode
	Templates []*SNode
}

// FindTemplate returns the template whose name attribute equals name, or nil
func (d *Document) FindTemplate(name string) *SNode {
	for _, template := range d.Templates {
		if TemplateName(template) == name {
			return template
		}
	}
	return nil
}

// TemplateName returns the literal name attribute of a template node.
func TemplateName(template *SNode) string {
	if attr := template.Element.Attribute(grammar.AttributeTypeProperty, "name"); attr != nil &&
		attr.ValueType == grammar.AttributeValueTypeLiteral {
		return attr.Value
	}
	return ""
}

func cloneRedirect(redirect grammar.ContextRedirect) grammar.ContextRedirect {
	if r, ok := redirect.(grammar.TypeRedirect); ok {
		return grammar.TypeRedirect{TypeName: strings.Clone(r.TypeName)}
	}
	return redirect
}
