package dom

import (
	"fmt"
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

const (
	// OutletTag is the tag of placeholders in a template body that receive caller content
	OutletTag = "outlet"
	// OutletAttribute is the structural attribute that routes caller content to a named outlet
	OutletAttribute = "outlet"
)

// TemplateTransformer expands nodes that reference a template into the template's body.
type TemplateTransformer struct {
	template *SNode
	name     string
	logger   *util.OnceLogger
}

// NewTemplateTransformer creates a new TemplateTransformer for a template node. A nil logger
// logs to slog.Default().
func NewTemplateTransformer(template *SNode, logger *util.OnceLogger) *TemplateTransformer {
	if logger == nil {
		logger = util.NewOnceLogger(nil)
	}
	return &TemplateTransformer{
		template: template,
		name:     TemplateName(template),
		logger:   logger,
	}
}

// transformScope holds what the calling node contributes to one expansion.
type transformScope struct {
	caller     *SNode
	attributes map[string]*SAttribute
	structural []*SAttribute
	// topLevel also offers the structural attributes, which only the template's own top-level
	// nodes may bind to.
	topLevel map[string]*SAttribute
	content    []*SNode
	outlets    map[string][]*SNode
}

// Transform expands node, whose tag names the template, into new nodes built from the
// template body. Neither node nor the template is modified.
func (t *TemplateTransformer) Transform(node *SNode) []*SNode {
	scope := &transformScope{
		caller:     node,
		attributes: map[string]*SAttribute{},
		outlets:    map[string][]*SNode{},
	}
	for _, attr := range node.Element.Attributes {
		if attr.Type == grammar.AttributeTypeStructural {
			if !strings.EqualFold(attr.Name, OutletAttribute) {
				scope.structural = append(scope.structural, attr)
			}
			continue
		}
		key := strings.ToLower(attr.Name)
		if _, exists := scope.attributes[key]; !exists {
			scope.attributes[key] = attr
		}
	}
	scope.topLevel = make(map[string]*SAttribute, len(scope.attributes)+len(scope.structural))
	for key, attr := range scope.attributes {
		scope.topLevel[key] = attr
	}
	for _, attr := range scope.structural {
		key := strings.ToLower(attr.Name)
		if _, exists := scope.topLevel[key]; !exists {
			scope.topLevel[key] = attr
		}
	}
	for _, child := range node.ChildNodes {
		name, content := t.outletContent(child)
		if name == "" {
			scope.content = append(scope.content, content)
		} else {
			scope.outlets[name] = append(scope.outlets[name], content)
		}
	}

	var result []*SNode
	for _, bodyNode := range t.template.ChildNodes {
		for _, expanded := range t.transformNode(scope, bodyNode, 0) {
			result = append(result, propagate(expanded, scope.structural))
		}
	}
	return result
}

// outletContent returns the outlet that a caller child targets and the child without its
// outlet attribute.
func (t *TemplateTransformer) outletContent(child *SNode) (string, *SNode) {
	attr := child.Element.Attribute(grammar.AttributeTypeStructural, OutletAttribute)
	if attr == nil {
		return "", child
	}
	name := attr.Value
	if attr.ValueType != grammar.AttributeValueTypeLiteral {
		t.warn(child.Offset, "outlet-value",
			"Outlet attribute must be a literal value; the content will be placed in the default outlet",
			"tag", child.Tag(), "valueType", attr.ValueType.String())
		name = ""
	}
	element := &SElement{Tag: child.Element.Tag, Events: child.Element.Events}
	for _, a := range child.Element.Attributes {
		if a != attr {
			element.Attributes = append(element.Attributes, a)
		}
	}
	return name, &SNode{Element: element, ChildNodes: child.ChildNodes, Offset: child.Offset}
}

func (t *TemplateTransformer) transformNode(scope *transformScope, node *SNode, depth int) []*SNode {
	if strings.EqualFold(node.Tag(), OutletTag) {
		return t.outlet(scope, node)
	}
	pool := scope.attributes
	if depth == 0 {
		pool = scope.topLevel
	}
	element := &SElement{Tag: node.Element.Tag}
	for _, attr := range node.Element.Attributes {
		if attr.ValueType != grammar.AttributeValueTypeTemplateBinding {
			element.Attributes = append(element.Attributes, attr)
			continue
		}
		source := pool[strings.ToLower(attr.Value)]
		if source == nil {
			t.warn(attr.Offset, "attribute:"+attr.Name,
				"Template attribute binding has no matching attribute on the calling node and will be ignored",
				"attribute", attr.Name, "source", attr.Value, "tag", scope.caller.Tag())
			continue
		}
		element.Attributes = append(element.Attributes, &SAttribute{
			Name:            attr.Name,
			Type:            attr.Type,
			IsNegated:       attr.IsNegated,
			ValueType:       source.ValueType,
			Value:           source.Value,
			ContextRedirect: source.ContextRedirect,
			Offset:          attr.Offset,
		})
	}
	for _, event := range node.Element.Events {
		if substituted := t.transformEvent(scope, pool, event); substituted != nil {
			element.Events = append(element.Events, substituted)
		}
	}
	result := &SNode{Element: element, Offset: node.Offset}
	for _, child := range node.ChildNodes {
		result.ChildNodes = append(result.ChildNodes, t.transformNode(scope, child, depth+1)...)
	}
	return []*SNode{result}
}

func (t *TemplateTransformer) outlet(scope *transformScope, node *SNode) []*SNode {
	attr := node.Element.Attribute(grammar.AttributeTypeProperty, "name")
	if attr == nil || attr.Value == "" {
		return scope.content
	}
	if attr.ValueType != grammar.AttributeValueTypeLiteral {
		t.warn(attr.Offset, "outlet-name",
			"Outlet name must be a literal value; the default outlet will be used",
			"valueType", attr.ValueType.String())
		return scope.content
	}
	return scope.outlets[attr.Value]
}

// transformEvent substitutes template-bound arguments. It returns nil, dropping the event, when
// any of them cannot be resolved.
func (t *TemplateTransformer) transformEvent(scope *transformScope, pool map[string]*SAttribute, event *SEvent) *SEvent {
	hasTemplateArgs := false
	for _, arg := range event.Arguments {
		if arg.ExpressionType == grammar.ArgumentExpressionTypeTemplateBinding {
			hasTemplateArgs = true
			break
		}
	}
	if !hasTemplateArgs {
		return event
	}
	args := make([]*SArgument, 0, len(event.Arguments))
	for _, arg := range event.Arguments {
		if arg.ExpressionType != grammar.ArgumentExpressionTypeTemplateBinding {
			args = append(args, arg)
			continue
		}
		source := pool[strings.ToLower(arg.Expression)]
		substituted, ok := argumentFromAttribute(source)
		if !ok {
			t.warn(event.Offset, "event:"+event.Name+":"+arg.Expression,
				"Template argument binding could not be resolved; the event binding will be ignored",
				"event", event.Name, "argument", arg.Expression, "tag", scope.caller.Tag())
			return nil
		}
		args = append(args, substituted)
	}
	return &SEvent{
		Name:            event.Name,
		HandlerName:     event.HandlerName,
		Arguments:       args,
		ContextRedirect: event.ContextRedirect,
		Offset:          event.Offset,
	}
}

// argumentFromAttribute converts a caller attribute into an event argument. Only literals and
// context bindings have an argument form.
func argumentFromAttribute(attr *SAttribute) (*SArgument, bool) {
	switch {
	case attr == nil:
		return nil, false
	case attr.ValueType == grammar.AttributeValueTypeLiteral:
		return &SArgument{Expression: attr.Value, ExpressionType: grammar.ArgumentExpressionTypeLiteral}, true
	case attr.ValueType.IsContextBinding():
		return &SArgument{
			Expression:      attr.Value,
			ExpressionType:  grammar.ArgumentExpressionTypeContextBinding,
			ContextRedirect: attr.ContextRedirect,
		}, true
	}
	return nil, false
}

// propagate copies the caller's structural attributes onto an expanded top-level node. An
// attribute the node already has under the same name takes precedence.
func propagate(node *SNode, structural []*SAttribute) *SNode {
	if len(structural) == 0 {
		return node
	}
	attributes := append([]*SAttribute(nil), node.Element.Attributes...)
	for _, attr := range structural {
		if node.Element.Attribute(grammar.AttributeTypeStructural, attr.Name) == nil {
			attributes = append(attributes, attr)
		}
	}
	element := &SElement{Tag: node.Element.Tag, Attributes: attributes, Events: node.Element.Events}
	return &SNode{Element: element, ChildNodes: node.ChildNodes, Offset: node.Offset}
}

func (t *TemplateTransformer) warn(offset int, key, msg string, args ...any) {
	args = append([]any{"template", t.name, "offset", offset}, args...)
	t.logger.Warn(fmt.Sprintf("%s@%d:%s", t.name, offset, key), msg, args...)
}
