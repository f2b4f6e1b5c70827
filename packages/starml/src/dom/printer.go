package dom

import (
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
)

const indentUnit = "    "

// Print serializes a node and its descendants back to markup. Parsing the output yields a tree
// equal to node, apart from offsets.
func Print(node *SNode) string {
	var sb strings.Builder
	node.Visit(&printer{sb: &sb}, 0)
	return sb.String()
}

// PrintDocument serializes the root node followed by every template.
func PrintDocument(doc *Document) string {
	var sb strings.Builder
	p := &printer{sb: &sb}
	if doc.Root != nil {
		doc.Root.Visit(p, 0)
	}
	for _, template := range doc.Templates {
		sb.WriteString("\n")
		template.Visit(p, 0)
	}
	return sb.String()
}

// FormatAttributeValue renders the quoted value of an attribute, including binding braces,
// modifier and redirect.
func FormatAttributeValue(attr *SAttribute) string {
	if attr.ValueType == grammar.AttributeValueTypeLiteral {
		return `"` + attr.Value + `"`
	}
	return `"{` + bindingModifier(attr.ValueType) + grammar.RedirectString(attr.ContextRedirect) + attr.Value + `}"`
}

// FormatEvent renders the event handler expression including its boundaries.
func FormatEvent(event *SEvent) string {
	var sb strings.Builder
	sb.WriteString("|")
	sb.WriteString(grammar.RedirectString(event.ContextRedirect))
	sb.WriteString(event.HandlerName)
	if len(event.Arguments) > 0 {
		sb.WriteString("(")
		for i, arg := range event.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatArgument(arg))
		}
		sb.WriteString(")")
	}
	sb.WriteString("|")
	return sb.String()
}

func formatArgument(arg *SArgument) string {
	switch arg.ExpressionType {
	case grammar.ArgumentExpressionTypeLiteral:
		return `"` + arg.Expression + `"`
	case grammar.ArgumentExpressionTypeEventBinding:
		return "$" + arg.Expression
	case grammar.ArgumentExpressionTypeTemplateBinding:
		return "&" + arg.Expression
	}
	return grammar.RedirectString(arg.ContextRedirect) + arg.Expression
}

func bindingModifier(valueType grammar.AttributeValueType) string {
	switch valueType {
	case grammar.AttributeValueTypeAssetBinding:
		return "@"
	case grammar.AttributeValueTypeTranslationBinding:
		return "#"
	case grammar.AttributeValueTypeOneTimeBinding:
		return "<:"
	case grammar.AttributeValueTypeOutputBinding:
		return ">"
	case grammar.AttributeValueTypeTwoWayBinding:
		return "<>"
	case grammar.AttributeValueTypeTemplateBinding:
		return "&"
	}
	return ""
}

// printer writes markup for each visited node; the context is the indent depth.
type printer struct {
	sb *strings.Builder
}

func (p *printer) VisitNode(node *SNode, context interface{}) interface{} {
	depth := context.(int)
	indent := strings.Repeat(indentUnit, depth)
	p.sb.WriteString(indent)
	p.sb.WriteString("<")
	p.sb.WriteString(node.Element.Tag)
	for _, attr := range node.Element.Attributes {
		attr.Visit(p, context)
	}
	for _, event := range node.Element.Events {
		event.Visit(p, context)
	}
	if len(node.ChildNodes) == 0 {
		p.sb.WriteString(" />\n")
		return nil
	}
	p.sb.WriteString(">\n")
	VisitAll(p, node.ChildNodes, depth+1)
	p.sb.WriteString(indent)
	p.sb.WriteString("</")
	p.sb.WriteString(node.Element.Tag)
	p.sb.WriteString(">\n")
	return nil
}

func (p *printer) VisitAttribute(attr *SAttribute, context interface{}) interface{} {
	p.sb.WriteString(" ")
	if attr.Type == grammar.AttributeTypeStructural {
		p.sb.WriteString("*")
		if attr.IsNegated {
			p.sb.WriteString("!")
		}
	}
	p.sb.WriteString(attr.Name)
	p.sb.WriteString("=")
	p.sb.WriteString(FormatAttributeValue(attr))
	return nil
}

func (p *printer) VisitEvent(event *SEvent, context interface{}) interface{} {
	p.sb.WriteString(" ")
	p.sb.WriteString(event.Name)
	p.sb.WriteString("=")
	p.sb.WriteString(FormatEvent(event))
	return nil
}
