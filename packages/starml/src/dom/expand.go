package dom

import (
	"fmt"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// MaxTemplateDepth bounds nested template expansion, which would otherwise not terminate for a
// template that references itself.
const MaxTemplateDepth = 32

// Expander replaces every node whose tag names a document template with the template's
// expansion, recursively.
type Expander struct {
	doc          *Document
	logger       *util.OnceLogger
	transformers map[*SNode]*TemplateTransformer
}

// NewExpander creates a new Expander for the templates of doc
func NewExpander(doc *Document, logger *util.OnceLogger) *Expander {
	if logger == nil {
		logger = util.NewOnceLogger(nil)
	}
	return &Expander{doc: doc, logger: logger, transformers: map[*SNode]*TemplateTransformer{}}
}

// ExpandTemplates returns the root of doc with all template references expanded. The root
// itself must expand to exactly one node.
func ExpandTemplates(doc *Document, logger *util.OnceLogger) (*SNode, error) {
	if len(doc.Templates) == 0 {
		return doc.Root, nil
	}
	nodes, err := NewExpander(doc, logger).Expand(doc.Root)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("root <%s> expanded to %d nodes; a document root must be a single node",
			doc.Root.Tag(), len(nodes))
	}
	return nodes[0], nil
}

// Expand expands node and its descendants.
func (e *Expander) Expand(node *SNode) ([]*SNode, error) {
	return e.expand(node, 0)
}

func (e *Expander) expand(node *SNode, depth int) ([]*SNode, error) {
	if template := e.doc.FindTemplate(node.Tag()); template != nil {
		if depth >= MaxTemplateDepth {
			return nil, fmt.Errorf("template <%s> exceeded the maximum expansion depth of %d",
				node.Tag(), MaxTemplateDepth)
		}
		var result []*SNode
		for _, expanded := range e.transformer(template).Transform(node) {
			nodes, err := e.expand(expanded, depth+1)
			if err != nil {
				return nil, err
			}
			result = append(result, nodes...)
		}
		return result, nil
	}
	if len(node.ChildNodes) == 0 {
		return []*SNode{node}, nil
	}
	var children []*SNode
	for _, child := range node.ChildNodes {
		nodes, err := e.expand(child, depth)
		if err != nil {
			return nil, err
		}
		children = append(children, nodes...)
	}
	return []*SNode{{Element: node.Element, ChildNodes: children, Offset: node.Offset}}, nil
}

func (e *Expander) transformer(template *SNode) *TemplateTransformer {
	t, ok := e.transformers[template]
	if !ok {
		t = NewTemplateTransformer(template, e.logger)
		e.transformers[template] = t
	}
	return t
}
