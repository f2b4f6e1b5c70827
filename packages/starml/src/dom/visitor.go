package dom

// Visitor is the interface for visiting DOM records
type Visitor interface {
	VisitNode(node *SNode, context interface{}) interface{}
	VisitAttribute(attr *SAttribute, context interface{}) interface{}
	VisitEvent(event *SEvent, context interface{}) interface{}
}

// RecursiveVisitor visits every attribute, event and child of a node, depth first.
// Embed it and override the methods of interest.
type RecursiveVisitor struct {
	// Self receives the recursive calls; defaults to the RecursiveVisitor itself.
	Self Visitor
}

// NewRecursiveVisitor creates a new RecursiveVisitor dispatching recursive calls to self
func NewRecursiveVisitor(self Visitor) *RecursiveVisitor {
	return &RecursiveVisitor{Self: self}
}

func (v *RecursiveVisitor) self() Visitor {
	if v.Self == nil {
		return v
	}
	return v.Self
}

// VisitNode visits the node's attributes, events and children
func (v *RecursiveVisitor) VisitNode(node *SNode, context interface{}) interface{} {
	self := v.self()
	for _, attr := range node.Element.Attributes {
		attr.Visit(self, context)
	}
	for _, event := range node.Element.Events {
		event.Visit(self, context)
	}
	VisitAll(self, node.ChildNodes, context)
	return nil
}

// VisitAttribute does nothing
func (v *RecursiveVisitor) VisitAttribute(attr *SAttribute, context interface{}) interface{} {
	return nil
}

// VisitEvent does nothing
func (v *RecursiveVisitor) VisitEvent(event *SEvent, context interface{}) interface{} {
	return nil
}

// VisitAll visits all nodes and collects the non-nil results
func VisitAll(visitor Visitor, nodes []*SNode, context interface{}) []interface{} {
	result := []interface{}{}
	for _, node := range nodes {
		if r := node.Visit(visitor, context); r != nil {
			result = append(result, r)
		}
	}
	return result
}

// Walk calls fn for node and each of its descendants in document order, with the depth of
// each relative to node. Children are skipped when fn returns false.
func Walk(node *SNode, fn func(node *SNode, depth int) bool) {
	walk(node, 0, fn)
}

func walk(node *SNode, depth int, fn func(node *SNode, depth int) bool) {
	if !fn(node, depth) {
		return
	}
	for _, child := range node.ChildNodes {
		walk(child, depth+1, fn)
	}
}
