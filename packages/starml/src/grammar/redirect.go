package grammar

import (
	"fmt"
	"strings"
)

// ContextRedirect retargets a binding at an ancestor of the current context. It is either a
// DistanceRedirect or a TypeRedirect.
type ContextRedirect interface {
	fmt.Stringer
	contextRedirect()
}

// DistanceRedirect walks Depth ancestors up from the current context.
type DistanceRedirect struct {
	Depth int
}

func (DistanceRedirect) contextRedirect() {}

// String renders the redirect in markup form
func (r DistanceRedirect) String() string {
	return strings.Repeat("^", r.Depth)
}

// TypeRedirect walks up to the nearest ancestor whose data has type TypeName.
type TypeRedirect struct {
	TypeName string
}

func (TypeRedirect) contextRedirect() {}

// String renders the redirect in markup form
func (r TypeRedirect) String() string {
	return "~" + r.TypeName + "."
}

// NewContextRedirect returns the redirect described by a caret count or ancestor type name,
// or nil when neither is set.
func NewContextRedirect(parentDepth int, parentType string) ContextRedirect {
	if parentType != "" {
		return TypeRedirect{TypeName: parentType}
	}
	if parentDepth > 0 {
		return DistanceRedirect{Depth: parentDepth}
	}
	return nil
}

// RedirectString renders an optional redirect; nil renders as empty.
func RedirectString(redirect ContextRedirect) string {
	if redirect == nil {
		return ""
	}
	return redirect.String()
}
