package grammar

import "strings"

// TokenType represents the type of a token
type TokenType int

const (
	TokenTypeUnknown TokenType = iota
	TokenTypeName
	TokenTypeLiteral
	TokenTypeTagStart
	TokenTypeClosingTagStart
	TokenTypeTagEnd
	TokenTypeSelfClosingTagEnd
	TokenTypeCommentStart
	TokenTypeCommentEnd
	TokenTypeAttributeModifier
	TokenTypeNegationOperator
	TokenTypeAssignment
	TokenTypeQuote
	TokenTypeBindingStart
	TokenTypeBindingEnd
	TokenTypeContextParent
	TokenTypeContextAncestor
	TokenTypeNameSeparator
	TokenTypeInputBinding
	TokenTypeOutputBinding
	TokenTypeTwoWayBinding
	TokenTypeOneTimeBinding
	TokenTypeAssetBinding
	TokenTypeTranslationBinding
	TokenTypeTemplateBinding
	TokenTypeEventArgumentBinding
	TokenTypeEventBoundary
	TokenTypeArgumentListStart
	TokenTypeArgumentListEnd
	TokenTypeArgumentSeparator
)

var tokenTypeNames = map[TokenType]string{
	TokenTypeUnknown:              "Unknown",
	TokenTypeName:                 "Name",
	TokenTypeLiteral:              "Literal",
	TokenTypeTagStart:             "TagStart",
	TokenTypeClosingTagStart:      "ClosingTagStart",
	TokenTypeTagEnd:               "TagEnd",
	TokenTypeSelfClosingTagEnd:    "SelfClosingTagEnd",
	TokenTypeCommentStart:         "CommentStart",
	TokenTypeCommentEnd:           "CommentEnd",
	TokenTypeAttributeModifier:    "AttributeModifier",
	TokenTypeNegationOperator:     "NegationOperator",
	TokenTypeAssignment:           "Assignment",
	TokenTypeQuote:                "Quote",
	TokenTypeBindingStart:         "BindingStart",
	TokenTypeBindingEnd:           "BindingEnd",
	TokenTypeContextParent:        "ContextParent",
	TokenTypeContextAncestor:      "ContextAncestor",
	TokenTypeNameSeparator:        "NameSeparator",
	TokenTypeInputBinding:         "InputBinding",
	TokenTypeOutputBinding:        "OutputBinding",
	TokenTypeTwoWayBinding:        "TwoWayBinding",
	TokenTypeOneTimeBinding:       "OneTimeBinding",
	TokenTypeAssetBinding:         "AssetBinding",
	TokenTypeTranslationBinding:   "TranslationBinding",
	TokenTypeTemplateBinding:      "TemplateBinding",
	TokenTypeEventArgumentBinding: "EventArgumentBinding",
	TokenTypeEventBoundary:        "EventBoundary",
	TokenTypeArgumentListStart:    "ArgumentListStart",
	TokenTypeArgumentListEnd:      "ArgumentListEnd",
	TokenTypeArgumentSeparator:    "ArgumentSeparator",
}

// String returns the name of the token type
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsBindingModifier reports whether the token type is one of the modifiers that may open a
// binding expression (direction or source markers).
func (t TokenType) IsBindingModifier() bool {
	switch t {
	case TokenTypeInputBinding, TokenTypeOutputBinding, TokenTypeTwoWayBinding, TokenTypeOneTimeBinding,
		TokenTypeAssetBinding, TokenTypeTranslationBinding, TokenTypeTemplateBinding:
		return true
	}
	return false
}

func joinTokenTypes(types []TokenType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

// Token is a single lexical unit. Text is a substring of the markup and is only valid for
// the duration of the parse; anything retained is copied into the DOM.
type Token struct {
	Type   TokenType
	Text   string
	Offset int
}

// End returns the offset just past the token
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// LexerMode selects which token set the lexer recognizes
type LexerMode int

const (
	ModeDefault LexerMode = iota
	ModeQuoted
	ModeBinding
	ModeEvent
	ModeArgumentList
	ModeComment
)

// String returns the name of the mode
func (m LexerMode) String() string {
	switch m {
	case ModeDefault:
		return "Default"
	case ModeQuoted:
		return "Quoted"
	case ModeBinding:
		return "Binding"
	case ModeEvent:
		return "Event"
	case ModeArgumentList:
		return "ArgumentList"
	case ModeComment:
		return "Comment"
	}
	return "Unknown"
}
