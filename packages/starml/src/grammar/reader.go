package grammar

import (
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// AttributeType distinguishes ordinary view properties from structural attributes (`*name`).
type AttributeType int

const (
	AttributeTypeProperty AttributeType = iota
	AttributeTypeStructural
)

// String returns the name of the attribute type
func (t AttributeType) String() string {
	if t == AttributeTypeStructural {
		return "Structural"
	}
	return "Property"
}

// AttributeValueType describes how the value text of an attribute is interpreted
type AttributeValueType int

const (
	AttributeValueTypeLiteral AttributeValueType = iota
	AttributeValueTypeAssetBinding
	AttributeValueTypeTranslationBinding
	AttributeValueTypeInputBinding
	AttributeValueTypeOneTimeBinding
	AttributeValueTypeOutputBinding
	AttributeValueTypeTwoWayBinding
	AttributeValueTypeTemplateBinding
)

var attributeValueTypeNames = [...]string{
	"Literal",
	"AssetBinding",
	"TranslationBinding",
	"InputBinding",
	"OneTimeBinding",
	"OutputBinding",
	"TwoWayBinding",
	"TemplateBinding",
}

// String returns the name of the value type
func (t AttributeValueType) String() string {
	if int(t) < len(attributeValueTypeNames) {
		return attributeValueTypeNames[t]
	}
	return "Unknown"
}

// IsContextBinding reports whether the value is bound to a property of the data context.
// Only context bindings may carry a ContextRedirect.
func (t AttributeValueType) IsContextBinding() bool {
	switch t {
	case AttributeValueTypeInputBinding, AttributeValueTypeOneTimeBinding,
		AttributeValueTypeOutputBinding, AttributeValueTypeTwoWayBinding:
		return true
	}
	return false
}

// ArgumentExpressionType describes how an event argument is resolved
type ArgumentExpressionType int

const (
	ArgumentExpressionTypeLiteral ArgumentExpressionType = iota
	ArgumentExpressionTypeContextBinding
	ArgumentExpressionTypeEventBinding
	ArgumentExpressionTypeTemplateBinding
)

// String returns the name of the expression type
func (t ArgumentExpressionType) String() string {
	switch t {
	case ArgumentExpressionTypeLiteral:
		return "Literal"
	case ArgumentExpressionTypeContextBinding:
		return "ContextBinding"
	case ArgumentExpressionTypeEventBinding:
		return "EventBinding"
	case ArgumentExpressionTypeTemplateBinding:
		return "TemplateBinding"
	}
	return "Unknown"
}

// TagInfo describes one tag boundary
type TagInfo struct {
	Name         string
	IsClosingTag bool
}

// Attribute is one `name="value"` or `name="{binding}"` pair as read from the markup.
type Attribute struct {
	Name        string
	Type        AttributeType
	IsNegated   bool
	ValueType   AttributeValueType
	Value       string
	ParentDepth int
	ParentType  string
	Offset      int
}

// ContextRedirect returns the ancestor redirect of the attribute, if any
func (a *Attribute) ContextRedirect() ContextRedirect {
	return NewContextRedirect(a.ParentDepth, a.ParentType)
}

// Argument is one argument of an event handler
type Argument struct {
	Expression     string
	ExpressionType ArgumentExpressionType
	ParentDepth    int
	ParentType     string
}

// ContextRedirect returns the ancestor redirect of the argument, if any
func (a *Argument) ContextRedirect() ContextRedirect {
	return NewContextRedirect(a.ParentDepth, a.ParentType)
}

// Event binds the view event Name to the handler method HandlerName.
type Event struct {
	Name        string
	HandlerName string
	// Arguments is backed by a buffer owned by the reader and is only valid until the next
	// member is read.
	Arguments   []Argument
	ParentDepth int
	ParentType  string
	Offset      int
}

// ContextRedirect returns the ancestor redirect of the handler, if any
func (e *Event) ContextRedirect() ContextRedirect {
	return NewContextRedirect(e.ParentDepth, e.ParentType)
}

// MemberKind identifies which member NextMember read
type MemberKind int

const (
	MemberKindAttribute MemberKind = iota
	MemberKindEvent
)

// DocumentReader is a pull parser over StarML markup. NextTag and NextMember advance through
// the document one construct at a time; the values they expose reference the markup text.
type DocumentReader struct {
	lexer *Lexer

	inTag            bool
	selfClosePending bool

	// Tag is the tag read by the last successful NextTag
	Tag TagInfo
	// TagOffset is the markup offset of Tag
	TagOffset int
	// MemberKind tells whether Attribute or Event holds the last member read
	MemberKind MemberKind
	Attribute  Attribute
	Event      Event

	argBuf []Argument
}

// NewDocumentReader creates a new DocumentReader over text
func NewDocumentReader(text string) *DocumentReader {
	return NewFileDocumentReader(util.NewParseSourceFile(text, ""))
}

// NewFileDocumentReader creates a new DocumentReader over the contents of file
func NewFileDocumentReader(file *util.ParseSourceFile) *DocumentReader {
	return &DocumentReader{lexer: NewFileLexer(file)}
}

// File returns the source file being read
func (r *DocumentReader) File() *util.ParseSourceFile {
	return r.lexer.File()
}

// Position returns the offset of the next unread character
func (r *DocumentReader) Position() int {
	return r.lexer.Position()
}

// NextTag skips any unread members of the current tag and reads the next opening or closing
// tag. It returns false at end of input.
func (r *DocumentReader) NextTag() (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			recoverError(rec, &err)
		}
	}()
	return r.MustNextTag(), nil
}

// NextMember reads the next attribute or event of the current tag. It returns false once the
// tag's terminator (`>` or `/>`) has been read.
func (r *DocumentReader) NextMember() (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			recoverError(rec, &err)
		}
	}()
	return r.MustNextMember(), nil
}

// MustNextTag is NextTag for callers that recover *LexerError and *ParserError panics.
func (r *DocumentReader) MustNextTag() bool {
	for r.inTag {
		r.MustNextMember()
	}
	if r.selfClosePending {
		r.selfClosePending = false
		r.Tag.IsClosingTag = true
		return true
	}
	token, ok := r.readToken()
	if !ok {
		return false
	}
	switch token.Type {
	case TokenTypeTagStart:
		name := r.ReadRequiredToken(TokenTypeName)
		r.Tag = TagInfo{Name: name.Text}
		r.TagOffset = token.Offset
		r.inTag = true
	case TokenTypeClosingTagStart:
		name := r.ReadRequiredToken(TokenTypeName)
		r.ReadRequiredToken(TokenTypeTagEnd)
		r.Tag = TagInfo{Name: name.Text, IsClosingTag: true}
		r.TagOffset = token.Offset
	default:
		r.unexpected(token, TokenTypeTagStart, TokenTypeClosingTagStart)
	}
	return true
}

// MustNextMember is NextMember for callers that recover *LexerError and *ParserError panics.
func (r *DocumentReader) MustNextMember() bool {
	if !r.inTag {
		return false
	}
	token := r.ReadRequiredToken(
		TokenTypeName, TokenTypeAttributeModifier, TokenTypeTagEnd, TokenTypeSelfClosingTagEnd)
	switch token.Type {
	case TokenTypeTagEnd:
		r.inTag = false
		return false
	case TokenTypeSelfClosingTagEnd:
		r.inTag = false
		r.selfClosePending = true
		return false
	}
	attributeType := AttributeTypeProperty
	isNegated := false
	memberOffset := token.Offset
	if token.Type == TokenTypeAttributeModifier {
		attributeType = AttributeTypeStructural
		token = r.ReadRequiredToken(TokenTypeName, TokenTypeNegationOperator)
		if token.Type == TokenTypeNegationOperator {
			isNegated = true
			token = r.ReadRequiredToken(TokenTypeName)
		}
	}
	name := token.Text
	r.ReadRequiredToken(TokenTypeAssignment)
	if attributeType == AttributeTypeStructural {
		r.ReadRequiredToken(TokenTypeQuote)
		r.readAttributeValue(name, attributeType, isNegated, memberOffset)
		return true
	}
	opener := r.ReadRequiredToken(TokenTypeQuote, TokenTypeEventBoundary)
	if opener.Type == TokenTypeEventBoundary {
		r.readEvent(name, memberOffset)
	} else {
		r.readAttributeValue(name, attributeType, isNegated, memberOffset)
	}
	return true
}

func (r *DocumentReader) readAttributeValue(name string, attributeType AttributeType, isNegated bool, offset int) {
	r.Attribute = Attribute{
		Name:      name,
		Type:      attributeType,
		IsNegated: isNegated,
		ValueType: AttributeValueTypeLiteral,
		Offset:    offset,
	}
	r.MemberKind = MemberKindAttribute
	token := r.ReadRequiredToken(TokenTypeLiteral, TokenTypeQuote, TokenTypeBindingStart)
	switch token.Type {
	case TokenTypeQuote:
		return
	case TokenTypeLiteral:
		r.Attribute.Value = token.Text
	case TokenTypeBindingStart:
		r.readBinding()
	}
	r.ReadRequiredToken(TokenTypeQuote)
}

func (r *DocumentReader) readBinding() {
	valueType := AttributeValueTypeInputBinding
	token := r.ReadRequiredToken(
		TokenTypeInputBinding, TokenTypeOutputBinding, TokenTypeTwoWayBinding, TokenTypeOneTimeBinding,
		TokenTypeAssetBinding, TokenTypeTranslationBinding, TokenTypeTemplateBinding,
		TokenTypeContextParent, TokenTypeContextAncestor, TokenTypeLiteral)
	if token.Type.IsBindingModifier() {
		valueType = bindingValueType(token.Type)
		token = r.ReadRequiredToken(TokenTypeContextParent, TokenTypeContextAncestor, TokenTypeLiteral)
	}
	depth, typeName, token := r.readRedirect(token)
	if (depth > 0 || typeName != "") && !valueType.IsContextBinding() {
		r.fail(token.Offset, "Context redirects are only allowed on context bindings, not "+valueType.String())
	}
	if token.Type != TokenTypeLiteral {
		r.unexpected(token, TokenTypeLiteral)
	}
	r.Attribute.ValueType = valueType
	r.Attribute.Value = token.Text
	r.Attribute.ParentDepth = depth
	r.Attribute.ParentType = typeName
	r.ReadRequiredToken(TokenTypeBindingEnd)
}

// readRedirect consumes an optional caret run or `~Type.` prefix starting at token and returns
// the token that follows it.
func (r *DocumentReader) readRedirect(token Token) (depth int, typeName string, next Token) {
	switch token.Type {
	case TokenTypeContextParent:
		for token.Type == TokenTypeContextParent {
			depth++
			token = r.ReadRequiredToken(TokenTypeContextParent, TokenTypeNameSeparator, TokenTypeLiteral, TokenTypeName)
		}
		if token.Type == TokenTypeNameSeparator {
			token = r.ReadRequiredToken(TokenTypeLiteral, TokenTypeName)
		}
	case TokenTypeContextAncestor:
		typeToken := r.ReadRequiredToken(TokenTypeLiteral, TokenTypeName)
		if typeToken.Text == "" {
			r.fail(typeToken.Offset, "Ancestor type name must not be empty")
		}
		typeName = typeToken.Text
		r.ReadRequiredToken(TokenTypeNameSeparator)
		token = r.ReadRequiredToken(TokenTypeLiteral, TokenTypeName)
	}
	return depth, typeName, token
}

func (r *DocumentReader) readEvent(name string, offset int) {
	r.MemberKind = MemberKindEvent
	r.argBuf = r.argBuf[:0]
	token := r.ReadRequiredToken(TokenTypeName, TokenTypeContextParent, TokenTypeContextAncestor)
	depth, typeName, token := r.readRedirect(token)
	if token.Type != TokenTypeName {
		r.unexpected(token, TokenTypeName)
	}
	r.Event = Event{
		Name:        name,
		HandlerName: token.Text,
		ParentDepth: depth,
		ParentType:  typeName,
		Offset:      offset,
	}
	token = r.ReadRequiredToken(TokenTypeArgumentListStart, TokenTypeEventBoundary)
	if token.Type == TokenTypeEventBoundary {
		return
	}
	token = r.ReadRequiredToken(
		TokenTypeArgumentListEnd, TokenTypeQuote, TokenTypeLiteral, TokenTypeContextParent,
		TokenTypeContextAncestor, TokenTypeEventArgumentBinding, TokenTypeTemplateBinding)
	for token.Type != TokenTypeArgumentListEnd {
		r.argBuf = append(r.argBuf, r.readArgument(token))
		token = r.ReadRequiredToken(TokenTypeArgumentSeparator, TokenTypeArgumentListEnd)
		if token.Type == TokenTypeArgumentSeparator {
			token = r.ReadRequiredToken(
				TokenTypeQuote, TokenTypeLiteral, TokenTypeContextParent, TokenTypeContextAncestor,
				TokenTypeEventArgumentBinding, TokenTypeTemplateBinding)
		}
	}
	r.Event.Arguments = r.argBuf
	r.ReadRequiredToken(TokenTypeEventBoundary)
}

func (r *DocumentReader) readArgument(token Token) Argument {
	switch token.Type {
	case TokenTypeQuote:
		arg := Argument{ExpressionType: ArgumentExpressionTypeLiteral}
		next := r.ReadRequiredToken(TokenTypeLiteral, TokenTypeQuote)
		if next.Type == TokenTypeLiteral {
			arg.Expression = next.Text
			r.ReadRequiredToken(TokenTypeQuote)
		}
		return arg
	case TokenTypeEventArgumentBinding:
		name := r.ReadRequiredToken(TokenTypeLiteral)
		return Argument{Expression: name.Text, ExpressionType: ArgumentExpressionTypeEventBinding}
	case TokenTypeTemplateBinding:
		name := r.ReadRequiredToken(TokenTypeLiteral)
		return Argument{Expression: name.Text, ExpressionType: ArgumentExpressionTypeTemplateBinding}
	}
	depth, typeName, token := r.readRedirect(token)
	if token.Type != TokenTypeLiteral {
		r.unexpected(token, TokenTypeLiteral)
	}
	return Argument{
		Expression:     token.Text,
		ExpressionType: ArgumentExpressionTypeContextBinding,
		ParentDepth:    depth,
		ParentType:     typeName,
	}
}

// ReadRequiredToken reads the next non-comment token and fails with a *ParserError unless it
// is one of the expected types.
func (r *DocumentReader) ReadRequiredToken(expected ...TokenType) Token {
	token, ok := r.readToken()
	if !ok {
		panic(NewUnexpectedEndError(r.File(), expected...))
	}
	for _, t := range expected {
		if token.Type == t {
			return token
		}
	}
	r.unexpected(token, expected...)
	return token
}

// readToken returns the next token, skipping comments.
func (r *DocumentReader) readToken() (Token, bool) {
	for {
		token, ok := r.lexer.next()
		if !ok {
			return Token{}, false
		}
		if token.Type != TokenTypeCommentStart {
			return token, true
		}
		for token.Type != TokenTypeCommentEnd {
			if token, ok = r.lexer.next(); !ok {
				return Token{}, false
			}
		}
	}
}

func (r *DocumentReader) unexpected(token Token, expected ...TokenType) {
	panic(NewUnexpectedTokenError(r.File(), token, expected...))
}

func (r *DocumentReader) fail(offset int, msg string) {
	panic(NewParserError(r.File(), offset, msg))
}

func bindingValueType(t TokenType) AttributeValueType {
	switch t {
	case TokenTypeOutputBinding:
		return AttributeValueTypeOutputBinding
	case TokenTypeTwoWayBinding:
		return AttributeValueTypeTwoWayBinding
	case TokenTypeOneTimeBinding:
		return AttributeValueTypeOneTimeBinding
	case TokenTypeAssetBinding:
		return AttributeValueTypeAssetBinding
	case TokenTypeTranslationBinding:
		return AttributeValueTypeTranslationBinding
	case TokenTypeTemplateBinding:
		return AttributeValueTypeTemplateBinding
	}
	return AttributeValueTypeInputBinding
}
