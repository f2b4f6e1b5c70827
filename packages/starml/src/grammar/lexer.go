package grammar

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/core"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// Lexer splits StarML markup into tokens. It keeps a stack of lexical modes; tokens that open
// or close a region (quotes, bindings, events, argument lists, comments) push or pop modes.
type Lexer struct {
	file  *util.ParseSourceFile
	text  string
	pos   int
	modes []LexerMode

	// Set by `~` inside a binding, event or argument; the type name that follows is a plain
	// literal terminated by the next `.`.
	ancestorPending bool
	// Closing delimiter of the open binding, "}" or "}}".
	bindingEnd string
	// Quoted literals inside argument lists never start bindings.
	quoteAllowsBinding bool
	quoteStart         int
}

// NewLexer creates a new Lexer over text
func NewLexer(text string) *Lexer {
	return NewFileLexer(util.NewParseSourceFile(text, ""))
}

// NewFileLexer creates a new Lexer over the contents of file
func NewFileLexer(file *util.ParseSourceFile) *Lexer {
	return &Lexer{
		file:  file,
		text:  file.Content,
		modes: []LexerMode{ModeDefault},
	}
}

// File returns the source file being lexed
func (l *Lexer) File() *util.ParseSourceFile {
	return l.file
}

// Mode returns the current lexical mode
func (l *Lexer) Mode() LexerMode {
	return l.modes[len(l.modes)-1]
}

// Position returns the offset of the next unread character
func (l *Lexer) Position() int {
	return l.pos
}

// Next reads exactly one token. It returns false at end of input.
func (l *Lexer) Next() (token Token, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			recoverError(r, &err)
		}
	}()
	token, ok = l.next()
	return token, ok, nil
}

// Tokenize reads all remaining tokens.
func (l *Lexer) Tokenize() (tokens []Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			recoverError(r, &err)
		}
	}()
	for {
		token, ok := l.next()
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, token)
	}
}

func (l *Lexer) next() (Token, bool) {
	mode := l.Mode()
	if mode != ModeQuoted && mode != ModeComment {
		l.skipWhitespace()
	}
	if l.pos >= len(l.text) {
		switch mode {
		case ModeQuoted:
			l.fail(l.quoteStart, "Unterminated quoted string")
		case ModeComment:
			l.fail(l.pos, "Unterminated comment")
		case ModeBinding:
			l.fail(l.pos, "Unterminated binding expression")
		case ModeEvent, ModeArgumentList:
			l.fail(l.pos, "Unterminated event binding")
		}
		return Token{}, false
	}
	var token Token
	switch mode {
	case ModeDefault:
		token = l.lexDefault()
	case ModeQuoted:
		token = l.lexQuoted()
	case ModeBinding:
		token = l.lexBinding()
	case ModeEvent:
		token = l.lexEvent()
	case ModeArgumentList:
		token = l.lexArgumentList()
	case ModeComment:
		token = l.lexComment()
	}
	l.transition(mode, token)
	return token, true
}

func (l *Lexer) transition(mode LexerMode, token Token) {
	switch token.Type {
	case TokenTypeCommentStart:
		l.push(ModeComment)
	case TokenTypeCommentEnd, TokenTypeArgumentListEnd:
		l.pop()
	case TokenTypeQuote:
		if mode == ModeQuoted {
			l.pop()
		} else {
			l.quoteAllowsBinding = mode == ModeDefault
			l.quoteStart = token.Offset
			l.push(ModeQuoted)
		}
	case TokenTypeBindingStart:
		l.bindingEnd = strings.Repeat("}", len(token.Text))
		l.push(ModeBinding)
	case TokenTypeBindingEnd:
		l.ancestorPending = false
		l.pop()
	case TokenTypeEventBoundary:
		if mode == ModeEvent {
			l.ancestorPending = false
			l.pop()
		} else {
			l.push(ModeEvent)
		}
	case TokenTypeArgumentListStart:
		l.push(ModeArgumentList)
	case TokenTypeContextAncestor:
		l.ancestorPending = true
	case TokenTypeNameSeparator:
		l.ancestorPending = false
	case TokenTypeArgumentSeparator:
		l.ancestorPending = false
	}
}

func (l *Lexer) push(mode LexerMode) {
	l.modes = append(l.modes, mode)
}

func (l *Lexer) pop() {
	if len(l.modes) > 1 {
		l.modes = l.modes[:len(l.modes)-1]
	}
}

func (l *Lexer) lexDefault() Token {
	switch {
	case l.hasPrefix("<!--"):
		return l.emit(TokenTypeCommentStart, 4)
	case l.hasPrefix("</"):
		return l.emit(TokenTypeClosingTagStart, 2)
	case l.hasPrefix("/>"):
		return l.emit(TokenTypeSelfClosingTagEnd, 2)
	}
	switch l.peek() {
	case core.CharLT:
		return l.emit(TokenTypeTagStart, 1)
	case core.CharGT:
		return l.emit(TokenTypeTagEnd, 1)
	case core.CharEQ:
		return l.emit(TokenTypeAssignment, 1)
	case core.CharSTAR:
		return l.emit(TokenTypeAttributeModifier, 1)
	case core.CharBANG:
		return l.emit(TokenTypeNegationOperator, 1)
	case core.CharDQ:
		return l.emit(TokenTypeQuote, 1)
	case core.CharPIPE:
		return l.emit(TokenTypeEventBoundary, 1)
	}
	return l.lexName()
}

func (l *Lexer) lexQuoted() Token {
	if l.peek() == core.CharDQ {
		return l.emit(TokenTypeQuote, 1)
	}
	if l.quoteAllowsBinding && l.peek() == core.CharLBRACE {
		if l.hasPrefix("{{") {
			return l.emit(TokenTypeBindingStart, 2)
		}
		return l.emit(TokenTypeBindingStart, 1)
	}
	end := strings.IndexByte(l.text[l.pos:], '"')
	if end < 0 {
		l.fail(l.quoteStart, "Unterminated quoted string")
	}
	return l.emit(TokenTypeLiteral, end)
}

func (l *Lexer) lexBinding() Token {
	if l.hasPrefix(l.bindingEnd) {
		return l.emit(TokenTypeBindingEnd, len(l.bindingEnd))
	}
	switch {
	case l.hasPrefix("<>"):
		return l.emit(TokenTypeTwoWayBinding, 2)
	case l.hasPrefix("<:"):
		return l.emit(TokenTypeOneTimeBinding, 2)
	}
	switch l.peek() {
	case core.CharLT:
		return l.emit(TokenTypeInputBinding, 1)
	case core.CharGT:
		return l.emit(TokenTypeOutputBinding, 1)
	case core.CharAT:
		return l.emit(TokenTypeAssetBinding, 1)
	case core.CharHASH:
		return l.emit(TokenTypeTranslationBinding, 1)
	case core.CharAMPERSAND:
		return l.emit(TokenTypeTemplateBinding, 1)
	case core.CharCARET:
		return l.emit(TokenTypeContextParent, 1)
	case core.CharTILDA:
		return l.emit(TokenTypeContextAncestor, 1)
	case core.CharPERIOD:
		return l.emit(TokenTypeNameSeparator, 1)
	case core.CharRBRACE:
		l.fail(l.pos, fmt.Sprintf("Binding expression must be closed with %q", l.bindingEnd))
	}
	start := l.pos
	for l.pos < len(l.text) {
		ch := l.peek()
		if ch == core.CharRBRACE || (l.ancestorPending && ch == core.CharPERIOD) {
			break
		}
		l.pos++
	}
	if l.pos >= len(l.text) {
		l.fail(start, "Unterminated binding expression")
	}
	return l.literal(start, l.pos)
}

func (l *Lexer) lexEvent() Token {
	switch l.peek() {
	case core.CharPIPE:
		return l.emit(TokenTypeEventBoundary, 1)
	case core.CharLPAREN:
		return l.emit(TokenTypeArgumentListStart, 1)
	case core.CharCARET:
		return l.emit(TokenTypeContextParent, 1)
	case core.CharTILDA:
		return l.emit(TokenTypeContextAncestor, 1)
	case core.CharPERIOD:
		return l.emit(TokenTypeNameSeparator, 1)
	}
	return l.lexName()
}

func (l *Lexer) lexArgumentList() Token {
	switch l.peek() {
	case core.CharRPAREN:
		return l.emit(TokenTypeArgumentListEnd, 1)
	case core.CharCOMMA:
		return l.emit(TokenTypeArgumentSeparator, 1)
	case core.CharDQ:
		return l.emit(TokenTypeQuote, 1)
	case core.CharCARET:
		return l.emit(TokenTypeContextParent, 1)
	case core.CharTILDA:
		return l.emit(TokenTypeContextAncestor, 1)
	case core.CharPERIOD:
		return l.emit(TokenTypeNameSeparator, 1)
	case core.CharDollar:
		return l.emit(TokenTypeEventArgumentBinding, 1)
	case core.CharAMPERSAND:
		return l.emit(TokenTypeTemplateBinding, 1)
	}
	start := l.pos
	for l.pos < len(l.text) {
		ch := l.peek()
		if ch == core.CharCOMMA || ch == core.CharRPAREN || ch == core.CharDQ || ch == core.CharPIPE ||
			core.IsWhitespace(ch) || (l.ancestorPending && ch == core.CharPERIOD) {
			break
		}
		l.pos++
	}
	if l.pos >= len(l.text) {
		l.fail(start, "Unterminated argument list")
	}
	if l.pos == start {
		ch, _ := utf8.DecodeRuneInString(l.text[l.pos:])
		l.fail(start, fmt.Sprintf("Unexpected character %q in argument list", ch))
	}
	return l.literal(start, l.pos)
}

func (l *Lexer) lexComment() Token {
	if l.hasPrefix("-->") {
		return l.emit(TokenTypeCommentEnd, 3)
	}
	end := strings.Index(l.text[l.pos:], "-->")
	if end < 0 {
		l.fail(l.pos, "Unterminated comment")
	}
	return l.emit(TokenTypeLiteral, end)
}

func (l *Lexer) lexName() Token {
	start := l.pos
	ch, size := utf8.DecodeRuneInString(l.text[l.pos:])
	if !core.IsNameStart(int(ch)) {
		l.fail(start, fmt.Sprintf("Invalid character %q; names must start with a letter", ch))
	}
	l.pos += size
	for l.pos < len(l.text) {
		ch, size = utf8.DecodeRuneInString(l.text[l.pos:])
		if !core.IsNameChar(int(ch)) {
			break
		}
		l.pos += size
	}
	return Token{Type: TokenTypeName, Text: l.text[start:l.pos], Offset: start}
}

func (l *Lexer) literal(start, end int) Token {
	text := strings.TrimRight(l.text[start:end], " \t\r\n")
	return Token{Type: TokenTypeLiteral, Text: text, Offset: start}
}

func (l *Lexer) emit(tokenType TokenType, length int) Token {
	token := Token{Type: tokenType, Text: l.text[l.pos : l.pos+length], Offset: l.pos}
	l.pos += length
	return token
}

func (l *Lexer) peek() int {
	if l.pos >= len(l.text) {
		return core.CharEOF
	}
	return int(l.text[l.pos])
}

func (l *Lexer) hasPrefix(prefix string) bool {
	return strings.HasPrefix(l.text[l.pos:], prefix)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.text) && core.IsWhitespace(l.peek()) {
		l.pos++
	}
}

func (l *Lexer) fail(offset int, msg string) {
	panic(NewLexerError(l.file, offset, msg))
}
