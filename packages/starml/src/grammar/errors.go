package grammar

import (
	"fmt"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// LexerError is raised for malformed character sequences (unterminated literals, invalid
// name starts).
type LexerError struct {
	*util.ParseError
}

// NewLexerError creates a new LexerError at the given offset of file
func NewLexerError(file *util.ParseSourceFile, offset int, msg string) *LexerError {
	return &LexerError{
		ParseError: util.NewParseError(file.SpanAt(offset, 0), msg),
	}
}

// ParserError is raised for structurally invalid token sequences.
type ParserError struct {
	*util.ParseError
	Unexpected TokenType
	Expected   []TokenType
}

// NewParserError creates a new ParserError at the given offset of file
func NewParserError(file *util.ParseSourceFile, offset int, msg string) *ParserError {
	return &ParserError{
		ParseError: util.NewParseError(file.SpanAt(offset, 0), msg),
	}
}

// NewUnexpectedTokenError creates a ParserError describing an unexpected token
func NewUnexpectedTokenError(file *util.ParseSourceFile, token Token, expected ...TokenType) *ParserError {
	msg := fmt.Sprintf("Unexpected token %s %q", token.Type, token.Text)
	if len(expected) > 0 {
		msg += fmt.Sprintf("; expected one of: %s", joinTokenTypes(expected))
	}
	err := NewParserError(file, token.Offset, msg)
	err.Unexpected = token.Type
	err.Expected = expected
	return err
}

// NewUnexpectedEndError creates a ParserError for input that ended while a token was required
func NewUnexpectedEndError(file *util.ParseSourceFile, expected ...TokenType) *ParserError {
	msg := "Unexpected end of input"
	if len(expected) > 0 {
		msg += fmt.Sprintf("; expected one of: %s", joinTokenTypes(expected))
	}
	err := NewParserError(file, len(file.Content), msg)
	err.Expected = expected
	return err
}

// recoverError converts a panic raised by fail into an error and re-panics anything else.
func recoverError(r any, err *error) {
	switch e := r.(type) {
	case *LexerError:
		*err = e
	case *ParserError:
		*err = e
	default:
		panic(r)
	}
}
