package util

import (
	"errors"
	"fmt"
	"strings"
)

// ParseLocation represents a location in the source file
type ParseLocation struct {
	File   *ParseSourceFile
	Offset int
	Line   int
	Col    int
}

// NewParseLocation creates a new ParseLocation
func NewParseLocation(file *ParseSourceFile, offset, line, col int) *ParseLocation {
	return &ParseLocation{
		File:   file,
		Offset: offset,
		Line:   line,
		Col:    col,
	}
}

// String returns a string representation of the location
func (p *ParseLocation) String() string {
	if p.Offset >= 0 {
		return fmt.Sprintf("%s@%d:%d", p.File.URL, p.Line, p.Col)
	}
	return p.File.URL
}

// GetContext returns the source context around the location
func (p *ParseLocation) GetContext(maxChars, maxLines int) *Context {
	content := p.File.Content
	startOffset := p.Offset

	if startOffset < 0 || len(content) == 0 {
		return nil
	}

	if startOffset > len(content)-1 {
		startOffset = len(content) - 1
	}
	offset := startOffset

	endOffset := startOffset
	ctxChars := 0
	ctxLines := 0

	for ctxChars < maxChars && startOffset > 0 {
		startOffset--
		ctxChars++
		if content[startOffset] == '\n' {
			ctxLines++
			if ctxLines == maxLines {
				break
			}
		}
	}

	ctxChars = 0
	ctxLines = 0
	for ctxChars < maxChars && endOffset < len(content)-1 {
		endOffset++
		ctxChars++
		if content[endOffset] == '\n' {
			ctxLines++
			if ctxLines == maxLines {
				break
			}
		}
	}

	return &Context{
		Before: content[startOffset:offset],
		After:  content[offset : endOffset+1],
	}
}

// Context represents source context around a location
type Context struct {
	Before string
	After  string
}

// ParseSourceFile represents a source file
type ParseSourceFile struct {
	Content string
	URL     string
}

// NewParseSourceFile creates a new ParseSourceFile
func NewParseSourceFile(content, url string) *ParseSourceFile {
	return &ParseSourceFile{
		Content: content,
		URL:     url,
	}
}

// LocationAt resolves a character offset into a location with zero-based line and column.
// Offsets past the end of the content are clamped to the end.
func (f *ParseSourceFile) LocationAt(offset int) *ParseLocation {
	if offset < 0 {
		return NewParseLocation(f, -1, -1, -1)
	}
	if offset > len(f.Content) {
		offset = len(f.Content)
	}
	line := strings.Count(f.Content[:offset], "\n")
	col := offset - (strings.LastIndexByte(f.Content[:offset], '\n') + 1)
	return NewParseLocation(f, offset, line, col)
}

// SpanAt creates a span covering length characters starting at offset.
func (f *ParseSourceFile) SpanAt(offset, length int) *ParseSourceSpan {
	start := f.LocationAt(offset)
	end := start
	if length > 0 {
		end = f.LocationAt(offset + length)
	}
	return NewParseSourceSpan(start, end, nil, nil)
}

// ParseSourceSpan represents a span of source code
type ParseSourceSpan struct {
	Start     *ParseLocation
	End       *ParseLocation
	FullStart *ParseLocation
	Details   *string
}

// NewParseSourceSpan creates a new ParseSourceSpan
func NewParseSourceSpan(start, end *ParseLocation, fullStart *ParseLocation, details *string) *ParseSourceSpan {
	if fullStart == nil {
		fullStart = start
	}
	return &ParseSourceSpan{
		Start:     start,
		End:       end,
		FullStart: fullStart,
		Details:   details,
	}
}

// String returns the source code in this span
func (p *ParseSourceSpan) String() string {
	return p.Start.File.Content[p.Start.Offset:p.End.Offset]
}

// ParseErrorLevel represents the level of a parse error
type ParseErrorLevel int

const (
	ParseErrorLevelWarning ParseErrorLevel = iota
	ParseErrorLevelError
)

// ParseError represents a parse error
type ParseError struct {
	Span  *ParseSourceSpan
	Msg   string
	Level ParseErrorLevel
}

// NewParseError creates a new ParseError
func NewParseError(span *ParseSourceSpan, msg string) *ParseError {
	return &ParseError{
		Span:  span,
		Msg:   msg,
		Level: ParseErrorLevelError,
	}
}

// NewParseWarning creates a new ParseWarning
func NewParseWarning(span *ParseSourceSpan, msg string) *ParseError {
	return &ParseError{
		Span:  span,
		Msg:   msg,
		Level: ParseErrorLevelWarning,
	}
}

// Error implements the error interface
func (p *ParseError) Error() string {
	return p.String()
}

// Offset returns the character offset of the error, or -1 if unknown.
func (p *ParseError) Offset() int {
	if p.Span == nil || p.Span.Start == nil {
		return -1
	}
	return p.Span.Start.Offset
}

// ContextualMessage returns the error message with context
func (p *ParseError) ContextualMessage() string {
	if p.Span == nil || p.Span.Start == nil {
		return p.Msg
	}
	ctx := p.Span.Start.GetContext(100, 3)
	if ctx != nil {
		levelStr := "ERROR"
		if p.Level == ParseErrorLevelWarning {
			levelStr = "WARNING"
		}
		return fmt.Sprintf(`%s ("%s[%s ->]%s")`, p.Msg, ctx.Before, levelStr, ctx.After)
	}
	return p.Msg
}

// Snippet renders the line containing the error start with a caret under its column.
func (p *ParseError) Snippet() string {
	if p.Span == nil || p.Span.Start == nil || p.Span.Start.Offset < 0 {
		return ""
	}
	start := p.Span.Start
	content := start.File.Content
	offset := min(start.Offset, len(content))
	lineStart := strings.LastIndexByte(content[:offset], '\n') + 1
	lineEnd := strings.IndexByte(content[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(content)
	} else {
		lineEnd += offset
	}
	line := strings.TrimRight(content[lineStart:lineEnd], "\r")
	gutter := fmt.Sprintf("%d", start.Line+1)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | %s\n", gutter, line)
	fmt.Fprintf(&sb, "%s | %s^", strings.Repeat(" ", len(gutter)), caretPadding(line, offset-lineStart))
	return sb.String()
}

// caretPadding keeps tabs so the caret lines up under the offending column.
func caretPadding(line string, col int) string {
	if col > len(line) {
		col = len(line)
	}
	pad := []byte(line[:col])
	for i, ch := range pad {
		if ch != '\t' {
			pad[i] = ' '
		}
	}
	return string(pad)
}

// String returns a string representation of the error
func (p *ParseError) String() string {
	if p.Span == nil {
		return p.Msg
	}
	details := ""
	if p.Span.Details != nil {
		details = fmt.Sprintf(", %s", *p.Span.Details)
	}
	if p.Span.Start == nil {
		return fmt.Sprintf("%s%s", p.Msg, details)
	}
	return fmt.Sprintf("%s: %s%s", p.Msg, p.Span.Start, details)
}

// PositionedError is implemented by errors that carry a ParseError.
type PositionedError interface {
	error
	ParseErr() *ParseError
}

// ParseErr returns the receiver; embedding types inherit it.
func (p *ParseError) ParseErr() *ParseError {
	return p
}

// DescribeError renders err as a "file:line:col: message" diagnostic followed by a source
// snippet when the error is positioned. It never panics; if the position cannot be
// determined it falls back to the plain error text.
func DescribeError(fileName string, err error) (description string) {
	if err == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			description = fmt.Sprintf("%s: %v", fileName, err)
		}
	}()
	var positioned PositionedError
	if !errors.As(err, &positioned) {
		return fmt.Sprintf("%s: %v", fileName, err)
	}
	pe := positioned.ParseErr()
	if pe.Span == nil || pe.Span.Start == nil || pe.Span.Start.Offset < 0 {
		return fmt.Sprintf("%s: %s", fileName, pe.Msg)
	}
	start := pe.Span.Start
	return fmt.Sprintf("%s:%d:%d: %s\n%s", fileName, start.Line+1, start.Col+1, pe.Msg, pe.Snippet())
}
