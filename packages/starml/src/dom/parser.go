package dom

import (
	"fmt"
	"strings"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// TemplateTag is the tag name of template definitions
const TemplateTag = "template"

// ParseDocument parses markup text into a Document
func ParseDocument(text string) (*Document, error) {
	return ParseDocumentFile(util.NewParseSourceFile(text, ""))
}

// ParseDocumentFile parses the contents of file into a Document. The document must contain
// exactly one root node that is not a template, and every template must have a literal,
// non-empty name.
func ParseDocumentFile(file *util.ParseSourceFile) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			recoverError(r, &err)
		}
	}()
	reader := grammar.NewFileDocumentReader(file)
	doc = &Document{}
	for reader.MustNextTag() {
		if reader.Tag.IsClosingTag {
			fail(reader, reader.TagOffset, fmt.Sprintf("Unexpected closing tag </%s>", reader.Tag.Name))
		}
		node := mustParseNode(reader)
		if strings.EqualFold(node.Tag(), TemplateTag) {
			validateTemplate(reader, node)
			doc.Templates = append(doc.Templates, node)
			continue
		}
		if doc.Root != nil {
			fail(reader, node.Offset, fmt.Sprintf(
				"Document may have only one root node; found <%s> after <%s>", node.Tag(), doc.Root.Tag()))
		}
		doc.Root = node
	}
	if doc.Root == nil {
		fail(reader, len(file.Content), "Document has no root node")
	}
	return doc, nil
}

// ParseNode parses the element whose opening tag the reader has just read, including all of its
// members and descendants, up to and including its closing tag.
func ParseNode(reader *grammar.DocumentReader) (node *SNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			recoverError(r, &err)
		}
	}()
	if reader.Tag.IsClosingTag || reader.Tag.Name == "" {
		fail(reader, reader.TagOffset, "Expected an opening tag")
	}
	return mustParseNode(reader), nil
}

func mustParseNode(reader *grammar.DocumentReader) *SNode {
	offset := reader.TagOffset
	element := &SElement{Tag: strings.Clone(reader.Tag.Name)}
	for reader.MustNextMember() {
		switch reader.MemberKind {
		case grammar.MemberKindAttribute:
			element.Attributes = append(element.Attributes, NewSAttribute(&reader.Attribute))
		case grammar.MemberKindEvent:
			element.Events = append(element.Events, NewSEvent(&reader.Event))
		}
	}
	node := &SNode{Element: element, Offset: offset}
	for {
		if !reader.MustNextTag() {
			fail(reader, offset, fmt.Sprintf("Unclosed tag <%s>", element.Tag))
		}
		if reader.Tag.IsClosingTag {
			if !strings.EqualFold(reader.Tag.Name, element.Tag) {
				fail(reader, reader.TagOffset, fmt.Sprintf(
					"Closing tag </%s> does not match opening tag <%s>", reader.Tag.Name, element.Tag))
			}
			return node
		}
		node.ChildNodes = append(node.ChildNodes, mustParseNode(reader))
	}
}

func validateTemplate(reader *grammar.DocumentReader, node *SNode) {
	attr := node.Element.Attribute(grammar.AttributeTypeProperty, "name")
	switch {
	case attr == nil:
		fail(reader, node.Offset, "Template is missing the required name attribute")
	case attr.ValueType != grammar.AttributeValueTypeLiteral:
		fail(reader, attr.Offset, fmt.Sprintf("Template name must be a literal, not %s", attr.ValueType))
	case attr.Value == "":
		fail(reader, attr.Offset, "Template name must not be empty")
	}
}

func fail(reader *grammar.DocumentReader, offset int, msg string) {
	panic(grammar.NewParserError(reader.File(), offset, msg))
}

func recoverError(r any, err *error) {
	switch e := r.(type) {
	case *grammar.LexerError:
		*err = e
	case *grammar.ParserError:
		*err = e
	default:
		panic(r)
	}
}
