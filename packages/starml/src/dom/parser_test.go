package dom_test

import (
	"errors"
	"strings"
	"testing"
	"unsafe"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreOffsets = cmp.Options{
	cmpopts.IgnoreFields(dom.SNode{}, "Offset"),
	cmpopts.IgnoreFields(dom.SAttribute{}, "Offset"),
	cmpopts.IgnoreFields(dom.SEvent{}, "Offset"),
}

func mustParse(t *testing.T, markup string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseDocument(markup)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

func literal(name, value string) *dom.SAttribute {
	return &dom.SAttribute{Name: name, ValueType: grammar.AttributeValueTypeLiteral, Value: value}
}

func bound(name string, valueType grammar.AttributeValueType, value string) *dom.SAttribute {
	return &dom.SAttribute{Name: name, ValueType: valueType, Value: value}
}

func element(tag string, attrs ...*dom.SAttribute) *dom.SElement {
	return &dom.SElement{Tag: tag, Attributes: attrs}
}

func TestParseDocument(t *testing.T) {
	t.Run("should build a tree of elements", func(t *testing.T) {
		markup := `
<lane orientation="vertical">
    <label text="{Title}" />
    <lane>
        <image sprite="{@Mods/Icons}" />
        <button click=|^Select(Id, "x")| />
    </lane>
</lane>`
		expected := &dom.Document{
			Root: &dom.SNode{
				Element: element("lane", literal("orientation", "vertical")),
				ChildNodes: []*dom.SNode{
					{Element: element("label", bound("text", grammar.AttributeValueTypeInputBinding, "Title"))},
					{
						Element: element("lane"),
						ChildNodes: []*dom.SNode{
							{Element: element("image", bound("sprite", grammar.AttributeValueTypeAssetBinding, "Mods/Icons"))},
							{Element: &dom.SElement{
								Tag: "button",
								Events: []*dom.SEvent{{
									Name:            "click",
									HandlerName:     "Select",
									ContextRedirect: grammar.DistanceRedirect{Depth: 1},
									Arguments: []*dom.SArgument{
										{Expression: "Id", ExpressionType: grammar.ArgumentExpressionTypeContextBinding},
										{Expression: "x", ExpressionType: grammar.ArgumentExpressionTypeLiteral},
									},
								}},
							}},
						},
					},
				},
			},
		}
		doc := mustParse(t, markup)
		if diff := cmp.Diff(expected, doc, ignoreOffsets); diff != "" {
			t.Errorf("ParseDocument mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should leave children nil for childless nodes", func(t *testing.T) {
		doc := mustParse(t, `<lane><label /></lane>`)
		if doc.Root.ChildNodes[0].ChildNodes != nil {
			t.Errorf("ChildNodes = %#v, want nil", doc.Root.ChildNodes[0].ChildNodes)
		}
	})

	t.Run("should match closing tags case-insensitively", func(t *testing.T) {
		doc := mustParse(t, `<Lane><Label></LABEL></lane>`)
		if doc.Root.Tag() != "Lane" || doc.Root.ChildNodes[0].Tag() != "Label" {
			t.Errorf("unexpected tags %q/%q", doc.Root.Tag(), doc.Root.ChildNodes[0].Tag())
		}
	})

	t.Run("should collect templates separately from the root", func(t *testing.T) {
		doc := mustParse(t, `
<template name="row"><label text="{&text}" /></template>
<lane />
<template name="cell"><frame /></template>`)
		if doc.Root.Tag() != "lane" {
			t.Errorf("Root tag = %q, want lane", doc.Root.Tag())
		}
		names := []string{}
		for _, template := range doc.Templates {
			names = append(names, dom.TemplateName(template))
		}
		if diff := cmp.Diff([]string{"row", "cell"}, names); diff != "" {
			t.Errorf("template names mismatch (-want +got):\n%s", diff)
		}
		if doc.FindTemplate("cell") != doc.Templates[1] {
			t.Errorf("FindTemplate(cell) did not return the second template")
		}
		if doc.FindTemplate("missing") != nil {
			t.Errorf("FindTemplate(missing) should be nil")
		}
	})

	t.Run("should not retain the markup text", func(t *testing.T) {
		markup := `<label text="Hello" />`
		doc := mustParse(t, markup)
		attr := doc.Root.Element.Attributes[0]
		if sharesMemory(markup, attr.Value) {
			t.Errorf("attribute value shares memory with the markup")
		}
	})
}

func sharesMemory(text, sub string) bool {
	if len(sub) == 0 {
		return false
	}
	start := uintptr(unsafe.Pointer(unsafe.StringData(text)))
	p := uintptr(unsafe.Pointer(unsafe.StringData(sub)))
	return p >= start && p < start+uintptr(len(text))
}

func TestParseDocument_Errors(t *testing.T) {
	cases := []struct {
		name    string
		markup  string
		offset  int
		message string
	}{
		{"should reject an empty document", "  ", 2, "no root node"},
		{"should reject a document with only templates", `<template name="a"><b/></template>`, 34, "no root node"},
		{"should reject multiple roots", `<a/><b/>`, 4, "only one root node"},
		{"should reject templates without a name", `<template><b/></template><a/>`, 0, "missing the required name"},
		{"should reject bound template names", `<template name="{Name}"><b/></template><a/>`, 10, "must be a literal"},
		{"should reject empty template names", `<template name=""><b/></template><a/>`, 10, "must not be empty"},
		{"should reject unclosed tags", `<a><b></b>`, 0, "Unclosed tag <a>"},
		{"should reject mismatched closing tags", `<a><b></c></a>`, 6, "does not match"},
		{"should reject stray closing tags", `</a>`, 0, "Unexpected closing tag"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := dom.ParseDocument(c.markup)
			var parserErr *grammar.ParserError
			if !errors.As(err, &parserErr) {
				t.Fatalf("ParseDocument(%q) error = %v, want *ParserError", c.markup, err)
			}
			if parserErr.Offset() != c.offset {
				t.Errorf("error offset = %d, want %d", parserErr.Offset(), c.offset)
			}
			if !strings.Contains(parserErr.Msg, c.message) {
				t.Errorf("error message %q does not contain %q", parserErr.Msg, c.message)
			}
		})
	}

	t.Run("should surface lexer errors", func(t *testing.T) {
		_, err := dom.ParseDocument(`<a b="x`)
		var lexErr *grammar.LexerError
		if !errors.As(err, &lexErr) {
			t.Fatalf("error = %v, want *LexerError", err)
		}
	})
}

func TestParseNode(t *testing.T) {
	t.Run("should parse the element under the reader", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`<a x="1"><b/></a><c/>`)
		if ok, err := reader.NextTag(); !ok || err != nil {
			t.Fatalf("NextTag() = %v, %v", ok, err)
		}
		node, err := dom.ParseNode(reader)
		if err != nil {
			t.Fatalf("ParseNode failed: %v", err)
		}
		expected := &dom.SNode{
			Element:    element("a", literal("x", "1")),
			ChildNodes: []*dom.SNode{{Element: element("b")}},
		}
		if diff := cmp.Diff(expected, node, ignoreOffsets); diff != "" {
			t.Errorf("ParseNode mismatch (-want +got):\n%s", diff)
		}
		if ok, _ := reader.NextTag(); !ok || reader.Tag.Name != "c" {
			t.Errorf("reader should continue with <c>, got %+v", reader.Tag)
		}
	})

	t.Run("should reject a reader positioned on a closing tag", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`</a>`)
		reader.NextTag()
		if _, err := dom.ParseNode(reader); err == nil {
			t.Errorf("ParseNode should fail on a closing tag")
		}
	})
}
