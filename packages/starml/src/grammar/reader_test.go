package grammar_test

import (
	"errors"
	"testing"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/grammar"
	"github.com/google/go-cmp/cmp"
)

type readTag struct {
	Name       string
	Closing    bool
	Attributes []grammar.Attribute
	Events     []grammar.Event
}

func readAll(t *testing.T, markup string) []readTag {
	t.Helper()
	reader := grammar.NewDocumentReader(markup)
	result := []readTag{}
	for {
		ok, err := reader.NextTag()
		if err != nil {
			t.Fatalf("NextTag() failed: %v", err)
		}
		if !ok {
			return result
		}
		tag := readTag{Name: reader.Tag.Name, Closing: reader.Tag.IsClosingTag}
		for {
			ok, err := reader.NextMember()
			if err != nil {
				t.Fatalf("NextMember() failed: %v", err)
			}
			if !ok {
				break
			}
			switch reader.MemberKind {
			case grammar.MemberKindAttribute:
				attr := reader.Attribute
				attr.Offset = 0
				tag.Attributes = append(tag.Attributes, attr)
			case grammar.MemberKindEvent:
				event := reader.Event
				event.Offset = 0
				event.Arguments = append([]grammar.Argument(nil), event.Arguments...)
				tag.Events = append(tag.Events, event)
			}
		}
		result = append(result, tag)
	}
}

func TestDocumentReader_Tags(t *testing.T) {
	t.Run("should report a self-closing tag as an opening and a closing tag", func(t *testing.T) {
		expected := []readTag{
			{Name: "lane"},
			{Name: "image"},
			{Name: "image", Closing: true},
			{Name: "lane", Closing: true},
		}
		result := readAll(t, "<lane><image /></lane>")
		if diff := cmp.Diff(expected, result); diff != "" {
			t.Errorf("read mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should skip unread members when advancing to the next tag", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`<label text="a" color="b"/><frame>`)
		names := []string{}
		for {
			ok, err := reader.NextTag()
			if err != nil {
				t.Fatalf("NextTag() failed: %v", err)
			}
			if !ok {
				break
			}
			name := reader.Tag.Name
			if reader.Tag.IsClosingTag {
				name = "/" + name
			}
			names = append(names, name)
		}
		if diff := cmp.Diff([]string{"label", "/label", "frame"}, names); diff != "" {
			t.Errorf("tag sequence mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should skip comments anywhere between tokens", func(t *testing.T) {
		expected := []readTag{
			{Name: "a", Attributes: []grammar.Attribute{{Name: "b", Value: "c"}}},
			{Name: "a", Closing: true},
		}
		result := readAll(t, `<!-- one --><a <!-- two --> b="c"/><!-- three -->`)
		if diff := cmp.Diff(expected, result); diff != "" {
			t.Errorf("read mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDocumentReader_Attributes(t *testing.T) {
	t.Run("should read literal, bound and structural attributes", func(t *testing.T) {
		expected := []grammar.Attribute{
			{Name: "text", ValueType: grammar.AttributeValueTypeLiteral, Value: "Hello"},
			{Name: "tooltip", ValueType: grammar.AttributeValueTypeInputBinding, Value: "Tip"},
			{Name: "checked", ValueType: grammar.AttributeValueTypeTwoWayBinding, Value: "IsOn"},
			{Name: "sprite", ValueType: grammar.AttributeValueTypeAssetBinding, Value: "Mods/Icons"},
			{Name: "title", ValueType: grammar.AttributeValueTypeTranslationBinding, Value: "menu.title"},
			{Name: "if", Type: grammar.AttributeTypeStructural, IsNegated: true, ValueType: grammar.AttributeValueTypeInputBinding, Value: "Hidden"},
			{Name: "repeat", Type: grammar.AttributeTypeStructural, ValueType: grammar.AttributeValueTypeInputBinding, Value: "Items"},
			{Name: "empty", ValueType: grammar.AttributeValueTypeLiteral},
		}
		markup := `<label text="Hello" tooltip="{Tip}" checked="{<>IsOn}" sprite="{@Mods/Icons}" ` +
			`title="{#menu.title}" *!if="{Hidden}" *repeat="{Items}" empty="" />`
		result := readAll(t, markup)[0].Attributes
		if diff := cmp.Diff(expected, result); diff != "" {
			t.Errorf("attribute mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should read context redirects", func(t *testing.T) {
		expected := []grammar.Attribute{
			{Name: "a", ValueType: grammar.AttributeValueTypeInputBinding, Value: "Name", ParentDepth: 2},
			{Name: "b", ValueType: grammar.AttributeValueTypeOneTimeBinding, Value: "Name", ParentDepth: 1},
			{Name: "c", ValueType: grammar.AttributeValueTypeOutputBinding, Value: "Items.Count", ParentType: "Shop"},
		}
		result := readAll(t, `<x a="{^^Name}" b="{<:^.Name}" c="{>~Shop.Items.Count}"/>`)[0].Attributes
		if diff := cmp.Diff(expected, result); diff != "" {
			t.Errorf("attribute mismatch (-want +got):\n%s", diff)
		}
		redirects := []string{}
		for _, attr := range result {
			redirects = append(redirects, grammar.RedirectString(attr.ContextRedirect()))
		}
		if diff := cmp.Diff([]string{"^^", "^", "~Shop."}, redirects); diff != "" {
			t.Errorf("redirect mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should reject redirects on asset bindings", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`<x a="{@^Name}"/>`)
		if _, err := reader.NextTag(); err != nil {
			t.Fatalf("NextTag() failed: %v", err)
		}
		_, err := reader.NextMember()
		var parserErr *grammar.ParserError
		if !errors.As(err, &parserErr) {
			t.Fatalf("NextMember() error = %v, want *ParserError", err)
		}
	})
}

func TestDocumentReader_Events(t *testing.T) {
	t.Run("should read an event without arguments", func(t *testing.T) {
		expected := []grammar.Event{{Name: "click", HandlerName: "Save"}}
		result := readAll(t, `<button click=|Save| />`)[0].Events
		if diff := cmp.Diff(expected, result); diff != "" {
			t.Errorf("event mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should read handler redirects and every argument kind", func(t *testing.T) {
		expected := []grammar.Event{{
			Name:        "click",
			HandlerName: "Buy",
			ParentType:  "Shop",
			Arguments: []grammar.Argument{
				{Expression: "x, y", ExpressionType: grammar.ArgumentExpressionTypeLiteral},
				{Expression: "Id", ExpressionType: grammar.ArgumentExpressionTypeContextBinding, ParentDepth: 1},
				{Expression: "Button", ExpressionType: grammar.ArgumentExpressionTypeEventBinding},
				{Expression: "Item", ExpressionType: grammar.ArgumentExpressionTypeTemplateBinding},
				{Expression: "", ExpressionType: grammar.ArgumentExpressionTypeLiteral},
			},
		}}
		result := readAll(t, `<button click=|~Shop.Buy("x, y", ^Id, $Button, &Item, "")| />`)[0].Events
		if diff := cmp.Diff(expected, result); diff != "" {
			t.Errorf("event mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should read an empty argument list", func(t *testing.T) {
		result := readAll(t, `<button click=|Save()| />`)[0].Events
		if len(result) != 1 || len(result[0].Arguments) != 0 {
			t.Errorf("events = %+v, want one event without arguments", result)
		}
	})
}

func TestDocumentReader_Errors(t *testing.T) {
	t.Run("should report the unexpected and expected tokens", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`<a b c="d"/>`)
		if _, err := reader.NextTag(); err != nil {
			t.Fatalf("NextTag() failed: %v", err)
		}
		_, err := reader.NextMember()
		var parserErr *grammar.ParserError
		if !errors.As(err, &parserErr) {
			t.Fatalf("NextMember() error = %v, want *ParserError", err)
		}
		if parserErr.Unexpected != grammar.TokenTypeName {
			t.Errorf("Unexpected = %v, want %v", parserErr.Unexpected, grammar.TokenTypeName)
		}
		if diff := cmp.Diff([]grammar.TokenType{grammar.TokenTypeAssignment}, parserErr.Expected); diff != "" {
			t.Errorf("Expected mismatch (-want +got):\n%s", diff)
		}
		if parserErr.Offset() != 5 {
			t.Errorf("Offset() = %d, want 5", parserErr.Offset())
		}
	})

	t.Run("should report unexpected end of input", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`<a b=`)
		_, err := reader.NextTag()
		if err == nil {
			_, err = reader.NextMember()
		}
		var parserErr *grammar.ParserError
		if !errors.As(err, &parserErr) {
			t.Fatalf("error = %v, want *ParserError", err)
		}
	})

	t.Run("should surface lexer errors", func(t *testing.T) {
		reader := grammar.NewDocumentReader(`<a b="unterminated/>`)
		_, err := reader.NextTag()
		if err == nil {
			_, err = reader.NextMember()
		}
		var lexErr *grammar.LexerError
		if !errors.As(err, &lexErr) {
			t.Fatalf("error = %v, want *LexerError", err)
		}
	})
}
