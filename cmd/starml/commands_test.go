package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	return dir
}

func TestCheck(t *testing.T) {
	t.Run("should pass valid documents", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"menus/shop.sml": `<lane><label text="{Title}" /></lane>`,
			"hud/clock.sml":  `<label text="{Time}" />`,
		})
		var out bytes.Buffer
		if err := check(&out, dir); err != nil {
			t.Fatalf("check failed: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "2 documents") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("should report malformed documents", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"menus/shop.sml": `<lane />`,
			"broken/bad.sml": "<lane>\n  <label text=\"x\" />\n</frame>",
		})
		var out bytes.Buffer
		err := check(&out, dir)
		if err == nil || !strings.Contains(err.Error(), "1 of 2") {
			t.Errorf("check() = %v", err)
		}
		if !strings.Contains(out.String(), "broken/bad.sml:3:") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("should honor the project file", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"starml.json":          `{"root": "views", "categories": ["menus"], "exclude": ["menus/wip*"]}`,
			"views/menus/shop.sml": `<lane />`,
			"views/menus/wip.sml":  `<lane>`,
			"views/hud/bad.sml":    `<lane>`,
		})
		var out bytes.Buffer
		if err := check(&out, dir); err != nil {
			t.Fatalf("check failed: %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "1 documents") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("should check a single file", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"bad.sml": `<lane>`})
		var out bytes.Buffer
		if err := check(&out, filepath.Join(dir, "bad.sml")); err == nil {
			t.Errorf("expected an error")
		}
	})
}

func TestFormat(t *testing.T) {
	t.Run("should rewrite a document in place", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"shop.sml": "<lane>\n<label   text=\"{Title}\" />\n</lane>"})
		path := filepath.Join(dir, "shop.sml")
		var printed bytes.Buffer
		if err := format(&printed, path, false); err != nil {
			t.Fatalf("format failed: %v", err)
		}
		var out bytes.Buffer
		if err := format(&out, path, true); err != nil {
			t.Fatalf("format -w failed: %v", err)
		}
		written, _ := os.ReadFile(path)
		if string(written) != printed.String() {
			t.Errorf("written = %q, printed = %q", written, printed.String())
		}
		if !strings.Contains(string(written), `text="{Title}"`) {
			t.Errorf("written = %q", written)
		}
	})
}
