package assets_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/assets"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryCache(t *testing.T) {
	t.Run("should invalidate replaced entries", func(t *testing.T) {
		cache := assets.NewMemoryCache()
		cache.Put("icons/star", "v1")
		first, err := cache.Get("icons/star", reflect.TypeFor[string]())
		if err != nil || first.Asset() != "v1" || !first.IsValid() {
			t.Fatalf("Get() = %v, %v", first, err)
		}
		cache.Put("icons/star", "v2")
		if first.IsValid() {
			t.Errorf("replaced entry should be stale")
		}
		second, _ := cache.Get("icons/star", reflect.TypeFor[string]())
		if second.Asset() != "v2" {
			t.Errorf("Asset() = %v, want v2", second.Asset())
		}
		cache.Invalidate("icons/star")
		if second.IsValid() {
			t.Errorf("invalidated entry should be stale")
		}
		if _, err := cache.Get("icons/star", nil); !errors.Is(err, assets.ErrAssetNotFound) {
			t.Errorf("expected ErrAssetNotFound, got %v", err)
		}
	})

	t.Run("should check asset types", func(t *testing.T) {
		cache := assets.NewMemoryCache()
		cache.Put("count", 3)
		if _, err := cache.Get("count", reflect.TypeFor[string]()); err == nil {
			t.Errorf("expected a type error")
		}
	})
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"menus/shop.sml":         {Data: []byte(`<lane><label text="{Title}" /></lane>`)},
		"menus/nested/inbox.sml": {Data: []byte(`<frame />`)},
		"menus/readme.txt":       {Data: []byte(`not markup`)},
		"hud/clock.sml":          {Data: []byte(`<label text="{Time}" />`)},
		"broken/bad.sml":         {Data: []byte("<lane>\n  <label text=\"x\" />\n</frame>")},
	}
}

func TestDocumentLoader(t *testing.T) {
	t.Run("should load and cache documents", func(t *testing.T) {
		loader := assets.NewDocumentLoader(testFS(), assets.NewMemoryCache(), assets.WithLoaderLogger(quietLogger()))
		entry, err := loader.Get("menus/shop", reflect.TypeFor[*dom.Document]())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		doc := entry.Asset().(*dom.Document)
		if doc.Root.Tag() != "lane" {
			t.Errorf("root tag = %s", doc.Root.Tag())
		}
		again, _ := loader.Get("menus/shop", nil)
		if again.Asset() != entry.Asset() {
			t.Errorf("expected the cached document")
		}
	})

	t.Run("should describe malformed documents", func(t *testing.T) {
		loader := assets.NewDocumentLoader(testFS(), assets.NewMemoryCache(), assets.WithLoaderLogger(quietLogger()))
		_, err := loader.Load("broken/bad")
		var docErr *assets.DocumentError
		if !errors.As(err, &docErr) {
			t.Fatalf("expected a DocumentError, got %v", err)
		}
		if !strings.HasPrefix(docErr.Description, "broken/bad.sml:3:") {
			t.Errorf("Description = %q", docErr.Description)
		}
		if !strings.Contains(docErr.Description, "^") {
			t.Errorf("Description should contain a caret line: %q", docErr.Description)
		}
	})

	t.Run("should report missing files", func(t *testing.T) {
		loader := assets.NewDocumentLoader(testFS(), assets.NewMemoryCache(), assets.WithLoaderLogger(quietLogger()))
		if _, err := loader.Get("menus/missing", nil); err == nil {
			t.Errorf("expected an error")
		}
	})

	t.Run("should preload categories in the background", func(t *testing.T) {
		cache := assets.NewMemoryCache()
		loader := assets.NewDocumentLoader(testFS(), cache, assets.WithLoaderLogger(quietLogger()))
		if err := loader.Preload(context.Background(), "menus", "hud", "broken"); err != nil {
			t.Fatalf("Preload failed: %v", err)
		}
		expected := []string{"hud/clock", "menus/nested/inbox", "menus/shop"}
		if diff := cmp.Diff(expected, cache.Names()); diff != "" {
			t.Errorf("cached names mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should filter preloaded names and record failures", func(t *testing.T) {
		cache := assets.NewMemoryCache()
		loader := assets.NewDocumentLoader(testFS(), cache,
			assets.WithLoaderLogger(quietLogger()),
			assets.WithFilter(func(name string) bool { return !strings.HasPrefix(name, "menus/nested") }))
		if err := loader.Preload(context.Background(), "."); err != nil {
			t.Fatalf("Preload failed: %v", err)
		}
		if diff := cmp.Diff([]string{"hud/clock", "menus/shop"}, cache.Names()); diff != "" {
			t.Errorf("cached names mismatch (-want +got):\n%s", diff)
		}
		failures := loader.Failures()
		if len(failures) != 1 || failures[0].Name != "broken/bad" {
			t.Errorf("Failures() = %v", failures)
		}
	})

	t.Run("should fail preloading missing categories", func(t *testing.T) {
		loader := assets.NewDocumentLoader(testFS(), assets.NewMemoryCache(), assets.WithLoaderLogger(quietLogger()))
		if err := loader.Preload(context.Background(), "missing"); err == nil {
			t.Errorf("expected an error")
		}
	})

	t.Run("should stop preloading when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		loader := assets.NewDocumentLoader(testFS(), assets.NewMemoryCache(), assets.WithLoaderLogger(quietLogger()))
		if err := loader.Preload(ctx, "menus"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("should use a custom extension", func(t *testing.T) {
		fsys := fstest.MapFS{"views/a.starml": {Data: []byte(`<frame />`)}}
		loader := assets.NewDocumentLoader(fsys, assets.NewMemoryCache(), assets.WithExtension("starml"))
		if _, err := loader.Load("views/a"); err != nil {
			t.Errorf("Load failed: %v", err)
		}
	})
}
