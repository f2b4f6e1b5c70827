package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/util"
)

// DefaultExtension is the file extension of markup documents
const DefaultExtension = ".sml"

var documentType = reflect.TypeFor[*dom.Document]()

// DocumentLoader loads markup documents from a file system and caches them by asset name. An
// asset name is the document's slash-separated path without its extension.
type DocumentLoader struct {
	fsys      fs.FS
	extension string
	cache     *MemoryCache
	logger    *slog.Logger
	filter    func(name string) bool

	mu       sync.Mutex
	failures map[string]*DocumentError
}

// LoaderOption configures a DocumentLoader
type LoaderOption func(*DocumentLoader)

// WithExtension sets the file extension of markup documents
func WithExtension(extension string) LoaderOption {
	return func(l *DocumentLoader) {
		if extension != "" && !strings.HasPrefix(extension, ".") {
			extension = "." + extension
		}
		l.extension = extension
	}
}

// WithLoaderLogger sets the logger receiving document diagnostics
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *DocumentLoader) {
		l.logger = logger
	}
}

// WithFilter restricts preloading to asset names accepted by filter
func WithFilter(filter func(name string) bool) LoaderOption {
	return func(l *DocumentLoader) {
		l.filter = filter
	}
}

// NewDocumentLoader creates a new DocumentLoader reading fsys and caching into cache.
func NewDocumentLoader(fsys fs.FS, cache *MemoryCache, opts ...LoaderOption) *DocumentLoader {
	l := &DocumentLoader{fsys: fsys, extension: DefaultExtension, cache: cache, logger: slog.Default(), failures: map[string]*DocumentError{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the cache the loader fills
func (l *DocumentLoader) Cache() *MemoryCache {
	return l.cache
}

// Load reads and parses the document name, replacing any cached copy. Malformed markup is
// reported with its position and a snippet of the offending line.
func (l *DocumentLoader) Load(name string) (*dom.Document, error) {
	fileName := name + l.extension
	content, err := fs.ReadFile(l.fsys, fileName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	doc, err := dom.ParseDocumentFile(util.NewParseSourceFile(string(content), fileName))
	if err != nil {
		description := util.DescribeError(fileName, err)
		l.logger.Error("Failed to parse document", "asset", name, "error", description)
		docErr := &DocumentError{Name: name, Description: description, Err: err}
		l.mu.Lock()
		l.failures[name] = docErr
		l.mu.Unlock()
		return nil, docErr
	}
	l.mu.Lock()
	delete(l.failures, name)
	l.mu.Unlock()
	l.cache.Put(name, doc)
	return doc, nil
}

// Failures returns the documents whose most recent load failed to parse, ordered by name.
func (l *DocumentLoader) Failures() []*DocumentError {
	l.mu.Lock()
	defer l.mu.Unlock()
	failures := make([]*DocumentError, 0, len(l.failures))
	for _, failure := range l.failures {
		failures = append(failures, failure)
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })
	return failures
}

// Get implements sources.AssetCache, loading documents that are not cached yet.
func (l *DocumentLoader) Get(name string, assetType reflect.Type) (sources.AssetCacheEntry, error) {
	if assetType != nil && !documentType.AssignableTo(assetType) {
		return nil, fmt.Errorf("documents cannot be loaded as %s", assetType)
	}
	if entry, err := l.cache.Get(name, documentType); err == nil {
		return entry, nil
	}
	if _, err := l.Load(name); err != nil {
		return nil, err
	}
	return l.cache.Get(name, documentType)
}

// Preload loads every document under the given top-level directories, one background task per
// directory. Documents that fail to parse are logged and skipped; the returned error reports
// unreadable directories or cancellation.
func (l *DocumentLoader) Preload(ctx context.Context, categories ...string) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, category := range categories {
		group.Go(func() error {
			return l.preloadCategory(ctx, category)
		})
	}
	return group.Wait()
}

func (l *DocumentLoader) preloadCategory(ctx context.Context, category string) error {
	count := 0
	err := fs.WalkDir(l.fsys, category, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || path.Ext(filePath) != l.extension {
			return nil
		}
		name := strings.TrimSuffix(filePath, l.extension)
		if l.filter != nil && !l.filter(name) {
			return nil
		}
		if _, err := l.Load(name); err != nil {
			var docErr *DocumentError
			if !errors.As(err, &docErr) {
				return err
			}
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("preload %s: %w", category, err)
	}
	l.logger.Debug("Preloaded documents", "category", category, "count", count)
	return nil
}

// DocumentError is a document that could not be parsed. Description holds the rendered
// diagnostic.
type DocumentError struct {
	Name        string
	Description string
	Err         error
}

func (e *DocumentError) Error() string {
	return e.Description
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
