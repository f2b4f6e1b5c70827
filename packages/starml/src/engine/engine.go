package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"reflect"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/assets"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/binding"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/config"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/converters"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/descriptors"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
)

// ErrNoViews is returned when a document is opened on an engine without a view factory.
var ErrNoViews = errors.New("engine has no view factory")

var documentType = reflect.TypeFor[*dom.Document]()

// Engine holds the loader, conversion registry, descriptors and binder built from one
// EngineConfig. Documents are read from fsys by asset name.
type Engine struct {
	config      *config.EngineConfig
	registry    *converters.Registry
	descriptors *descriptors.ReflectionFactory
	loader      *assets.DocumentLoader
	sources     *sources.Factory
	binder      *binding.NodeBinder
	views       binding.ViewFactory
}

// New creates a new Engine. views may be nil for an engine that only loads and expands
// documents. A nil cfg uses the defaults of config.NewEngineConfig.
func New(fsys fs.FS, views binding.ViewFactory, cfg *config.EngineConfig, loaderOpts ...assets.LoaderOption) *Engine {
	if cfg == nil {
		cfg = config.NewEngineConfig()
	}
	opts := append([]assets.LoaderOption{
		assets.WithExtension(cfg.Extension),
		assets.WithLoaderLogger(cfg.Logger),
	}, loaderOpts...)
	loader := assets.NewDocumentLoader(fsys, assets.NewMemoryCache(), opts...)

	registry := cfg.NewRegistry()
	descriptorFactory := descriptors.NewReflectionFactory()
	sourceFactory := sources.NewFactory(registry, loader.Cache())
	return &Engine{
		config:      cfg,
		registry:    registry,
		descriptors: descriptorFactory,
		loader:      loader,
		sources:     sourceFactory,
		binder:      binding.NewNodeBinder(views, descriptorFactory, sourceFactory, cfg.Logger),
		views:       views,
	}
}

// Config returns the configuration the engine was built from
func (e *Engine) Config() *config.EngineConfig {
	return e.config
}

// Registry returns the conversion registry
func (e *Engine) Registry() *converters.Registry {
	return e.registry
}

// Loader returns the document loader
func (e *Engine) Loader() *assets.DocumentLoader {
	return e.loader
}

// Binder returns the node binder
func (e *Engine) Binder() *binding.NodeBinder {
	return e.binder
}

// Preload loads every document in the given categories in the background.
func (e *Engine) Preload(ctx context.Context, categories ...string) error {
	return e.loader.Preload(ctx, categories...)
}

// Reload reads the document name again. Open views of it rebuild on their next tick.
func (e *Engine) Reload(name string) error {
	_, err := e.loader.Load(name)
	return err
}

// Expand returns the root of the document name with its templates expanded.
func (e *Engine) Expand(name string) (*dom.SNode, error) {
	entry, err := e.loader.Get(name, documentType)
	if err != nil {
		return nil, err
	}
	root, err := dom.ExpandTemplates(entry.Asset().(*dom.Document), e.binder.Logger())
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", name, err)
	}
	return root, nil
}

// OpenDocument creates a view of the document name bound to data. The view is built on its
// first tick and follows later reloads of the document.
func (e *Engine) OpenDocument(name string, data any, scope sources.ResolutionScope) (*binding.DocumentView, error) {
	if e.views == nil {
		return nil, ErrNoViews
	}
	bindingContext, err := sources.CreateContext(data, e.descriptors, nil)
	if err != nil {
		return nil, err
	}
	document := sources.NewAssetSource(e.loader, name, documentType)
	return binding.NewDocumentView(e.binder, document, bindingContext, scope, e.config.BackoffRule), nil
}
