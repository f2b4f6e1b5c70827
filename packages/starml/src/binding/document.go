package binding

import (
	"errors"
	"time"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/backoff"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/dom"
	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
)

// ErrNoDocument is returned when the document source has no document.
var ErrNoDocument = errors.New("document is not available")

// DocumentView binds the document held by a value source and rebinds it whenever the document
// changes. A rebuild that fails is retried under the backoff rule instead of on every tick.
type DocumentView struct {
	document     sources.ValueSource
	binder       *NodeBinder
	context      *sources.BindingContext
	scope        sources.ResolutionScope
	tracker      *backoff.Tracker[string]
	root         *BoundNode
	needsRebuild bool
	lastErr      error
}

// NewDocumentView creates a new DocumentView. document must provide *dom.Document values.
func NewDocumentView(binder *NodeBinder, document sources.ValueSource, context *sources.BindingContext, scope sources.ResolutionScope, rule backoff.Rule) *DocumentView {
	return &DocumentView{
		document:     document,
		binder:       binder,
		context:      context,
		scope:        scope,
		tracker:      backoff.NewTracker[string](rule),
		needsRebuild: true,
	}
}

// Root returns the bound root node, or nil before the first successful build
func (v *DocumentView) Root() *BoundNode {
	return v.root
}

// View returns the root view, or nil when there is none
func (v *DocumentView) View() any {
	if v.root == nil {
		return nil
	}
	return v.root.View()
}

// Err returns the error of the most recent failed rebuild
func (v *DocumentView) Err() error {
	return v.lastErr
}

// Tick advances the view by one frame: it rebuilds the tree when the document changed and the
// backoff allows, otherwise it updates the existing bindings. It reports whether anything
// changed.
func (v *DocumentView) Tick(elapsed time.Duration) bool {
	v.tracker.Tick(elapsed)
	if v.document.Update() {
		v.needsRebuild = true
	}
	if v.needsRebuild {
		ran, err := v.tracker.TryRun(v.document.DisplayName(), v.rebuild)
		if err != nil {
			v.lastErr = err
			state, _ := v.tracker.State(v.document.DisplayName())
			v.binder.logger.Logger().Error("Failed to bind document",
				"document", v.document.DisplayName(), "error", err, "retry", state.Duration)
		}
		return ran && err == nil
	}
	if v.root == nil {
		return false
	}
	changed, err := v.root.Update()
	if err != nil {
		v.binder.logger.Logger().Error("Failed to update document", "document", v.document.DisplayName(), "error", err)
	}
	return changed
}

// Close releases every binding of the view
func (v *DocumentView) Close() error {
	if v.root != nil {
		v.root.Close()
		v.root = nil
	}
	return sources.Close(v.document)
}

func (v *DocumentView) rebuild() error {
	doc, _ := v.document.Value().(*dom.Document)
	if doc == nil {
		return ErrNoDocument
	}
	expanded, err := dom.ExpandTemplates(doc, v.binder.logger)
	if err != nil {
		return err
	}
	root, err := v.binder.Bind(expanded, v.context, v.scope)
	if err != nil {
		return err
	}
	if v.root != nil {
		v.root.Close()
	}
	v.root, v.needsRebuild, v.lastErr = root, false, nil
	return nil
}
