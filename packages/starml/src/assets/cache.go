// Package assets provides an in-memory asset cache and a loader that fills it with parsed
// markup documents.
package assets

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/sources"
)

// ErrAssetNotFound is returned for names with no cached asset.
var ErrAssetNotFound = errors.New("asset not found")

type entry struct {
	asset any
	valid atomic.Bool
}

func (e *entry) Asset() any {
	return e.asset
}

func (e *entry) IsValid() bool {
	return e.valid.Load()
}

// MemoryCache is a thread-safe sources.AssetCache. Replacing or invalidating an asset makes
// every entry previously handed out for it stale.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryCache creates a new MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]*entry{}}
}

// Put stores asset under name
func (c *MemoryCache) Put(name string, asset any) {
	next := &entry{asset: asset}
	next.valid.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if previous, ok := c.entries[name]; ok {
		previous.valid.Store(false)
	}
	c.entries[name] = next
}

// Invalidate removes the asset stored under name
func (c *MemoryCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if previous, ok := c.entries[name]; ok {
		previous.valid.Store(false)
		delete(c.entries, name)
	}
}

// Get returns the entry for name, which must hold a value assignable to assetType.
func (c *MemoryCache) Get(name string, assetType reflect.Type) (sources.AssetCacheEntry, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	if assetType != nil && e.asset != nil && !reflect.TypeOf(e.asset).AssignableTo(assetType) {
		return nil, fmt.Errorf("asset %s is a %T, not %s", name, e.asset, assetType)
	}
	return e, nil
}

// Names returns the names of all cached assets in order
func (c *MemoryCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
