package sources

import (
	"fmt"
	"reflect"
)

// AssetCacheEntry is one cached asset. An entry becomes invalid once the asset changes, after
// which the cache must be asked for a fresh entry.
type AssetCacheEntry interface {
	Asset() any
	IsValid() bool
}

// AssetCache provides named assets of a requested type.
type AssetCache interface {
	Get(name string, assetType reflect.Type) (AssetCacheEntry, error)
}

// AssetSource reads a named asset from an AssetCache.
type AssetSource struct {
	cache     AssetCache
	name      string
	valueType reflect.Type
	entry     AssetCacheEntry
	value     any
	err       error
}

// NewAssetSource creates a new AssetSource and performs the first fetch.
func NewAssetSource(cache AssetCache, name string, valueType reflect.Type) *AssetSource {
	s := &AssetSource{cache: cache, name: name, valueType: valueType}
	s.Refresh(true)
	return s
}

func (s *AssetSource) CanRead() bool           { return true }
func (s *AssetSource) CanWrite() bool          { return false }
func (s *AssetSource) DisplayName() string     { return "@" + s.name }
func (s *AssetSource) ValueType() reflect.Type { return s.valueType }
func (s *AssetSource) SetValue(any) error      { return ErrReadOnly }

// Value returns the last fetched asset, or the zero value when none was fetched.
func (s *AssetSource) Value() any {
	if s.value == nil {
		return reflect.Zero(s.valueType).Interface()
	}
	return s.value
}

// Err returns the error of the most recent failed fetch
func (s *AssetSource) Err() error {
	return s.err
}

// Update fetches the asset again if the cached entry is missing or stale.
func (s *AssetSource) Update() bool {
	return s.Refresh(false)
}

// Refresh fetches the asset when force is set or the current entry is missing or stale, and
// reports whether the fetch produced a different value.
func (s *AssetSource) Refresh(force bool) bool {
	if !force && s.entry != nil && s.entry.IsValid() {
		return false
	}
	entry, err := s.cache.Get(s.name, s.valueType)
	if err != nil {
		s.entry, s.err = nil, fmt.Errorf("asset %s: %w", s.name, err)
		return false
	}
	s.entry, s.err = entry, nil
	next := entry.Asset()
	if next != nil && !reflect.TypeOf(next).AssignableTo(s.valueType) {
		s.err = fmt.Errorf("asset %s is a %T, not %s", s.name, next, s.valueType)
		return false
	}
	changed := !sameValue(s.value, next)
	s.value = next
	return changed
}

// sameValue compares values that are comparable; values that are not are assumed different.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
