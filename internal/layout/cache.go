package layout

import (
	"path/filepath"
	"sync"
)

// The descriptor is read once per process and reused by every feature
// that needs field names. Failed loads are not cached so a fixed
// descriptor is picked up on the next call.
var (
	cacheMu sync.Mutex
	cache   = make(map[string]*Registry)
)

// Cached returns the registry for path, loading it on first use.
func Cached(path string) (*Registry, error) {
	key := cacheKey(path)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if reg, ok := cache[key]; ok {
		return reg, nil
	}

	reg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cache[key] = reg
	return reg, nil
}

// ResetCache drops every cached registry.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]*Registry)
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
