// Package cache provides a small generic LRU cache.
//
// The cache holds text layouts between frames: a label whose content, size
// and face did not change is shaped once and reused until it falls out of
// the least-recently-used window.
//
//	c := cache.New[string, int](128)
//	c.Set("key", 42)
//	v, ok := c.Get("key")
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
