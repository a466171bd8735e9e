package cache

import "sync"

// Cache is a generic thread-safe LRU cache with a fixed capacity.
// When an insertion exceeds the capacity, the least recently used entry
// is evicted.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	order    list[K, V]
	capacity int

	hits, misses, evictions uint64
}

// node is an entry in the recency list. The head is the most recently used.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// New creates a cache holding at most capacity entries.
// A capacity of 0 or less means unlimited.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*node[K, V]),
		capacity: capacity,
	}
}

// Get retrieves a value and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.moveToFront(n)
	return n.value, true
}

// Set stores a value, replacing any existing entry for key.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

// GetOrCreate returns the cached value for key or calls create and caches
// its result. Failed creations are not cached. create runs under the lock,
// so concurrent callers never build the same entry twice.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.hits++
		c.order.moveToFront(n)
		return n.value, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.setLocked(key, value)
	return value, nil
}

// Delete removes key from the cache and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.unlink(n)
	delete(c.entries, key)
	return true
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*node[K, V])
	c.order = list[K, V]{}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// setLocked inserts or replaces an entry. Caller must hold c.mu.
func (c *Cache[K, V]) setLocked(key K, value V) {
	if n, ok := c.entries[key]; ok {
		n.value = value
		c.order.moveToFront(n)
		return
	}

	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.order.pushFront(n)

	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := c.order.tail
		c.order.unlink(oldest)
		delete(c.entries, oldest.key)
		c.evictions++
	}
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the fraction of lookups that hit, or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// list is an intrusive doubly-linked recency list. Not thread-safe.
type list[K comparable, V any] struct {
	head, tail *node[K, V]
}

func (l *list[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *list[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

func (l *list[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}
