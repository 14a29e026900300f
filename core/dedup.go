package core

// DefaultSeenCapacity bounds the per-session deduplication cache.
const DefaultSeenCapacity = 100

// SeenCache is a bounded set of previously seen item URLs. Eviction is by
// first-seen order: inserting past capacity drops the oldest key. Lookups do
// not refresh a key's position.
//
// The cache is private per session and confined to the session orchestrator's
// goroutine; it is not safe for concurrent use.
type SeenCache struct {
	capacity int
	keys     map[string]struct{}
	order    []string // circular buffer of keys in insertion order
	head     int      // next eviction / write position once full
}

// NewSeenCache creates a cache bounded at capacity entries. Non-positive
// capacities fall back to DefaultSeenCapacity.
func NewSeenCache(capacity int) *SeenCache {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	return &SeenCache{
		capacity: capacity,
		keys:     make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Contains reports whether key has been seen and not yet evicted. The empty
// key is never contained: items without a URL cannot be deduplicated.
func (c *SeenCache) Contains(key string) bool {
	if key == "" {
		return false
	}
	_, ok := c.keys[key]
	return ok
}

// Add marks key as seen and returns true if it was new. Adding past capacity
// evicts the oldest key. The empty key is always reported new and never
// stored.
func (c *SeenCache) Add(key string) bool {
	if key == "" {
		return true
	}
	if _, ok := c.keys[key]; ok {
		return false
	}
	if len(c.order) < c.capacity {
		c.order = append(c.order, key)
	} else {
		delete(c.keys, c.order[c.head])
		c.order[c.head] = key
		c.head = (c.head + 1) % c.capacity
	}
	c.keys[key] = struct{}{}
	return true
}

// Clear removes all entries.
func (c *SeenCache) Clear() {
	c.keys = make(map[string]struct{}, c.capacity)
	c.order = c.order[:0]
	c.head = 0
}

// Len returns the number of cached keys.
func (c *SeenCache) Len() int { return len(c.keys) }
