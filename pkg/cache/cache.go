// Package cache provides an in-memory LRU cache and a content-addressed
// disk store for built control flow graph snapshots.
package cache

import (
	"container/list"
	"sync"
)

// Options configures the snapshot cache.
type Options struct {
	// MaxEntries bounds the number of cached snapshots. 0 means
	// unlimited.
	MaxEntries int

	// MaxBytes bounds the approximate memory held by cached snapshots.
	// 0 means unlimited.
	MaxBytes int64

	// OnEvict is called for every evicted snapshot.
	OnEvict func(key string, snap *Snapshot)
}

// LRU is a least-recently-used cache of graph snapshots, safe for
// concurrent use. Keys are whatever the caller chooses; the project
// builder keys by source content hash so edits invalidate naturally.
type LRU struct {
	mu           sync.Mutex
	items        map[string]*list.Element
	ll           *list.List // front is most recently used
	maxEntries   int
	maxBytes     int64
	currentBytes int64
	onEvict      func(string, *Snapshot)
	hits         int64
	misses       int64
}

type lruEntry struct {
	key  string
	snap *Snapshot
	size int64
}

// New creates an empty cache.
func New(opts Options) *LRU {
	return &LRU{
		items:      make(map[string]*list.Element),
		ll:         list.New(),
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		onEvict:    opts.OnEvict,
	}
}

// Get returns the snapshot cached under key, marking it most recently
// used.
func (c *LRU) Get(key string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).snap, true
}

// Set stores snap under key, evicting from the cold end while a limit
// is exceeded.
func (c *LRU) Set(key string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := snap.approxSize()
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*lruEntry)
		c.currentBytes += size - entry.size
		entry.snap = snap
		entry.size = size
		c.ll.MoveToFront(el)
		c.evict()
		return
	}

	el := c.ll.PushFront(&lruEntry{key: key, snap: snap, size: size})
	c.items[key] = el
	c.currentBytes += size
	c.evict()
}

// Delete drops key from the cache.
func (c *LRU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Clear drops every entry without invoking eviction callbacks.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.ll.Init()
	c.currentBytes = 0
}

// Len returns the number of cached snapshots.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats are point-in-time usage counters.
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Stats reports current usage.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries: len(c.items),
		Bytes:   c.currentBytes,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

func (c *LRU) evict() {
	for c.overLimit() {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.removeElement(back)
	}
}

func (c *LRU) overLimit() bool {
	if c.maxEntries > 0 && c.ll.Len() > c.maxEntries {
		return true
	}
	if c.maxBytes > 0 && c.currentBytes > c.maxBytes {
		return true
	}
	return false
}

func (c *LRU) removeElement(el *list.Element) {
	entry := el.Value.(*lruEntry)
	c.ll.Remove(el)
	delete(c.items, entry.key)
	c.currentBytes -= entry.size
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.snap)
	}
}
