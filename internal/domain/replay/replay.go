// Package replay tracks already-resolved randomness request ids so that a
// duplicate or stale fulfillment callback can be told apart from a spoofed
// one. Both are discarded silently; only the classification differs.
package replay

import (
	"context"
	"sync"
)

const defaultMaxSize = 50000

// Guard records resolved ids for at-most-once classification.
type Guard interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Size returns the number of ids currently tracked.
	Size() int
}

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize bounds the guard; the oldest ids are evicted first. A
// non-positive size means unbounded.
func WithMaxSize(n int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = n
	}
}

// inMemoryGuard keeps a bounded set with FIFO eviction. The ring holds
// insertion order; evicting the oldest entry is one map delete.
type inMemoryGuard struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	next    int
	maxSize int
}

// NewGuard creates an in-memory replay guard.
func NewGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: defaultMaxSize,
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.maxSize > 0 {
		g.ring = make([]string, g.maxSize)
	}
	return g
}

func (g *inMemoryGuard) SeenAndRecord(_ context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[id]; ok {
		return true
	}
	if g.maxSize > 0 {
		if old := g.ring[g.next]; old != "" {
			delete(g.seen, old)
		}
		g.ring[g.next] = id
		g.next = (g.next + 1) % g.maxSize
	}
	g.seen[id] = struct{}{}
	return false
}

func (g *inMemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
