package context

import (
	"context"
	"sync"
)

// SummaryCache stores summaries of older transcripts. Implementations must be
// safe for concurrent use. A failing cache never fails a compression.
type SummaryCache interface {
	Get(ctx context.Context, key string) (summary string, ok bool, err error)
	Set(ctx context.Context, key, summary string) error
}

// MemoryCache is an in-process SummaryCache with a simple entry cap.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]string
	order      []string
	maxEntries int
}

// NewMemoryCache creates a cache holding at most maxEntries summaries
// (oldest evicted first). maxEntries <= 0 means 1024.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MemoryCache{
		entries:    make(map[string]string),
		maxEntries: maxEntries,
	}
}

// Get implements SummaryCache.
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[key]
	return s, ok, nil
}

// Set implements SummaryCache.
func (m *MemoryCache) Set(_ context.Context, key, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = summary
	for len(m.order) > m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	return nil
}

// Len returns the number of cached summaries.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ SummaryCache = (*MemoryCache)(nil)
