package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"habitquest/api/internal/tabular"
)

// Memory is an in-process TTL cache. It is local to one server process and
// is not shared across horizontally-scaled instances.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	rows      []tabular.Row
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]tabular.Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return entry.rows, true
}

func (m *Memory) Set(_ context.Context, key string, rows []tabular.Row) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{rows: rows, expiresAt: m.now().Add(m.ttl)}
}

func (m *Memory) Invalidate(_ context.Context, sheetID, sheetName string) {
	prefix := scope(sheetID, sheetName)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
}
