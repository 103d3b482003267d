// Package store provides in-memory implementations of the generic contracts.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GDiazF/calendario/generic"
)

// =============================================================================
// MEMORY AUDIT LOG - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries []generic.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

// Append keeps entries sorted by timestamp.
func (m *Memory) Append(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Timestamp.After(entry.Timestamp)
	})
	m.entries = append(m.entries, generic.AuditEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry
	return nil
}

// Query walks newest to oldest until the limit is reached.
func (m *Memory) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := filter.EffectiveLimit()
	var out []generic.AuditEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.Matches(m.entries[i]) {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *Memory) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if before.IsZero() {
		n := int64(len(m.entries))
		m.entries = nil
		return n, nil
	}

	// Entries are sorted, so everything before the cut point goes.
	cut := sort.Search(len(m.entries), func(i int) bool {
		return !m.entries[i].Timestamp.Before(before)
	})
	m.entries = append([]generic.AuditEntry(nil), m.entries[cut:]...)
	return int64(cut), nil
}

// Len is the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
