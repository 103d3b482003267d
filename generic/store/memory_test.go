package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDiazF/calendario/generic"
)

var base = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func entry(i int, action generic.AuditAction, entity string, actor string) generic.AuditEntry {
	return generic.AuditEntry{
		ID:         fmt.Sprintf("e%d", i),
		Timestamp:  base.Add(time.Duration(i) * time.Hour),
		Actor:      actor,
		Action:     action,
		EntityType: entity,
		EntityID:   int64(100 + i),
	}
}

func TestMemory_QueryNewestFirst(t *testing.T) {
	// GIVEN: Entries appended out of order
	ctx := context.Background()
	m := NewMemory()
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, m.Append(ctx, entry(i, generic.AuditAssign, "assignment", "ana")))
	}

	// WHEN: Querying without a filter
	got, err := m.Query(ctx, generic.AuditFilter{})

	// THEN: Newest first
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"e3", "e2", "e1", "e0"}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
}

func TestMemory_QueryFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Append(ctx, entry(0, generic.AuditAssign, "assignment", "Ana Rojas")))
	require.NoError(t, m.Append(ctx, entry(1, generic.AuditRemove, "assignment", "Luis")))
	require.NoError(t, m.Append(ctx, entry(2, generic.AuditCreate, "medical_leave", "ana")))
	require.NoError(t, m.Append(ctx, entry(3, generic.AuditCreate, "absence", "")))

	id := int64(101)
	from := base.Add(2 * time.Hour)

	tests := []struct {
		name   string
		filter generic.AuditFilter
		want   []string
	}{
		{"action", generic.AuditFilter{Action: "create"}, []string{"e3", "e2"}},
		{"entity", generic.AuditFilter{EntityType: "assignment"}, []string{"e1", "e0"}},
		{"actor substring ignores case", generic.AuditFilter{Actor: "ANA"}, []string{"e2", "e0"}},
		{"entity id", generic.AuditFilter{EntityID: &id}, []string{"e1"}},
		{"from", generic.AuditFilter{From: &from}, []string{"e3", "e2"}},
		{"limit", generic.AuditFilter{Limit: 1}, []string{"e3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Query(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemory_Purge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := range 5 {
		require.NoError(t, m.Append(ctx, entry(i, generic.AuditAssign, "assignment", "")))
	}

	// Strictly older than the cutoff goes; the entry at the cutoff stays
	n, err := m.Purge(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 3, m.Len())

	n, err = m.Purge(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Zero(t, m.Len())
}
