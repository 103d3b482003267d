package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GDiazF/calendario/generic"
	"github.com/GDiazF/calendario/generic/store"
)

func seededLog(t *testing.T, now time.Time, ages ...int) *store.Memory {
	t.Helper()
	log := store.NewMemory()
	for i, days := range ages {
		require.NoError(t, log.Append(context.Background(), generic.AuditEntry{
			ID:        string(rune('a' + i)),
			Timestamp: now.AddDate(0, 0, -days),
			Action:    generic.AuditCreate,
		}))
	}
	return log
}

func TestRetentionScheduler_RunNow(t *testing.T) {
	// GIVEN: Entries 40, 31, 10 and 0 days old, 30 days of retention
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := seededLog(t, now, 40, 31, 10, 0)
	rs := NewRetentionScheduler(log, 30, zaptest.NewLogger(t))
	rs.now = func() time.Time { return now }

	// WHEN: Purging
	n, err := rs.RunNow()

	// THEN: Only the two older than 30 days go
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, log.Len())
}

func TestRetentionScheduler_ZeroRetentionPurgesAll(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := seededLog(t, now, 5, 0)
	rs := NewRetentionScheduler(log, 0, zaptest.NewLogger(t))
	rs.now = func() time.Time { return now }

	n, err := rs.RunNow()

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, log.Len())
}

func TestRetentionScheduler_StartPurgesImmediately(t *testing.T) {
	// GIVEN: A scheduler with a long interval
	now := time.Now()
	log := seededLog(t, now, 90, 1)
	rs := NewRetentionScheduler(log, 30, zaptest.NewLogger(t))
	rs.CheckInterval = time.Hour

	// WHEN: Starting and stopping
	rs.Start()
	rs.Stop()

	// THEN: The startup purge ran
	assert.Equal(t, 1, log.Len())
}

func TestRetentionScheduler_Disabled(t *testing.T) {
	log := seededLog(t, time.Now(), 90)
	rs := NewRetentionScheduler(log, 30, zaptest.NewLogger(t))
	rs.Enabled = false

	rs.Start()
	rs.Stop()

	assert.Equal(t, 1, log.Len())
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC)

	assert.True(t, retentionCutoff(0, now).IsZero())
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), retentionCutoff(30, now))
}
