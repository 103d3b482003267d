/*
scheduler.go - Automated audit log retention

PURPOSE:
  Periodically deletes audit entries older than the retention period so
  the audit table does not grow without bound.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Purges once immediately on start, then on every tick
  - RetentionDays = 0 deletes every entry (matches the manual cleanup)
  - Failures are logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: audit.purge_interval (default: 24 hours)
  - RetentionDays: audit.retention_days (default: 30)
  - Enabled: false when purge_interval is 0

USAGE:
  scheduler := NewRetentionScheduler(store, 30, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: PurgeAuditLogs endpoint (manual purge)
  - generic/store.go: AuditLog.Purge
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GDiazF/calendario/generic"
)

// RetentionScheduler handles automated audit log purges.
type RetentionScheduler struct {
	Log           generic.AuditLog
	Metrics       *Metrics
	CheckInterval time.Duration
	RetentionDays int
	Enabled       bool

	logger *zap.Logger
	now    func() time.Time
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRetentionScheduler creates a new scheduler.
func NewRetentionScheduler(log generic.AuditLog, retentionDays int, logger *zap.Logger) *RetentionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionScheduler{
		Log:           log,
		CheckInterval: 24 * time.Hour,
		RetentionDays: retentionDays,
		Enabled:       true,
		logger:        logger.Named("retention"),
		now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RetentionScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.logger.Info("disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.logger.Info("started",
		zap.Duration("interval", rs.CheckInterval),
		zap.Int("retention_days", rs.RetentionDays))
}

// Stop stops the scheduler.
func (rs *RetentionScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RetentionScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.purge()

	for {
		select {
		case <-rs.ticker.C:
			rs.purge()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RetentionScheduler) purge() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := retentionCutoff(rs.RetentionDays, rs.now())
	n, err := rs.Log.Purge(ctx, cutoff)
	if err != nil {
		rs.logger.Error("purge failed", zap.Error(err))
		return 0, err
	}
	rs.Metrics.ObservePurge(n)
	if n > 0 {
		rs.logger.Info("purged audit entries", zap.Int64("deleted", n), zap.Time("before", cutoff))
	}
	return n, nil
}

// RunNow purges immediately (for testing/admin).
func (rs *RetentionScheduler) RunNow() (int64, error) {
	return rs.purge()
}

// GetNextRunTime returns when the next scheduled purge will occur.
func (rs *RetentionScheduler) GetNextRunTime() time.Time {
	return rs.now().Add(rs.CheckInterval)
}

// retentionCutoff is the purge threshold: entries strictly older go.
// Zero days yields the zero time, which purges everything.
func retentionCutoff(days int, now time.Time) time.Time {
	if days == 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}
