/*
Package audit records who changed which roster record.

PURPOSE:
  The write path (assignments, removals, leaves, absences) describes each
  change as a Change. The Recorder stamps it with an ID and timestamp,
  appends it to the audit log and, when configured, publishes it so other
  systems can follow roster edits without polling.

FAILURE POLICY:
  Recording never fails the write it describes. Sink errors are logged
  and reported to the optional failure hook (metrics), then dropped.

SEE ALSO:
  - generic/store.go: AuditLog contract
  - nats.go: NATSPublisher
  - snapshot.go: Before/after state maps
*/
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GDiazF/calendario/generic"
)

// Change describes one mutation. The Recorder fills ID and timestamp.
type Change struct {
	Actor       string
	IPAddress   string
	Action      generic.AuditAction
	EntityType  string
	EntityID    int64
	Description string
	Before      map[string]any
	After       map[string]any
	Details     map[string]any
}

// Publisher forwards recorded entries to an external system.
type Publisher interface {
	Publish(ctx context.Context, entry generic.AuditEntry) error
}

// Sink names passed to the failure hook.
const (
	SinkLog       = "log"
	SinkPublisher = "publisher"
)

// Recorder fans changes out to an AuditLog and an optional Publisher.
type Recorder struct {
	log       generic.AuditLog
	publisher Publisher
	logger    *zap.Logger
	onFailure func(sink string)
	now       func() time.Time
}

type Option func(*Recorder)

func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFailureHook is called once per failed sink.
func WithFailureHook(fn func(sink string)) Option {
	return func(r *Recorder) { r.onFailure = fn }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(log generic.AuditLog, opts ...Option) *Recorder {
	r := &Recorder{
		log:    log,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordChange stores and publishes c. It returns the entry as recorded;
// sink failures are logged, never returned.
func (r *Recorder) RecordChange(ctx context.Context, c Change) generic.AuditEntry {
	entry := generic.AuditEntry{
		ID:          uuid.NewString(),
		Timestamp:   r.now().UTC(),
		Actor:       c.Actor,
		Action:      c.Action,
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		Description: c.Description,
		Before:      c.Before,
		After:       c.After,
		IPAddress:   c.IPAddress,
		Details:     c.Details,
	}

	if r.log != nil {
		if err := r.log.Append(ctx, entry); err != nil {
			r.fail(SinkLog, entry, err)
		}
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, entry); err != nil {
			r.fail(SinkPublisher, entry, err)
		}
	}
	return entry
}

func (r *Recorder) fail(sink string, entry generic.AuditEntry, err error) {
	r.logger.Warn("audit sink failed",
		zap.String("sink", sink),
		zap.String("action", string(entry.Action)),
		zap.String("entity_type", entry.EntityType),
		zap.Int64("entity_id", entry.EntityID),
		zap.Error(err))
	if r.onFailure != nil {
		r.onFailure(sink)
	}
}
