/*
store.go - Audit log contract

PURPOSE:
  Every mutation on the write path (assign, edit, remove, leave and absence
  intake) leaves an audit entry: who did what to which record, with the
  record's state before and after. Rostering queries never read it.

KEY INTERFACES:
  AuditLog: append, filtered query (newest first), retention purge

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - audit/recorder.go: Fire-and-forget fan-out over AuditLog and NATS
*/
package generic

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// AUDIT LOG - Tracks who changed which roster record and when
// =============================================================================

// AuditEntry records one change.
type AuditEntry struct {
	ID          string
	Timestamp   time.Time
	Actor       string // who performed the action, empty for system jobs
	Action      AuditAction
	EntityType  string // e.g. "assignment", "medical_leave"
	EntityID    int64
	Description string
	Before      map[string]any // state before the change, nil on create
	After       map[string]any // state after the change, nil on delete
	IPAddress   string
	Details     map[string]any
}

type AuditAction string

const (
	AuditAssign AuditAction = "assign"
	AuditRemove AuditAction = "remove"
	AuditEdit   AuditAction = "edit"
	AuditCreate AuditAction = "create"
	AuditDelete AuditAction = "delete"
)

// AuditLog stores audit entries.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error

	// Query returns matching entries, newest first.
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)

	// Purge deletes entries older than before and returns how many went.
	// A zero before deletes everything.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// AuditFilter narrows a Query. String fields match case-insensitively
// as substrings; empty fields match everything.
type AuditFilter struct {
	Action     string
	EntityType string
	Actor      string
	EntityID   *int64
	From       *time.Time
	To         *time.Time
	Limit      int // 0 means DefaultAuditLimit
}

// DefaultAuditLimit caps Query when the filter does not set a limit.
const DefaultAuditLimit = 50

// EffectiveLimit returns the limit a store should apply.
func (f AuditFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultAuditLimit
	}
	return f.Limit
}

// Matches reports whether e passes every filter field.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if !containsFold(string(e.Action), f.Action) ||
		!containsFold(e.EntityType, f.EntityType) ||
		!containsFold(e.Actor, f.Actor) {
		return false
	}
	if f.EntityID != nil && *f.EntityID != e.EntityID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
