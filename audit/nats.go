package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/GDiazF/calendario/generic"
)

// Event is the JSON published for each audit entry.
type Event struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Actor       string         `json:"actor,omitempty"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    int64          `json:"entity_id"`
	Description string         `json:"description"`
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

func eventOf(e generic.AuditEntry) Event {
	return Event{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		Actor:       e.Actor,
		Action:      string(e.Action),
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		Before:      e.Before,
		After:       e.After,
		Details:     e.Details,
	}
}

// NATSPublisher publishes entries on "<subject>.<entity_type>", so
// consumers can subscribe to "<subject>.>" or to a single entity type.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	owned   bool
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher wraps an existing connection. Close leaves it open.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// ConnectNATS dials url and returns a publisher that owns the connection.
func ConnectNATS(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("calendario-audit"),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("audit publisher disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("audit publisher reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn, subject: subject, owned: true}, nil
}

// Publish sends the entry. ctx is unused: NATS publish is buffered and
// does not block on the server.
func (p *NATSPublisher) Publish(_ context.Context, entry generic.AuditEntry) error {
	data, err := json.Marshal(eventOf(entry))
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	return p.conn.Publish(p.subject+"."+entry.EntityType, data)
}

// Close drains the connection if the publisher opened it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.conn.Drain()
}
