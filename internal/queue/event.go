// Package queue carries audit records over RabbitMQ: a Publisher used as the
// dispatcher's sink and a consumer that persists what it receives.
package queue

import (
	"time"

	"github.com/iliyamo/taskhub/internal/model"
)

// AuditQueue is the durable queue audit events travel through.
const AuditQueue = "audit.events"

// AuditEvent is the wire form of one audit record. It is self-contained so
// the consumer never has to query the primary tables.
type AuditEvent struct {
	ID         string  `json:"id"`
	TenantID   *string `json:"tenant_id"`
	UserID     *string `json:"user_id"`
	Action     string  `json:"action"`
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id"`
	IPAddress  string  `json:"ip_address"`
	OccurredAt string  `json:"occurred_at"`
}

func EventFromLog(l model.AuditLog) AuditEvent {
	return AuditEvent{
		ID:         l.ID,
		TenantID:   l.TenantID,
		UserID:     l.UserID,
		Action:     string(l.Action),
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		IPAddress:  l.IPAddress,
		OccurredAt: l.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Log converts the event back into a row. A missing or malformed timestamp
// is left zero for the repository to fill.
func (e AuditEvent) Log() model.AuditLog {
	l := model.AuditLog{
		ID:         e.ID,
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     model.AuditAction(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IPAddress:  e.IPAddress,
	}
	if t, err := time.Parse(time.RFC3339Nano, e.OccurredAt); err == nil {
		l.CreatedAt = t.UTC()
	}
	return l
}
