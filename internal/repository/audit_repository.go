package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/model"
)

// AuditRepo writes rows to `audit_logs`. Rows are append-only.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert stores one audit record, assigning an id and timestamp when unset.
func (r *AuditRepo) Insert(ctx context.Context, l *model.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_logs (id,tenant_id,user_id,action,entity_type,entity_id,ip_address,created_at) VALUES (?,?,?,?,?,?,?,?)",
		l.ID, nullString(l.TenantID), nullString(l.UserID), l.Action, l.EntityType, l.EntityID, l.IPAddress, l.CreatedAt)
	return err
}
