package model

import "time"

// AuditAction names a mutating operation recorded in the audit trail.
type AuditAction string

const (
	AuditRegisterTenant   AuditAction = "REGISTER_TENANT"
	AuditLogin            AuditAction = "LOGIN"
	AuditUpdateTenant     AuditAction = "UPDATE_TENANT"
	AuditCreateUser       AuditAction = "CREATE_USER"
	AuditUpdateUser       AuditAction = "UPDATE_USER"
	AuditDeleteUser       AuditAction = "DELETE_USER"
	AuditCreateProject    AuditAction = "CREATE_PROJECT"
	AuditUpdateProject    AuditAction = "UPDATE_PROJECT"
	AuditDeleteProject    AuditAction = "DELETE_PROJECT"
	AuditCreateTask       AuditAction = "CREATE_TASK"
	AuditUpdateTask       AuditAction = "UPDATE_TASK"
	AuditUpdateTaskStatus AuditAction = "UPDATE_TASK_STATUS"
	AuditDeleteTask       AuditAction = "DELETE_TASK"
)

// AuditLog mirrors the `audit_logs` table.
type AuditLog struct {
	ID         string
	TenantID   *string
	UserID     *string
	Action     AuditAction
	EntityType string
	EntityID   string
	IPAddress  string
	CreatedAt  time.Time
}
