package model

import "time"

// Role is the fixed set of actor roles.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	}
	return false
}

// rank orders roles for administrative actions only.
func (r Role) rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleTenantAdmin:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// AtLeast reports whether r is equal to or above min in the administrative
// hierarchy super_admin > tenant_admin > user. Ownership decisions on
// projects and tasks do not use it.
func (r Role) AtLeast(min Role) bool { return r.rank() >= min.rank() && r.rank() > 0 }

// User mirrors the `users` table. TenantID is nil only for the super admin.
//
// Fields:
//
//	ID           – users.id (UUID)
//	TenantID     – users.tenant_id, nil for super_admin
//	Email        – lower-cased, unique per tenant
//	PasswordHash – bcrypt hash, never serialised
//	FullName     – display name
//	Role         – one of Role*
//	IsActive     – inactive users cannot log in
type User struct {
	ID           string    `json:"id"`
	TenantID     *string   `json:"tenantId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRef is the short form of a user embedded in other resources.
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
}
