// Package policy is the single place where access decisions are made. Every
// service consults Decide before touching the store, so tenant scoping and
// role rules cannot drift between endpoints.
//
// Cross-tenant access to an existing resource is reported exactly like a
// missing resource (NOT_FOUND), so callers cannot probe other tenants for
// identifiers. Denials inside the caller's own tenant are FORBIDDEN.
package policy

import (
	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
)

// Actor is the authenticated caller as described by its token claims.
type Actor struct {
	UserID   string
	TenantID *string
	Role     model.Role
}

// IsSuperAdmin reports the cross-tenant role.
func (a Actor) IsSuperAdmin() bool { return a.Role == model.RoleSuperAdmin }

// InTenant reports whether the actor is bound to tenantID.
func (a Actor) InTenant(tenantID string) bool {
	return a.TenantID != nil && *a.TenantID == tenantID
}

// Resource is the kind of row an action targets.
type Resource string

const (
	ResourceTenant  Resource = "tenant"
	ResourceUser    Resource = "user"
	ResourceProject Resource = "project"
	ResourceTask    Resource = "task"
)

// Action is what the actor wants to do with the target.
type Action string

const (
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionList         Action = "list"
	ActionUpdate       Action = "update"
	ActionUpdateStatus Action = "update_status"
	ActionDelete       Action = "delete"
)

// Target describes the row being acted on. TenantID is the tenant that owns
// it (nil only for the super admin's own user row). OwnerID is the user id
// whose identity grants ownership: the user itself for ResourceUser, the
// project's creator for projects and for tasks (tasks carry no creator of
// their own). For ActionCreate the target is the parent scope: the tenant
// for users and projects, the parent project for tasks.
type Target struct {
	Resource Resource
	TenantID *string
	OwnerID  string
}

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Code    apperr.Code
	Reason  string
}

// Err returns nil when allowed, otherwise the denial as an *apperr.Error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.New(d.Code, d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func forbid(reason string) Decision {
	return Decision{Code: apperr.CodeForbidden, Reason: reason}
}

func hidden(r Resource) Decision {
	return Decision{Code: apperr.CodeNotFound, Reason: NotFoundMessage(r)}
}

// NotFoundMessage is the message used both for absent rows and for rows the
// actor may not see.
func NotFoundMessage(r Resource) string {
	switch r {
	case ResourceTenant:
		return "Tenant not found"
	case ResourceUser:
		return "User not found"
	case ResourceProject:
		return "Project not found"
	case ResourceTask:
		return "Task not found"
	}
	return "Not found"
}

// Scoped applies the tenant-scoping rule alone: the super admin sees every
// tenant, everyone else only their own.
func Scoped(a Actor, tenantID *string) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return tenantID != nil && a.InTenant(*tenantID)
}

// Decide evaluates the rules for one operation. Unknown roles are denied.
func Decide(a Actor, action Action, t Target) Decision {
	if !a.Role.Valid() || a.UserID == "" {
		return Decision{Code: apperr.CodeUnauthorized, Reason: "Invalid token"}
	}
	if !Scoped(a, t.TenantID) {
		return hidden(scopeResource(t.Resource, action))
	}

	switch t.Resource {
	case ResourceTenant:
		return decideTenant(a, action)
	case ResourceUser:
		return decideUser(a, action, t)
	case ResourceProject:
		return decideProject(a, action, t)
	case ResourceTask:
		return decideTask(a, action, t)
	}
	return forbid("Access denied")
}

// scopeResource names what a hidden create/list reports as missing: creating
// a task under an invisible project is a missing project, adding a user to an
// invisible tenant is a missing tenant.
func scopeResource(r Resource, action Action) Resource {
	if action == ActionCreate || action == ActionList {
		switch r {
		case ResourceTask:
			return ResourceProject
		case ResourceUser:
			return ResourceTenant
		}
	}
	return r
}

// ListAllTenants guards the cross-tenant listing.
func ListAllTenants(a Actor) Decision {
	if a.IsSuperAdmin() {
		return allow()
	}
	return forbid("Access denied. Only super admins can list all tenants")
}

func decideTenant(a Actor, action Action) Decision {
	switch action {
	case ActionRead:
		return allow()
	case ActionUpdate:
		if a.Role.AtLeast(model.RoleTenantAdmin) {
			return allow()
		}
		return forbid("Access denied. Only tenant admins and super admins can update tenants")
	}
	return forbid("Access denied")
}

func decideUser(a Actor, action Action, t Target) Decision {
	switch action {
	case ActionList, ActionRead:
		return allow()
	case ActionCreate:
		if a.Role.AtLeast(model.RoleTenantAdmin) {
			return allow()
		}
		return forbid("Access denied. Only tenant admins can add users")
	case ActionUpdate:
		if a.UserID == t.OwnerID || a.Role.AtLeast(model.RoleTenantAdmin) {
			return allow()
		}
		return forbid("Access denied. You cannot update other users")
	case ActionDelete:
		if a.UserID == t.OwnerID {
			return forbid("Cannot delete yourself")
		}
		if a.Role.AtLeast(model.RoleTenantAdmin) {
			return allow()
		}
		return forbid("Access denied. Only tenant admins can delete users")
	}
	return forbid("Access denied")
}

func decideProject(a Actor, action Action, t Target) Decision {
	switch action {
	case ActionCreate:
		if a.TenantID == nil {
			return forbid("Super admin cannot create projects without a tenant")
		}
		return allow()
	case ActionRead, ActionList:
		return allow()
	case ActionUpdate, ActionDelete:
		if creatorOrAdmin(a, t.OwnerID) {
			return allow()
		}
		return forbid("Access denied. Only tenant admin or project creator can " + string(action) + " this project")
	}
	return forbid("Access denied")
}

func decideTask(a Actor, action Action, t Target) Decision {
	switch action {
	case ActionCreate, ActionRead, ActionList, ActionUpdate, ActionUpdateStatus:
		return allow()
	case ActionDelete:
		if creatorOrAdmin(a, t.OwnerID) {
			return allow()
		}
		return forbid("Access denied. Only tenant admin or project creator can delete tasks")
	}
	return forbid("Access denied")
}

// creatorOrAdmin is the ownership rule for projects and tasks. It is not a
// rank comparison: a plain user who created the project passes.
func creatorOrAdmin(a Actor, ownerID string) bool {
	return a.Role == model.RoleTenantAdmin || a.Role == model.RoleSuperAdmin ||
		(ownerID != "" && a.UserID == ownerID)
}
