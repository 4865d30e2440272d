package repository

import (
	"time"

	"github.com/iliyamo/taskhub/internal/model"
)

// Page is a 1-indexed page request. Size is bounded by the caller.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// TenantFilter narrows the super-admin tenant listing.
type TenantFilter struct {
	Status           *model.TenantStatus
	SubscriptionPlan *model.SubscriptionPlan
	Search           string
	Page             Page
}

// UserFilter narrows a tenant's user listing.
type UserFilter struct {
	TenantID string
	Role     *model.Role
	Search   string
	Page     Page
}

// ProjectFilter narrows a tenant's project listing.
type ProjectFilter struct {
	TenantID string
	Status   *model.ProjectStatus
	Search   string
	Page     Page
}

// TaskFilter narrows a project's task listing.
type TaskFilter struct {
	ProjectID  string
	Status     *model.TaskStatus
	Priority   *model.TaskPriority
	AssignedTo *string
	Search     string
	Page       Page
}

// TenantChanges lists tenant columns to overwrite; nil means untouched.
type TenantChanges struct {
	Name             *string
	Status           *model.TenantStatus
	SubscriptionPlan *model.SubscriptionPlan
	MaxUsers         *int
	MaxProjects      *int
}

// UserChanges lists user columns to overwrite; nil means untouched.
type UserChanges struct {
	FullName *string
	Role     *model.Role
	IsActive *bool
}

// ProjectChanges lists project columns to overwrite. Description may be set
// to NULL.
type ProjectChanges struct {
	Name        *string
	Description model.Optional[string]
	Status      *model.ProjectStatus
}

// TaskChanges lists task columns to overwrite. Description, AssignedTo and
// DueDate may be set to NULL.
type TaskChanges struct {
	Title       *string
	Description model.Optional[string]
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	AssignedTo  model.Optional[string]
	DueDate     model.Optional[time.Time]
}
