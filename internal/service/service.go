// Package service holds the resource services. Each operation consults
// policy.Decide before it touches a store, translates repository sentinels
// into *apperr.Error values and hands an audit record to the Auditor once
// the write has committed.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/repository"
)

// TenantStore is the persistence the tenant and auth services need.
type TenantStore interface {
	GetByID(ctx context.Context, id string) (model.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (model.Tenant, error)
	CreateWithAdmin(ctx context.Context, t *model.Tenant, admin *model.User) error
	Update(ctx context.Context, id string, c repository.TenantChanges) (model.Tenant, error)
	List(ctx context.Context, f repository.TenantFilter) ([]model.TenantSummary, int, error)
}

// UserStore persists users. CreateWithinCap must check the tenant's
// max_users and insert atomically with respect to other creators.
type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	FindForLogin(ctx context.Context, email string, tenantID *string) (model.User, error)
	CreateWithinCap(ctx context.Context, u *model.User) error
	Update(ctx context.Context, id string, c repository.UserChanges) (model.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.UserFilter) ([]model.User, int, error)
}

// ProjectStore persists projects. CreateWithinCap has the same atomicity
// contract as UserStore.CreateWithinCap, against max_projects.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (model.Project, error)
	CreateWithinCap(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, id string, c repository.ProjectChanges) (model.Project, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.ProjectFilter) ([]model.ProjectSummary, int, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	GetByID(ctx context.Context, id string) (model.Task, error)
	Create(ctx context.Context, t *model.Task) error
	Update(ctx context.Context, id string, c repository.TaskChanges) (model.Task, error)
	UpdateStatus(ctx context.Context, id string, status model.TaskStatus) (model.Task, error)
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, f repository.TaskFilter) ([]model.TaskView, int, error)
}

// Auditor receives audit records after a write commits. Record must not
// block and must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, e model.AuditLog)
}

// LimitRecorder counts cap rejections and failed logins. *metrics.Metrics
// satisfies it; nil disables counting.
type LimitRecorder interface {
	LimitRejected(resource string)
	AuthFailed(reason string)
}

type nopRecorder struct{}

func (nopRecorder) LimitRejected(string) {}
func (nopRecorder) AuthFailed(string)    {}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, model.AuditLog) {}

// notFoundOr maps repository.ErrNotFound to a NOT_FOUND with msg and any
// other failure to INTERNAL_ERROR.
func notFoundOr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Internal(err)
}

// Pagination bounds.
const (
	MaxPageSize = 100

	defaultTenantPageSize  = 10
	defaultUserPageSize    = 50
	defaultProjectPageSize = 20
	defaultTaskPageSize    = 50
)

// PageRequest is a 1-indexed page number and page size as sent by the
// client. Zero values select the defaults.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) resolve(defLimit int) (repository.Page, error) {
	page, limit := p.Page, p.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defLimit
	}
	if page < 1 {
		return repository.Page{}, apperr.Validation("page must be a positive integer")
	}
	if limit < 1 || limit > MaxPageSize {
		return repository.Page{}, apperr.Validation("limit must be between 1 and 100")
	}
	return repository.Page{Number: page, Size: limit}, nil
}

// PageInfo is the pagination block of user, project and task listings.
type PageInfo struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

func pageInfo(p repository.Page, total int) PageInfo {
	return PageInfo{CurrentPage: p.Number, TotalPages: totalPages(total, p.Size), Limit: p.Size}
}

func totalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}

// requireNonNull rejects a field that was sent as JSON null but is not
// nullable.
func requireNonNull[T any](o model.Optional[T], field string) error {
	if o.IsNull() {
		return apperr.Validation(field + " cannot be null")
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// parseDueDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 time.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Validation("dueDate must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return t.UTC(), nil
}
