package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/repository"
)

// ProjectService manages projects inside a tenant, enforcing the project cap.
type ProjectService struct {
	projects ProjectStore
	audit    Auditor
	rec      LimitRecorder
}

// NewProjectService builds a ProjectService. A nil audit discards records.
func NewProjectService(projects ProjectStore, audit Auditor, rec LimitRecorder) *ProjectService {
	if audit == nil {
		audit = nopAuditor{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ProjectService{projects: projects, audit: audit, rec: rec}
}

// CreateProjectInput is the body of POST /projects.
type CreateProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

func projectStatus(s string) (model.ProjectStatus, error) {
	st := model.ProjectStatus(s)
	if !st.Valid() {
		return "", apperr.Validation("Invalid status. Must be one of: active, archived, completed")
	}
	return st, nil
}

// Create adds a project to the caller's tenant, subject to max_projects.
// The caller becomes its creator.
func (s *ProjectService) Create(ctx context.Context, a policy.Actor, in CreateProjectInput) (model.Project, error) {
	if err := policy.Decide(a, policy.ActionCreate, policy.Target{Resource: policy.ResourceProject, TenantID: a.TenantID}).Err(); err != nil {
		return model.Project{}, err
	}
	name, err := validateName(in.Name, "Project name")
	if err != nil {
		return model.Project{}, err
	}
	status := model.ProjectActive
	if in.Status != "" {
		if status, err = projectStatus(in.Status); err != nil {
			return model.Project{}, err
		}
	}

	p := &model.Project{
		TenantID:    *a.TenantID,
		Name:        name,
		Description: in.Description,
		Status:      status,
		CreatedBy:   a.UserID,
	}
	switch err := s.projects.CreateWithinCap(ctx, p); {
	case err == nil:
	case errors.Is(err, repository.ErrLimitReached):
		s.rec.LimitRejected("project")
		return model.Project{}, apperr.Forbidden("Project limit reached. Cannot create more projects")
	default:
		return model.Project{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTenant))
	}

	s.audit.Record(ctx, model.AuditLog{
		TenantID: &p.TenantID, UserID: &a.UserID, Action: model.AuditCreateProject,
		EntityType: "project", EntityID: p.ID,
	})
	return *p, nil
}

// ListProjectsInput carries the raw query of GET /projects.
type ListProjectsInput struct {
	// TenantID selects the tenant for a super admin and is ignored for
	// everyone else.
	TenantID string
	Status   string
	Search   string
	Page     PageRequest
}

// ProjectList is one page of a tenant's projects.
type ProjectList struct {
	Projects   []model.ProjectSummary `json:"projects"`
	Total      int                    `json:"total"`
	Pagination PageInfo               `json:"pagination"`
}

// List returns the projects of the caller's tenant.
func (s *ProjectService) List(ctx context.Context, a policy.Actor, in ListProjectsInput) (ProjectList, error) {
	var tenantID string
	switch {
	case a.IsSuperAdmin():
		if in.TenantID == "" {
			return ProjectList{}, apperr.Forbidden("Access denied. Super admin must specify a tenant")
		}
		tenantID = in.TenantID
	case a.TenantID != nil:
		tenantID = *a.TenantID
	}
	if err := policy.Decide(a, policy.ActionList, policy.Target{Resource: policy.ResourceProject, TenantID: &tenantID}).Err(); err != nil {
		return ProjectList{}, err
	}
	page, err := in.Page.resolve(defaultProjectPageSize)
	if err != nil {
		return ProjectList{}, err
	}
	f := repository.ProjectFilter{TenantID: tenantID, Search: strings.TrimSpace(in.Search), Page: page}
	if in.Status != "" {
		st, err := projectStatus(in.Status)
		if err != nil {
			return ProjectList{}, err
		}
		f.Status = &st
	}

	rows, total, err := s.projects.List(ctx, f)
	if err != nil {
		return ProjectList{}, apperr.Internal(err)
	}
	return ProjectList{Projects: rows, Total: total, Pagination: pageInfo(page, total)}, nil
}

func (s *ProjectService) load(ctx context.Context, a policy.Actor, action policy.Action, id string) (model.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return model.Project{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceProject))
	}
	if err := policy.Decide(a, action, policy.Target{
		Resource: policy.ResourceProject, TenantID: &p.TenantID, OwnerID: p.CreatedBy,
	}).Err(); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// ProjectUpdate is the body of PUT /projects/:id. Description may be
// cleared with null.
type ProjectUpdate struct {
	Name        model.Optional[string]              `json:"name"`
	Description model.Optional[string]              `json:"description"`
	Status      model.Optional[model.ProjectStatus] `json:"status"`
}

// Update edits a project. Only a tenant admin or the project's creator may.
func (s *ProjectService) Update(ctx context.Context, a policy.Actor, id string, in ProjectUpdate) (model.Project, error) {
	if _, err := s.load(ctx, a, policy.ActionUpdate, id); err != nil {
		return model.Project{}, err
	}
	if !in.Name.Set && !in.Description.Set && !in.Status.Set {
		return model.Project{}, apperr.Validation("No valid fields to update")
	}
	if err := requireNonNull(in.Name, "name"); err != nil {
		return model.Project{}, err
	}
	if err := requireNonNull(in.Status, "status"); err != nil {
		return model.Project{}, err
	}

	c := repository.ProjectChanges{Description: in.Description}
	if in.Name.Set {
		name, err := validateName(*in.Name.Value, "Project name")
		if err != nil {
			return model.Project{}, err
		}
		c.Name = &name
	}
	if in.Status.Set {
		st, err := projectStatus(string(*in.Status.Value))
		if err != nil {
			return model.Project{}, err
		}
		c.Status = &st
	}

	p, err := s.projects.Update(ctx, id, c)
	if err != nil {
		return model.Project{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceProject))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &p.TenantID, UserID: &a.UserID, Action: model.AuditUpdateProject,
		EntityType: "project", EntityID: p.ID,
	})
	return p, nil
}

// Delete removes a project and its tasks. Only a tenant admin or the
// project's creator may.
func (s *ProjectService) Delete(ctx context.Context, a policy.Actor, id string) error {
	p, err := s.load(ctx, a, policy.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return notFoundOr(err, policy.NotFoundMessage(policy.ResourceProject))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &p.TenantID, UserID: &a.UserID, Action: model.AuditDeleteProject,
		EntityType: "project", EntityID: p.ID,
	})
	return nil
}
