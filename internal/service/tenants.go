package service

import (
	"context"
	"strings"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/repository"
)

// TenantService reads and updates tenants.
type TenantService struct {
	tenants TenantStore
	audit   Auditor
}

// NewTenantService builds a TenantService. A nil audit discards records.
func NewTenantService(tenants TenantStore, audit Auditor) *TenantService {
	if audit == nil {
		audit = nopAuditor{}
	}
	return &TenantService{tenants: tenants, audit: audit}
}

func (s *TenantService) load(ctx context.Context, a policy.Actor, action policy.Action, id string) (model.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return model.Tenant{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTenant))
	}
	if err := policy.Decide(a, action, policy.Target{Resource: policy.ResourceTenant, TenantID: &t.ID}).Err(); err != nil {
		return model.Tenant{}, err
	}
	return t, nil
}

// Get returns a tenant visible to the caller.
func (s *TenantService) Get(ctx context.Context, a policy.Actor, id string) (model.Tenant, error) {
	return s.load(ctx, a, policy.ActionRead, id)
}

// TenantUpdate is the body of PUT /tenants/:id. Absent fields are left
// alone.
type TenantUpdate struct {
	Name             model.Optional[string]                 `json:"name"`
	Status           model.Optional[model.TenantStatus]     `json:"status"`
	SubscriptionPlan model.Optional[model.SubscriptionPlan] `json:"subscriptionPlan"`
	MaxUsers         model.Optional[int]                    `json:"maxUsers"`
	MaxProjects      model.Optional[int]                    `json:"maxProjects"`
}

func (u TenantUpdate) present() []string {
	var f []string
	if u.Name.Set {
		f = append(f, policy.FieldName)
	}
	if u.Status.Set {
		f = append(f, policy.FieldStatus)
	}
	if u.SubscriptionPlan.Set {
		f = append(f, policy.FieldSubscriptionPlan)
	}
	if u.MaxUsers.Set {
		f = append(f, policy.FieldMaxUsers)
	}
	if u.MaxProjects.Set {
		f = append(f, policy.FieldMaxProjects)
	}
	return f
}

func (u TenantUpdate) changes() (repository.TenantChanges, error) {
	var c repository.TenantChanges
	for _, err := range []error{
		requireNonNull(u.Name, policy.FieldName),
		requireNonNull(u.Status, policy.FieldStatus),
		requireNonNull(u.SubscriptionPlan, policy.FieldSubscriptionPlan),
		requireNonNull(u.MaxUsers, policy.FieldMaxUsers),
		requireNonNull(u.MaxProjects, policy.FieldMaxProjects),
	} {
		if err != nil {
			return c, err
		}
	}
	if u.Name.Set {
		name, err := validateName(*u.Name.Value, policy.FieldName)
		if err != nil {
			return c, err
		}
		c.Name = &name
	}
	if u.Status.Set {
		if !u.Status.Value.Valid() {
			return c, apperr.Validation("Invalid status. Must be one of: active, suspended, trial")
		}
		c.Status = u.Status.Value
	}
	if u.SubscriptionPlan.Set {
		if !u.SubscriptionPlan.Value.Valid() {
			return c, apperr.Validation("Invalid subscriptionPlan. Must be one of: free, pro, enterprise")
		}
		c.SubscriptionPlan = u.SubscriptionPlan.Value
	}
	if u.MaxUsers.Set {
		if *u.MaxUsers.Value < 1 {
			return c, apperr.Validation("maxUsers must be a positive integer")
		}
		c.MaxUsers = u.MaxUsers.Value
	}
	if u.MaxProjects.Set {
		if *u.MaxProjects.Value < 1 {
			return c, apperr.Validation("maxProjects must be a positive integer")
		}
		c.MaxProjects = u.MaxProjects.Value
	}
	return c, nil
}

// Update applies the caller's field mask: a super admin may change every
// field, a tenant admin only the name of their own tenant. A body naming
// any field outside the mask is refused as a whole.
func (s *TenantService) Update(ctx context.Context, a policy.Actor, id string, in TenantUpdate) (model.Tenant, error) {
	if _, err := s.load(ctx, a, policy.ActionUpdate, id); err != nil {
		return model.Tenant{}, err
	}
	present := in.present()
	if err := policy.CheckFields(policy.TenantUpdateMask(a), present, "Tenant admins"); err != nil {
		return model.Tenant{}, err
	}
	if len(present) == 0 {
		return model.Tenant{}, apperr.Validation("No valid fields to update")
	}
	c, err := in.changes()
	if err != nil {
		return model.Tenant{}, err
	}

	t, err := s.tenants.Update(ctx, id, c)
	if err != nil {
		return model.Tenant{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTenant))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &t.ID, UserID: &a.UserID, Action: model.AuditUpdateTenant,
		EntityType: "tenant", EntityID: t.ID,
	})
	return t, nil
}

// ListTenantsInput carries the raw query of GET /tenants.
type ListTenantsInput struct {
	Status           string
	SubscriptionPlan string
	Search           string
	Page             PageRequest
}

// TenantPagination is the pagination block of the tenant listing.
type TenantPagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// TenantList is one page of the cross-tenant listing.
type TenantList struct {
	Tenants    []model.TenantSummary `json:"tenants"`
	Pagination TenantPagination      `json:"pagination"`
}

// ListAll is the super admin's cross-tenant listing.
func (s *TenantService) ListAll(ctx context.Context, a policy.Actor, in ListTenantsInput) (TenantList, error) {
	if err := policy.ListAllTenants(a).Err(); err != nil {
		return TenantList{}, err
	}
	page, err := in.Page.resolve(defaultTenantPageSize)
	if err != nil {
		return TenantList{}, err
	}
	f := repository.TenantFilter{Search: strings.TrimSpace(in.Search), Page: page}
	if in.Status != "" {
		st := model.TenantStatus(in.Status)
		if !st.Valid() {
			return TenantList{}, apperr.Validation("Invalid status filter")
		}
		f.Status = &st
	}
	if in.SubscriptionPlan != "" {
		p := model.SubscriptionPlan(in.SubscriptionPlan)
		if !p.Valid() {
			return TenantList{}, apperr.Validation("Invalid subscriptionPlan filter")
		}
		f.SubscriptionPlan = &p
	}

	rows, total, err := s.tenants.List(ctx, f)
	if err != nil {
		return TenantList{}, apperr.Internal(err)
	}
	return TenantList{
		Tenants: rows,
		Pagination: TenantPagination{
			Page: page.Number, Limit: page.Size, Total: total, TotalPages: totalPages(total, page.Size),
		},
	}, nil
}
