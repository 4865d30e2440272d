package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/repository"
	"github.com/iliyamo/taskhub/internal/utils"
)

// UserService manages the users of a tenant, enforcing the user cap.
type UserService struct {
	tenants    TenantStore
	users      UserStore
	bcryptCost int
	audit      Auditor
	rec        LimitRecorder
}

// NewUserService builds a UserService. bcryptCost is clamped to bcrypt's range.
func NewUserService(tenants TenantStore, users UserStore, bcryptCost int, audit Auditor, rec LimitRecorder) *UserService {
	if audit == nil {
		audit = nopAuditor{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &UserService{tenants: tenants, users: users, bcryptCost: utils.ClampCost(bcryptCost), audit: audit, rec: rec}
}

// AddUserInput is the body of POST /tenants/:tenantId/users.
type AddUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// Add creates a user in tenantID, subject to the tenant's max_users.
func (s *UserService) Add(ctx context.Context, a policy.Actor, tenantID string, in AddUserInput) (model.User, error) {
	if err := policy.Decide(a, policy.ActionCreate, policy.Target{Resource: policy.ResourceUser, TenantID: &tenantID}).Err(); err != nil {
		return model.User{}, err
	}

	email := repository.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.FullName) == "" {
		return model.User{}, apperr.Validation("Email, password, and fullName are required")
	}
	if err := validateEmail(email); err != nil {
		return model.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return model.User{}, err
	}
	fullName, err := validateName(in.FullName, policy.FieldFullName)
	if err != nil {
		return model.User{}, err
	}
	role := model.RoleUser
	if in.Role != "" {
		role = model.Role(in.Role)
	}
	if role != model.RoleUser && role != model.RoleTenantAdmin {
		return model.User{}, apperr.Validation("Invalid role. Must be one of: user, tenant_admin")
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, apperr.Internal(err)
	}
	u := &model.User{
		TenantID: &tenantID, Email: email, PasswordHash: hash,
		FullName: fullName, Role: role, IsActive: true,
	}
	switch err := s.users.CreateWithinCap(ctx, u); {
	case err == nil:
	case errors.Is(err, repository.ErrLimitReached):
		s.rec.LimitRejected("user")
		return model.User{}, apperr.Forbidden("Subscription limit reached. Cannot add more users")
	case errors.Is(err, repository.ErrConflict):
		return model.User{}, apperr.Conflict("Email already exists in this tenant")
	default:
		return model.User{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTenant))
	}

	s.audit.Record(ctx, model.AuditLog{
		TenantID: &tenantID, UserID: &a.UserID, Action: model.AuditCreateUser,
		EntityType: "user", EntityID: u.ID,
	})
	return *u, nil
}

// ListUsersInput carries the raw query of GET /tenants/:tenantId/users.
type ListUsersInput struct {
	Role   string
	Search string
	Page   PageRequest
}

// UserList is one page of a tenant's users.
type UserList struct {
	Users      []model.User `json:"users"`
	Total      int          `json:"total"`
	Pagination PageInfo     `json:"pagination"`
}

// List returns the users of tenantID visible to the caller.
func (s *UserService) List(ctx context.Context, a policy.Actor, tenantID string, in ListUsersInput) (UserList, error) {
	if err := policy.Decide(a, policy.ActionList, policy.Target{Resource: policy.ResourceUser, TenantID: &tenantID}).Err(); err != nil {
		return UserList{}, err
	}
	page, err := in.Page.resolve(defaultUserPageSize)
	if err != nil {
		return UserList{}, err
	}
	f := repository.UserFilter{TenantID: tenantID, Search: strings.TrimSpace(in.Search), Page: page}
	if in.Role != "" {
		r := model.Role(in.Role)
		if r != model.RoleUser && r != model.RoleTenantAdmin {
			return UserList{}, apperr.Validation("Invalid role filter")
		}
		f.Role = &r
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return UserList{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTenant))
	}

	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return UserList{}, apperr.Internal(err)
	}
	return UserList{Users: users, Total: total, Pagination: pageInfo(page, total)}, nil
}

// UserUpdate is the body of PUT /users/:id.
type UserUpdate struct {
	FullName model.Optional[string]     `json:"fullName"`
	Role     model.Optional[model.Role] `json:"role"`
	IsActive model.Optional[bool]       `json:"isActive"`
}

func (u UserUpdate) present() []string {
	var f []string
	if u.FullName.Set {
		f = append(f, policy.FieldFullName)
	}
	if u.Role.Set {
		f = append(f, policy.FieldRole)
	}
	if u.IsActive.Set {
		f = append(f, policy.FieldIsActive)
	}
	return f
}

// Update edits a user. Editing oneself is limited to fullName; admins may
// also change role and isActive of others. The super_admin role can never
// be granted here since it requires a tenant-less account.
func (s *UserService) Update(ctx context.Context, a policy.Actor, id string, in UserUpdate) (model.User, error) {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceUser))
	}
	if err := policy.Decide(a, policy.ActionUpdate, policy.Target{
		Resource: policy.ResourceUser, TenantID: target.TenantID, OwnerID: target.ID,
	}).Err(); err != nil {
		return model.User{}, err
	}
	present := in.present()
	who := "Admins"
	if a.UserID == target.ID {
		who = "Users editing their own profile"
	}
	if err := policy.CheckFields(policy.UserUpdateMask(a, target.ID), present, who); err != nil {
		return model.User{}, err
	}
	if len(present) == 0 {
		return model.User{}, apperr.Validation("No valid fields to update")
	}

	var c repository.UserChanges
	for _, err := range []error{
		requireNonNull(in.FullName, policy.FieldFullName),
		requireNonNull(in.Role, policy.FieldRole),
		requireNonNull(in.IsActive, policy.FieldIsActive),
	} {
		if err != nil {
			return model.User{}, err
		}
	}
	if in.FullName.Set {
		name, err := validateName(*in.FullName.Value, policy.FieldFullName)
		if err != nil {
			return model.User{}, err
		}
		c.FullName = &name
	}
	if in.Role.Set {
		r := *in.Role.Value
		if r == model.RoleSuperAdmin {
			return model.User{}, apperr.Forbidden("The super_admin role cannot be assigned")
		}
		if !r.Valid() {
			return model.User{}, apperr.Validation("Invalid role. Must be one of: user, tenant_admin")
		}
		c.Role = &r
	}
	if in.IsActive.Set {
		c.IsActive = in.IsActive.Value
	}

	u, err := s.users.Update(ctx, id, c)
	if err != nil {
		return model.User{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceUser))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: u.TenantID, UserID: &a.UserID, Action: model.AuditUpdateUser,
		EntityType: "user", EntityID: u.ID,
	})
	return u, nil
}

// Delete removes a user after clearing their task assignments. Nobody may
// delete themselves.
func (s *UserService) Delete(ctx context.Context, a policy.Actor, id string) error {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, policy.NotFoundMessage(policy.ResourceUser))
	}
	if err := policy.Decide(a, policy.ActionDelete, policy.Target{
		Resource: policy.ResourceUser, TenantID: target.TenantID, OwnerID: target.ID,
	}).Err(); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFoundOr(err, policy.NotFoundMessage(policy.ResourceUser))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: target.TenantID, UserID: &a.UserID, Action: model.AuditDeleteUser,
		EntityType: "user", EntityID: target.ID,
	})
	return nil
}
