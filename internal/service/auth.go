package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/repository"
	"github.com/iliyamo/taskhub/internal/utils"
)

// AuthService registers tenants, logs users in and resolves the current
// user.
type AuthService struct {
	tenants    TenantStore
	users      UserStore
	tokens     *utils.TokenService
	bcryptCost int
	audit      Auditor
	rec        LimitRecorder
}

// NewAuthService wires the service. audit and rec may be nil.
func NewAuthService(tenants TenantStore, users UserStore, tokens *utils.TokenService, bcryptCost int, audit Auditor, rec LimitRecorder) *AuthService {
	if audit == nil {
		audit = nopAuditor{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &AuthService{tenants: tenants, users: users, tokens: tokens,
		bcryptCost: utils.ClampCost(bcryptCost), audit: audit, rec: rec}
}

// RegisterTenantInput is the body of POST /auth/register-tenant.
type RegisterTenantInput struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
	AdminFullName string `json:"adminFullName"`
}

// AdminSummary is the public part of the admin created at registration.
type AdminSummary struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName"`
	Role     model.Role `json:"role"`
}

// RegisterTenantResult describes the tenant and admin created by a registration.
type RegisterTenantResult struct {
	TenantID  string       `json:"tenantId"`
	Subdomain string       `json:"subdomain"`
	AdminUser AdminSummary `json:"adminUser"`
}

// RegisterTenant creates a tenant on the free plan together with its first
// tenant_admin. Both rows are written in one transaction.
func (s *AuthService) RegisterTenant(ctx context.Context, in RegisterTenantInput) (RegisterTenantResult, error) {
	name := strings.TrimSpace(in.TenantName)
	sub := strings.ToLower(strings.TrimSpace(in.Subdomain))
	email := repository.NormalizeEmail(in.AdminEmail)
	fullName := strings.TrimSpace(in.AdminFullName)
	if name == "" || sub == "" || email == "" || in.AdminPassword == "" || fullName == "" {
		return RegisterTenantResult{}, apperr.Validation("All fields are required")
	}
	if err := validateEmail(email); err != nil {
		return RegisterTenantResult{}, err
	}
	if err := validatePassword(in.AdminPassword); err != nil {
		return RegisterTenantResult{}, err
	}
	if err := validateSubdomain(sub); err != nil {
		return RegisterTenantResult{}, err
	}
	if _, err := validateName(name, "tenantName"); err != nil {
		return RegisterTenantResult{}, err
	}
	if _, err := validateName(fullName, "adminFullName"); err != nil {
		return RegisterTenantResult{}, err
	}

	hash, err := utils.HashPassword(in.AdminPassword, s.bcryptCost)
	if err != nil {
		return RegisterTenantResult{}, apperr.Internal(err)
	}

	tenant := &model.Tenant{
		Name:             name,
		Subdomain:        sub,
		Status:           model.TenantActive,
		SubscriptionPlan: model.PlanFree,
		MaxUsers:         model.DefaultMaxUsers,
		MaxProjects:      model.DefaultMaxProjects,
	}
	admin := &model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         model.RoleTenantAdmin,
		IsActive:     true,
	}
	if err := s.tenants.CreateWithAdmin(ctx, tenant, admin); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return RegisterTenantResult{}, apperr.Conflict("Subdomain already exists")
		}
		return RegisterTenantResult{}, apperr.Internal(err)
	}

	s.audit.Record(ctx, model.AuditLog{
		TenantID: &tenant.ID, UserID: &admin.ID, Action: model.AuditRegisterTenant,
		EntityType: "tenant", EntityID: tenant.ID,
	})
	return RegisterTenantResult{
		TenantID:  tenant.ID,
		Subdomain: tenant.Subdomain,
		AdminUser: AdminSummary{ID: admin.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role},
	}, nil
}

// LoginInput is the body of POST /auth/login. TenantSubdomain is omitted by
// the super admin.
type LoginInput struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	TenantSubdomain *string `json:"tenantSubdomain"`
}

// SessionUser is the profile returned alongside a fresh token.
type SessionUser struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName"`
	Role     model.Role `json:"role"`
	TenantID *string    `json:"tenantId"`
}

// LoginResult is a signed access token and the user it was issued to.
type LoginResult struct {
	User      SessionUser `json:"user"`
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expiresIn"`
}

var errBadCredentials = apperr.Unauthorized("Invalid credentials")

// Login authenticates against a tenant, or against the super admin when no
// subdomain is given. Unknown emails and wrong passwords produce the same
// error and cost the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := repository.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return LoginResult{}, apperr.Validation("Email and password are required")
	}

	var tenantID *string
	if sub := strings.ToLower(trimmed(in.TenantSubdomain)); sub != "" {
		t, err := s.tenants.GetBySubdomain(ctx, sub)
		if err != nil {
			return LoginResult{}, notFoundOr(err, "Tenant not found")
		}
		if t.Status != model.TenantActive {
			s.rec.AuthFailed("tenant_inactive")
			return LoginResult{}, apperr.Forbidden("Tenant account is suspended or inactive")
		}
		tenantID = &t.ID
	}

	u, err := s.users.FindForLogin(ctx, email, tenantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, apperr.Internal(err)
	}
	// u.PasswordHash is empty when no user matched; VerifyPassword then
	// burns a comparison against a dummy hash.
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		s.rec.AuthFailed("bad_credentials")
		return LoginResult{}, errBadCredentials
	}
	if !u.IsActive {
		s.rec.AuthFailed("user_inactive")
		return LoginResult{}, apperr.Forbidden("Account is inactive")
	}

	tok, err := s.tokens.Issue(u.ID, u.TenantID, u.Role)
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	logger.FromContext(ctx).Info("login", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	s.audit.Record(ctx, model.AuditLog{
		TenantID: u.TenantID, UserID: &u.ID, Action: model.AuditLogin,
		EntityType: "user", EntityID: u.ID,
	})
	return LoginResult{
		User:      SessionUser{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, TenantID: u.TenantID},
		Token:     tok.Token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Profile is the current user with its tenant's public fields.
type Profile struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	FullName string           `json:"fullName"`
	Role     model.Role       `json:"role"`
	IsActive bool             `json:"isActive"`
	Tenant   *model.TenantRef `json:"tenant"`
}

// CurrentUser reloads the caller. A valid token whose subject has since been
// deleted yields NOT_FOUND.
func (s *AuthService) CurrentUser(ctx context.Context, a policy.Actor) (Profile, error) {
	u, err := s.users.GetByID(ctx, a.UserID)
	if err != nil {
		return Profile{}, notFoundOr(err, "User not found")
	}
	p := Profile{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, IsActive: u.IsActive}
	if u.TenantID != nil {
		t, err := s.tenants.GetByID(ctx, *u.TenantID)
		if err != nil {
			return Profile{}, notFoundOr(err, "Tenant not found")
		}
		p.Tenant = &model.TenantRef{
			ID: t.ID, Name: t.Name, Subdomain: t.Subdomain, SubscriptionPlan: t.SubscriptionPlan,
			MaxUsers: t.MaxUsers, MaxProjects: t.MaxProjects,
		}
	}
	return p, nil
}
