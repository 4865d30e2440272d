package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/service"
)

// AuthHandler serves registration, login and the current-user endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

// NewAuthHandler wires the auth endpoints to auth.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	if auth == nil {
		panic("nil auth service passed to NewAuthHandler")
	}
	return &AuthHandler{Auth: auth}
}

// Register: POST /api/auth/register-tenant
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterTenantInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.RegisterTenant(ctx, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Tenant registered successfully", res)
}

// Login: POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", res)
}

// Me: GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Auth.CurrentUser(ctx, a)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", p)
}

// Logout: POST /api/auth/logout. Tokens are stateless, so the client simply
// discards its copy; the endpoint only confirms the token was valid.
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := actor(c); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Logged out successfully", nil)
}
