package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/service"
)

type TenantHandler struct {
	Tenants *service.TenantService
}

// NewTenantHandler wires the tenant endpoints to tenants.
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	if tenants == nil {
		panic("nil tenant service passed to NewTenantHandler")
	}
	return &TenantHandler{Tenants: tenants}
}

// Get: GET /api/tenants/:tenantId
func (h *TenantHandler) Get(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "tenantId", "tenant")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tenants.Get(ctx, a, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", t)
}

// Update: PUT /api/tenants/:tenantId
func (h *TenantHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "tenantId", "tenant")
	if err != nil {
		return err
	}
	var req service.TenantUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tenants.Update(ctx, a, id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Tenant updated successfully", t)
}

// List: GET /api/tenants (super admin only)
func (h *TenantHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	page, err := pageQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Tenants.ListAll(ctx, a, service.ListTenantsInput{
		Status:           c.QueryParam("status"),
		SubscriptionPlan: c.QueryParam("subscriptionPlan"),
		Search:           c.QueryParam("search"),
		Page:             page,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", res)
}
