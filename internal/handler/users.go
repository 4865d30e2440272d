package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/service"
)

type UserHandler struct {
	Users *service.UserService
}

// NewUserHandler wires the user endpoints to users.
func NewUserHandler(users *service.UserService) *UserHandler {
	if users == nil {
		panic("nil user service passed to NewUserHandler")
	}
	return &UserHandler{Users: users}
}

// Add: POST /api/tenants/:tenantId/users
func (h *UserHandler) Add(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	tenantID, err := pathID(c, "tenantId", "tenant")
	if err != nil {
		return err
	}
	var req service.AddUserInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Add(ctx, a, tenantID, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "User created successfully", u)
}

// List: GET /api/tenants/:tenantId/users
func (h *UserHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	tenantID, err := pathID(c, "tenantId", "tenant")
	if err != nil {
		return err
	}
	page, err := pageQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Users.List(ctx, a, tenantID, service.ListUsersInput{
		Role:   c.QueryParam("role"),
		Search: c.QueryParam("search"),
		Page:   page,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", res)
}

// Update: PUT /api/users/:userId
func (h *UserHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "userId", "user")
	if err != nil {
		return err
	}
	var req service.UserUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Update(ctx, a, id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "User updated successfully", u)
}

// Delete: DELETE /api/users/:userId
func (h *UserHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "userId", "user")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.Delete(ctx, a, id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "User deleted successfully", nil)
}
