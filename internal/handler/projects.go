package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/service"
)

type ProjectHandler struct {
	Projects *service.ProjectService
}

// NewProjectHandler wires the project endpoints to projects.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	if projects == nil {
		panic("nil project service passed to NewProjectHandler")
	}
	return &ProjectHandler{Projects: projects}
}

// Create: POST /api/projects
func (h *ProjectHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req service.CreateProjectInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Projects.Create(ctx, a, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Project created successfully", p)
}

// List: GET /api/projects. A super admin picks the tenant with ?tenantId=.
func (h *ProjectHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	tenantID, err := queryID(c, "tenantId", "tenant")
	if err != nil {
		return err
	}
	page, err := pageQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Projects.List(ctx, a, service.ListProjectsInput{
		TenantID: tenantID,
		Status:   c.QueryParam("status"),
		Search:   c.QueryParam("search"),
		Page:     page,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", res)
}

// Update: PUT /api/projects/:projectId
func (h *ProjectHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	var req service.ProjectUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Projects.Update(ctx, a, id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Project updated successfully", p)
}

// Delete: DELETE /api/projects/:projectId
func (h *ProjectHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Projects.Delete(ctx, a, id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Project deleted successfully", nil)
}
