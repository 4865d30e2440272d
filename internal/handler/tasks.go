package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taskhub/internal/service"
)

type TaskHandler struct {
	Tasks *service.TaskService
}

// NewTaskHandler wires the task endpoints to tasks.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	if tasks == nil {
		panic("nil task service passed to NewTaskHandler")
	}
	return &TaskHandler{Tasks: tasks}
}

type statusReq struct {
	Status string `json:"status"`
}

// Create: POST /api/projects/:projectId/tasks
func (h *TaskHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	projectID, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	var req service.CreateTaskInput
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tasks.Create(ctx, a, projectID, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Task created successfully", t)
}

// List: GET /api/projects/:projectId/tasks
func (h *TaskHandler) List(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	projectID, err := pathID(c, "projectId", "project")
	if err != nil {
		return err
	}
	assignee, err := queryID(c, "assignedTo", "assignedTo user")
	if err != nil {
		return err
	}
	page, err := pageQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Tasks.List(ctx, a, projectID, service.ListTasksInput{
		Status:     c.QueryParam("status"),
		Priority:   c.QueryParam("priority"),
		AssignedTo: assignee,
		Search:     c.QueryParam("search"),
		Page:       page,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", res)
}

// UpdateStatus: PATCH /api/tasks/:taskId/status
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "taskId", "task")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tasks.UpdateStatus(ctx, a, id, req.Status)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task status updated successfully", t)
}

// Update: PUT /api/tasks/:taskId
func (h *TaskHandler) Update(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "taskId", "task")
	if err != nil {
		return err
	}
	var req service.TaskUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tasks.Update(ctx, a, id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task updated successfully", t)
}

// Delete: DELETE /api/tasks/:taskId
func (h *TaskHandler) Delete(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "taskId", "task")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Tasks.Delete(ctx, a, id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task deleted successfully", nil)
}
