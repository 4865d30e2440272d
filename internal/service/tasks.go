package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/policy"
	"github.com/iliyamo/taskhub/internal/repository"
)

// TaskService manages tasks under projects.
type TaskService struct {
	projects ProjectStore
	tasks    TaskStore
	users    UserStore
	audit    Auditor
}

// NewTaskService builds a TaskService. users resolves assignees.
func NewTaskService(projects ProjectStore, tasks TaskStore, users UserStore, audit Auditor) *TaskService {
	if audit == nil {
		audit = nopAuditor{}
	}
	return &TaskService{projects: projects, tasks: tasks, users: users, audit: audit}
}

var errForeignAssignee = apperr.Validation("assignedTo user must belong to the same tenant")

// assigneeID checks the shape of a body assignee id so a malformed value is
// rejected before any store is read.
func assigneeID(id *string) error {
	if id == nil {
		return nil
	}
	if _, err := uuid.Parse(*id); err != nil || len(*id) != 36 {
		return apperr.Validation("Invalid assignedTo user ID format")
	}
	return nil
}

// checkAssignee rejects an assignee outside tenantID. Unknown ids are
// reported the same way.
func (s *TaskService) checkAssignee(ctx context.Context, userID, tenantID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return errForeignAssignee
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if u.TenantID == nil || *u.TenantID != tenantID {
		return errForeignAssignee
	}
	return nil
}

func taskPriority(s string) (model.TaskPriority, error) {
	p := model.TaskPriority(s)
	if !p.Valid() {
		return "", apperr.Validation("Invalid priority. Must be one of: low, medium, high")
	}
	return p, nil
}

func taskStatus(s string) (model.TaskStatus, error) {
	st := model.TaskStatus(s)
	if !st.Valid() {
		return "", apperr.Validation("Invalid status. Must be one of: todo, in_progress, completed")
	}
	return st, nil
}

// loadProject resolves the parent project and applies the tenant-scoping
// rule against it.
func (s *TaskService) loadProject(ctx context.Context, a policy.Actor, action policy.Action, projectID string) (model.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return model.Project{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceProject))
	}
	if err := policy.Decide(a, action, policy.Target{
		Resource: policy.ResourceTask, TenantID: &p.TenantID, OwnerID: p.CreatedBy,
	}).Err(); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// CreateTaskInput is the body of POST /projects/:projectId/tasks.
type CreateTaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
	AssignedTo  *string `json:"assignedTo"`
	DueDate     *string `json:"dueDate"`
}

// Create adds a task under projectID. The task inherits the project's
// tenant and always starts as todo.
func (s *TaskService) Create(ctx context.Context, a policy.Actor, projectID string, in CreateTaskInput) (model.Task, error) {
	if err := assigneeID(in.AssignedTo); err != nil {
		return model.Task{}, err
	}
	p, err := s.loadProject(ctx, a, policy.ActionCreate, projectID)
	if err != nil {
		return model.Task{}, err
	}
	title, err := validateName(in.Title, "Task title")
	if err != nil {
		return model.Task{}, err
	}
	priority := model.PriorityMedium
	if in.Priority != "" {
		if priority, err = taskPriority(in.Priority); err != nil {
			return model.Task{}, err
		}
	}
	var due *time.Time
	if d := trimmed(in.DueDate); d != "" {
		t, err := parseDueDate(d)
		if err != nil {
			return model.Task{}, err
		}
		due = &t
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo, p.TenantID); err != nil {
			return model.Task{}, err
		}
	}

	t := &model.Task{
		ProjectID:   p.ID,
		TenantID:    p.TenantID,
		Title:       title,
		Description: in.Description,
		Status:      model.TaskTodo,
		Priority:    priority,
		AssignedTo:  in.AssignedTo,
		DueDate:     due,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return model.Task{}, errForeignAssignee
		}
		return model.Task{}, apperr.Internal(err)
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &t.TenantID, UserID: &a.UserID, Action: model.AuditCreateTask,
		EntityType: "task", EntityID: t.ID,
	})
	return *t, nil
}

// ListTasksInput carries the raw query of GET /projects/:projectId/tasks.
type ListTasksInput struct {
	Status     string
	Priority   string
	AssignedTo string
	Search     string
	Page       PageRequest
}

// TaskList is one page of a project's tasks.
type TaskList struct {
	Tasks      []model.TaskView `json:"tasks"`
	Total      int              `json:"total"`
	Pagination PageInfo         `json:"pagination"`
}

// List returns the tasks of a project visible to the caller.
func (s *TaskService) List(ctx context.Context, a policy.Actor, projectID string, in ListTasksInput) (TaskList, error) {
	if _, err := s.loadProject(ctx, a, policy.ActionList, projectID); err != nil {
		return TaskList{}, err
	}
	page, err := in.Page.resolve(defaultTaskPageSize)
	if err != nil {
		return TaskList{}, err
	}
	f := repository.TaskFilter{ProjectID: projectID, Search: strings.TrimSpace(in.Search), Page: page}
	if in.Status != "" {
		st, err := taskStatus(in.Status)
		if err != nil {
			return TaskList{}, err
		}
		f.Status = &st
	}
	if in.Priority != "" {
		p, err := taskPriority(in.Priority)
		if err != nil {
			return TaskList{}, err
		}
		f.Priority = &p
	}
	if in.AssignedTo != "" {
		f.AssignedTo = &in.AssignedTo
	}

	rows, total, err := s.tasks.ListByProject(ctx, f)
	if err != nil {
		return TaskList{}, apperr.Internal(err)
	}
	return TaskList{Tasks: rows, Total: total, Pagination: pageInfo(page, total)}, nil
}

// loadTask resolves a task and applies the rules against its own tenant.
func (s *TaskService) loadTask(ctx context.Context, a policy.Actor, action policy.Action, id string) (model.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return model.Task{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTask))
	}
	target := policy.Target{Resource: policy.ResourceTask, TenantID: &t.TenantID}
	if action == policy.ActionDelete {
		// Tasks record no creator; deletion rights follow the project's.
		p, err := s.projects.GetByID(ctx, t.ProjectID)
		if err != nil {
			return model.Task{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTask))
		}
		target.OwnerID = p.CreatedBy
	}
	if err := policy.Decide(a, action, target).Err(); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// UpdateStatus sets a task's status. Every transition is allowed, including
// reopening a completed task.
func (s *TaskService) UpdateStatus(ctx context.Context, a policy.Actor, id, status string) (model.Task, error) {
	if _, err := s.loadTask(ctx, a, policy.ActionUpdateStatus, id); err != nil {
		return model.Task{}, err
	}
	if status == "" {
		return model.Task{}, apperr.Validation("Status is required")
	}
	st, err := taskStatus(status)
	if err != nil {
		return model.Task{}, err
	}
	t, err := s.tasks.UpdateStatus(ctx, id, st)
	if err != nil {
		return model.Task{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTask))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &t.TenantID, UserID: &a.UserID, Action: model.AuditUpdateTaskStatus,
		EntityType: "task", EntityID: t.ID,
	})
	return t, nil
}

// TaskUpdate is the body of PUT /tasks/:id. Description, assignedTo and
// dueDate may be cleared with null.
type TaskUpdate struct {
	Title       model.Optional[string] `json:"title"`
	Description model.Optional[string] `json:"description"`
	Status      model.Optional[string] `json:"status"`
	Priority    model.Optional[string] `json:"priority"`
	AssignedTo  model.Optional[string] `json:"assignedTo"`
	DueDate     model.Optional[string] `json:"dueDate"`
}

func (u TaskUpdate) empty() bool {
	return !u.Title.Set && !u.Description.Set && !u.Status.Set &&
		!u.Priority.Set && !u.AssignedTo.Set && !u.DueDate.Set
}

// Update edits any field of a task. Any member of the task's tenant may.
func (s *TaskService) Update(ctx context.Context, a policy.Actor, id string, in TaskUpdate) (model.Task, error) {
	if err := assigneeID(in.AssignedTo.Value); err != nil {
		return model.Task{}, err
	}
	cur, err := s.loadTask(ctx, a, policy.ActionUpdate, id)
	if err != nil {
		return model.Task{}, err
	}
	if in.empty() {
		return model.Task{}, apperr.Validation("No valid fields to update")
	}
	for _, err := range []error{
		requireNonNull(in.Title, "title"),
		requireNonNull(in.Status, "status"),
		requireNonNull(in.Priority, "priority"),
	} {
		if err != nil {
			return model.Task{}, err
		}
	}

	c := repository.TaskChanges{Description: in.Description, AssignedTo: in.AssignedTo}
	if in.Title.Set {
		title, err := validateName(*in.Title.Value, "Task title")
		if err != nil {
			return model.Task{}, err
		}
		c.Title = &title
	}
	if in.Status.Set {
		st, err := taskStatus(*in.Status.Value)
		if err != nil {
			return model.Task{}, err
		}
		c.Status = &st
	}
	if in.Priority.Set {
		p, err := taskPriority(*in.Priority.Value)
		if err != nil {
			return model.Task{}, err
		}
		c.Priority = &p
	}
	if in.DueDate.Set {
		if d := trimmed(in.DueDate.Value); d != "" {
			due, err := parseDueDate(d)
			if err != nil {
				return model.Task{}, err
			}
			c.DueDate = model.Some(due)
		} else {
			c.DueDate = model.Null[time.Time]()
		}
	}
	if in.AssignedTo.Value != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo.Value, cur.TenantID); err != nil {
			return model.Task{}, err
		}
	}

	t, err := s.tasks.Update(ctx, id, c)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return model.Task{}, errForeignAssignee
		}
		return model.Task{}, notFoundOr(err, policy.NotFoundMessage(policy.ResourceTask))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &t.TenantID, UserID: &a.UserID, Action: model.AuditUpdateTask,
		EntityType: "task", EntityID: t.ID,
	})
	return t, nil
}

// Delete removes a task. Only a tenant admin or the creator of the parent
// project may.
func (s *TaskService) Delete(ctx context.Context, a policy.Actor, id string) error {
	t, err := s.loadTask(ctx, a, policy.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return notFoundOr(err, policy.NotFoundMessage(policy.ResourceTask))
	}
	s.audit.Record(ctx, model.AuditLog{
		TenantID: &t.TenantID, UserID: &a.UserID, Action: model.AuditDeleteTask,
		EntityType: "task", EntityID: t.ID,
	})
	return nil
}
