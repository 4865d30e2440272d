package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/model"
)

const taskColumns = "id,project_id,tenant_id,title,description,status,priority,assigned_to,due_date,created_at,updated_at"

// TaskRepo provides access to the `tasks` table.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

func scanTask(row rowScanner, t *model.Task) error {
	var desc, assignee sql.NullString
	var due sql.NullTime
	if err := row.Scan(&t.ID, &t.ProjectID, &t.TenantID, &t.Title, &desc, &t.Status, &t.Priority,
		&assignee, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	t.Description = stringPtr(desc)
	t.AssignedTo = stringPtr(assignee)
	t.DueDate = timePtr(due)
	return nil
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// GetByID fetches a task by id.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := scanTask(r.DB.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id=? LIMIT 1", id), &t)
	return t, translate(err)
}

// Create inserts t. The caller copies TenantID from the parent project.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		t.ID, t.ProjectID, t.TenantID, t.Title, nullString(t.Description), t.Status, t.Priority,
		nullString(t.AssignedTo), nullTime(t.DueDate), t.CreatedAt, t.UpdatedAt)
	return translate(err)
}

// Update applies c and returns the updated row.
func (r *TaskRepo) Update(ctx context.Context, id string, c TaskChanges) (model.Task, error) {
	var set setList
	if c.Title != nil {
		set.add("title", *c.Title)
	}
	if c.Description.Set {
		set.add("description", nullString(c.Description.Value))
	}
	if c.Status != nil {
		set.add("status", *c.Status)
	}
	if c.Priority != nil {
		set.add("priority", *c.Priority)
	}
	if c.AssignedTo.Set {
		set.add("assigned_to", nullString(c.AssignedTo.Value))
	}
	if c.DueDate.Set {
		set.add("due_date", nullTime(c.DueDate.Value))
	}
	if !set.empty() {
		set.add("updated_at", time.Now().UTC().Truncate(time.Millisecond))
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE tasks SET "+set.clause()+" WHERE id=?", append(set.args, id)...); err != nil {
			return model.Task{}, translate(err)
		}
	}
	return r.GetByID(ctx, id)
}

// UpdateStatus sets the status of a task. Any status may follow any other.
func (r *TaskRepo) UpdateStatus(ctx context.Context, id string, status model.TaskStatus) (model.Task, error) {
	s := status
	return r.Update(ctx, id, TaskChanges{Status: &s})
}

// Delete removes a task.
func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByProject returns one page of a project's tasks and the total. Tasks
// are ordered high priority first, then by due date with undated tasks
// last, then newest first.
func (r *TaskRepo) ListByProject(ctx context.Context, f TaskFilter) ([]model.TaskView, int, error) {
	var where whereList
	where.add("t.project_id=?", f.ProjectID)
	if f.Status != nil {
		where.add("t.status=?", *f.Status)
	}
	if f.Priority != nil {
		where.add("t.priority=?", *f.Priority)
	}
	if f.AssignedTo != nil {
		where.add("t.assigned_to=?", *f.AssignedTo)
	}
	if f.Search != "" {
		where.add("t.title LIKE ?", likePattern(f.Search))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks t"+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT t.id,t.title,t.description,t.status,t.priority,t.due_date,t.created_at,u.id,u.full_name,u.email" +
		" FROM tasks t LEFT JOIN users u ON u.id=t.assigned_to" + where.clause() +
		" ORDER BY FIELD(t.priority,'high','medium','low'), t.due_date IS NULL, t.due_date ASC, t.created_at DESC" +
		" LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(where.args, f.Page.Size, f.Page.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.TaskView, 0, f.Page.Size)
	for rows.Next() {
		var v model.TaskView
		var desc, uid, uname, uemail sql.NullString
		var due sql.NullTime
		if err := rows.Scan(&v.ID, &v.Title, &desc, &v.Status, &v.Priority, &due, &v.CreatedAt,
			&uid, &uname, &uemail); err != nil {
			return nil, 0, err
		}
		v.Description = stringPtr(desc)
		v.DueDate = timePtr(due)
		if uid.Valid {
			v.AssignedTo = &model.UserRef{ID: uid.String, FullName: uname.String, Email: uemail.String}
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}
