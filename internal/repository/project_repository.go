package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/model"
)

const projectColumns = "id,tenant_id,name,description,status,created_by,created_at,updated_at"

// ProjectRepo provides access to the `projects` table.
type ProjectRepo struct{ DB *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{DB: db} }

func scanProject(row rowScanner, p *model.Project) error {
	var desc sql.NullString
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &desc, &p.Status, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	p.Description = stringPtr(desc)
	return nil
}

// GetByID fetches a project by id.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	err := scanProject(r.DB.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id=? LIMIT 1", id), &p)
	return p, translate(err)
}

// CreateWithinCap inserts p unless its tenant already holds max_projects
// projects. See UserRepo.CreateWithinCap for the locking scheme.
func (r *ProjectRepo) CreateWithinCap(ctx context.Context, p *model.Project) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now

	return withTx(ctx, r.DB, lockedTx, func(tx *sql.Tx) error {
		limit, err := lockTenantCap(ctx, tx, p.TenantID, "max_projects")
		if err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM projects WHERE tenant_id=?", p.TenantID).Scan(&n); err != nil {
			return err
		}
		if n >= limit {
			return ErrLimitReached
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO projects ("+projectColumns+") VALUES (?,?,?,?,?,?,?,?)",
			p.ID, p.TenantID, p.Name, nullString(p.Description), p.Status, p.CreatedBy,
			p.CreatedAt, p.UpdatedAt)
		return translate(err)
	})
}

// Update applies c and returns the updated row.
func (r *ProjectRepo) Update(ctx context.Context, id string, c ProjectChanges) (model.Project, error) {
	var set setList
	if c.Name != nil {
		set.add("name", *c.Name)
	}
	if c.Description.Set {
		set.add("description", nullString(c.Description.Value))
	}
	if c.Status != nil {
		set.add("status", *c.Status)
	}
	if !set.empty() {
		set.add("updated_at", time.Now().UTC().Truncate(time.Millisecond))
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE projects SET "+set.clause()+" WHERE id=?", append(set.args, id)...); err != nil {
			return model.Project{}, translate(err)
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a project and all of its tasks.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE project_id=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List returns one page of a tenant's projects with creator and task counts,
// newest first, and the total.
func (r *ProjectRepo) List(ctx context.Context, f ProjectFilter) ([]model.ProjectSummary, int, error) {
	var where whereList
	where.add("p.tenant_id=?", f.TenantID)
	if f.Status != nil {
		where.add("p.status=?", *f.Status)
	}
	if f.Search != "" {
		where.add("p.name LIKE ?", likePattern(f.Search))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects p"+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT p.id,p.name,p.description,p.status,p.created_at,p.created_by,COALESCE(u.full_name,'')," +
		"(SELECT COUNT(*) FROM tasks t WHERE t.project_id=p.id)," +
		"(SELECT COUNT(*) FROM tasks t WHERE t.project_id=p.id AND t.status='completed')" +
		" FROM projects p LEFT JOIN users u ON u.id=p.created_by" + where.clause() +
		" ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(where.args, f.Page.Size, f.Page.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ProjectSummary, 0, f.Page.Size)
	for rows.Next() {
		var s model.ProjectSummary
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &desc, &s.Status, &s.CreatedAt,
			&s.CreatedBy.ID, &s.CreatedBy.FullName, &s.TaskCount, &s.CompletedTaskCount); err != nil {
			return nil, 0, err
		}
		s.Description = stringPtr(desc)
		out = append(out, s)
	}
	return out, total, rows.Err()
}
