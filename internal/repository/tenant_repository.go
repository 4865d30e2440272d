package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/model"
)

const tenantColumns = "id,name,subdomain,status,subscription_plan,max_users,max_projects,created_at,updated_at"

// TenantRepo provides access to the `tenants` table.
type TenantRepo struct{ DB *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTenant(row rowScanner, t *model.Tenant, extra ...interface{}) error {
	dest := []interface{}{&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.SubscriptionPlan,
		&t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

// GetByID fetches a tenant by id.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (model.Tenant, error) {
	var t model.Tenant
	err := scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id=? LIMIT 1", id), &t)
	return t, translate(err)
}

// GetBySubdomain fetches a tenant by its unique subdomain.
func (r *TenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (model.Tenant, error) {
	var t model.Tenant
	err := scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE subdomain=? LIMIT 1", subdomain), &t)
	return t, translate(err)
}

// CreateWithAdmin inserts a tenant and its first admin user in one
// transaction. IDs and timestamps are filled in on both values. Either both
// rows are committed or neither is.
func (r *TenantRepo) CreateWithAdmin(ctx context.Context, t *model.Tenant, admin *model.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	admin.ID = uuid.NewString()
	admin.TenantID = &t.ID
	admin.Email = NormalizeEmail(admin.Email)
	admin.CreatedAt, admin.UpdatedAt = now, now

	return withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM tenants WHERE subdomain=? LIMIT 1", t.Subdomain).Scan(&exists)
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tenants ("+tenantColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
			t.ID, t.Name, t.Subdomain, t.Status, t.SubscriptionPlan, t.MaxUsers, t.MaxProjects,
			t.CreatedAt, t.UpdatedAt); err != nil {
			return translate(err)
		}
		return insertUser(ctx, tx, admin)
	})
}

// Create inserts a standalone tenant. Used by the seeder.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tenants ("+tenantColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		t.ID, t.Name, t.Subdomain, t.Status, t.SubscriptionPlan, t.MaxUsers, t.MaxProjects,
		t.CreatedAt, t.UpdatedAt)
	return translate(err)
}

// Update applies the non-nil fields of c and returns the updated row.
func (r *TenantRepo) Update(ctx context.Context, id string, c TenantChanges) (model.Tenant, error) {
	var set setList
	if c.Name != nil {
		set.add("name", *c.Name)
	}
	if c.Status != nil {
		set.add("status", *c.Status)
	}
	if c.SubscriptionPlan != nil {
		set.add("subscription_plan", *c.SubscriptionPlan)
	}
	if c.MaxUsers != nil {
		set.add("max_users", *c.MaxUsers)
	}
	if c.MaxProjects != nil {
		set.add("max_projects", *c.MaxProjects)
	}
	if !set.empty() {
		set.add("updated_at", time.Now().UTC().Truncate(time.Millisecond))
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE tenants SET "+set.clause()+" WHERE id=?", append(set.args, id)...); err != nil {
			return model.Tenant{}, translate(err)
		}
	}
	// MySQL reports 0 affected rows for unchanged values, so existence is
	// confirmed by reading the row back.
	return r.GetByID(ctx, id)
}

// List returns one page of tenants with their current usage, newest first,
// and the total number of matching tenants.
func (r *TenantRepo) List(ctx context.Context, f TenantFilter) ([]model.TenantSummary, int, error) {
	var where whereList
	if f.Status != nil {
		where.add("t.status=?", *f.Status)
	}
	if f.SubscriptionPlan != nil {
		where.add("t.subscription_plan=?", *f.SubscriptionPlan)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		where.add("(t.name LIKE ? OR t.subdomain LIKE ?)", p, p)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tenants t"+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT t.id,t.name,t.subdomain,t.status,t.subscription_plan,t.max_users,t.max_projects,t.created_at,t.updated_at," +
		"(SELECT COUNT(*) FROM users u WHERE u.tenant_id=t.id)," +
		"(SELECT COUNT(*) FROM projects p WHERE p.tenant_id=t.id)" +
		" FROM tenants t" + where.clause() + " ORDER BY t.created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(where.args, f.Page.Size, f.Page.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.TenantSummary, 0, f.Page.Size)
	for rows.Next() {
		var s model.TenantSummary
		if err := scanTenant(rows, &s.Tenant, &s.CurrentUsers, &s.CurrentProjects); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}
