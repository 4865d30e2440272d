package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/taskhub/internal/model"
)

const userColumns = "id,tenant_id,email,password_hash,full_name,role,is_active,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanUser(row rowScanner, u *model.User) error {
	var tenantID sql.NullString
	if err := row.Scan(&u.ID, &tenantID, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	u.TenantID = stringPtr(tenantID)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// insertUser writes u as-is; the caller has already set ID and timestamps.
func insertUser(ctx context.Context, db execer, u *model.User) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, nullString(u.TenantID), u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive,
		u.CreatedAt, u.UpdatedAt)
	return translate(err)
}

func stampNewUser(u *model.User) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	u.ID = uuid.NewString()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id), &u)
	return u, translate(err)
}

// FindForLogin looks a user up by email inside a tenant. A nil tenantID
// restricts the lookup to the tenant-less super admin.
func (r *UserRepo) FindForLogin(ctx context.Context, email string, tenantID *string) (model.User, error) {
	var u model.User
	var row *sql.Row
	if tenantID == nil {
		row = r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE email=? AND tenant_id IS NULL AND role=? LIMIT 1",
			NormalizeEmail(email), model.RoleSuperAdmin)
	} else {
		row = r.DB.QueryRowContext(ctx,
			"SELECT "+userColumns+" FROM users WHERE email=? AND tenant_id=? LIMIT 1",
			NormalizeEmail(email), *tenantID)
	}
	err := scanUser(row, &u)
	return u, translate(err)
}

// CreateWithinCap inserts u into its tenant unless the tenant already has
// max_users members. The cap is read under a row lock on the tenant so
// concurrent inserts for one tenant are serialised.
func (r *UserRepo) CreateWithinCap(ctx context.Context, u *model.User) error {
	if u.TenantID == nil {
		return ErrNotFound
	}
	stampNewUser(u)
	return withTx(ctx, r.DB, lockedTx, func(tx *sql.Tx) error {
		limit, err := lockTenantCap(ctx, tx, *u.TenantID, "max_users")
		if err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE tenant_id=?", *u.TenantID).Scan(&n); err != nil {
			return err
		}
		if n >= limit {
			return ErrLimitReached
		}
		return insertUser(ctx, tx, u)
	})
}

// Create inserts u without a cap check. Used by the seeder for the super
// admin, which belongs to no tenant.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	stampNewUser(u)
	return insertUser(ctx, r.DB, u)
}

// Update applies the non-nil fields of c and returns the updated row.
func (r *UserRepo) Update(ctx context.Context, id string, c UserChanges) (model.User, error) {
	var set setList
	if c.FullName != nil {
		set.add("full_name", *c.FullName)
	}
	if c.Role != nil {
		set.add("role", *c.Role)
	}
	if c.IsActive != nil {
		set.add("is_active", *c.IsActive)
	}
	if !set.empty() {
		set.add("updated_at", time.Now().UTC().Truncate(time.Millisecond))
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+set.clause()+" WHERE id=?", append(set.args, id)...); err != nil {
			return model.User{}, translate(err)
		}
	}
	return r.GetByID(ctx, id)
}

// Delete clears every task assignment pointing at the user and then removes
// the user, in one transaction. Tasks themselves are kept.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET assigned_to=NULL WHERE assigned_to=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List returns one page of a tenant's users, newest first, and the total.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, int, error) {
	var where whereList
	where.add("tenant_id=?", f.TenantID)
	if f.Role != nil {
		where.add("role=?", *f.Role)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		where.add("(full_name LIKE ? OR email LIKE ?)", p, p)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users"+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+where.clause()+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(where.args, f.Page.Size, f.Page.offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, f.Page.Size)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}
