package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// lockedTx is used by every insert that must re-check a tenant cap. The
// tenant row is taken with SELECT ... FOR UPDATE, so concurrent creators for
// one tenant queue on that lock; READ COMMITTED makes the COUNT that follows
// see rows committed by whoever held the lock before.
var lockedTx = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// withTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise; the returned error is fn's, or the commit error.
func withTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// lockTenantCap locks the tenant row and returns the requested cap column.
func lockTenantCap(ctx context.Context, tx *sql.Tx, tenantID, column string) (int, error) {
	var limit int
	err := tx.QueryRowContext(ctx,
		"SELECT "+column+" FROM tenants WHERE id=? FOR UPDATE", tenantID).Scan(&limit)
	if err != nil {
		return 0, translate(err)
	}
	return limit, nil
}

// setList accumulates "col=?" fragments for partial updates.
type setList struct {
	cols []string
	args []interface{}
}

func (s *setList) add(col string, v interface{}) {
	s.cols = append(s.cols, col+"=?")
	s.args = append(s.args, v)
}

func (s *setList) empty() bool { return len(s.cols) == 0 }

func (s *setList) clause() string { return strings.Join(s.cols, ", ") }

// whereList accumulates AND-ed filter fragments.
type whereList struct {
	conds []string
	args  []interface{}
}

func (w *whereList) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereList) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// likePattern escapes LIKE metacharacters and wraps s for substring search.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
