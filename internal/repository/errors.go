// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint, such as a duplicate subdomain or a duplicate email within a
// tenant. Services translate this into a 409.
var ErrConflict = errors.New("conflict")

// ErrLimitReached is returned by capacity-limited inserts when the tenant
// already holds as many rows as its subscription allows.
var ErrLimitReached = errors.New("subscription limit reached")

// ErrInvalidReference is returned when a foreign key points at a row that no
// longer exists, e.g. assigning a task to a user deleted concurrently.
var ErrInvalidReference = errors.New("invalid reference")

const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

// translate maps driver errors onto the sentinels above.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrConflict
		case mysqlNoReferenced:
			return ErrInvalidReference
		}
	}
	return err
}
