// Package repository implements the persistence interfaces on top of
// database/sql.  The same queries run against MySQL and SQLite; the only
// dialect-specific code is duplicate-key detection.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
)

// ErrNotFound is returned when a lookup matches no row.  It is the same
// value as booking.ErrNotFound so the engine can recognise it.
var ErrNotFound = booking.ErrNotFound

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = booking.ErrDuplicate

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// Driver error codes for unique-key violations.
const (
	mysqlDuplicateEntry        = 1062
	sqliteConstraintPrimaryKey = 1555 // SQLITE_CONSTRAINT_PRIMARYKEY
	sqliteConstraintUnique     = 2067 // SQLITE_CONSTRAINT_UNIQUE
)

// isDuplicate reports whether err is a unique-key violation on either
// supported driver.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
