// Package repository holds the persistence providers behind the portal.
// Both stores return errors tagged with the apperrors kinds so handlers
// never see driver or filesystem errors directly. A duplicate key on one
// of the sequential id columns means two writers computed the same id and
// is reported as a concurrency error; a duplicate email is a conflict.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/admissions-portal/portal/internal/apperrors"
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// classify converts a write error into an application error. op names
// the failed operation for logs.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		if strings.Contains(strings.ToLower(myErr.Message), "email") {
			return apperrors.Conflict("email already registered")
		}
		return apperrors.Concurrency(op, err)
	}
	return apperrors.Persistence(op, err)
}
