package pool

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ErrorAttrs returns slog key/value pairs describing a driver error: the
// SQLSTATE of PostgreSQL errors and the error number of MySQL errors. Other
// errors yield nil.
func ErrorAttrs(err error) []any {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return []any{"sqlstate", string(pqErr.Code), "condition", pqErr.Code.Name()}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return []any{"mysql_errno", myErr.Number, "sqlstate", string(myErr.SQLState[:])}
	}
	return nil
}
