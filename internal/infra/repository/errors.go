package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL unique_violation
const pgUniqueViolation = "23505"

// column が空なら制約名は問わない
func isUniqueViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return column == "" || strings.Contains(pgErr.ConstraintName, column)
}
