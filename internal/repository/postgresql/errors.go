package postgresql

import (
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is what Postgres returns for an id that is
	// not a valid UUID.
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == uniqueViolation
}

// isNotFound treats a malformed id like a missing row; no such order can exist.
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgErrorCode(err) == invalidTextRepresentation
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
