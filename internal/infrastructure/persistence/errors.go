package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// isDuplicateKey reports whether err is a unique constraint violation.
// The message checks cover connections opened without TranslateError.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// isDataException reports a PostgreSQL class 22 error such as numeric field
// overflow (22003) or a value too long for its column (22001)
func isDataException(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "22")
}

// createError wraps a failed insert. Rows the database refuses on their
// content become ErrInvalidInput so the fact is parked instead of retried.
func createError(what string, err error) error {
	if isDataException(err) {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("failed to create %s: %v", what, err))
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}
