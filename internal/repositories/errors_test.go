package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapWriteError(t *testing.T) {
	wrapped := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.ErrorIs(t, mapWriteError(wrapped(pgUniqueViolation), "insert user"), ErrConflict)
	assert.ErrorIs(t, mapWriteError(wrapped(pgForeignKeyViolation), "insert comment"), ErrNotFound)

	plain := errors.New("connection reset")
	err := mapWriteError(plain, "insert video")
	assert.ErrorIs(t, err, plain)
	assert.EqualError(t, err, "insert video: connection reset")
	assert.Empty(t, pgErrorCode(plain))
}
