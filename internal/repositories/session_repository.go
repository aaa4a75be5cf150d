package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/db"
)

// PostgresSessionStore persists the per-user refresh slot to PostgreSQL.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Put stores or overwrites the user's slot.
func (s *PostgresSessionStore) Put(ctx context.Context, session auth.Session) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO sessions (user_id, token_hash, expires_at, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (user_id)
        DO UPDATE SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, updated_at = now()
    `, session.UserID, session.TokenHash, session.ExpiresAt.UTC())
	if err != nil {
		return mapWriteError(err, "upsert session")
	}

	return nil
}

// Rotate performs the compare-and-swap as one conditional UPDATE.
func (s *PostgresSessionStore) Rotate(ctx context.Context, userID, expectedHash string, next auth.Session) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE sessions
        SET token_hash = $3, expires_at = $4, updated_at = now()
        WHERE user_id = $1 AND token_hash = $2
    `, userID, expectedHash, next.TokenHash, next.ExpiresAt.UTC())
	if err != nil {
		if pgErrorCode(err) == pgSerializationFailure {
			return auth.ErrTokenMismatch
		}
		return fmt.Errorf("rotate session: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	// The swap lost; only the error reported depends on what is stored now.
	var one int
	err = conn.QueryRow(ctx, `SELECT 1 FROM sessions WHERE user_id = $1`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.ErrSessionNotFound
		}
		return fmt.Errorf("select session: %w", err)
	}

	return auth.ErrTokenMismatch
}

// Clear removes the user's slot.
func (s *PostgresSessionStore) Clear(ctx context.Context, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
