package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateSession inserts a session with the given id.
func (db *DB) CreateSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := db.pool.QueryRow(ctx,
		`INSERT INTO deck_sessions (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		id,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

// GetSession returns nil when the session does not exist.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := db.pool.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM deck_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes a session and everything stored for it.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM deck_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
