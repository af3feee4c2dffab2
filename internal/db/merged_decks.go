package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// SaveMergedDeck records a merged deck and returns its id.
func (db *DB) SaveMergedDeck(ctx context.Context, d *MergedDeck) (int64, error) {
	missing := make([]string, len(d.Missing))
	for i, m := range d.Missing {
		missing[i] = string(m)
	}
	deck := d.Deck
	if deck == nil {
		deck = []byte{}
	}

	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO merged_decks (session_id, revision, slides, missing, deck)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		d.SessionID, d.Revision, d.Slides, missing, deck,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save merged deck: %w", err)
	}
	return id, nil
}

// LatestMergedDeck returns the most recent merged deck of a session, or nil.
func (db *DB) LatestMergedDeck(ctx context.Context, sessionID uuid.UUID) (*MergedDeck, error) {
	var (
		d       MergedDeck
		missing []string
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, session_id, revision, slides, missing, deck, created_at
		 FROM merged_decks WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		sessionID,
	).Scan(&d.ID, &d.SessionID, &d.Revision, &d.Slides, &missing, &d.Deck, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get merged deck: %w", err)
	}
	for _, m := range missing {
		d.Missing = append(d.Missing, types.TopicID(m))
	}
	return &d, nil
}
