package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// SaveTopicArtifact stores a topic run, replacing the previous run of the
// same topic in the session.
func (db *DB) SaveTopicArtifact(ctx context.Context, a *TopicArtifact) error {
	content, err := json.Marshal(a.Artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal topic artifact: %w", err)
	}
	deck := a.Deck
	if deck == nil {
		deck = []byte{}
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO topic_artifacts (session_id, topic, revision, band, slides, artifact, deck)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id, topic) DO UPDATE
		 SET revision = $3, band = $4, slides = $5, artifact = $6, deck = $7, updated_at = NOW()`,
		a.SessionID, string(a.Topic), a.Revision, string(a.Band), a.Slides, content, deck,
	)
	if err != nil {
		return fmt.Errorf("failed to save topic artifact %s: %w", a.Topic, err)
	}
	return nil
}

const topicArtifactColumns = `session_id, topic, revision, band, slides, artifact, deck, updated_at`

func scanTopicArtifact(row pgx.Row) (*TopicArtifact, error) {
	var (
		a       TopicArtifact
		topic   string
		band    string
		content []byte
	)
	if err := row.Scan(&a.SessionID, &topic, &a.Revision, &band, &a.Slides, &content, &a.Deck, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Topic = types.TopicID(topic)
	a.Band = types.Band(band)
	if err := json.Unmarshal(content, &a.Artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topic artifact %s: %w", topic, err)
	}
	return &a, nil
}

// GetTopicArtifact returns nil when the topic has not been run in the session.
func (db *DB) GetTopicArtifact(ctx context.Context, sessionID uuid.UUID, topic types.TopicID) (*TopicArtifact, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+topicArtifactColumns+` FROM topic_artifacts WHERE session_id = $1 AND topic = $2`,
		sessionID, string(topic),
	)
	a, err := scanTopicArtifact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get topic artifact %s: %w", topic, err)
	}
	return a, nil
}

// ListTopicArtifacts returns every stored topic of a session, oldest
// revision first.
func (db *DB) ListTopicArtifacts(ctx context.Context, sessionID uuid.UUID) ([]TopicArtifact, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+topicArtifactColumns+` FROM topic_artifacts WHERE session_id = $1 ORDER BY revision, topic`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list topic artifacts: %w", err)
	}
	defer rows.Close()

	var out []TopicArtifact
	for rows.Next() {
		a, err := scanTopicArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic artifact: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
