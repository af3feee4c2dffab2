package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// Session is one operator's isolated workspace.
type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TopicArtifact is the stored result of the latest run of one topic.
type TopicArtifact struct {
	SessionID uuid.UUID           `json:"session_id"`
	Topic     types.TopicID       `json:"topic"`
	Revision  int                 `json:"revision"`
	Band      types.Band          `json:"band"`
	Slides    int                 `json:"slides"`
	Artifact  types.TopicArtifact `json:"artifact"`
	Deck      []byte              `json:"-"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// MergedDeck is one merged deck built for a session.
type MergedDeck struct {
	ID        int64           `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Revision  int             `json:"revision"`
	Slides    int             `json:"slides"`
	Missing   []types.TopicID `json:"missing,omitempty"`
	Deck      []byte          `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}
