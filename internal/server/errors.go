package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/rendering"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
)

// ErrSessionNotFound indicates the session does not exist
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ErrTopicNotFound indicates the topic has not been published in the session
type ErrTopicNotFound struct {
	Topic string
}

func (e *ErrTopicNotFound) Error() string {
	return fmt.Sprintf("topic not published: %s", e.Topic)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		session    *ErrSessionNotFound
		topic      *ErrTopicNotFound
		malformed  *rendering.MalformedAssetError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &session), errors.As(err, &topic),
		errors.Is(err, thresholds.ErrConfigMissing), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, artifact.ErrNotReady):
		return http.StatusConflict
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
