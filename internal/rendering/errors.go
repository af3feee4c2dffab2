// Package rendering builds the three-slide deck for one monitoring topic.
package rendering

import (
	"fmt"

	"github.com/jonathan/monitoring-deck/internal/types"
)

// MalformedAssetError reports an input asset that cannot be placed in a
// deck. It is fatal for the topic's deck and names the topic.
type MalformedAssetError struct {
	Topic types.TopicID
	Asset string
	Cause error
}

func (e *MalformedAssetError) Error() string {
	return fmt.Sprintf("topic %s: malformed %s: %v", e.Topic, e.Asset, e.Cause)
}

func (e *MalformedAssetError) Unwrap() error { return e.Cause }

// EncodeError wraps a failure to serialize a laid-out topic deck.
type EncodeError struct {
	Topic types.TopicID
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("topic %s: encode deck: %v", e.Topic, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
