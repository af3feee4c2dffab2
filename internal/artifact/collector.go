// Package artifact collects the records produced by topic runs and stores
// the published deck files.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/monitoring-deck/internal/types"
)

// ErrNotReady is matched by *NotReadyError.
var ErrNotReady = errors.New("nothing to merge yet")

// NotReadyError reports that no requested topic has been run yet.
type NotReadyError struct {
	Missing []types.TopicID
}

func (e *NotReadyError) Error() string {
	if len(e.Missing) == 0 {
		return ErrNotReady.Error()
	}
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = string(m)
	}
	return fmt.Sprintf("%s: run %s first", ErrNotReady, strings.Join(names, ", "))
}

func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// Record is what one topic run returns: its artifact and built deck.
type Record struct {
	Artifact types.TopicArtifact
	Deck     []byte
	Slides   int
	// Classified is false when the target cell was missing or not numeric.
	Classified bool
	Revision   int
	UpdatedAt  time.Time
}

// Collector owns the latest record of every topic for one session.
// Publishing a topic again replaces its previous record.
type Collector struct {
	mu       sync.RWMutex
	records  map[types.TopicID]Record
	revision int
	now      func() time.Time
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{records: make(map[types.TopicID]Record), now: time.Now}
}

// Publish stores rec under its topic and returns the collector revision
// it was stored at.
func (c *Collector) Publish(rec Record) int {
	rec.Deck = bytes.Clone(rec.Deck)
	rec.Artifact.ChartImage = bytes.Clone(rec.Artifact.ChartImage)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.revision++
	rec.Revision = c.revision
	rec.UpdatedAt = c.now()
	c.records[rec.Artifact.Topic] = rec
	return c.revision
}

// Get returns the record for topic.
func (c *Collector) Get(topic types.TopicID) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[topic]
	return rec, ok
}

// Revision increases on every publish. Zero means nothing was published.
func (c *Collector) Revision() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Topics lists the published topics in name order.
func (c *Collector) Topics() []types.TopicID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.TopicID, 0, len(c.records))
	for t := range c.records {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ordered returns the published records in the given topic order, plus the
// topics that have not been published. When none of them are published the
// error is a *NotReadyError.
func (c *Collector) Ordered(order []types.TopicID) ([]Record, []types.TopicID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		records []Record
		missing []types.TopicID
	)
	for _, t := range order {
		rec, ok := c.records[t]
		if !ok {
			missing = append(missing, t)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, missing, &NotReadyError{Missing: missing}
	}
	return records, missing, nil
}
