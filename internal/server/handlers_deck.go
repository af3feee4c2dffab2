package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/pipeline"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// NotReadyResponse is the body of a merge with nothing published.
type NotReadyResponse struct {
	Error   string          `json:"error"`
	Missing []types.TopicID `json:"missing"`
}

// requestedOrder reads ?topics=a,b,c. Without it the session's publish
// order is used.
func requestedOrder(r *http.Request, ss *session) ([]types.TopicID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("topics"))
	if raw == "" {
		return ss.topicOrder(), nil
	}
	var order []types.TopicID
	seen := make(map[types.TopicID]bool)
	for _, part := range strings.Split(raw, ",") {
		t := types.TopicID(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if seen[t] {
			return nil, &ErrValidation{Field: "topics", Message: fmt.Sprintf("topic %s listed twice", t)}
		}
		seen[t] = true
		order = append(order, t)
	}
	return order, nil
}

func cacheKey(id uuid.UUID, revision int, order []types.TopicID) string {
	parts := make([]string, len(order))
	for i, t := range order {
		parts[i] = string(t)
	}
	return id.String() + "/" + strconv.Itoa(revision) + "/" + strings.Join(parts, ",")
}

// merged returns the session's merged deck for order, building it at most
// once per revision even under concurrent requests.
func (s *Server) merged(r *http.Request, ss *session, order []types.TopicID) (*pipeline.MergeResult, error) {
	key := cacheKey(ss.id, ss.collector.Revision(), order)
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	v, err, shared := s.merges.Do(key, func() (any, error) {
		if res, ok := s.cache.Get(key); ok {
			return res, nil
		}
		// shared by every waiter; outlives the first caller's request
		res, err := ss.engine.Merge(context.WithoutCancel(r.Context()), ss.collector, order, pipeline.MergeOptions{
			Restyle:     s.cfg.Restyle,
			RestyleMode: s.cfg.RestyleMode,
		})
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("merged deck build shared", zap.String("key", key))
	}
	return v.(*pipeline.MergeResult), nil
}

// evict drops every cached deck of a session.
func (s *Server) evict(id uuid.UUID) {
	prefix := id.String() + "/"
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
		}
	}
}

// handleMergedDeck merges the session's published topic decks
func (s *Server) handleMergedDeck(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	order, err := requestedOrder(r, ss)
	if err != nil {
		s.fail(w, err)
		return
	}

	res, err := s.merged(r, ss, order)
	if err != nil {
		var notReady *artifact.NotReadyError
		if errors.As(err, &notReady) {
			missing := notReady.Missing
			if missing == nil {
				missing = []types.TopicID{}
			}
			s.jsonResponse(w, http.StatusConflict, NotReadyResponse{Error: artifact.ErrNotReady.Error(), Missing: missing})
			return
		}
		s.fail(w, err)
		return
	}

	if len(res.Missing) > 0 {
		parts := make([]string, len(res.Missing))
		for i, t := range res.Missing {
			parts[i] = string(t)
		}
		w.Header().Set("X-Missing-Topics", strings.Join(parts, ","))
	}
	w.Header().Set("X-Deck-Revision", strconv.Itoa(res.Revision))
	s.fileResponse(w, "merged.pptx", res.Deck)
}
