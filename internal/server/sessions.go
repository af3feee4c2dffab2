package server

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/classify"
	"github.com/jonathan/monitoring-deck/internal/htmlview"
	"github.com/jonathan/monitoring-deck/internal/pipeline"
	"github.com/jonathan/monitoring-deck/internal/tabular"
	"github.com/jonathan/monitoring-deck/internal/types"
)

// session is one operator's isolated workspace: its own collector and the
// order topics were first published in.
type session struct {
	id        uuid.UUID
	createdAt time.Time
	collector *artifact.Collector
	engine    *pipeline.Engine

	mu    sync.Mutex
	order []types.TopicID
}

func (ss *session) published(topic types.TopicID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !slices.Contains(ss.order, topic) {
		ss.order = append(ss.order, topic)
	}
}

func (ss *session) topicOrder() []types.TopicID {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return slices.Clone(ss.order)
}

// SessionResponse describes a session and its published topics.
type SessionResponse struct {
	SessionID uuid.UUID       `json:"session_id"`
	CreatedAt time.Time       `json:"created_at"`
	Revision  int             `json:"revision"`
	Topics    []types.TopicID `json:"topics"`
}

// TopicRequest is the input of one topic build.
type TopicRequest struct {
	Title        string                      `json:"title" validate:"max=200"`
	TableTitle   string                      `json:"table_title" validate:"max=200"`
	ChartTitle   string                      `json:"chart_title" validate:"max=200"`
	MetricType   string                      `json:"metric_type" validate:"omitempty,max=64"`
	Table        types.Table                 `json:"table"`
	Chart        []byte                      `json:"chart"`
	Target       *types.ClassificationTarget `json:"target" validate:"required_with=MetricType"`
	DataComment  string                      `json:"data_comment"`
	GraphComment string                      `json:"graph_comment"`
}

// TopicResponse summarizes a published topic.
type TopicResponse struct {
	Topic    types.TopicID `json:"topic"`
	Band     types.Band    `json:"band"`
	Slides   int           `json:"slides"`
	Revision int           `json:"revision"`
}

func (s *Server) newSession(id uuid.UUID) *session {
	return &session{
		id:        id,
		createdAt: time.Now(),
		collector: artifact.NewCollector(),
		engine: &pipeline.Engine{
			Thresholds: s.cfg.Thresholds,
			Style:      s.cfg.Style,
			Logger:     s.logger.With(zap.String("session_id", id.String())),
			SessionID:  id,
			Store:      s.cfg.Store,
			Recorder:   recorder(s.cfg.Recorder),
		},
	}
}

// recorder keeps a nil SessionRecorder from becoming a non-nil interface.
func recorder(r SessionRecorder) pipeline.Recorder {
	if r == nil {
		return nil
	}
	return r
}

func (s *Server) session(r *http.Request) (*session, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "invalid session id"}
	}
	s.mu.RLock()
	ss, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return ss, nil
	}
	if s.cfg.Recorder == nil {
		return nil, &ErrSessionNotFound{SessionID: id}
	}
	return s.restore(r.Context(), id)
}

// restore rebuilds a session that is in the database but not in memory,
// as after a restart. Topics are republished in their stored revision order.
func (s *Server) restore(ctx context.Context, id uuid.UUID) (*session, error) {
	stored, err := s.cfg.Recorder.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, &ErrSessionNotFound{SessionID: id}
	}
	topics, err := s.cfg.Recorder.ListTopicArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}

	ss := s.newSession(id)
	ss.createdAt = stored.CreatedAt
	for _, a := range topics {
		_, classified := classify.Target(&a.Artifact.Table, a.Artifact.Target, a.Artifact.Thresholds)
		ss.collector.Publish(artifact.Record{
			Artifact:   a.Artifact,
			Deck:       a.Deck,
			Slides:     a.Slides,
			Classified: classified,
		})
		ss.published(a.Topic)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = ss
	s.logger.Info("session restored", zap.String("session_id", id.String()), zap.Int("topics", len(topics)))
	return ss, nil
}

func topicParam(r *http.Request) (types.TopicID, error) {
	topic := r.PathValue("topic")
	if err := validator.New().Var(topic, "required,max=64,excludesall=/\\"); err != nil {
		return "", &ErrValidation{Field: "topic", Message: "invalid topic id"}
	}
	return types.TopicID(topic), nil
}

func (s *Server) publishedTopic(r *http.Request) (*session, artifact.Record, error) {
	ss, err := s.session(r)
	if err != nil {
		return nil, artifact.Record{}, err
	}
	topic, err := topicParam(r)
	if err != nil {
		return nil, artifact.Record{}, err
	}
	rec, ok := ss.collector.Get(topic)
	if !ok {
		return nil, artifact.Record{}, &ErrTopicNotFound{Topic: string(topic)}
	}
	return ss, rec, nil
}

// handleCreateSession starts an empty session
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New()
	if s.cfg.Recorder != nil {
		if _, err := s.cfg.Recorder.CreateSession(r.Context(), id); err != nil {
			s.fail(w, err)
			return
		}
	}

	ss := s.newSession(id)
	s.mu.Lock()
	s.sessions[id] = ss
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", id.String()))
	s.jsonResponse(w, http.StatusCreated, SessionResponse{SessionID: id, CreatedAt: ss.createdAt, Topics: []types.TopicID{}})
}

// handleGetSession lists a session's published topics
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SessionResponse{
		SessionID: ss.id,
		CreatedAt: ss.createdAt,
		Revision:  ss.collector.Revision(),
		Topics:    ss.topicOrder(),
	})
}

// handleDeleteSession drops a session and its cached decks
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if s.cfg.Recorder != nil {
		if err := s.cfg.Recorder.DeleteSession(r.Context(), ss.id); err != nil {
			s.fail(w, err)
			return
		}
	}

	s.mu.Lock()
	delete(s.sessions, ss.id)
	s.mu.Unlock()
	s.evict(ss.id)

	w.WriteHeader(http.StatusNoContent)
}

// handlePutTopic builds a topic's deck and publishes it to the session,
// replacing any earlier run of the same topic.
func (s *Server) handlePutTopic(w http.ResponseWriter, r *http.Request) {
	ss, err := s.session(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	topic, err := topicParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	var req TopicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := validator.New().Struct(req); err != nil {
		s.fail(w, &ErrValidation{Field: "request", Message: err.Error()})
		return
	}

	in := pipeline.Topic{
		ID:           topic,
		Title:        req.Title,
		TableTitle:   req.TableTitle,
		ChartTitle:   req.ChartTitle,
		MetricType:   req.MetricType,
		Table:        req.Table,
		Chart:        req.Chart,
		DataComment:  req.DataComment,
		GraphComment: req.GraphComment,
	}
	if req.Target != nil {
		in.Target = *req.Target
	}

	rec, err := ss.engine.RunTopic(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	rev := ss.engine.Publish(r.Context(), ss.collector, rec)
	ss.published(topic)

	s.jsonResponse(w, http.StatusOK, TopicResponse{
		Topic:    topic,
		Band:     rec.Artifact.Band,
		Slides:   rec.Slides,
		Revision: rev,
	})
}

// handleTopicDeck returns a topic's own deck
func (s *Server) handleTopicDeck(w http.ResponseWriter, r *http.Request) {
	_, rec, err := s.publishedTopic(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.fileResponse(w, string(rec.Artifact.Topic)+".pptx", rec.Deck)
}

// handleTopicTableXLSX exports a topic's table with its target cell highlighted
func (s *Server) handleTopicTableXLSX(w http.ResponseWriter, r *http.Request) {
	_, rec, err := s.publishedTopic(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	a := rec.Artifact
	data, err := tabular.XLSX(&a.Table, &tabular.Highlight{Target: a.Target, Thresholds: a.Thresholds})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.fileResponse(w, string(a.Topic)+".xlsx", data)
}

// handleTopicTableHTML renders a topic's table for display
func (s *Server) handleTopicTableHTML(w http.ResponseWriter, r *http.Request) {
	_, rec, err := s.publishedTopic(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	a := rec.Artifact
	w.Header().Set("Content-Type", artifact.ContentType("table.html"))
	w.WriteHeader(http.StatusOK)
	opts := &htmlview.Options{Target: a.Target, Thresholds: a.Thresholds, WholeColumn: r.URL.Query().Get("column") == "all"}
	if err := htmlview.Render(w, &a.Table, opts); err != nil {
		s.logger.Warn("failed to render table", zap.String("topic", string(a.Topic)), zap.Error(err))
	}
}
