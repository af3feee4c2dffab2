// Package server provides the HTTP API for building and merging monitoring decks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/monitoring-deck/internal/artifact"
	"github.com/jonathan/monitoring-deck/internal/db"
	"github.com/jonathan/monitoring-deck/internal/merge"
	"github.com/jonathan/monitoring-deck/internal/observability"
	"github.com/jonathan/monitoring-deck/internal/pipeline"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"github.com/jonathan/monitoring-deck/internal/thresholds"
)

// DefaultCacheSize is the number of merged decks kept in memory.
const DefaultCacheSize = 32

// SessionRecorder persists sessions and what they build. *db.DB satisfies it.
type SessionRecorder interface {
	pipeline.Recorder
	CreateSession(ctx context.Context, id uuid.UUID) (*db.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*db.Session, error)
	ListTopicArtifacts(ctx context.Context, sessionID uuid.UUID) ([]db.TopicArtifact, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// Config holds server configuration
type Config struct {
	Port        int
	Thresholds  thresholds.Store
	Style       skeleton.Resolved
	Restyle     merge.RestyleTable
	RestyleMode string
	Logger      *zap.Logger

	// Optional
	Recorder  SessionRecorder
	Store     artifact.Store
	CacheSize int
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	cfg        Config
	logger     *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session

	merges singleflight.Group
	cache  *lru.Cache[string, *pipeline.MergeResult]
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Thresholds == nil {
		return nil, errors.New("threshold store is required")
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *pipeline.MergeResult](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create deck cache: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		logger:   observability.OrNop(cfg.Logger),
		sessions: make(map[uuid.UUID]*session),
		cache:    cache,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /thresholds/{metric}", s.handleGetThresholds)
	mux.HandleFunc("PUT /thresholds/{metric}", s.handlePutThresholds)
	mux.HandleFunc("POST /classify", s.handleClassify)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /sessions/{id}/topics/{topic}", s.handlePutTopic)
	mux.HandleFunc("GET /sessions/{id}/topics/{topic}/deck.pptx", s.handleTopicDeck)
	mux.HandleFunc("GET /sessions/{id}/topics/{topic}/table.xlsx", s.handleTopicTableXLSX)
	mux.HandleFunc("GET /sessions/{id}/topics/{topic}/table.html", s.handleTopicTableHTML)
	mux.HandleFunc("GET /sessions/{id}/deck.pptx", s.handleMergedDeck)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves requests until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "X-Missing-Topics, X-Deck-Revision")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to its status and writes it.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}

// fileResponse writes content as a download named name.
func (s *Server) fileResponse(w http.ResponseWriter, name string, content []byte) {
	w.Header().Set("Content-Type", artifact.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.Warn("failed to write response body", zap.String("file", name), zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// Request bodies carry chart images inline.
const maxBodyBytes = 32 << 20

func decodeBytes(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}
