package artifact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by stores for keys that were never written.
var ErrNotFound = errors.New("artifact not found")

// Store persists published files per session.
type Store interface {
	Put(ctx context.Context, sessionID, path string, content []byte) error
	Get(ctx context.Context, sessionID, path string) ([]byte, error)
	GetURL(ctx context.Context, sessionID, path string) (string, error)
	List(ctx context.Context, sessionID string) ([]string, error)
}

func normalizeKey(sessionID, path string) (string, string, error) {
	sessionID = strings.TrimSpace(sessionID)
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if sessionID == "" {
		return "", "", fmt.Errorf("session_id is required")
	}
	if path == "" {
		return "", "", fmt.Errorf("path is required")
	}
	return sessionID, path, nil
}

func objectKey(sessionID, path string) string {
	return sessionID + "/" + path
}

// MemoryStore keeps published files in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, sessionID, path string, content []byte) error {
	sessionID, path, err := normalizeKey(sessionID, path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectKey(sessionID, path)] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID, path string) ([]byte, error) {
	sessionID, path, err := normalizeKey(sessionID, path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[objectKey(sessionID, path)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, sessionID string) ([]string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	prefix := sessionID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetURL returns "" because memory content has no address outside the process.
func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
