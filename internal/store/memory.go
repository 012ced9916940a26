package store

import (
	"context"
	"sync"

	"github.com/arashpm/atlas-chat/internal/model/chat"
)

// Memory is an in-process conversation store, used in tests and wherever a
// database is overkill. Same replace-on-save semantics as Postgres.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]chat.Turn
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]chat.Turn)}
}

// Load returns the stored history for a session, empty when unknown.
func (s *Memory) Load(_ context.Context, sessionID string) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.records[sessionID]
	if !ok {
		return nil
	}
	copied := make([]chat.Turn, len(history))
	copy(copied, history)
	return copied
}

// Save replaces the full history for a session.
func (s *Memory) Save(_ context.Context, sessionID string, history []chat.Turn) error {
	copied := sanitize(history) // sanitize always allocates a fresh slice

	s.mu.Lock()
	s.records[sessionID] = copied
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions hold a record, for tests.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
