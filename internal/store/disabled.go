package store

import (
	"context"
	"log"

	"github.com/arashpm/atlas-chat/internal/model/chat"
)

// Disabled is the degraded store used when no database is configured or the
// configured one is unreachable at startup. Every load is empty and every
// save a no-op, so the service keeps answering as a stateless chat.
type Disabled struct{}

// NewDisabled returns the degraded store and logs the degradation once.
func NewDisabled() Disabled {
	log.Println("[store] persistence disabled, conversations will not survive restarts")
	return Disabled{}
}

// Load always returns an empty history.
func (Disabled) Load(context.Context, string) []chat.Turn { return nil }

// Save discards the history.
func (Disabled) Save(_ context.Context, sessionID string, _ []chat.Turn) error {
	log.Printf("[store] dropping history for session=%.8s (persistence disabled)", sessionID)
	return nil
}
