// Package store persists conversation histories keyed by session id. The
// write model is deliberately coarse: every save replaces the full history
// for a session, never appends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arashpm/atlas-chat/internal/model/chat"
)

// Postgres stores one row per session id with the history as JSONB.
//
// Postgres is safe for concurrent use; the pool owns all synchronization.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an established connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Load returns the stored history for a session. A missing record, a decode
// failure or an unreachable database all degrade to an empty history; the
// caller never sees an error, only a stateless conversation.
func (s *Postgres) Load(ctx context.Context, sessionID string) []chat.Turn {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT history FROM conversations WHERE session_id = $1`, sessionID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		log.Printf("[store] load failed for session=%.8s: %v", sessionID, err)
		return nil
	}

	var turns []chat.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		log.Printf("[store] corrupt history for session=%.8s: %v", sessionID, err)
		return nil
	}
	return turns
}

// Save upserts the full history for a session. The session_id primary key
// enforces one record per session.
func (s *Postgres) Save(ctx context.Context, sessionID string, history []chat.Turn) error {
	payload, err := json.Marshal(sanitize(history))
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (session_id, history)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id)
		 DO UPDATE SET history = EXCLUDED.history, updated_at = now()`,
		sessionID, payload,
	)
	return err
}

// sanitize enforces the persisted contract: a part with no representable
// text becomes the placeholder marker, and a turn left with no parts is
// preserved with a single placeholder part rather than dropped.
func sanitize(history []chat.Turn) []chat.Turn {
	out := make([]chat.Turn, 0, len(history))
	for _, turn := range history {
		parts := make([]chat.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.Text == "" {
				parts = append(parts, chat.Part{Text: chat.PlaceholderText})
				continue
			}
			parts = append(parts, p)
		}
		if len(parts) == 0 {
			parts = []chat.Part{{Text: chat.PlaceholderText}}
		}
		out = append(out, chat.Turn{Role: turn.Role, Parts: parts})
	}
	return out
}
