// Package chat owns the per-session conversation state: a cache of live
// model conversations keyed by session id, rebuilt on demand from the
// conversation store and invalidated whenever the session's persona or
// display name changes.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	chatmodel "github.com/arashpm/atlas-chat/internal/model/chat"
	"github.com/arashpm/atlas-chat/internal/model/persona"
	"github.com/arashpm/atlas-chat/internal/service/gemini"
	"github.com/arashpm/atlas-chat/internal/session"
)

var (
	// ErrEmptyMessage rejects blank input before any external call.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrUpstreamUnavailable covers a missing or failing completion backend.
	ErrUpstreamUnavailable = errors.New("completion backend unavailable")
)

// ConversationStore is the persistence contract the service depends on.
// Load degrades to an empty history on any failure; Save replaces the full
// history for the session.
type ConversationStore interface {
	Load(ctx context.Context, sessionID string) []chatmodel.Turn
	Save(ctx context.Context, sessionID string, history []chatmodel.Turn) error
}

// Gateway opens live model conversations.
type Gateway interface {
	NewChat(ctx context.Context, systemInstruction string, history []chatmodel.Turn) (gemini.Chat, error)
}

// handle binds a session to a live model conversation. The system
// instruction is fixed at creation; a persona or name change produces a new
// handle, never an in-place mutation.
type handle struct {
	personaKey        string
	userName          string
	systemInstruction string
	chat              gemini.Chat
}

// Service caches at most one handle per session id and serializes the
// load-send-save sequence per session, so a double-submit queues instead of
// losing a turn.
type Service struct {
	gateway  Gateway
	store    ConversationStore
	personas persona.Store

	mu      sync.Mutex
	handles map[string]*handle
	locks   map[string]*sync.Mutex
}

// NewService wires the chat service. A nil gateway leaves the service in a
// degraded state where every chat call reports the upstream as unavailable.
func NewService(gateway Gateway, store ConversationStore, personas persona.Store) *Service {
	return &Service{
		gateway:  gateway,
		store:    store,
		personas: personas,
		handles:  make(map[string]*handle),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Chat forwards a user message through the session's model conversation and
// persists the resulting history. A failed completion leaves the stored
// history untouched; a failed save is logged and the reply still returned.
func (s *Service) Chat(ctx context.Context, sess session.Session, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if s.gateway == nil {
		return "", ErrUpstreamUnavailable
	}

	lock := s.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	h, err := s.getOrCreateHandle(ctx, sess)
	if err != nil {
		return "", err
	}

	reply, err := h.chat.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	s.persist(ctx, sess.ID, h)
	return reply, nil
}

// ChatStream is Chat over streamed chunks: fn receives each reply fragment
// as it arrives, and the history is persisted once the stream completes.
func (s *Service) ChatStream(ctx context.Context, sess session.Session, message string, fn func(chunk string) error) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if s.gateway == nil {
		return ErrUpstreamUnavailable
	}

	lock := s.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	h, err := s.getOrCreateHandle(ctx, sess)
	if err != nil {
		return err
	}

	if err := h.chat.SendStream(ctx, message, fn); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	s.persist(ctx, sess.ID, h)
	return nil
}

// Invalidate drops the cached handle for a session. The next chat call
// rebuilds it from the conversation store with a freshly composed system
// instruction.
func (s *Service) Invalidate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handles[sessionID]; ok {
		delete(s.handles, sessionID)
		log.Printf("[chat] session=%.8s handle invalidated", sessionID)
	}
}

func (s *Service) persist(ctx context.Context, sessionID string, h *handle) {
	if err := s.store.Save(ctx, sessionID, h.chat.History()); err != nil {
		log.Printf("[chat] failed to persist history for session=%.8s: %v", sessionID, err)
	}
}

// getOrCreateHandle returns the cached handle when it still matches the
// session's persona and name, and otherwise rebuilds it from stored history.
// Callers must hold the session lock.
func (s *Service) getOrCreateHandle(ctx context.Context, sess session.Session) (*handle, error) {
	s.mu.Lock()
	h, ok := s.handles[sess.ID]
	s.mu.Unlock()

	if ok && h.personaKey == sess.PersonaKey && h.userName == sess.UserName {
		return h, nil
	}

	history := s.store.Load(ctx, sess.ID)
	instruction := s.composeInstruction(sess)

	conv, err := s.gateway.NewChat(ctx, instruction, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	h = &handle{
		personaKey:        sess.PersonaKey,
		userName:          sess.UserName,
		systemInstruction: instruction,
		chat:              conv,
	}

	s.mu.Lock()
	s.handles[sess.ID] = h
	s.mu.Unlock()

	log.Printf("[chat] session=%.8s handle created persona=%s name=%q history=%d",
		sess.ID, sess.PersonaKey, sess.UserName, len(history))
	return h, nil
}

// composeInstruction builds the system instruction: the persona prompt, plus
// an address-by-name clause when the session carries a display name.
func (s *Service) composeInstruction(sess session.Session) string {
	p := s.personas.FindOrDefault(sess.PersonaKey)
	if sess.UserName == "" {
		return p.Prompt
	}
	return p.Prompt + fmt.Sprintf(
		" Address the user by the name '%s' and keep addressing them by it throughout the conversation."+
			" If no name is available, use a polite generic address such as 'friend'.",
		sess.UserName,
	)
}

// sessionLock returns the per-session mutex, creating it on first use. Locks
// are never reclaimed; like the handle cache they grow with the number of
// sessions seen by the process.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
