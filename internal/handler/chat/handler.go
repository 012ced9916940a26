package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arashpm/atlas-chat/internal/model/persona"
	chatservice "github.com/arashpm/atlas-chat/internal/service/chat"
	"github.com/arashpm/atlas-chat/internal/session"
	"github.com/arashpm/atlas-chat/pkg/utils"
)

// User-facing failure strings. Kept short and friendly; upstream error
// payloads never reach the client.
const (
	msgEmptyMessage  = "Please send a message."
	msgUpstreamError = "Sorry, something went wrong while talking to the AI."
)

// Handler serves the chat endpoints and the session preference endpoints
// that invalidate the cached conversation handle.
type Handler struct {
	sessions *session.Manager
	chatSvc  *chatservice.Service
	personas persona.Store
}

// New creates the chat handler.
func New(sessions *session.Manager, chatSvc *chatservice.Service, personas persona.Store) *Handler {
	return &Handler{sessions: sessions, chatSvc: chatSvc, personas: personas}
}

// RegisterRoutes registers chat-related routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/stream", h.handleChatStream)
	r.Post("/set_persona", h.handleSetPersona)
	r.Post("/set_user_name", h.handleSetUserName)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.sessions.GetOrCreate(w, r)

	reply, err := h.chatSvc.Chat(r.Context(), sess, payload.Message)
	switch {
	case errors.Is(err, chatservice.ErrEmptyMessage):
		utils.RespondJSON(w, http.StatusBadRequest, map[string]string{"response": msgEmptyMessage})
		return
	case err != nil:
		log.Printf("[chat] completion failed for session=%.8s: %v", sess.ID, err)
		utils.RespondJSON(w, http.StatusInternalServerError, map[string]string{"response": msgUpstreamError})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess := h.sessions.GetOrCreate(w, r)
	utils.SetupSSEHeaders(w)

	err := h.chatSvc.ChatStream(r.Context(), sess, message, func(chunk string) error {
		utils.SendSSEEvent(w, flusher, "chunk", map[string]string{"text": chunk})
		return r.Context().Err()
	})
	if err != nil {
		log.Printf("[chat] stream failed for session=%.8s: %v", sess.ID, err)
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"message": msgUpstreamError})
		return
	}

	utils.SendSSEEvent(w, flusher, "done", map[string]string{})
}

func (h *Handler) handleSetPersona(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaKey string `json:"persona_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, ok := h.personas.Find(payload.PersonaKey)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "invalid persona key")
		return
	}

	sess := h.sessions.GetOrCreate(w, r)
	sess.PersonaKey = p.Key
	h.sessions.Write(w, sess)
	h.chatSvc.Invalidate(sess.ID)

	log.Printf("[chat] session=%.8s persona set to %s", sess.ID, p.Key)

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":           "success",
		"message":          fmt.Sprintf("Persona switched to %s. The chat was reset and your saved history reloaded.", p.Name),
		"new_persona_name": p.Name,
	})
}

func (h *Handler) handleSetUserName(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(payload.UserName)

	sess := h.sessions.GetOrCreate(w, r)
	sess.UserName = name
	h.sessions.Write(w, sess)
	h.chatSvc.Invalidate(sess.ID)

	message := "Your name has been cleared. The chat was reset and your saved history reloaded."
	if name != "" {
		message = fmt.Sprintf("Your name has been set to %s. The chat was reset and your saved history reloaded.", name)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}
