package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arashpm/atlas-chat/internal/model/persona"
	"github.com/arashpm/atlas-chat/pkg/utils"
)

// Handler serves the persona listing.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes registers persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	items := h.personas.List()

	type entry struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	personas := make([]entry, 0, len(items))
	for _, p := range items {
		personas = append(personas, entry{Key: p.Key, Name: p.Name})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"personas": personas})
}
