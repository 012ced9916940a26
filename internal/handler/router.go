package handler

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/arashpm/atlas-chat/internal/handler/chat"
	personaHandler "github.com/arashpm/atlas-chat/internal/handler/persona"
	middlewarePkg "github.com/arashpm/atlas-chat/internal/middleware"
	personaModel "github.com/arashpm/atlas-chat/internal/model/persona"
	chatService "github.com/arashpm/atlas-chat/internal/service/chat"
	"github.com/arashpm/atlas-chat/internal/session"
	"github.com/arashpm/atlas-chat/pkg/utils"
)

//go:embed index.html
var chatPage []byte

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, sessions *session.Manager, chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)
		chatHandler.New(sessions, chatSvc, personas).RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(chatPage)
	})

	return r
}
