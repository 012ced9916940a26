package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/arashpm/atlas-chat/internal/config"
	"github.com/arashpm/atlas-chat/internal/handler"
	"github.com/arashpm/atlas-chat/internal/model/persona"
	chatservice "github.com/arashpm/atlas-chat/internal/service/chat"
	"github.com/arashpm/atlas-chat/internal/service/gemini"
	"github.com/arashpm/atlas-chat/internal/session"
	"github.com/arashpm/atlas-chat/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Session.FallbackSecret {
		log.Println("warning: SESSION_SECRET not set, using the built-in dev secret")
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	sessions := session.NewManager(cfg.Session.Secret)

	// Conversation store: any startup failure degrades to stateless chat
	// instead of aborting the service.
	conversations := openConversationStore(ctx, cfg.Database)

	// Completion gateway: a missing key or failed init leaves the chat
	// endpoints answering with a friendly unavailability message.
	var gateway chatservice.Gateway
	if cfg.Gemini.Enabled() {
		gw, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			TopP:        cfg.Gemini.TopP,
			MaxTokens:   cfg.Gemini.MaxTokens,
		})
		if err != nil {
			log.Printf("warning: failed to initialize gemini gateway: %v", err)
		} else {
			gateway = gw
			log.Printf("gemini gateway initialized, model=%s", gw.Model())
		}
	} else {
		log.Println("GEMINI_API_KEY not set, chat completions disabled")
	}

	chatSvc := chatservice.NewService(gateway, conversations, personaStore)
	router := handler.NewRouter(personaStore, sessions, chatSvc)

	startServer(ctx, cfg.Server, router)
}

// openConversationStore connects to Postgres and runs migrations, falling
// back to the disabled store when the database is unconfigured or unhealthy.
func openConversationStore(ctx context.Context, cfg config.DatabaseConfig) chatservice.ConversationStore {
	if !cfg.Enabled() {
		log.Println("DATABASE_URL not set")
		return store.NewDisabled()
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		log.Printf("warning: failed to create database pool: %v", err)
		return store.NewDisabled()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		log.Printf("warning: database unreachable: %v", err)
		pool.Close()
		return store.NewDisabled()
	}

	if err := store.Migrate(cfg.URL); err != nil {
		log.Printf("warning: failed to run migrations: %v", err)
		pool.Close()
		return store.NewDisabled()
	}

	log.Println("conversation store connected")
	return store.NewPostgres(pool)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Atlas Chat backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
