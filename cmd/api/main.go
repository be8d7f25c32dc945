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

	"github.com/joho/godotenv"

	"github.com/echomentor/backend/internal/config"
	"github.com/echomentor/backend/internal/handler"
	"github.com/echomentor/backend/internal/model/persona"
	"github.com/echomentor/backend/internal/search"
	"github.com/echomentor/backend/internal/service/ai"
	"github.com/echomentor/backend/internal/service/speech"
	"github.com/echomentor/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())

	sessionStore, err := store.NewSQLiteStore(ctx, cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer sessionStore.Close()

	persist := store.NewBestEffortUpdater(sessionStore)
	defer persist.Wait()

	index, err := search.Open(cfg.Store.IndexPath)
	if err != nil {
		log.Printf("warning: failed to open search index: %v", err)
		log.Println("continuing without session search")
		index = nil
	} else {
		defer index.Close()
	}

	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("GOODFIRE_API_KEY not configured, skipping AI initialization")
	}

	var speechService *speech.Service
	if cfg.Speech.Enabled {
		speechService = speech.NewService(cfg.Speech)
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("GOOGLE_SPEECH_API_KEY not configured, skipping speech initialization")
	}

	router := handler.NewRouter(personaStore, sessionStore, persist, aiService, speechService, index)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("EchoMentor backend listening on %s", serverCfg.Addr)
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
