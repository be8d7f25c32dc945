package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	aiHandler "github.com/echomentor/backend/internal/handler/ai"
	"github.com/echomentor/backend/internal/handler/live"
	personaHandler "github.com/echomentor/backend/internal/handler/persona"
	sessionsHandler "github.com/echomentor/backend/internal/handler/sessions"
	speechHandler "github.com/echomentor/backend/internal/handler/speech"
	middlewarePkg "github.com/echomentor/backend/internal/middleware"
	personaModel "github.com/echomentor/backend/internal/model/persona"
	"github.com/echomentor/backend/internal/search"
	aiService "github.com/echomentor/backend/internal/service/ai"
	"github.com/echomentor/backend/internal/service/mentor"
	speechService "github.com/echomentor/backend/internal/service/speech"
	"github.com/echomentor/backend/internal/store"
	"github.com/echomentor/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. aiSvc, speechSvc, and
// index may be nil when the corresponding upstream is not configured;
// their routes then answer 503.
func NewRouter(personas personaModel.Store, sessionStore store.SessionStore, persist *store.BestEffortUpdater, aiSvc *aiService.Service, speechSvc *speechService.Service, index *search.Index) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var summarizer sessionsHandler.Summarizer
	if aiSvc != nil {
		summarizer = aiSvc
	}
	var searcher sessionsHandler.Searcher
	var deleter sessionsHandler.Deleter
	if index != nil {
		searcher = index
		deleter = index
	}

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(personas).RegisterRoutes(api)
		sessionsHandler.New(sessionStore, summarizer, searcher, deleter).RegisterRoutes(api)

		if aiSvc != nil {
			aiHandler.New(aiSvc).RegisterRoutes(api)
		} else {
			api.Post("/process-text", respondAIUnavailable)
			api.Post("/generate-tags", respondAIUnavailable)
			api.Post("/generate-title", respondAIUnavailable)
		}

		if speechSvc != nil {
			speechHandler.New(speechSvc).RegisterRoutes(api)
		} else {
			api.Post("/speech-to-text", respondSpeechUnavailable)
			api.Post("/text-to-speech", respondSpeechUnavailable)
		}

		if aiSvc != nil {
			// Nil service pointers must stay nil interfaces downstream.
			var liveSpeech live.SpeechService
			if speechSvc != nil {
				liveSpeech = speechSvc
			}
			var indexer mentor.Indexer
			if index != nil {
				indexer = index
			}
			live.New(personas, aiSvc, liveSpeech, persist, indexer).RegisterRoutes(api)
		} else {
			api.Get("/live/{sessionID}", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "live sessions unavailable")
			})
		}
	})

	return r
}

func respondAIUnavailable(w http.ResponseWriter, _ *http.Request) {
	utils.RespondError(w, http.StatusServiceUnavailable, "ai service unavailable")
}

func respondSpeechUnavailable(w http.ResponseWriter, _ *http.Request) {
	utils.RespondError(w, http.StatusServiceUnavailable, "speech service unavailable")
}
