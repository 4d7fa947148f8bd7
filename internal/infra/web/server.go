package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/usecase"
)

// QueueRunner is the part of the scheduler the control API drives.
type QueueRunner interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
}

// LoginLimiter throttles failed login attempts per remote address.
type LoginLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	queueUC    *usecase.QueueUseCase
	historyUC  *usecase.HistoryUseCase
	settingsUC *usecase.SettingsUseCase
	libraryUC  *usecase.LibraryUseCase
	runner     QueueRunner
	auth       *AuthManager
	limiter    LoginLimiter
	sink       adapter.NotificationSink
	adminKey   string
	baseCtx    context.Context
	log        *zerolog.Logger
}

func NewServer(
	queueUC *usecase.QueueUseCase,
	historyUC *usecase.HistoryUseCase,
	settingsUC *usecase.SettingsUseCase,
	libraryUC *usecase.LibraryUseCase,
	runner QueueRunner,
	auth *AuthManager,
	limiter LoginLimiter,
	sink adapter.NotificationSink,
	adminKey string,
	baseCtx context.Context,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		queueUC:    queueUC,
		historyUC:  historyUC,
		settingsUC: settingsUC,
		libraryUC:  libraryUC,
		runner:     runner,
		auth:       auth,
		limiter:    limiter,
		sink:       sink,
		adminKey:   adminKey,
		baseCtx:    baseCtx,
		log:        logger,
	}
}

// Router builds the full route tree for the control API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/login", s.loginHandler())
	r.Post("/api/v1/logout", s.logoutHandler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/api/v1/tasks", s.tasksListHandler())
		r.Post("/api/v1/tasks", s.tasksEnqueueHandler())
		r.Post("/api/v1/tasks/{id}/retry", s.taskRetryHandler())
		r.Delete("/api/v1/tasks/{id}", s.taskDeleteHandler())

		r.Post("/api/v1/queue/start", s.queueStartHandler())
		r.Post("/api/v1/queue/stop", s.queueStopHandler())
		r.Get("/api/v1/queue/status", s.queueStatusHandler())

		r.Post("/api/v1/history/sync", s.historySyncHandler())
		r.Get("/api/v1/balance", s.balanceHandler())

		r.Get("/api/v1/settings", s.settingsGetHandler())
		r.Patch("/api/v1/settings", s.settingsPatchHandler())
		r.Get("/api/v1/language", s.languageGetHandler())
		r.Put("/api/v1/language", s.languageSetHandler())

		r.Get("/api/v1/characters", s.charactersListHandler())
		r.Post("/api/v1/characters", s.characterSaveHandler())
		r.Delete("/api/v1/characters/{id}", s.characterDeleteHandler())

		r.Get("/api/v1/prompts", s.promptsListHandler())
		r.Post("/api/v1/prompts", s.promptSaveHandler())
		r.Delete("/api/v1/prompts/{id}", s.promptDeleteHandler())
		r.Post("/api/v1/prompts/{id}/use", s.promptUseHandler())
	})

	return r
}

// sessionMiddleware admits requests carrying either a valid session JWT or
// the raw admin key as a bearer token.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.log.Error().Msg("admin key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err == nil {
			next.ServeHTTP(w, r)
			return
		}
		if bearerToken(r) == s.adminKey {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
