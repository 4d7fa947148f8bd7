package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sora-batch-studio/internal/domain"
	"sora-batch-studio/internal/domain/model"
	"sora-batch-studio/internal/domain/ports/adapter"
	red "sora-batch-studio/internal/infra/redis"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = time.Minute
)

type loginRequest struct {
	Key string `json:"key"`
}

// loginHandler exchanges the admin key for a session cookie. Attempts are
// throttled per remote address so the key cannot be brute-forced.
func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.limiter.Allow(r.Context(), red.LoginKey(r.RemoteAddr), loginAttemptLimit, loginAttemptWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("login rate limiter unavailable")
		} else if !ok {
			http.Error(w, "Too many attempts", http.StatusTooManyRequests)
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if s.adminKey == "" || req.Key != s.adminKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to mint session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) tasksListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := s.queueUC.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to list tasks", http.StatusInternalServerError)
			return
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

type enqueueRequest struct {
	Prompts       []string `json:"prompts"`
	RemixSourceID string   `json:"remix_source_id"`
}

func (s *Server) tasksEnqueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		tasks, err := s.queueUC.Enqueue(r.Context(), req.Prompts, req.RemixSourceID)
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tasks)
	}
}

func (s *Server) taskRetryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.queueUC.Retry(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeUsecaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) taskDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.queueUC.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeUsecaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) queueStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Started against the process context so the loop outlives the request.
		s.runner.Start(s.baseCtx)
		s.sink.Notify(r.Context(), adapter.Event{Type: adapter.EventQueueStarted})
		writeJSON(w, http.StatusOK, map[string]bool{"running": s.runner.Running()})
	}
}

func (s *Server) queueStopHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.runner.Stop()
		s.sink.Notify(r.Context(), adapter.Event{Type: adapter.EventQueueStopped})
		writeJSON(w, http.StatusOK, map[string]bool{"running": s.runner.Running()})
	}
}

func (s *Server) queueStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"running": s.runner.Running()})
	}
}

func (s *Server) historySyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imported, err := s.historyUC.Sync(r.Context())
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
	}
}

func (s *Server) balanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bal, err := s.settingsUC.CheckBalance(r.Context())
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bal)
	}
}

func (s *Server) settingsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.settingsUC.Get(r.Context())
		if err != nil {
			http.Error(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) settingsPatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		cfg, err := s.settingsUC.Patch(r.Context(), fields)
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (s *Server) languageGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang, err := s.settingsUC.Language(r.Context())
		if err != nil {
			http.Error(w, "Failed to load language", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"language": lang})
	}
}

type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) languageSetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req languageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.settingsUC.SetLanguage(r.Context(), req.Language); err != nil {
			writeUsecaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) charactersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.libraryUC.Characters(r.Context())
		if err != nil {
			http.Error(w, "Failed to list characters", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.Character{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) characterSaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c model.Character
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		saved, err := s.libraryUC.SaveCharacter(r.Context(), c)
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func (s *Server) characterDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.libraryUC.DeleteCharacter(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeUsecaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) promptsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.libraryUC.Prompts(r.Context())
		if err != nil {
			http.Error(w, "Failed to list prompts", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.PromptTemplate{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) promptSaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p model.PromptTemplate
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		saved, err := s.libraryUC.SavePrompt(r.Context(), p)
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func (s *Server) promptDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.libraryUC.DeletePrompt(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeUsecaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) promptUseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.libraryUC.UseTemplate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeUsecaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// writeUsecaseError maps domain sentinel errors to HTTP statuses.
func writeUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMissingAPIKey),
		errors.Is(err, domain.ErrUnsupported):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
