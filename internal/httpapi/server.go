// Package httpapi exposes the session controller over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/jask/hwexplorer/internal/deepdive"
	"github.com/jask/hwexplorer/internal/provider"
	"github.com/jask/hwexplorer/internal/session"
)

// Server serialises access to one Controller. Provider and backend calls run
// outside the lock, so a newer command may supersede an in-flight one.
type Server struct {
	router chi.Router
	log    *slog.Logger
	lister provider.Lister

	mu   sync.Mutex
	ctrl *session.Controller
}

func NewServer(ctrl *session.Controller, lister provider.Lister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{router: chi.NewRouter(), log: logger, lister: lister, ctrl: ctrl}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/api/languages", s.handleLanguages)
	s.router.Get("/api/state", s.handleState)
	s.router.Post("/api/select/{lang}", s.handleSelect)
	s.router.Post("/api/run", s.handleRun)
	s.router.Put("/api/tab/{tab}", s.handleTab)
	s.router.Get("/api/deepdive.html", s.handleDeepDive)
}

func (s *Server) view() session.ViewModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.View()
}

// perform starts a command under the lock, runs its job unlocked, and applies
// the completion. It reports the completion, or false when the command was a
// no-op.
func (s *Server) perform(ctx context.Context, start func(*session.Controller) session.Job) (session.Completion, bool) {
	s.mu.Lock()
	job := start(s.ctrl)
	s.mu.Unlock()
	if job == nil {
		return session.Completion{}, false
	}
	// a dropped client must not abandon the run half way
	cmp := job(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.ctrl.Complete(cmp)
	s.mu.Unlock()
	return cmp, true
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if s.lister == nil {
		writeJSON(w, http.StatusOK, []provider.Summary{})
		return
	}
	list, err := s.lister.Languages(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []provider.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	cmp, _ := s.perform(r.Context(), func(c *session.Controller) session.Job {
		return c.SelectLanguage(lang)
	})
	status := http.StatusOK
	if errors.Is(cmp.Err(), provider.ErrUnknownLanguage) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, s.view())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.perform(r.Context(), (*session.Controller).Run); !ok {
		s.writeError(w, http.StatusConflict, errors.New("run not available in the current state"))
		return
	}
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	tab := session.Tab(chi.URLParam(r, "tab"))
	if !tab.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown tab %q", tab))
		return
	}
	s.mu.Lock()
	s.ctrl.SetTab(tab)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.view())
}

func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	vm := s.view()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(deepdive.RenderHTML(vm.Document)))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", status, "err", err)
	} else {
		s.log.Warn("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
