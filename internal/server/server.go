// Package server provides the PatchPilot HTTP API.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/jxucoder/PatchPilot/internal/runner"
	"github.com/jxucoder/PatchPilot/internal/runstore"
)

// Server is the PatchPilot HTTP API server. It accepts bug reports,
// hands them to the runner and streams run progress to clients.
type Server struct {
	store  *runstore.Store
	bus    *runstore.EventBus
	runner *runner.Runner
	router chi.Router
}

// New creates a new Server with all dependencies.
func New(store *runstore.Store, bus *runstore.EventBus, r *runner.Runner) *Server {
	s := &Server{store: store, bus: bus, runner: r}
	s.router = s.buildRouter()
	return s
}

// Router returns the HTTP handler for the API.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/patch", s.handleGetPatch)
		r.Get("/runs/{id}/events", s.handleRunEvents)
	})

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type createRunRequest struct {
	BugDescription string `json:"bug_description"`
	ProjectDir     string `json:"project_dir"`
	InstanceID     string `json:"instance_id,omitempty"`
}

type createRunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BugDescription == "" {
		writeError(w, http.StatusBadRequest, "bug_description is required")
		return
	}
	if req.ProjectDir == "" {
		writeError(w, http.StatusBadRequest, "project_dir is required")
		return
	}
	if info, err := os.Stat(req.ProjectDir); err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, "project_dir is not a directory")
		return
	}

	run, err := s.runner.StartRun(req.BugDescription, req.ProjectDir, req.InstanceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to create run")
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}
	log.Info().Msgf("Created run %s: %s", run.ID, truncate(req.BugDescription, 72))

	// The background goroutine owns the run record from here on; report
	// the initial status rather than reading the shared struct.
	writeJSON(w, http.StatusCreated, createRunResponse{
		ID:     run.ID,
		Status: string(runstore.StatusPending),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*runstore.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetPatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if run.Patch == "" {
		writeError(w, http.StatusNotFound, "no patch available")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(run.Patch))
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Verify run exists.
	if _, err := s.store.GetRun(id); err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Send historical events first.
	events, _ := s.store.GetEvents(id, 0)
	for _, e := range events {
		writeSSE(w, e)
	}
	flusher.Flush()

	// Subscribe to real-time events.
	ch := s.bus.Subscribe(id)
	defer s.bus.Unsubscribe(id, ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
		}
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, event *runstore.Event) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Type, string(data))
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
