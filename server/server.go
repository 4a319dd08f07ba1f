// Package server is the HTTP surface: project documents, exports,
// suggestions and the websocket relay.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/db"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/relay"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/render"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/suggest"
)

const maxBodyBytes = 8 << 20

type Server struct {
	store    *db.Projects
	relay    *relay.Relay
	renderer *render.Renderer
	suggest  *suggest.Service
	log      *zap.Logger
	now      func() time.Time
}

func New(store *db.Projects, rl *relay.Relay, renderer *render.Renderer, sg *suggest.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, relay: rl, renderer: renderer, suggest: sg, log: log, now: time.Now}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	projects := router.PathPrefix("/api/projects").Subrouter()
	projects.HandleFunc("", s.handleListProjects).Methods(http.MethodGet)
	projects.HandleFunc("", s.handleCreateProject).Methods(http.MethodPost)
	projects.HandleFunc("/{id}", s.handleGetProject).Methods(http.MethodGet)
	projects.HandleFunc("/{id}", s.handleUpdateProject).Methods(http.MethodPut)
	projects.HandleFunc("/{id}", s.handleDeleteProject).Methods(http.MethodDelete)
	projects.HandleFunc("/{id}/versions", s.handleListRevisions).Methods(http.MethodGet)
	projects.HandleFunc("/{id}/versions", s.handleCreateRevision).Methods(http.MethodPost)

	router.HandleFunc("/api/export/{format:midi|wav|mp3}/{id}", s.handleExport).Methods(http.MethodPost)

	router.HandleFunc("/api/ai/harmony", s.handleHarmony).Methods(http.MethodPost)
	router.HandleFunc("/api/ai/chords", s.handleChords).Methods(http.MethodPost)
	router.HandleFunc("/api/ai/melody", s.handleMelody).Methods(http.MethodPost)

	router.Handle("/ws", s.relay.Handler()).Methods(http.MethodGet)
	return router
}

// Handler wraps the router with CORS for the editor's origin.
func (s *Server) Handler(clientURL string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{clientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.Router())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("could not write response", zap.Error(err))
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, db.ErrInvalid), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	switch {
	case errors.Is(err, db.ErrNotFound):
		msg = "Project not found"
	case errors.Is(err, db.ErrUnavailable):
		msg = "Database not connected"
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, status, model.ErrorResponse{Error: msg})
}

var errBadBody = errors.New("invalid request body")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Wrap(errBadBody, err.Error())
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Rooms:     len(s.relay.Rooms()),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProjectRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.store.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProjectRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.store.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.store.Revisions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, revs)
}

func (s *Server) handleCreateRevision(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRevisionRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	rev, err := s.store.AddRevision(r.Context(), mux.Vars(r)["id"], req.CreatedBy)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rev)
}

func attachment(name, ext string) string {
	if name == "" {
		name = "project"
	}
	return fmt.Sprintf(`attachment; filename="%s.%s"`, url.PathEscape(name), ext)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, err := s.store.Load(r.Context(), vars["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := vars["format"]
	if format == "midi" {
		data, err := s.renderer.MIDI(p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "audio/midi")
		w.Header().Set("Content-Disposition", attachment(p.Name, "mid"))
		_, _ = w.Write(data)
		return
	}

	var path, contentType string
	switch format {
	case "wav":
		path, err = s.renderer.WAV(r.Context(), p)
		contentType = "audio/wav"
	case "mp3":
		path, err = s.renderer.MP3(r.Context(), p)
		contentType = "audio/mpeg"
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() {
		_ = os.Remove(path)
	}()
	s.serveFile(w, r, path, contentType, attachment(p.Name, format))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, contentType, disposition string) {
	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "rendered file is missing"))
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	if _, err := io.Copy(w, f); err != nil {
		s.log.Warn("export stream interrupted", zap.String("path", path), zap.Error(err))
	}
}

func (s *Server) handleHarmony(w http.ResponseWriter, r *http.Request) {
	var req model.HarmonyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.suggest.Harmony(r.Context(), req))
}

func (s *Server) handleChords(w http.ResponseWriter, r *http.Request) {
	var req model.ChordsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.suggest.Chords(r.Context(), req))
}

func (s *Server) handleMelody(w http.ResponseWriter, r *http.Request) {
	var req model.MelodyRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.suggest.Melody(r.Context(), req))
}

// Run serves on addr until ctx ends, then shuts down and clears the rooms.
func (s *Server) Run(ctx context.Context, addr, clientURL string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(clientURL),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.relay.Close()
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.relay.Close()
	s.log.Info("server stopped")
	return err
}
