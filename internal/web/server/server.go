// Package server exposes the aspect store and the compiled descriptors over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lodestar-catalog/lodestar/internal/generation"
	"github.com/lodestar-catalog/lodestar/internal/store"
	"github.com/lodestar-catalog/lodestar/internal/urn"
)

// DefaultActor is recorded on writes that carry no actor header
const DefaultActor = "urn:lc:corpuser:system"

// ActorHeader names the request header carrying the acting user's urn
const ActorHeader = "X-Lodestar-Actor"

// Server is the HTTP boundary of the service
type Server struct {
	router *chi.Mux
	store  *store.Store
	pub    *generation.Publisher
	log    *zap.Logger
	http   *http.Server
}

// New builds the server and its routes
func New(st *store.Store, pub *generation.Publisher, log *zap.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  st,
		pub:    pub,
		log:    log,
	}

	s.router.Use(s.requestLogger)
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/descriptors/mappings", s.handleMappings)
		r.Get("/descriptors/edges", s.handleEdges)
		r.Route("/entity/{urn}/aspect/{name}", func(r chi.Router) {
			r.Put("/", s.handleWrite)
			r.Get("/", s.handleRead)
			r.Delete("/", s.handleDelete)
		})
	})

	return s
}

// Handler returns the route tree, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.log.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	u, ok := s.entityUrn(w, r)
	if !ok {
		return
	}
	aspect := chi.URLParam(r, "name")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	actor := r.Header.Get(ActorHeader)
	if actor == "" {
		actor = DefaultActor
	}

	version, err := s.store.Write(r.Context(), u, aspect, payload, actor)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"urn": u.String(), "aspect": aspect, "version": version})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	u, ok := s.entityUrn(w, r)
	if !ok {
		return
	}
	aspect := chi.URLParam(r, "name")

	var version int64
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid version %q", raw))
			return
		}
		version = v
	}

	va, err := s.store.Read(r.Context(), u, aspect, version)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, va)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := s.entityUrn(w, r)
	if !ok {
		return
	}
	aspect := chi.URLParam(r, "name")

	actor := r.Header.Get(ActorHeader)
	if actor == "" {
		actor = DefaultActor
	}

	version, err := s.store.SoftDelete(r.Context(), u, aspect, actor)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"urn": u.String(), "aspect": aspect, "version": version, "removed": true})
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	gen := s.pub.Current()
	if gen == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no schema generation published")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"generationId": gen.ID,
		"mappings":     gen.Mappings,
	})
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	gen := s.pub.Current()
	if gen == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no schema generation published")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"generationId": gen.ID,
		"edges":        gen.Edges,
	})
}

// entityUrn parses the {urn} route parameter, answering 400 itself on failure
func (s *Server) entityUrn(w http.ResponseWriter, r *http.Request) (urn.Urn, bool) {
	raw := chi.URLParam(r, "urn")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	u, err := urn.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return urn.Urn{}, false
	}
	return u, true
}

// storeError maps store errors onto HTTP statuses: 400 validation, 404 not
// found, 409 stale generation, 503 before the first generation
func (s *Server) storeError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	var stale *store.StaleGenerationError
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "validation failed",
			"urn":      verr.Urn,
			"aspect":   verr.Aspect,
			"problems": verr.Problems,
		})
	case errors.As(err, &stale):
		s.writeError(w, http.StatusConflict, stale.Error())
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "aspect not found")
	case errors.Is(err, store.ErrNoGeneration):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

// requestLogger logs one line per request with status and duration
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
