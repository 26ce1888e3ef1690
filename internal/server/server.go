// Package server exposes the event view and cache controls over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/parkrun-transit/internal/datacache"
	"github.com/sells-group/parkrun-transit/internal/explorer"
)

// Backend is the data source plus its cache controls. datacache.Source
// implements it.
type Backend interface {
	explorer.DataSource
	Info(ctx context.Context) ([]datacache.EntryInfo, error)
	CachedModes(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	ClearModes(ctx context.Context) error
}

// StatusFunc reports the state of one component for /health.
type StatusFunc func() any

// Option configures a Server.
type Option func(*Server)

// WithStatus adds a named component to the /health response.
func WithStatus(name string, fn StatusFunc) Option {
	return func(s *Server) { s.status[name] = fn }
}

// Server serves the JSON API.
type Server struct {
	backend  Backend
	defaults explorer.Query
	status   map[string]StatusFunc
}

// New creates a Server. defaults fill in query parameters a request omits.
func New(backend Backend, defaults explorer.Query, opts ...Option) *Server {
	s := &Server{backend: backend, defaults: defaults, status: make(map[string]StatusFunc)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleEvents)
		r.Get("/events/{id}", s.handleEvent)
		r.Get("/cache", s.handleCacheInfo)
		r.Delete("/cache", s.handleCacheClear)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	for name, fn := range s.status {
		resp[name] = fn()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query(), s.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := explorer.Build(r.Context(), s.backend, q)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	q, err := parseQuery(r.URL.Query(), s.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.All = true
	view, err := explorer.Build(r.Context(), s.backend, q)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	ev, ok := explorer.FindEvent(view.Events, id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type cacheInfoResponse struct {
	Entries []datacache.EntryInfo `json:"entries"`
	Modes   []string              `json:"modes"`
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	infos, err := s.backend.Info(r.Context())
	if err != nil {
		zap.L().Error("server: cache info failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}
	modes, err := s.backend.CachedModes(r.Context())
	if err != nil {
		zap.L().Error("server: cached modes failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, cacheInfoResponse{Entries: infos, Modes: modes})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	withModes := false
	if v := r.URL.Query().Get("modes"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid modes flag")
			return
		}
		withModes = b
	}
	if err := s.backend.Clear(r.Context()); err != nil {
		zap.L().Error("server: cache clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}
	if withModes {
		if err := s.backend.ClearModes(r.Context()); err != nil {
			zap.L().Error("server: mode cache clear failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	var fe *datacache.FetchError
	if errors.As(err, &fe) {
		zap.L().Warn("server: upstream fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, fe.Error())
		return
	}
	zap.L().Error("server: build view failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
