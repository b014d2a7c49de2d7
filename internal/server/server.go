// Package server wires the HTTP API: inference on uploaded images,
// admin history listing, health and metrics.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aphidlab/inference-gateway/internal/auth"
	"github.com/aphidlab/inference-gateway/internal/detect"
	"github.com/aphidlab/inference-gateway/internal/store"
)

// Allow generous photo uploads without letting a single request buffer
// arbitrary amounts of form data.
const maxUploadBytes = 64 << 20

// Options carries the injected collaborators. Store may be nil when no
// blob backend is configured or its initialization failed; the predict
// path then reports StoreInitError instead of persisting.
type Options struct {
	Detector       detect.Detector
	Store          store.Store
	StoreInitError string
	Authorizer     auth.Authorizer
	AuthMode       string
	AdminEnabled   bool
	Defaults       detect.Params
	Logger         zerolog.Logger
}

type Server struct {
	detector     detect.Detector
	store        store.Store
	storeInitErr string
	authorizer   auth.Authorizer
	authMode     string
	adminEnabled bool
	defaults     detect.Params
	metrics      *Metrics
	logger       zerolog.Logger
}

func New(opts Options) *Server {
	return &Server{
		detector:     opts.Detector,
		store:        opts.Store,
		storeInitErr: opts.StoreInitError,
		authorizer:   opts.Authorizer,
		authMode:     opts.AuthMode,
		adminEnabled: opts.AdminEnabled,
		defaults:     opts.Defaults,
		metrics:      NewMetrics(),
		logger:       opts.Logger,
	}
}

// Routes builds the chi router with recovery, CORS and metrics
// middleware around the four endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Get("/admin/history", s.handleHistory)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// corsMiddleware allows browser calls from the dashboard dev server.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Admin-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
