package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/dto"
	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/ports"
)

// Server exposes a stateless clone API over an entity model.
// Entities are addressed by the host-assigned keys of the loaded graph
// document, not by their generated identities.
type Server struct {
	cloner   *graft.Cloner
	model    ports.EntityModel
	entities map[string]any
	logger   *slog.Logger

	registry    *prometheus.Registry
	clonesTotal *prometheus.CounterVec
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates an HTTP handler serving clone requests against the
// given model. entities maps request keys to root entities.
func NewHandler(cloner *graft.Cloner, model ports.EntityModel, entities map[string]any, opts ...Option) http.Handler {
	s := &Server{
		cloner:   cloner,
		model:    model,
		entities: entities,
		logger:   logging.NewNop(),
		registry: prometheus.NewRegistry(),
	}
	s.clonesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graft_clones_total",
			Help: "Clone invocations by outcome.",
		},
		[]string{"outcome"},
	)
	s.registry.MustRegister(s.clonesTotal)

	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/clone", s.handleClone)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// cloneRequest mirrors dto.CloneDecl for the JSON API.
type cloneRequest struct {
	Root          string `json:"root"`
	Include       any    `json:"include,omitempty"`
	Except        any    `json:"except,omitempty"`
	UseDictionary bool   `json:"use_dictionary,omitempty"`
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	root, ok := s.entities[req.Root]
	if !ok {
		s.fail(w, http.StatusNotFound, fmt.Errorf("unknown entity key %q", req.Root))
		return
	}

	opts, err := graft.OptionsFromMap(map[string]any{
		"include":        req.Include,
		"except":         req.Except,
		"use_dictionary": req.UseDictionary,
	})
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	cloned, err := s.cloner.Clone(r.Context(), root, opts...)
	if err != nil {
		s.fail(w, http.StatusUnprocessableEntity, fmt.Errorf("clone failed: %w", err))
		return
	}

	snap, err := dto.Snapshot(r.Context(), s.model, cloned)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("failed to serialize clone: %w", err))
		return
	}

	s.clonesTotal.WithLabelValues("ok").Inc()
	s.logger.Info("clone served", "root", req.Root, "identity", s.model.IdentityOf(cloned))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.clonesTotal.WithLabelValues("error").Inc()
	s.logger.Warn("clone request rejected", "status", status, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
