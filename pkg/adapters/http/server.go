// Package http exposes a debug API over an experience engine.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/internal/presentation/graph"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the engine surface driven by the API.
type Engine interface {
	Contexts() []string
	State(renderContext string) lifecycle.State
	Start(ctx context.Context, renderContext, experienceID string, trigger domain.Trigger) error
	StartStep(ctx context.Context, renderContext string, ref domain.StepReference) error
	Dismiss(ctx context.Context, renderContext string, markComplete bool) error
	Retry(ctx context.Context, renderContext string) error
	Loader() ports.ExperienceLoader
}

// Option configures the handler.
type Option func(*Server)

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(version)
	}
}

// Server serves the debug API.
type Server struct {
	Engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	version  string
}

// StateView is the JSON rendering of a render context.
type StateView struct {
	Context      string `json:"context"`
	State        string `json:"state"`
	Description  string `json:"description"`
	ExperienceID string `json:"experienceId,omitempty"`
	InstanceID   string `json:"instanceId,omitempty"`
	StepIndex    string `json:"stepIndex,omitempty"`
	StepID       string `json:"stepId,omitempty"`
}

// StartRequest is the optional body of POST /contexts/{ctx}/experiences/{id}.
type StartRequest struct {
	Trigger domain.TriggerKind `json:"trigger,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

// StepRequest is the body of POST /contexts/{ctx}/steps. Exactly one field must be set.
type StepRequest struct {
	Index  *int   `json:"index,omitempty"`
	Offset *int   `json:"offset,omitempty"`
	StepID string `json:"stepId,omitempty"`
}

// Reference converts the request into a step reference.
func (r StepRequest) Reference() (domain.StepReference, error) {
	set := 0
	var ref domain.StepReference
	if r.Index != nil {
		set++
		ref = domain.IndexRef(*r.Index)
	}
	if r.Offset != nil {
		set++
		ref = domain.OffsetRef(*r.Offset)
	}
	if r.StepID != "" {
		set++
		ref = domain.StepIDRef(r.StepID)
	}
	if set != 1 {
		return domain.StepReference{}, errors.New("exactly one of index, offset or stepId is required")
	}
	return ref, nil
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/experiences", s.ListExperiences)
	r.Get("/experiences/{id}/graph", s.GetGraph)

	r.Route("/contexts", func(r chi.Router) {
		r.Get("/", s.ListContexts)
		r.Route("/{ctx}", func(r chi.Router) {
			r.Get("/", s.GetContext)
			r.Delete("/", s.DismissContext)
			r.Post("/experiences/{id}", s.StartExperience)
			r.Post("/steps", s.StartStep)
			r.Post("/retry", s.Retry)
		})
	})
	return r
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "lantern-http",
		"version": s.version,
	})
}

// ListContexts handles GET /contexts.
func (s *Server) ListContexts(w http.ResponseWriter, r *http.Request) {
	names := s.Engine.Contexts()
	views := make([]StateView, 0, len(names))
	for _, name := range names {
		views = append(views, s.view(name))
	}
	s.writeJSON(w, http.StatusOK, views)
}

// GetContext handles GET /contexts/{ctx}.
func (s *Server) GetContext(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.view(chi.URLParam(r, "ctx")))
}

// StartExperience handles POST /contexts/{ctx}/experiences/{id}.
func (s *Server) StartExperience(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	trigger := domain.Trigger{Kind: domain.TriggerShowCall, Reason: body.Reason}
	if body.Trigger != "" {
		trigger.Kind = body.Trigger
	}

	name := chi.URLParam(r, "ctx")
	err := s.Engine.Start(r.Context(), name, chi.URLParam(r, "id"), trigger)
	s.respond(w, name, err)
}

// StartStep handles POST /contexts/{ctx}/steps.
func (s *Server) StartStep(w http.ResponseWriter, r *http.Request) {
	var body StepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	ref, err := body.Reference()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	name := chi.URLParam(r, "ctx")
	s.respond(w, name, s.Engine.StartStep(r.Context(), name, ref))
}

// Retry handles POST /contexts/{ctx}/retry.
func (s *Server) Retry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "ctx")
	s.respond(w, name, s.Engine.Retry(r.Context(), name))
}

// DismissContext handles DELETE /contexts/{ctx}. ?complete=true marks the experience complete.
func (s *Server) DismissContext(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "ctx")
	complete := r.URL.Query().Get("complete") == "true"
	s.respond(w, name, s.Engine.Dismiss(r.Context(), name, complete))
}

// ListExperiences handles GET /experiences.
func (s *Server) ListExperiences(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.Engine.Loader().(ports.Lister)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, errors.New("loader cannot list experiences"))
		return
	}
	ids, err := lister.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetGraph handles GET /experiences/{id}/graph. ?context=name highlights the step on screen there.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	exp, err := s.Engine.Loader().Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}

	var overlay *graph.Overlay
	if name := r.URL.Query().Get("context"); name != "" {
		if v := s.view(name); v.ExperienceID == exp.ID && v.StepID != "" {
			overlay = &graph.Overlay{CurrentStep: v.StepID}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(graph.GenerateMermaid(exp, overlay))); err != nil {
		s.logger.Warn("graph response write failed", "err", err)
	}
}

func (s *Server) view(name string) StateView {
	st := s.Engine.State(name)
	v := StateView{
		Context:     name,
		State:       st.Name(),
		Description: lifecycle.Describe(st),
	}
	exp := lifecycle.ExperienceOf(st)
	if exp == nil {
		return v
	}
	v.ExperienceID = exp.ID
	v.InstanceID = exp.InstanceID.String()
	if idx, ok := lifecycle.StepIndexOf(st); ok {
		v.StepIndex = idx.String()
		if step, found := exp.Step(idx); found {
			v.StepID = step.ID
		}
	}
	return v
}

// respond writes the context state, or the error of the command.
func (s *Server) respond(w http.ResponseWriter, name string, err error) {
	if err != nil {
		s.writeError(w, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(name))
}

func statusOf(err error) int {
	var expErr *domain.ExperienceError
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrExperienceNotFound), errors.Is(err, lantern.ErrUnknownContext):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrNoTransition), errors.Is(err, lifecycle.ErrExperienceAlreadyActive):
		return http.StatusConflict
	case errors.As(err, &expErr), errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
