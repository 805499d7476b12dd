package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/internal/presentation/graph"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Engine is the part of the autopilot facade served over HTTP.
type Engine interface {
	StartUnit(ctx context.Context, unitID string, loop bool, speed float64) (domain.ExecutionState, error)
	StopUnit(ctx context.Context, unitID string) (domain.ExecutionState, error)
	UnitStatus(ctx context.Context, unitID string) (domain.ExecutionState, error)
	Statuses(ctx context.Context) ([]domain.ExecutionState, error)
	StartAll(ctx context.Context, loop bool, speed float64) (domain.MasterState, error)
	StopAll(ctx context.Context) (domain.MasterState, error)
	AllStatus() domain.MasterState
	Units(ctx context.Context) ([]domain.Unit, error)
	Unit(ctx context.Context, unitID string) (domain.Unit, error)
}

// defaultPollInterval is how often an event stream samples the unit state.
const defaultPollInterval = 100 * time.Millisecond

// Server exposes an Engine as a JSON API.
type Server struct {
	engine       Engine
	logger       *slog.Logger
	metrics      http.Handler
	version      string
	apiVersion   string
	pollInterval time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the application version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithPollInterval sets how often event streams sample the unit state.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// NewServer creates a Server. The embedded OpenAPI document is validated
// here; a broken document only costs the api_version in /info.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:       engine,
		logger:       logging.NewNop(),
		version:      "unknown",
		apiVersion:   "unknown",
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	if doc, err := LoadSpec(context.Background()); err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "error", err)
	} else if doc.Info != nil {
		s.apiVersion = doc.Info.Version
	}
	return s
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(Spec())
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Get("/drawings", s.ListDrawings)
	r.Get("/drawings/status", s.GetAllDrawingStatuses)
	r.Post("/drawings/execute-all", s.ExecuteAll)
	r.Delete("/drawings/execute-all", s.StopAll)
	r.Get("/drawings/execute-all/status", s.GetExecuteAllStatus)

	r.Get("/drawings/{id}", s.GetDrawing)
	r.Get("/drawings/{id}/boundary", s.GetDrawingBoundary)
	r.Get("/drawings/{id}/graph", s.GetDrawingGraph)
	r.Post("/drawings/{id}/execute", s.ExecuteDrawing)
	r.Delete("/drawings/{id}/execute", s.StopDrawing)
	r.Get("/drawings/{id}/status", s.GetDrawingStatus)
	r.Get("/drawings/{id}/events", s.SubscribeDrawingEvents)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DrawingSummary is the list view of a unit.
type DrawingSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Order        int        `json:"order"`
	Nodes        int        `json:"nodes"`
	LastExecuted *time.Time `json:"last_executed,omitempty"`
}

// ExecuteRequest is the optional body of the execute endpoints.
// Query parameters take precedence over body fields.
type ExecuteRequest struct {
	Loop  *bool    `json:"loop,omitempty"`
	Speed *float64 `json:"speed,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "autopilot-http",
		"version":     s.version,
		"api_version": s.apiVersion,
	})
}

// ListDrawings handles GET /drawings.
func (s *Server) ListDrawings(w http.ResponseWriter, r *http.Request) {
	units, err := s.engine.Units(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]DrawingSummary, 0, len(units))
	for _, u := range units {
		out = append(out, DrawingSummary{
			ID:           u.ID,
			Name:         u.DisplayName(),
			Order:        u.Order,
			Nodes:        len(u.Nodes),
			LastExecuted: u.LastRun,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"drawings": out})
}

// GetDrawing handles GET /drawings/{id}.
func (s *Server) GetDrawing(w http.ResponseWriter, r *http.Request) {
	u, err := s.engine.Unit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

// GetDrawingBoundary handles GET /drawings/{id}/boundary.
func (s *Server) GetDrawingBoundary(w http.ResponseWriter, r *http.Request) {
	u, err := s.engine.Unit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"boundary": u.Boundary})
}

// GetDrawingGraph handles GET /drawings/{id}/graph.
func (s *Server) GetDrawingGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := s.engine.Unit(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var overlay *graph.GraphOverlay
	if st, err := s.engine.UnitStatus(r.Context(), id); err == nil && st.CurrentNode != "" {
		overlay = &graph.GraphOverlay{CurrentNode: st.CurrentNode}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(u, overlay))
}

// ExecuteDrawing handles POST /drawings/{id}/execute.
func (s *Server) ExecuteDrawing(w http.ResponseWriter, r *http.Request) {
	loop, speed, err := bindExecuteParams(r)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	st, err := s.engine.StartUnit(r.Context(), id, loop, speed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Unit started", "unit_id", id, "loop", loop, "speed", speed)
	s.writeJSON(w, http.StatusOK, st)
}

// StopDrawing handles DELETE /drawings/{id}/execute.
func (s *Server) StopDrawing(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.StopUnit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// GetDrawingStatus handles GET /drawings/{id}/status.
func (s *Server) GetDrawingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.UnitStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// GetAllDrawingStatuses handles GET /drawings/status.
func (s *Server) GetAllDrawingStatuses(w http.ResponseWriter, r *http.Request) {
	states, err := s.engine.Statuses(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"statuses": states})
}

// ExecuteAll handles POST /drawings/execute-all.
func (s *Server) ExecuteAll(w http.ResponseWriter, r *http.Request) {
	loop, speed, err := bindExecuteParams(r)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	ms, err := s.engine.StartAll(r.Context(), loop, speed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Run-all started", "units", ms.TotalUnits, "loop", loop, "speed", speed)
	s.writeJSON(w, http.StatusOK, ms)
}

// StopAll handles DELETE /drawings/execute-all.
func (s *Server) StopAll(w http.ResponseWriter, r *http.Request) {
	ms, err := s.engine.StopAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ms)
}

// GetExecuteAllStatus handles GET /drawings/execute-all/status.
func (s *Server) GetExecuteAllStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.AllStatus())
}

// bindExecuteParams reads loop and speed from the optional JSON body and
// then from the query string.
func bindExecuteParams(r *http.Request) (bool, float64, error) {
	var body ExecuteRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return false, 0, errors.New("invalid request body")
		}
	}

	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "loop", query, &body.Loop); err != nil {
		return false, 0, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "speed", query, &body.Speed); err != nil {
		return false, 0, err
	}

	loop, speed := false, 1.0
	if body.Loop != nil {
		loop = *body.Loop
	}
	if body.Speed != nil {
		speed = *body.Speed
	}
	return loop, speed, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnitNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSpeed), errors.Is(err, domain.ErrInvalidUnit):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorStatus(w, statusFor(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	} else {
		s.logger.Debug("Request rejected", "status", code, "error", err)
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}
