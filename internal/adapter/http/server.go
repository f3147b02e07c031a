// Package http serves the assessment API alongside health, readiness, and metrics endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/marine-alert-service/internal/pipeline"
)

// Assessor answers location and place queries.
type Assessor interface {
	AssessLocation(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
	AssessPlace(ctx context.Context, place, queryText string, horizonHours int) (pipeline.Result, error)
}

// Server exposes the /v1 API plus /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	assessor   Assessor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API and operational routes on one mux.
func NewServer(addr string, assessor Assessor, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Upstream fetches plus an optional paraphrase can take a while.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		assessor: assessor,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	config := huma.DefaultConfig("Marine Alert API", "1.0.0")
	config.Info.Description = "Maritime risk assessments for a coordinate or a named place"
	api := humago.New(mux, config)
	s.registerRoutes(api)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "assess-location",
		Method:      http.MethodGet,
		Path:        "/v1/assess",
		Summary:     "Assess a coordinate",
		Description: "Fetch current marine conditions at a coordinate and classify the risk.",
		Tags:        []string{"assessments"},
	}, s.handleAssess)

	huma.Register(api, huma.Operation{
		OperationID: "assess-place",
		Method:      http.MethodGet,
		Path:        "/v1/assess/place",
		Summary:     "Assess a named place",
		Description: "Resolve a place name to a coordinate, then assess it.",
		Tags:        []string{"assessments"},
	}, s.handleAssessPlace)
}
