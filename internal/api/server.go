package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/heron/internal/assessment"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// Deps holds the components the API is served from. Metrics may be nil.
type Deps struct {
	Service        *assessment.Service
	Repository     domain.Repository
	Cache          domain.Cache
	Metrics        *metrics.Metrics
	MetricsPath    string
	DefaultWeights domain.RiskWeights
	Version        string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps.Service, deps.Repository, deps.Cache, deps.DefaultWeights, deps.Version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware(cfg.AllowedOrigins))
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(MetricsMiddleware(deps.Metrics))
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, deps.Metrics.Handler())
	}

	// Stateless scoring and reference data (no tenant required)
	router.Post("/risk/calculate", handler.CalculateRisk)
	router.Post("/audit/calculate", handler.CalculateAudit)
	router.Get("/reference/countries/{code}", handler.GetCountry)
	router.Get("/reference/industries", handler.ListIndustries)
	router.Get("/reference/products", handler.ListProducts)

	// Tenant routes
	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Customer risk
		r.Post("/customers/{id}/risk", handler.AssessCustomer)
		r.Get("/customers/{id}/risk", handler.LatestAssessment)
		r.Get("/customers/{id}/risk/history", handler.AssessmentHistory)

		// Audit readiness
		r.Post("/audit/score", handler.ScoreAudit)
		r.Get("/audit/score", handler.LatestAudit)
		r.Get("/audit/history", handler.AuditHistory)

		// Scoring settings
		r.Get("/settings/risk", handler.GetSettings)
		r.Put("/settings/risk", handler.SaveSettings)

		// Escalation rule management
		r.Get("/escalation-rules", handler.ListRules)
		r.Post("/escalation-rules", handler.CreateRule)
		r.Post("/escalation-rules/reload", handler.ReloadRules)
		r.Delete("/escalation-rules/{id}", handler.DeleteRule)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
