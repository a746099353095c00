// Package server assembles the probe service HTTP surface: liveness,
// readiness, metrics, and the informational endpoints.
package server

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"costwatch/internal/config"
	"costwatch/internal/health"
	"costwatch/internal/infra/http/middleware"
	infmetrics "costwatch/internal/infra/metrics"
	"costwatch/internal/infra/netutil"
	"costwatch/internal/infra/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg    config.Config
	state  *health.State
	log    zerolog.Logger
	router chi.Router
}

// New builds the router. The health state is injected so signal handling
// stays in main and tests can drive the state directly.
func New(cfg config.Config, state *health.State, reg *prometheus.Registry, sampler infmetrics.HostSampler, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, state: state, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	hh := &health.Handler{
		State:     state,
		MinUptime: cfg.MinUptime(),
		Version:   cfg.App.Version,
		Log:       log,
	}

	adminCIDRs := netutil.ParseCIDRs(cfg.Server.AdminAllowCIDRs)
	metricsHandler := infmetrics.Handler(reg, sampler, state, log)

	r.Get("/", s.rootHandler)
	r.Get("/hello", s.helloHandler)
	r.Get("/healthz", hh.Healthz)
	r.Get("/readiness", hh.Readiness)
	r.Method(http.MethodGet, "/metrics", middleware.AdminGate(adminCIDRs, metricsHandler))
	r.Get("/version", version.Handler)
	if cfg.Server.Pprof {
		r.Method(http.MethodGet, "/debug/pprof/*", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		r.Method(http.MethodGet, "/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		r.Method(http.MethodGet, "/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		r.Method(http.MethodGet, "/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}
	r.NotFound(s.notFoundHandler)

	s.router = r
	return s
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "costwatch",
		"version":     s.cfg.App.Version,
		"environment": s.cfg.App.Environment,
		"description": "Liveness, readiness, and metrics endpoints for orchestrated deployments",
		"endpoints": map[string]string{
			"/":          "API information",
			"/hello":     "Simple greeting endpoint",
			"/healthz":   "Liveness probe",
			"/readiness": "Readiness probe",
			"/metrics":   "Prometheus metrics",
			"/version":   "Build information",
		},
		"uptime_seconds": s.state.Uptime(time.Now()).Seconds(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"request_id":     middleware.GetRequestID(r.Context()),
	})
}

func (s *Server) helloHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Hello from costwatch!",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"version":     s.cfg.App.Version,
		"environment": s.cfg.App.Environment,
		"pod_info": map[string]string{
			"name":      s.cfg.App.PodName,
			"namespace": s.cfg.App.PodNamespace,
			"node":      s.cfg.App.NodeName,
		},
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.log.Warn().
		Str("rid", middleware.GetRequestID(r.Context())).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg("404")
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":               "Not Found",
		"message":             "The requested endpoint does not exist",
		"available_endpoints": []string{"/", "/hello", "/healthz", "/readiness", "/metrics", "/version"},
		"request_id":          middleware.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
