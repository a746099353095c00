package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"costwatch/internal/config"
	"costwatch/internal/health"
	"costwatch/internal/infra/http/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	AppInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "costwatch_app_info", Help: "Application information"}, []string{"version", "environment", "pod", "node"})
	UptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_uptime_seconds", Help: "Total uptime of the application"})
	Ready = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_ready", Help: "Application readiness status (1=ready, 0=not ready)"})
	HostCPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_host_cpu_percent", Help: "Host CPU utilization percentage"})
	HostMemoryPercent = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_host_memory_percent", Help: "Host memory utilization percentage"})
	HostMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_host_memory_bytes", Help: "Host memory usage in bytes"})
	CPULimitMillicores = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_cpu_limit_millicores", Help: "Configured CPU limit in millicores"})
	MemoryLimitBytes = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_memory_limit_bytes", Help: "Configured memory limit in bytes"})
	MinUptimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{Name: "costwatch_min_uptime_seconds", Help: "Configured minimum uptime for readiness"})
)

// Init registers the costwatch collectors plus the standard Go and process
// collectors and seeds the static configuration gauges.
func Init(cfg config.Config, logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		AppInfo, UptimeSeconds, Ready,
		HostCPUPercent, HostMemoryPercent, HostMemoryBytes,
		CPULimitMillicores, MemoryLimitBytes, MinUptimeSeconds,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	AppInfo.WithLabelValues(cfg.App.Version, cfg.App.Environment, cfg.App.PodName, cfg.App.NodeName).Set(1)
	CPULimitMillicores.Set(cfg.App.CPULimitMillicores)
	MemoryLimitBytes.Set(float64(cfg.App.MemoryLimitBytes))
	MinUptimeSeconds.Set(float64(cfg.App.MinUptimeSeconds))
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

// Handler refreshes the dynamic gauges (uptime, readiness, host CPU and
// memory) and then serves the Prometheus exposition. A host sampling failure
// is a 500 with a structured JSON body, matching the other endpoints.
func Handler(reg *prometheus.Registry, sampler HostSampler, state *health.State, logger zerolog.Logger) http.Handler {
	prom := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := sampler.Sample()
		if err != nil {
			rid := middleware.GetRequestID(r.Context())
			logger.Error().Str("rid", rid).Err(err).Msg("metrics generation failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":      "Internal Server Error",
				"message":    "Metrics generation failed",
				"request_id": rid,
			})
			return
		}
		UptimeSeconds.Set(state.Uptime(time.Now()).Seconds())
		if state.Draining() {
			Ready.Set(0)
		} else {
			Ready.Set(1)
		}
		HostCPUPercent.Set(stats.CPUPercent)
		HostMemoryPercent.Set(stats.MemoryPercent)
		HostMemoryBytes.Set(float64(stats.MemoryUsedBytes))
		prom.ServeHTTP(w, r)
	})
}
