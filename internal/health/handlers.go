package health

import (
	"encoding/json"
	"net/http"
	"time"

	"costwatch/internal/infra/http/middleware"

	"github.com/rs/zerolog"
)

// Handler serves the probe endpoints over an injected State, so tests can
// construct independent instances with their own clocks.
type Handler struct {
	State     *State
	MinUptime time.Duration
	Version   string
	Log       zerolog.Logger
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Healthz is the Kubernetes liveness probe: 200 while the process is alive,
// 500 only on clock regression.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	rid := middleware.GetRequestID(r.Context())
	res := h.State.CheckLiveness(h.now())
	if res.Status != StatusHealthy {
		h.Log.Error().Str("rid", rid).Err(res.Err).Msg("health check failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":     res.Status,
			"error":      res.Err.Error(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"request_id": rid,
		})
		return
	}
	h.Log.Debug().Str("rid", rid).Float64("uptime_seconds", res.Uptime.Seconds()).Msg("health check passed")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         res.Status,
		"uptime_seconds": round2(res.Uptime.Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"version":        h.Version,
		"request_id":     rid,
	})
}

// Readiness is the Kubernetes readiness probe: 200 when willing to take
// traffic, 503 with a reason otherwise.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	rid := middleware.GetRequestID(r.Context())
	res := h.State.CheckReadiness(h.now(), h.MinUptime)
	if res.Status != StatusReady {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     res.Status,
			"reason":     res.Reason,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"request_id": rid,
		})
		return
	}
	h.Log.Debug().Str("rid", rid).Float64("uptime_seconds", res.Uptime.Seconds()).Msg("readiness check passed")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         res.Status,
		"uptime_seconds": round2(res.Uptime.Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"request_id":     rid,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
