// Package httpapi is the launchpad's ops HTTP surface: liveness, readiness
// and a Prometheus /metrics endpoint.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"launchpad/internal/logging"
)

// ReadinessProvider exposes controller state required for readiness checks.
type ReadinessProvider interface {
	// DroneConnected reports whether the attached drone is known to be
	// connected, and whether a drone is attached to the launchpad at all.
	DroneConnected() (connected bool, attached bool)
	// StartupError reports a fatal condition encountered during startup.
	StartupError() error
	// Uptime is how long the controller loop has been running.
	Uptime() time.Duration
}

// MetricsHandler serves a registry's metrics in Prometheus exposition format.
type MetricsHandler interface {
	Handler() http.Handler
}

// Options configures the HandlerSet.
type Options struct {
	Logger     *logging.Logger
	Readiness  ReadinessProvider
	Metrics    MetricsHandler
	TimeSource func() time.Time
}

// HandlerSet bundles the launchpad's operational handlers.
type HandlerSet struct {
	logger    *logging.Logger
	readiness ReadinessProvider
	metrics   MetricsHandler
	now       func() time.Time
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	return &HandlerSet{
		logger:    logger,
		readiness: opts.Readiness,
		metrics:   opts.Metrics,
		now:       now,
	}
}

// Register attaches every handler to the provided mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/livez", h.LivenessHandler())
	mux.HandleFunc("/readyz", h.ReadinessHandler())
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
}

// LivenessHandler reports that the process is reachable.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Status:    "alive",
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadinessHandler reports controller readiness: uptime, drone link status
// and any startup failure.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	type response struct {
		Status         string  `json:"status"`
		Message        string  `json:"message,omitempty"`
		UptimeSeconds  float64 `json:"uptime_seconds"`
		DroneAttached  bool    `json:"drone_attached"`
		DroneConnected bool    `json:"drone_connected"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := response{Status: "ok"}
		if h.readiness != nil {
			connected, attached := h.readiness.DroneConnected()
			resp.DroneAttached = attached
			resp.DroneConnected = connected
			resp.UptimeSeconds = h.readiness.Uptime().Seconds()
			if err := h.readiness.StartupError(); err != nil {
				status = http.StatusServiceUnavailable
				resp.Status = "error"
				resp.Message = err.Error()
			}
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
