// Package telemetry exposes the process's internal counters as a Prometheus
// registry: twin executor event/time-travel counts, controller action
// dispatches and the ops HTTP surface's /metrics handler.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry (rather than the global
// default) so tests can construct independent instances without colliding
// on metric registration.
type Registry struct {
	registry *prometheus.Registry

	eventsApplied     *prometheus.CounterVec
	timeTravels       *prometheus.CounterVec
	controllerActions *prometheus.CounterVec
	droneBattery      *prometheus.GaugeVec
}

// New builds a Registry with every metric registered and the standard Go
// runtime collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_twin_events_applied_total",
			Help: "Events folded into a twin's state by the executor, by twin session id.",
		}, []string{"twin"}),
		timeTravels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_twin_time_travels_total",
			Help: "Time-travel notifications that forced a twin to rebuild from default state.",
		}, []string{"twin"}),
		controllerActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_controller_actions_total",
			Help: "Actions dispatched by the controller handler, by action kind.",
		}, []string{"action"}),
		droneBattery: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "launchpad_drone_battery_percent",
			Help: "Most recently reconciled drone battery level.",
		}, []string{"drone"}),
	}

	reg.MustRegister(r.eventsApplied, r.timeTravels, r.controllerActions, r.droneBattery)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return r
}

// ObserveEventApplied implements twinexec.Metrics.
func (r *Registry) ObserveEventApplied(twinSessionID string) {
	r.eventsApplied.WithLabelValues(twinSessionID).Inc()
}

// ObserveTimeTravel implements twinexec.Metrics.
func (r *Registry) ObserveTimeTravel(twinSessionID string) {
	r.timeTravels.WithLabelValues(twinSessionID).Inc()
}

// ObserveAction implements controller.Metrics.
func (r *Registry) ObserveAction(action string) {
	r.controllerActions.WithLabelValues(action).Inc()
}

// ObserveBattery records the last reconciled battery reading for a drone.
func (r *Registry) ObserveBattery(droneID string, percent int) {
	r.droneBattery.WithLabelValues(droneID).Set(float64(percent))
}

// Handler serves the registry's metrics in the Prometheus exposition
// format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
