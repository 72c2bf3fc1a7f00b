package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryExposesObservedMetrics(t *testing.T) {
	r := New()
	r.ObserveEventApplied("drone:D1")
	r.ObserveEventApplied("drone:D1")
	r.ObserveTimeTravel("launchpad:LP1")
	r.ObserveAction("take_off")
	r.ObserveBattery("D1", 87)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()

	for _, want := range []string{
		`launchpad_twin_events_applied_total{twin="drone:D1"} 2`,
		`launchpad_twin_time_travels_total{twin="launchpad:LP1"} 1`,
		`launchpad_controller_actions_total{action="take_off"} 1`,
		`launchpad_drone_battery_percent{drone="D1"} 87`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.ObserveAction("enable")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), `launchpad_controller_actions_total{action="enable"}`) {
		t.Fatalf("expected separate Registry instances not to share counters")
	}
}
