package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studio/internal/adapters/http/perf"
)

// TestTiming_RecordsSample verifies that a request sample is recorded with its status.
func TestTiming_RecordsSample(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/api/slots", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if collector.Total() != 1 {
		t.Fatalf("Total = %d, want 1", collector.Total())
	}
	report := collector.Report(time.Time{}, 5)
	if len(report.SlowestRoutes) != 1 || report.SlowestRoutes[0].Label != "POST /api/slots" {
		t.Errorf("routes = %+v, want one POST /api/slots entry", report.SlowestRoutes)
	}
}

// TestTiming_UsesMuxPattern verifies that samples are labelled by route pattern, not raw path.
func TestTiming_UsesMuxPattern(t *testing.T) {
	collector := perf.NewCollector(100)
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/slots/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Timing(collector, 0)(mux)

	for _, id := range []string{"a", "b"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/api/slots/"+id, nil))
	}

	report := collector.Report(time.Time{}, 5)
	if len(report.SlowestRoutes) != 1 {
		t.Fatalf("routes = %+v, want a single pattern", report.SlowestRoutes)
	}
	if got := report.SlowestRoutes[0]; got.Label != "DELETE /api/slots/{id}" || got.Count != 2 {
		t.Errorf("route = %+v, want DELETE /api/slots/{id} x2", got)
	}
}

// TestTiming_SkipsHealthz verifies health checks are excluded from timing.
func TestTiming_SkipsHealthz(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	if collector.Total() != 0 {
		t.Errorf("Total = %d, want 0 (healthz excluded)", collector.Total())
	}
}

// TestTiming_CapturesStatusCode verifies the status code written by the handler is captured.
func TestTiming_CapturesStatusCode(t *testing.T) {
	collector := perf.NewCollector(100)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/days", nil))

	report := collector.Report(time.Time{}, 5)
	if len(report.SlowestRoutes) != 1 || report.SlowestRoutes[0].Errors != 1 {
		t.Errorf("routes = %+v, want one route with one error", report.SlowestRoutes)
	}
}

// TestTiming_NilCollector verifies the middleware works without a collector.
func TestTiming_NilCollector(t *testing.T) {
	handler := Timing(nil, time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/days", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
