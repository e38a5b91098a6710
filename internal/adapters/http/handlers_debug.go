package web

import (
	"net/http"
	"strconv"
	"time"
)

// handleHealthz handles GET /healthz.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePerf handles GET /api/debug/perf?since=15m&top=5. Routed behind the owner role.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "perf collection disabled"})
		return
	}

	since := 15 * time.Minute
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			badRequest(w, "since must be a positive duration")
			return
		}
		since = d
	}
	top := 5
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(w, "top must be a positive integer")
			return
		}
		top = n
	}

	writeJSON(w, http.StatusOK, perfCollector.Report(time.Now().Add(-since), top))
}
