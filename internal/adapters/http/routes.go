package web

import (
	"net/http"

	"studio/internal/adapters/http/middleware"
)

func registerRoutes(mux *http.ServeMux) {
	admin := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOwner)
	owner := middleware.RequireRole(middleware.RoleOwner)

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /api/csrf-token", handleCSRFToken)
	mux.Handle("GET /api/debug/perf", owner(http.HandlerFunc(handlePerf)))

	mux.Handle("POST /api/days", admin(http.HandlerFunc(handleSaveDay)))
	mux.HandleFunc("GET /api/days", handleListDays)

	mux.Handle("POST /api/slots", admin(http.HandlerFunc(handleCreateSlot)))
	mux.HandleFunc("GET /api/slots", handleListSlots)
	mux.Handle("PUT /api/slots/{id}", admin(http.HandlerFunc(handleUpdateSlot)))
	mux.Handle("DELETE /api/slots/{id}", admin(http.HandlerFunc(handleDeactivateSlot)))
	mux.Handle("POST /api/slots/replicate", admin(http.HandlerFunc(handleReplicateSlots)))

	mux.HandleFunc("POST /api/checkins", handleCheckIn)
	mux.HandleFunc("GET /api/checkins/precheck", handleCheckInPrecheck)
	mux.Handle("DELETE /api/checkins/{id}", admin(http.HandlerFunc(handleUndoCheckIn)))

	mux.Handle("POST /api/enrollments/reconcile", admin(http.HandlerFunc(handleReconcileEnrollments)))
	mux.HandleFunc("POST /api/proration", handleProration)
}
