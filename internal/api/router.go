package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldops/jobcard/internal/enhance"
	"github.com/fieldops/jobcard/internal/identity"
	"github.com/fieldops/jobcard/internal/jobs"
	"github.com/fieldops/jobcard/internal/websocket"
)

// AddRoutes wires all HTTP routes. hub and enhancer may be nil when live
// updates or text enhancement are disabled.
func AddRoutes(
	r *mux.Router,
	controller *jobs.Controller,
	provider identity.Provider,
	enhancer enhance.Enhancer,
	hub *websocket.Hub,
) {
	r.Use(correlationMiddleware)

	h := &handlers{controller: controller, enhancer: enhancer, hub: hub}

	authed := r.NewRoute().Subrouter()
	authed.Use(authMiddleware(provider))
	authed.HandleFunc("/jobs", h.createJob).Methods(http.MethodPost)
	authed.HandleFunc("/jobs", h.listJobs).Methods(http.MethodGet)
	authed.HandleFunc("/jobs/{id}", h.getJob).Methods(http.MethodGet)
	authed.HandleFunc("/jobs/{id}/status", h.transition).Methods(http.MethodPatch)
	authed.HandleFunc("/jobs/{id}/assignee", h.assignJob).Methods(http.MethodPut)
	authed.HandleFunc("/jobs/{id}/complete", h.complete).Methods(http.MethodPost)
	authed.HandleFunc("/jobs/{id}/evidence", h.attachEvidence).Methods(http.MethodPost)

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(hub, w, r)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", HandleReadiness).Methods(http.MethodGet)
	r.HandleFunc("/health/live", HandleLiveness).Methods(http.MethodGet)
}
