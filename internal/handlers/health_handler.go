package handlers

import (
	"net/http"
	"time"
)

// serviceVersion is reported by the root and health endpoints.
const serviceVersion = "1.0.0"

// Root handles GET / with basic service information.
func Root(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{
		"service": "payments-service",
		"version": serviceVersion,
		"status":  "running",
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "payments-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. The ledger check is a no-op for the in-memory
// backend; a persistent backend is covered by its connection-pool ping at
// startup.
func Ready(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"ready": true,
		"checks": map[string]string{
			"ledger": "ok",
		},
	})
}
