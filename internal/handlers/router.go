package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP routing table for the payments service.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", Root)
	r.Get("/health", Health)
	r.Get("/ready", Ready)

	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/charge", h.CreateCharge)
		r.Post("/refund", h.CreateRefund)
		r.Get("/charges/{chargeID}", h.GetCharge)
		r.Get("/orders/{orderID}/charges", h.GetOrderCharges)
	})

	return r
}
