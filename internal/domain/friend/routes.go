package friend

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers friend routes
func RegisterRoutes(r chi.Router, h *Handler, auth func(http.Handler) http.Handler) {
	r.Route("/friends", func(r chi.Router) {
		r.Use(auth)

		r.Get("/requests", h.ListPendingRequests)
		r.Post("/requests/{id}", h.SendRequest)
		r.Put("/requests/{id}", h.RespondToRequest)

		r.Get("/blocked", h.ListBlocked)
		r.Post("/block/{userId}", h.BlockUser)
		r.Delete("/block/{userId}", h.UnblockUser)

		r.Delete("/{userId}", h.RemoveFriend)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(auth)

		r.Get("/search", h.Search)
	})
}
