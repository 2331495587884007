package message

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers message routes
func RegisterRoutes(r chi.Router, h *Handler, auth func(http.Handler) http.Handler) {
	r.Route("/messages", func(r chi.Router) {
		r.Use(auth)

		r.Get("/partners", h.Partners)
		r.Get("/{id}", h.GetMessages)
		r.Post("/{id}", h.SendMessage)
		r.Delete("/{id}", h.DeleteMessage)
	})
}

// RegisterWS registers the WebSocket endpoint at the router root.
func RegisterWS(r chi.Router, h *Handler) {
	r.Get("/ws", h.ServeWS)
}
