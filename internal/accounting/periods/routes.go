package periods

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/current", h.Current)
	r.Get("/postable", h.Postable)
	r.Post("/{id}/current", h.SetCurrent)
	r.Post("/{id}/close", h.Close)
}
