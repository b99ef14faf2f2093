package accounts

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/balance", h.Balance)
	r.Get("/{id}/rollup", h.Rollup)
	r.Get("/{id}/path", h.Path)
	r.Post("/{id}/deactivate", h.Deactivate)
	r.Post("/{id}/move", h.Move)
}
