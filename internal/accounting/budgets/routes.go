package budgets

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/approve", h.Approve)
	r.Get("/lines/{lineID}/actual", h.Actual)
	r.Get("/lines/{lineID}/variance", h.Variance)
}
