// internal/app/features/requests/routes.go
package requests

import (
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Post("/", h.HandleSubmit)
		pr.Get("/", h.ServeQueue)
		pr.Get("/my", h.ServeMine)
		pr.Post("/{id}/review", h.HandleReview)
	})

	return r
}
