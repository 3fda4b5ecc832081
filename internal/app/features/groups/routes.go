// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /groups requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		// LIST
		pr.Get("/", h.ServeGroupsList)
		pr.Get("/managed", h.ServeManagedGroups)

		// CREATE (direct for system admins, a CREATE_GROUP request otherwise)
		pr.Post("/", h.HandleCreateGroup)

		// VIEW / EDIT
		pr.Get("/{id}", h.ServeGroup)
		pr.Patch("/{id}", h.HandleUpdateGroup)

		// MEMBERSHIP
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Get("/{id}/requests", h.ServePendingRequests)

		// POSTS
		pr.Get("/{id}/posts", h.ServePosts)
		pr.Post("/{id}/posts", h.HandleCreatePost)
	})

	return r
}
