// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the auth API, typically at "/auth".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.HandleRegister)
	r.Post("/register/init", h.HandleRegisterInit)
	r.Post("/register/complete", h.HandleRegisterComplete)
	r.Post("/login", h.HandleLogin)
	r.Post("/verify-otp", h.HandleVerifyOTP)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Post("/logout", h.HandleLogout)
		pr.Get("/me", h.ServeMe)
	})

	return r
}
