// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/campusboard/internal/app/features/auditlog"
	authapifeature "github.com/dalemusser/campusboard/internal/app/features/authapi"
	groupsfeature "github.com/dalemusser/campusboard/internal/app/features/groups"
	healthfeature "github.com/dalemusser/campusboard/internal/app/features/health"
	requestsfeature "github.com/dalemusser/campusboard/internal/app/features/requests"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Every request first gets audit metadata (client IP, user agent and a
// correlation id), then its bearer token is resolved to an Identity. Feature
// routers decide whether an anonymous caller is acceptable.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := buildServices(appCfg, deps, logger)
	gateway := auth.NewGateway(svc.Verifier, logger)

	r := chi.NewRouter()
	r.Use(auditlog.Middleware)
	r.Use(gateway.LoadIdentity)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Error(w, http.StatusNotFound, apperr.ErrNotFound.Code, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	authHandler := authapifeature.NewHandler(svc.Verifier, appCfg.RegistrationOTP, logger)
	r.Mount("/auth", authapifeature.Routes(authHandler))

	// Groups, membership and posts
	groupsHandler := groupsfeature.NewHandler(svc.Registry, svc.Workflow, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler))

	// Request workflow
	requestsHandler := requestsfeature.NewHandler(svc.Workflow, logger)
	r.Mount("/requests", requestsfeature.Routes(requestsHandler))

	// Audit log (system admins)
	auditHandler := auditlogfeature.NewHandler(svc.Events, svc.Users, svc.Groups, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler))

	return r, nil
}
