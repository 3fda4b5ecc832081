// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/services/registry"
	"github.com/dalemusser/campusboard/internal/app/services/workflow"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
// Group reads and writes go through the registry; anything that needs
// review (joining a REQUEST group, creating a group as a non-admin) is
// filed with the workflow engine.
type Handler struct {
	Registry *registry.Registry
	Workflow *workflow.Engine
	Log      *zap.Logger
}

// NewHandler constructs a new groups Handler. It is called from the
// bootstrap route wiring once the services exist.
func NewHandler(reg *registry.Registry, wf *workflow.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		Workflow: wf,
		Log:      logger,
	}
}

// groupID reads the {id} URL parameter.
func groupID(r *http.Request) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("bad group id")
	}
	return oid, nil
}
