// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/campusboard/internal/app/store/audit"
	groupstore "github.com/dalemusser/campusboard/internal/app/store/groups"
	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"go.uber.org/zap"
)

type Handler struct {
	Events *audit.Store
	Users  *userstore.Store
	Groups *groupstore.Store
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler. Users and groups are
// used only to resolve display names.
func NewHandler(events *audit.Store, users *userstore.Store, groups *groupstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Users:  users,
		Groups: groups,
		Log:    logger,
	}
}
