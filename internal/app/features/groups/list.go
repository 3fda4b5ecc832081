// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
)

// ServeGroupsList returns every group, each carrying the caller's
// currentUserPermissions.
func (h *Handler) ServeGroupsList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	views, err := h.Registry.ListGroups(ctx, u.UserID)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, views)
}

// ServeManagedGroups returns the groups where the caller is a group admin.
func (h *Handler) ServeManagedGroups(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	views, err := h.Registry.ListManaged(ctx, u.UserID)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, views)
}
