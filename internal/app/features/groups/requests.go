// internal/app/features/groups/requests.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/normalize"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/domain/models"
)

// ServePendingRequests lists a group's pending requests that the caller may
// review, optionally narrowed with ?type=.
func (h *Handler) ServePendingRequests(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	gid, err := groupID(r)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	filter := models.RequestType(normalize.Mode(normalize.QueryParam(r.URL.Query().Get("type"))))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reqs, err := h.Workflow.ListPending(ctx, gid, u.UserID, filter)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, reqs)
}
