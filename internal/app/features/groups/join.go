// internal/app/features/groups/join.go
package groups

import (
	"errors"
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/domain/models"
)

type joinRequest struct {
	Reason string `json:"reason" validate:"max=1000" label:"Reason"`
}

// HandleJoin joins an OPEN group at member level (201 with the membership).
// On a REQUEST group it files a JOIN request instead (202 with the request).
// INVITE_ONLY groups answer 403.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	gid, err := groupID(r)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	// The body is optional; the UI posts nothing.
	var body joinRequest
	if err := httpjson.DecodeOptional(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "join group")
	defer cancel()

	m, err := h.Registry.Join(ctx, gid, u.UserID)
	if err == nil {
		httpjson.Write(w, http.StatusCreated, m)
		return
	}
	if !errors.Is(err, apperr.ErrApprovalRequired) {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	req, err := h.Workflow.Submit(ctx, models.RequestJoin, &gid, u.UserID, models.RequestMetadata{Reason: body.Reason})
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, req)
}
