// internal/app/features/groups/groupnew.go
package groups

import (
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/domain/models"
)

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,max=100" label:"Group name"`
	Description string `json:"description" validate:"max=1000" label:"Description"`
	JoinMode    string `json:"joinMode" validate:"omitempty,joinmode" label:"Join mode"`
	PostMode    string `json:"postMode" validate:"omitempty,postmode" label:"Post mode"`
}

// HandleCreateGroup creates a group for system admins (201 with the group).
// Anyone else gets a pending CREATE_GROUP request (202 with the request).
// Omitted modes default to OPEN joining and ADMIN_ONLY posting.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var body createGroupRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	spec := models.GroupSpec{
		Name:        body.Name,
		Description: body.Description,
		JoinMode:    models.JoinMode(body.JoinMode),
		PostMode:    models.PostMode(body.PostMode),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create group")
	defer cancel()

	if u.IsSystemAdmin() {
		g, err := h.Registry.CreateGroup(ctx, spec, u.UserID)
		if err != nil {
			httpjson.WriteErr(w, r, h.Log, err)
			return
		}
		view, err := h.Registry.GetGroup(ctx, g.ID, u.UserID)
		if err != nil {
			httpjson.WriteErr(w, r, h.Log, err)
			return
		}
		httpjson.Write(w, http.StatusCreated, view)
		return
	}

	req, err := h.Workflow.Submit(ctx, models.RequestCreateGroup, nil, u.UserID, models.RequestMetadata{
		Name:        spec.Name,
		Description: spec.Description,
		JoinMode:    spec.JoinMode,
		PostMode:    spec.PostMode,
	})
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, req)
}
