// internal/app/features/groups/groupview.go
package groups

import (
	"context"
	"net/http"

	groupstore "github.com/dalemusser/campusboard/internal/app/store/groups"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/domain/models"
)

// ServeGroup returns a single group with the caller's permissions.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	gid, err := groupID(r)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, err := h.Registry.GetGroup(ctx, gid, u.UserID)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

// updateGroupRequest is a partial edit; absent fields are left alone.
type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100" label:"Group name"`
	Description *string `json:"description" validate:"omitempty,max=1000" label:"Description"`
	JoinMode    *string `json:"joinMode" validate:"omitempty,joinmode" label:"Join mode"`
	PostMode    *string `json:"postMode" validate:"omitempty,postmode" label:"Post mode"`
}

func (b updateGroupRequest) patch() groupstore.Patch {
	p := groupstore.Patch{Name: b.Name, Description: b.Description}
	if b.JoinMode != nil {
		jm := models.JoinMode(*b.JoinMode)
		p.JoinMode = &jm
	}
	if b.PostMode != nil {
		pm := models.PostMode(*b.PostMode)
		p.PostMode = &pm
	}
	return p
}

// HandleUpdateGroup applies a PATCH to a group. Group admins only.
func (h *Handler) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	gid, err := groupID(r)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	var body updateGroupRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Registry.UpdateGroup(ctx, gid, u.UserID, body.patch())
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	view, err := h.Registry.GetGroup(ctx, g.ID, u.UserID)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}
