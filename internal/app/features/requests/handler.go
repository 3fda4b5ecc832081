// internal/app/features/requests/handler.go
package requests

import (
	"context"
	"net/http"

	"github.com/dalemusser/campusboard/internal/app/services/workflow"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/normalize"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the request workflow: filing, review queues and decisions.
type Handler struct {
	Workflow *workflow.Engine
	Log      *zap.Logger
}

func NewHandler(wf *workflow.Engine, logger *zap.Logger) *Handler {
	return &Handler{Workflow: wf, Log: logger}
}

type submitRequest struct {
	Type     string                 `json:"type" validate:"required,reqtype" label:"Request type"`
	GroupID  string                 `json:"groupId" validate:"omitempty,objectid" label:"Group"`
	Metadata models.RequestMetadata `json:"metadata"`
}

type reviewRequest struct {
	Action          string `json:"action" validate:"required,reviewaction" label:"Action"`
	PermissionLevel string `json:"permissionLevel" validate:"omitempty,level" label:"Permission level"`
}

// HandleSubmit files a new pending request (201 with the request).
//
//	{"type":"REQUEST_POST_ACCESS","groupId":"…","metadata":{"reason":"…"}}
//	{"type":"CREATE_GROUP","metadata":{"name":"…","joinMode":"REQUEST"}}
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var body submitRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	var gid *primitive.ObjectID
	if body.GroupID != "" {
		oid, _ := primitive.ObjectIDFromHex(body.GroupID)
		gid = &oid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit request")
	defer cancel()

	req, err := h.Workflow.Submit(ctx, models.RequestType(body.Type), gid, u.UserID, body.Metadata)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, req)
}

// ServeQueue returns every pending request the caller may review.
// ?type= narrows to one request type.
func (h *Handler) ServeQueue(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	filter := models.RequestType(normalize.Mode(normalize.QueryParam(r.URL.Query().Get("type"))))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reqs, err := h.Workflow.ListPendingAll(ctx, u.UserID, filter)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, reqs)
}

// ServeMine returns the caller's own requests, newest first.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	reqs, err := h.Workflow.ListMine(ctx, u.UserID)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, reqs)
}

// HandleReview approves or rejects a pending request.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, apperr.Invalid("bad request id"))
		return
	}

	var body reviewRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "review request")
	defer cancel()

	req, err := h.Workflow.Review(ctx, id, u.UserID,
		models.ReviewAction(body.Action), models.PermissionLevel(body.PermissionLevel))
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, req)
}
