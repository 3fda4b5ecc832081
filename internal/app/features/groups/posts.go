// internal/app/features/groups/posts.go
package groups

import (
	"context"
	"net/http"
	"strconv"

	poststore "github.com/dalemusser/campusboard/internal/app/store/posts"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
)

type createPostRequest struct {
	Title   string `json:"title" validate:"required,max=200" label:"Title"`
	Content string `json:"content" validate:"required" label:"Content"`
}

// ServePosts returns the group feed, newest first. ?limit= caps the page.
func (h *Handler) ServePosts(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	gid, err := groupID(r)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	limit := int64(poststore.DefaultLimit)
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 && v <= limit {
		limit = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	posts, err := h.Registry.ListPosts(ctx, gid, u.UserID, limit)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, posts)
}

// HandleCreatePost publishes into the group when its post mode allows.
func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	gid, err := groupID(r)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	var body createPostRequest
	if err := httpjson.Decode(w, r, &body); err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Registry.CreatePost(ctx, gid, u.UserID, body.Title, body.Content)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, p)
}
