// Package registry owns groups and memberships: creating groups, joining
// them, reporting a caller's standing, and applying approved requests.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/campusboard/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/campusboard/internal/app/store/groups"
	membershipstore "github.com/dalemusser/campusboard/internal/app/store/memberships"
	poststore "github.com/dalemusser/campusboard/internal/app/store/posts"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/campusboard/internal/app/system/txn"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxNameLen        = 100
	MaxDescriptionLen = 1000
)

// Deps are the Registry's collaborators.
type Deps struct {
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Posts       *poststore.Store
	Txn         *txn.Runner
	Audit       *auditlog.Logger // optional
	Log         *zap.Logger
}

// Registry is the only writer of groups and memberships.
type Registry struct {
	groups   *groupstore.Store
	members  *membershipstore.Store
	posts    *poststore.Store
	tx       *txn.Runner
	audit    *auditlog.Logger
	log      *zap.Logger
}

// New constructs a Registry.
func New(d Deps) *Registry {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Registry{
		groups:   d.Groups,
		members:  d.Memberships,
		posts:    d.Posts,
		tx:       d.Txn,
		audit:    d.Audit,
		log:      d.Log,
	}
}

// GroupView is a group plus the caller's standing in it.
type GroupView struct {
	models.Group
	CurrentUserPermissions grouppolicy.Permissions `json:"currentUserPermissions"`
}

// Effect describes what an approval changed.
type Effect struct {
	Membership models.GroupMembership
	Group      *models.Group // set for CREATE_GROUP
}

// CleanSpec strips markup, applies mode defaults and checks a group spec.
// Both direct creation and CREATE_GROUP submission go through it.
func CleanSpec(spec models.GroupSpec) (models.GroupSpec, error) {
	spec.Name = htmlsanitize.StripTags(spec.Name)
	spec.Description = htmlsanitize.StripTags(spec.Description)
	if spec.JoinMode == "" {
		spec.JoinMode = models.JoinOpen
	}
	if spec.PostMode == "" {
		spec.PostMode = models.PostAdminOnly
	}

	switch {
	case spec.Name == "":
		return spec, apperr.Invalid("group name is required")
	case utf8.RuneCountInString(spec.Name) > MaxNameLen:
		return spec, apperr.Invalid(fmt.Sprintf("group name must be at most %d characters", MaxNameLen))
	case utf8.RuneCountInString(spec.Description) > MaxDescriptionLen:
		return spec, apperr.Invalid(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen))
	case !spec.JoinMode.Valid():
		return spec, apperr.Invalid("joinMode must be OPEN, REQUEST or INVITE_ONLY")
	case !spec.PostMode.Valid():
		return spec, apperr.Invalid("postMode must be OPEN_POSTING, ADMIN_ONLY or APPROVED_MEMBERS")
	}
	return spec, nil
}

func (r *Registry) loadGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := r.groups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, apperr.NotFoundf("group")
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("load group: %w", err)
	}
	return g, nil
}

// Membership returns the caller's membership in a group, or nil.
func (r *Registry) Membership(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error) {
	m, err := r.members.Get(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return m, nil
}

// createWithOwner inserts a group and its super_admin. A zero id lets the
// store choose one. Without a transaction a failed membership insert
// discards the new group.
func (r *Registry) createWithOwner(ctx context.Context, id primitive.ObjectID, spec models.GroupSpec, ownerID primitive.ObjectID) (models.Group, models.GroupMembership, error) {
	g, err := r.groups.Create(ctx, models.Group{
		ID:          id,
		Name:        spec.Name,
		Description: spec.Description,
		JoinMode:    spec.JoinMode,
		PostMode:    spec.PostMode,
		CreatorID:   ownerID,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateName) {
			return models.Group{}, models.GroupMembership{}, err
		}
		return models.Group{}, models.GroupMembership{}, fmt.Errorf("create group: %w", err)
	}

	m, err := r.members.Add(ctx, g.ID, ownerID, models.LevelSuperAdmin)
	if err != nil {
		if !r.tx.Transactional() {
			if derr := r.groups.Discard(ctx, g.ID); derr != nil {
				r.log.Error("discard group after failed owner insert",
					zap.String("group_id", g.ID.Hex()), zap.Error(derr))
			}
		}
		return models.Group{}, models.GroupMembership{}, fmt.Errorf("add group owner: %w", err)
	}
	return g, m, nil
}

// CreateGroup creates a group with creatorID as its super_admin.
// Returns apperr.ErrDuplicateName if the folded name is taken.
func (r *Registry) CreateGroup(ctx context.Context, spec models.GroupSpec, creatorID primitive.ObjectID) (models.Group, error) {
	spec, err := CleanSpec(spec)
	if err != nil {
		return models.Group{}, err
	}

	var g models.Group
	err = r.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		g, _, err = r.createWithOwner(ctx, primitive.NilObjectID, spec, creatorID)
		return err
	})
	if err != nil {
		return models.Group{}, err
	}

	r.log.Info("group created", zap.String("group_id", g.ID.Hex()), zap.String("creator_id", creatorID.Hex()))
	r.audit.GroupCreated(ctx, creatorID, g.ID, nil, g.Name)
	return g, nil
}

// GetGroup returns a group and the caller's standing in it.
func (r *Registry) GetGroup(ctx context.Context, id, callerID primitive.ObjectID) (GroupView, error) {
	g, err := r.loadGroup(ctx, id)
	if err != nil {
		return GroupView{}, err
	}
	m, err := r.Membership(ctx, id, callerID)
	if err != nil {
		return GroupView{}, err
	}
	return GroupView{Group: g, CurrentUserPermissions: grouppolicy.Resolve(m)}, nil
}

// Join adds userID to an OPEN group at member level. REQUEST groups answer
// apperr.ErrApprovalRequired and INVITE_ONLY groups apperr.ErrInviteOnly.
func (r *Registry) Join(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	g, err := r.loadGroup(ctx, groupID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	existing, err := r.Membership(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if existing != nil {
		return models.GroupMembership{}, apperr.ErrAlreadyMember
	}

	if !grouppolicy.JoinIsImmediate(g) {
		if g.JoinMode == models.JoinInviteOnly {
			return models.GroupMembership{}, apperr.ErrInviteOnly
		}
		return models.GroupMembership{}, apperr.ErrApprovalRequired
	}

	m, err := r.members.Add(ctx, groupID, userID, models.LevelMember)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyMember) {
			return models.GroupMembership{}, err
		}
		return models.GroupMembership{}, fmt.Errorf("add member: %w", err)
	}
	r.audit.MemberJoined(ctx, userID, groupID)
	return m, nil
}

func (r *Registry) views(ctx context.Context, groups []models.Group, callerID primitive.ObjectID) ([]GroupView, error) {
	mine, err := r.members.ListByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	byGroup := make(map[primitive.ObjectID]*models.GroupMembership, len(mine))
	for i := range mine {
		byGroup[mine[i].GroupID] = &mine[i]
	}

	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupView{Group: g, CurrentUserPermissions: grouppolicy.Resolve(byGroup[g.ID])})
	}
	return out, nil
}

// ListGroups returns every group, oldest first, with the caller's standing.
func (r *Registry) ListGroups(ctx context.Context, callerID primitive.ObjectID) ([]GroupView, error) {
	groups, err := r.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return r.views(ctx, groups, callerID)
}

// ListManaged returns the groups where the caller is admin or super_admin.
func (r *Registry) ListManaged(ctx context.Context, callerID primitive.ObjectID) ([]GroupView, error) {
	ms, err := r.members.ListByUserLevels(ctx, callerID, models.LevelAdmin, models.LevelSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("list managed memberships: %w", err)
	}
	if len(ms) == 0 {
		return []GroupView{}, nil
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.GroupID)
	}
	groups, err := r.groups.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list managed groups: %w", err)
	}
	return r.views(ctx, groups, callerID)
}

// ReviewerLevels maps each group where the caller holds grant_access or
// above, the floor for reviewing any group-scoped request, to that level.
func (r *Registry) ReviewerLevels(ctx context.Context, callerID primitive.ObjectID) (map[primitive.ObjectID]models.PermissionLevel, error) {
	ms, err := r.members.ListByUserLevels(ctx, callerID,
		models.LevelGrantAccess, models.LevelAdmin, models.LevelSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("list reviewable memberships: %w", err)
	}
	out := make(map[primitive.ObjectID]models.PermissionLevel, len(ms))
	for _, m := range ms {
		out[m.GroupID] = m.Level
	}
	return out, nil
}

// GroupNames maps group ids to names for display.
func (r *Registry) GroupNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	groups, err := r.groups.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := make(map[primitive.ObjectID]string, len(groups))
	for _, g := range groups {
		out[g.ID] = g.Name
	}
	return out, nil
}

// UpdateGroup edits a group's name, description or modes. Only group admins
// may do this.
func (r *Registry) UpdateGroup(ctx context.Context, id, callerID primitive.ObjectID, p groupstore.Patch) (models.Group, error) {
	if _, err := r.loadGroup(ctx, id); err != nil {
		return models.Group{}, err
	}
	m, err := r.Membership(ctx, id, callerID)
	if err != nil {
		return models.Group{}, err
	}
	if m == nil || !grouppolicy.IsGroupAdmin(m.Level) {
		return models.Group{}, apperr.ErrForbidden
	}

	var fields []string
	if p.Name != nil {
		name := htmlsanitize.StripTags(*p.Name)
		switch {
		case name == "":
			return models.Group{}, apperr.Invalid("group name is required")
		case utf8.RuneCountInString(name) > MaxNameLen:
			return models.Group{}, apperr.Invalid(fmt.Sprintf("group name must be at most %d characters", MaxNameLen))
		}
		p.Name = &name
		fields = append(fields, "name")
	}
	if p.Description != nil {
		desc := htmlsanitize.StripTags(*p.Description)
		if utf8.RuneCountInString(desc) > MaxDescriptionLen {
			return models.Group{}, apperr.Invalid(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLen))
		}
		p.Description = &desc
		fields = append(fields, "description")
	}
	if p.JoinMode != nil {
		if !p.JoinMode.Valid() {
			return models.Group{}, apperr.Invalid("joinMode must be OPEN, REQUEST or INVITE_ONLY")
		}
		fields = append(fields, "join_mode")
	}
	if p.PostMode != nil {
		if !p.PostMode.Valid() {
			return models.Group{}, apperr.Invalid("postMode must be OPEN_POSTING, ADMIN_ONLY or APPROVED_MEMBERS")
		}
		fields = append(fields, "post_mode")
	}
	if p.Empty() {
		return models.Group{}, apperr.Invalid("nothing to update")
	}

	g, err := r.groups.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateName) {
			return models.Group{}, err
		}
		return models.Group{}, fmt.Errorf("update group: %w", err)
	}
	r.audit.GroupUpdated(ctx, callerID, id, strings.Join(fields, ","))
	return g, nil
}

// ApplyApproval makes an approved request durable. It must run inside the
// workflow's claim of the request so it is applied at most once.
//
//   - JOIN inserts a membership at level, or raises an existing lower one.
//   - REQUEST_POST_ACCESS and BECOME_GROUP_ADMIN raise an existing
//     membership; apperr.ErrNotMember if there is none.
//   - CREATE_GROUP creates the group from the request metadata with the
//     requester as super_admin.
//
// Levels are never lowered.
func (r *Registry) ApplyApproval(ctx context.Context, req models.Request, level models.PermissionLevel) (Effect, error) {
	switch req.Type {
	case models.RequestJoin:
		if req.GroupID == nil {
			return Effect{}, apperr.ErrInvalidType
		}
		m, err := r.members.Grant(ctx, *req.GroupID, req.RequesterID, level)
		if err != nil {
			return Effect{}, fmt.Errorf("grant membership: %w", err)
		}
		return Effect{Membership: m}, nil

	case models.RequestPostAccess, models.RequestBecomeAdmin:
		if req.GroupID == nil {
			return Effect{}, apperr.ErrInvalidType
		}
		m, err := r.members.Raise(ctx, *req.GroupID, req.RequesterID, level)
		if err != nil {
			if errors.Is(err, apperr.ErrNotMember) {
				return Effect{}, err
			}
			return Effect{}, fmt.Errorf("raise membership: %w", err)
		}
		return Effect{Membership: m}, nil

	case models.RequestCreateGroup:
		spec, err := CleanSpec(models.GroupSpec{
			Name:        req.Metadata.Name,
			Description: req.Metadata.Description,
			JoinMode:    req.Metadata.JoinMode,
			PostMode:    req.Metadata.PostMode,
		})
		if err != nil {
			return Effect{}, err
		}
		// the id was recorded on the request when it was claimed
		var id primitive.ObjectID
		if req.CreatedGroupID != nil {
			id = *req.CreatedGroupID
		}
		g, m, err := r.createWithOwner(ctx, id, spec, req.RequesterID)
		if err != nil {
			return Effect{}, err
		}
		return Effect{Membership: m, Group: &g}, nil
	}
	return Effect{}, apperr.ErrInvalidType
}

// MaxPostTitleLen and MaxPostContentLen bound a post.
const (
	MaxPostTitleLen   = 200
	MaxPostContentLen = 10000
)

// CreatePost publishes into a group when the author's level and the group's
// post mode allow it. Title is plain text; content keeps safe markup.
func (r *Registry) CreatePost(ctx context.Context, groupID, authorID primitive.ObjectID, title, content string) (models.Post, error) {
	g, err := r.loadGroup(ctx, groupID)
	if err != nil {
		return models.Post{}, err
	}
	m, err := r.Membership(ctx, groupID, authorID)
	if err != nil {
		return models.Post{}, err
	}
	if m == nil {
		return models.Post{}, apperr.ErrNotMember
	}
	if !grouppolicy.CanPost(g, m) {
		return models.Post{}, apperr.ErrForbidden
	}

	title = htmlsanitize.StripTags(title)
	content = strings.TrimSpace(htmlsanitize.Sanitize(content))
	switch {
	case title == "":
		return models.Post{}, apperr.Invalid("title is required")
	case utf8.RuneCountInString(title) > MaxPostTitleLen:
		return models.Post{}, apperr.Invalid(fmt.Sprintf("title must be at most %d characters", MaxPostTitleLen))
	case content == "":
		return models.Post{}, apperr.Invalid("content is required")
	case utf8.RuneCountInString(content) > MaxPostContentLen:
		return models.Post{}, apperr.Invalid(fmt.Sprintf("content must be at most %d characters", MaxPostContentLen))
	}

	p, err := r.posts.Create(ctx, models.Post{
		GroupID:  groupID,
		AuthorID: authorID,
		Title:    title,
		Content:  content,
	})
	if err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	r.audit.PostCreated(ctx, authorID, groupID, p.ID)
	return p, nil
}

// ListPosts returns a group's feed, newest first. Members only.
func (r *Registry) ListPosts(ctx context.Context, groupID, callerID primitive.ObjectID, limit int64) ([]models.Post, error) {
	if _, err := r.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	m, err := r.Membership(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.ErrNotMember
	}
	posts, err := r.posts.ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}
