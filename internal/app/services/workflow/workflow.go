// Package workflow files requests for membership, posting rights, admin
// elevation and new groups, and lets authorized reviewers decide them.
//
// A request is PENDING until exactly one review moves it to APPROVED or
// REJECTED. The move is a compare-and-set on the stored status, and an
// approval's effect is applied in the same unit of work, so a request is
// never approved without its effect or applied twice.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/campusboard/internal/app/policy/grouppolicy"
	"github.com/dalemusser/campusboard/internal/app/services/registry"
	requeststore "github.com/dalemusser/campusboard/internal/app/store/requests"
	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/htmlsanitize"
	"github.com/dalemusser/campusboard/internal/app/system/txn"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxReasonLen bounds the free-text reason on a request.
const MaxReasonLen = 1000

// Deps are the Engine's collaborators.
type Deps struct {
	Requests *requeststore.Store
	Users    *userstore.Store
	Registry *registry.Registry
	Txn      *txn.Runner
	Audit    *auditlog.Logger // optional
	Log      *zap.Logger
}

// Engine owns requests.
type Engine struct {
	requests *requeststore.Store
	users    *userstore.Store
	reg      *registry.Registry
	tx       *txn.Runner
	audit    *auditlog.Logger
	log      *zap.Logger
	now      func() time.Time
}

// New constructs an Engine.
func New(d Deps) *Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Engine{
		requests: d.Requests,
		users:    d.Users,
		reg:      d.Registry,
		tx:       d.Txn,
		audit:    d.Audit,
		log:      d.Log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock stamped on reviews. For tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// RequestView is a request with display names resolved.
type RequestView struct {
	models.Request
	RequesterName string `json:"requesterName,omitempty"`
	GroupName     string `json:"groupName,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Submit                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Submit files a PENDING request.
//
// CREATE_GROUP takes no group and carries the new group's fields in md;
// every other type needs an existing group. A second pending request with
// the same (requester, group, type) fails apperr.ErrDuplicatePending.
func (e *Engine) Submit(ctx context.Context, t models.RequestType, groupID *primitive.ObjectID, requesterID primitive.ObjectID, md models.RequestMetadata) (models.Request, error) {
	if !t.Valid() {
		return models.Request{}, apperr.ErrInvalidType
	}

	md.Reason = htmlsanitize.StripTags(md.Reason)
	if utf8.RuneCountInString(md.Reason) > MaxReasonLen {
		return models.Request{}, apperr.Invalid(fmt.Sprintf("reason must be at most %d characters", MaxReasonLen))
	}

	if t == models.RequestCreateGroup {
		if groupID != nil {
			return models.Request{}, apperr.ErrInvalidType
		}
		spec, err := registry.CleanSpec(models.GroupSpec{
			Name:        md.Name,
			Description: md.Description,
			JoinMode:    md.JoinMode,
			PostMode:    md.PostMode,
		})
		if err != nil {
			return models.Request{}, err
		}
		md.Name, md.Description = spec.Name, spec.Description
		md.JoinMode, md.PostMode = spec.JoinMode, spec.PostMode
	} else {
		if groupID == nil {
			return models.Request{}, apperr.ErrInvalidType
		}
		view, err := e.reg.GetGroup(ctx, *groupID, requesterID)
		if err != nil {
			return models.Request{}, err
		}
		if err := checkEligible(t, view); err != nil {
			return models.Request{}, err
		}
		// group fields only belong on CREATE_GROUP
		md = models.RequestMetadata{Reason: md.Reason}
	}

	req, err := e.requests.Create(ctx, models.Request{
		Type:        t,
		GroupID:     groupID,
		RequesterID: requesterID,
		Metadata:    md,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicatePending) {
			return models.Request{}, err
		}
		return models.Request{}, fmt.Errorf("create request: %w", err)
	}
	e.audit.RequestSubmitted(ctx, requesterID, req.ID, groupID, string(t))
	return req, nil
}

// checkEligible refuses requests that could never be approved usefully.
func checkEligible(t models.RequestType, view registry.GroupView) error {
	perms := view.CurrentUserPermissions
	switch t {
	case models.RequestJoin:
		if perms.IsMember {
			return apperr.ErrAlreadyMember
		}
		if view.JoinMode == models.JoinInviteOnly {
			return apperr.ErrInviteOnly
		}
	case models.RequestPostAccess, models.RequestBecomeAdmin:
		if !perms.IsMember {
			return apperr.ErrNotMember
		}
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Queues                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func checkFilter(t models.RequestType) error {
	if t != "" && !t.Valid() {
		return apperr.Invalid("type must be JOIN, BECOME_GROUP_ADMIN, REQUEST_POST_ACCESS or CREATE_GROUP")
	}
	return nil
}

// reviewer loads the caller fresh so a revoked admin role takes effect at once.
func (e *Engine) reviewer(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := e.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load reviewer: %w", err)
	}
	return u, nil
}

// effectiveLevel is the authority a reviewer brings to a group. System
// admins act as super_admin everywhere.
func effectiveLevel(u *models.User, member models.PermissionLevel) models.PermissionLevel {
	if u.IsSystemAdmin() {
		return models.LevelSuperAdmin
	}
	return member
}

// ListPending returns a group's pending requests, oldest first, limited to
// the types the caller may review. filterType narrows to one type.
func (e *Engine) ListPending(ctx context.Context, groupID, callerID primitive.ObjectID, filterType models.RequestType) ([]RequestView, error) {
	if err := checkFilter(filterType); err != nil {
		return nil, err
	}
	u, err := e.reviewer(ctx, callerID)
	if err != nil {
		return nil, err
	}
	view, err := e.reg.GetGroup(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	level := effectiveLevel(u, view.CurrentUserPermissions.PermissionLevel)
	if !level.AtLeast(models.LevelGrantAccess) {
		return nil, apperr.ErrForbidden
	}

	reqs, err := e.requests.ListPending(ctx, groupID, filterType)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	levels := map[primitive.ObjectID]models.PermissionLevel{groupID: level}
	return e.decorate(ctx, reviewable(reqs, levels, u.IsSystemAdmin()))
}

// ListPendingAll is the caller's review queue across groups, oldest first.
// System admins see everything; others see the requests they could decide.
func (e *Engine) ListPendingAll(ctx context.Context, callerID primitive.ObjectID, filterType models.RequestType) ([]RequestView, error) {
	if err := checkFilter(filterType); err != nil {
		return nil, err
	}
	u, err := e.reviewer(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if u.IsSystemAdmin() {
		reqs, err := e.requests.ListPendingAll(ctx, filterType)
		if err != nil {
			return nil, fmt.Errorf("list pending: %w", err)
		}
		return e.decorate(ctx, reqs)
	}

	levels, err := e.reg.ReviewerLevels(ctx, callerID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(levels))
	for id := range levels {
		ids = append(ids, id)
	}
	reqs, err := e.requests.ListPendingForGroups(ctx, ids, filterType)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return e.decorate(ctx, reviewable(reqs, levels, false))
}

func reviewable(reqs []models.Request, levels map[primitive.ObjectID]models.PermissionLevel, systemAdmin bool) []models.Request {
	out := reqs[:0]
	for _, r := range reqs {
		var level models.PermissionLevel
		if r.GroupID != nil {
			level = levels[*r.GroupID]
		}
		if grouppolicy.CanReviewType(r.Type, level, systemAdmin) {
			out = append(out, r)
		}
	}
	return out
}

// ListMine returns the caller's own requests in every status, newest first.
func (e *Engine) ListMine(ctx context.Context, requesterID primitive.ObjectID) ([]RequestView, error) {
	reqs, err := e.requests.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return e.decorate(ctx, reqs)
}

// decorate resolves requester and group names. A CREATE_GROUP request shows
// its proposed name, or the created group's name once approved.
func (e *Engine) decorate(ctx context.Context, reqs []models.Request) ([]RequestView, error) {
	out := make([]RequestView, 0, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	var userIDs, groupIDs []primitive.ObjectID
	for _, r := range reqs {
		userIDs = append(userIDs, r.RequesterID)
		if r.GroupID != nil {
			groupIDs = append(groupIDs, *r.GroupID)
		}
	}
	users, err := e.users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load requesters: %w", err)
	}
	names, err := e.reg.GroupNames(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	for _, r := range reqs {
		v := RequestView{Request: r, RequesterName: users[r.RequesterID].Username}
		if r.GroupID != nil {
			v.GroupName = names[*r.GroupID]
		} else {
			v.GroupName = r.Metadata.Name
		}
		out = append(out, v)
	}
	return out, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Review                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Review approves or rejects a pending request.
//
// The reviewer's authority comes from their stored membership in the
// request's group (system role for CREATE_GROUP). An approval grants
// grantedLevel, or the type's default when empty, and the reviewer must be
// allowed to grant it. Losing a race to another reviewer, or reviewing a
// decided request, fails apperr.ErrAlreadyReviewed.
func (e *Engine) Review(ctx context.Context, requestID, reviewerID primitive.ObjectID, action models.ReviewAction, grantedLevel models.PermissionLevel) (models.Request, error) {
	if !action.Valid() {
		return models.Request{}, apperr.Invalid("action must be APPROVE or REJECT")
	}

	req, err := e.requests.GetByID(ctx, requestID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Request{}, apperr.NotFoundf("request")
	}
	if err != nil {
		return models.Request{}, fmt.Errorf("load request: %w", err)
	}
	if req.Status != models.StatusPending {
		return models.Request{}, apperr.ErrAlreadyReviewed
	}

	u, err := e.reviewer(ctx, reviewerID)
	if err != nil {
		return models.Request{}, err
	}
	var member models.PermissionLevel
	if req.GroupID != nil {
		m, err := e.reg.Membership(ctx, *req.GroupID, reviewerID)
		if err != nil {
			return models.Request{}, err
		}
		if m != nil {
			member = m.Level
		}
	}
	level := effectiveLevel(u, member)
	if !grouppolicy.CanReviewType(req.Type, level, u.IsSystemAdmin()) {
		return models.Request{}, apperr.ErrForbidden
	}

	if action == models.ActionReject {
		out, err := e.requests.Transition(ctx, req.ID, requeststore.Decision{
			Status:     models.StatusRejected,
			ReviewerID: reviewerID,
			At:         e.now(),
		})
		if err != nil {
			return models.Request{}, err
		}
		e.audit.RequestReviewed(ctx, reviewerID, req.RequesterID, req.ID, req.GroupID, string(req.Type), false, "")
		return out, nil
	}

	grant, err := grantFor(req.Type, grantedLevel)
	if err != nil {
		return models.Request{}, err
	}
	if !grouppolicy.CanGrantLevel(level, grant) {
		return models.Request{}, apperr.ErrForbidden
	}

	var (
		out models.Request
		eff registry.Effect
	)
	var groupID *primitive.ObjectID
	if req.Type == models.RequestCreateGroup {
		id := primitive.NewObjectID()
		groupID = &id
	}
	err = e.tx.Run(ctx, func(ctx context.Context) error {
		claimed, err := e.requests.Transition(ctx, req.ID, requeststore.Decision{
			Status:         models.StatusApproved,
			ReviewerID:     reviewerID,
			GrantedLevel:   grant,
			At:             e.now(),
			CreatedGroupID: groupID,
		})
		if err != nil {
			return err
		}

		eff, err = e.reg.ApplyApproval(ctx, claimed, grant)
		if err != nil {
			if mongo.SessionFromContext(ctx) == nil {
				// no transaction to roll the claim back
				if rerr := e.requests.Revert(ctx, req.ID, reviewerID); rerr != nil {
					e.log.Error("revert request claim",
						zap.String("request_id", req.ID.Hex()), zap.Error(rerr))
				}
			}
			return err
		}

		out = claimed
		return nil
	})
	if err != nil {
		return models.Request{}, err
	}

	e.log.Info("request approved",
		zap.String("request_id", req.ID.Hex()),
		zap.String("type", string(req.Type)),
		zap.String("reviewer_id", reviewerID.Hex()),
		zap.String("granted_level", string(grant)),
	)
	e.audit.RequestReviewed(ctx, reviewerID, req.RequesterID, req.ID, req.GroupID, string(req.Type), true, string(grant))
	if eff.Group != nil {
		e.audit.GroupCreated(ctx, req.RequesterID, eff.Group.ID, &req.ID, eff.Group.Name)
	} else {
		e.audit.MemberLevelGranted(ctx, reviewerID, req.RequesterID, eff.Membership.GroupID, string(eff.Membership.Level))
	}
	return out, nil
}

// grantFor picks the level an approval hands out. CREATE_GROUP always makes
// the requester super_admin.
func grantFor(t models.RequestType, requested models.PermissionLevel) (models.PermissionLevel, error) {
	def := grouppolicy.DefaultGrantedLevel(t)
	switch {
	case requested == "":
		return def, nil
	case !requested.Valid():
		return "", apperr.Invalid("permissionLevel must be member, post_access, grant_access, admin or super_admin")
	case t == models.RequestCreateGroup && requested != def:
		return "", apperr.Invalid("a new group's creator is always super_admin")
	}
	return requested, nil
}
