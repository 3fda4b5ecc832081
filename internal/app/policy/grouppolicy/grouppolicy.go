// internal/app/policy/grouppolicy/grouppolicy.go
//
// Package grouppolicy is the permission model for groups. Everything here is
// pure: callers load the group and the caller's membership from storage and
// pass them in, so a level is always derived from the stored membership row
// and never from anything the client sent.
package grouppolicy

import (
	"github.com/dalemusser/campusboard/internal/domain/models"
)

// Permissions is what the API reports about the caller's standing in a group.
type Permissions struct {
	IsMember        bool                   `json:"isMember"`
	IsGroupAdmin    bool                   `json:"isGroupAdmin"`
	PermissionLevel models.PermissionLevel `json:"permissionLevel,omitempty"`
}

// Resolve derives Permissions from a membership row. A nil membership means
// the caller is not a member.
func Resolve(m *models.GroupMembership) Permissions {
	if m == nil || !m.Level.Valid() {
		return Permissions{}
	}
	return Permissions{
		IsMember:        true,
		IsGroupAdmin:    IsGroupAdmin(m.Level),
		PermissionLevel: m.Level,
	}
}

// IsGroupAdmin reports whether level is admin or super_admin.
func IsGroupAdmin(level models.PermissionLevel) bool {
	return level == models.LevelAdmin || level == models.LevelSuperAdmin
}

// CanPost reports whether the holder of membership m may post into g.
//   - OPEN_POSTING: any member
//   - APPROVED_MEMBERS: post_access and above
//   - ADMIN_ONLY: admin and super_admin
func CanPost(g models.Group, m *models.GroupMembership) bool {
	if m == nil || !m.Level.Valid() {
		return false
	}
	if IsGroupAdmin(m.Level) {
		return true
	}
	switch g.PostMode {
	case models.PostOpen:
		return true
	case models.PostApprovedMembers:
		return m.Level.AtLeast(models.LevelPostAccess)
	default:
		return false
	}
}

// CanReviewRequests reports whether m may review at least some requests for
// its group. grant_access qualifies, but only for JOIN and
// REQUEST_POST_ACCESS; use CanReviewType for a specific request.
func CanReviewRequests(m *models.GroupMembership) bool {
	return m != nil && m.Level.AtLeast(models.LevelGrantAccess)
}

// MinReviewerLevel returns the lowest group level allowed to review t.
// CREATE_GROUP has no group level; ok is false and only system admins review it.
func MinReviewerLevel(t models.RequestType) (level models.PermissionLevel, ok bool) {
	switch t {
	case models.RequestJoin, models.RequestPostAccess:
		return models.LevelGrantAccess, true
	case models.RequestBecomeAdmin:
		return models.LevelSuperAdmin, true
	default:
		return "", false
	}
}

// CanReviewType applies the reviewer authority table.
func CanReviewType(t models.RequestType, reviewer models.PermissionLevel, systemAdmin bool) bool {
	if t == models.RequestCreateGroup {
		return systemAdmin
	}
	floor, ok := MinReviewerLevel(t)
	if !ok {
		return false
	}
	return reviewer.AtLeast(floor)
}

// CanGrantLevel reports whether a reviewer at level reviewer may hand out
// target. super_admin grants anything; admin grants up to admin;
// grant_access grants up to post_access; nobody else grants.
func CanGrantLevel(reviewer, target models.PermissionLevel) bool {
	if !target.Valid() {
		return false
	}
	switch reviewer {
	case models.LevelSuperAdmin:
		return true
	case models.LevelAdmin:
		return target.Rank() <= models.LevelAdmin.Rank()
	case models.LevelGrantAccess:
		return target.Rank() <= models.LevelPostAccess.Rank()
	default:
		return false
	}
}

// JoinIsImmediate reports whether joining g needs no approval.
func JoinIsImmediate(g models.Group) bool {
	return g.JoinMode == models.JoinOpen
}

// DefaultGrantedLevel is the level an approval grants when the reviewer
// does not pick one.
func DefaultGrantedLevel(t models.RequestType) models.PermissionLevel {
	switch t {
	case models.RequestPostAccess:
		return models.LevelPostAccess
	case models.RequestBecomeAdmin:
		return models.LevelAdmin
	case models.RequestCreateGroup:
		return models.LevelSuperAdmin
	default:
		return models.LevelMember
	}
}
