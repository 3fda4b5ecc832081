// internal/domain/models/levels.go
package models

// PermissionLevel is a per-group role stored on a GroupMembership.
// Levels are strictly ordered: member < post_access < grant_access < admin < super_admin.
type PermissionLevel string

const (
	LevelMember      PermissionLevel = "member"
	LevelPostAccess  PermissionLevel = "post_access"
	LevelGrantAccess PermissionLevel = "grant_access"
	LevelAdmin       PermissionLevel = "admin"
	LevelSuperAdmin  PermissionLevel = "super_admin"
)

// AllPermissionLevels lists every level from lowest to highest.
var AllPermissionLevels = []PermissionLevel{
	LevelMember,
	LevelPostAccess,
	LevelGrantAccess,
	LevelAdmin,
	LevelSuperAdmin,
}

// Rank returns the position of the level in the ordering (1-based).
// Unknown levels rank 0, below every real level.
func (l PermissionLevel) Rank() int {
	for i, v := range AllPermissionLevels {
		if v == l {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether l is one of the known levels.
func (l PermissionLevel) Valid() bool {
	return l.Rank() > 0
}

// AtLeast reports whether l is the same as or above min.
func (l PermissionLevel) AtLeast(min PermissionLevel) bool {
	return l.Valid() && l.Rank() >= min.Rank()
}

// SystemRole is the account-wide role on a User, independent of any group.
type SystemRole string

const (
	RoleAdmin SystemRole = "admin"
	RoleUser  SystemRole = "user"
)

// Valid reports whether r is a known system role.
func (r SystemRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// JoinMode controls how users become members of a group.
type JoinMode string

const (
	JoinOpen       JoinMode = "OPEN"
	JoinRequest    JoinMode = "REQUEST"
	JoinInviteOnly JoinMode = "INVITE_ONLY"
)

// Valid reports whether m is a known join mode.
func (m JoinMode) Valid() bool {
	switch m {
	case JoinOpen, JoinRequest, JoinInviteOnly:
		return true
	}
	return false
}

// PostMode controls which members may post into a group.
type PostMode string

const (
	PostOpen            PostMode = "OPEN_POSTING"
	PostAdminOnly       PostMode = "ADMIN_ONLY"
	PostApprovedMembers PostMode = "APPROVED_MEMBERS"
)

// Valid reports whether m is a known post mode.
func (m PostMode) Valid() bool {
	switch m {
	case PostOpen, PostAdminOnly, PostApprovedMembers:
		return true
	}
	return false
}
