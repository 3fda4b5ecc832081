// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can sign in.
//
// NOTE:
//   - Group roles are not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
//   - PasswordHash never leaves the service; it is excluded from JSON.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         SystemRole         `bson:"role" json:"role"` // admin | user
	MFAEnabled   bool               `bson:"mfa_enabled" json:"mfaEnabled"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsSystemAdmin reports whether the account holds the system admin role.
func (u User) IsSystemAdmin() bool {
	return u.Role == RoleAdmin
}
