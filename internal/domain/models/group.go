// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a board that users join and post into.
//
// NOTE:
//   - Member lists are not embedded on Group.
//     All membership is stored in the group_memberships collection.
//   - Groups are never deleted.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	JoinMode    JoinMode           `bson:"join_mode" json:"joinMode"`
	PostMode    PostMode           `bson:"post_mode" json:"postMode"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creatorId"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// GroupSpec carries the caller-supplied fields for a new group.
type GroupSpec struct {
	Name        string
	Description string
	JoinMode    JoinMode
	PostMode    PostMode
}
