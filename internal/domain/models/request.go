// internal/domain/models/request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestType identifies what a Request asks for.
type RequestType string

const (
	RequestJoin        RequestType = "JOIN"
	RequestBecomeAdmin RequestType = "BECOME_GROUP_ADMIN"
	RequestPostAccess  RequestType = "REQUEST_POST_ACCESS"
	RequestCreateGroup RequestType = "CREATE_GROUP"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestJoin, RequestBecomeAdmin, RequestPostAccess, RequestCreateGroup:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a Request.
// PENDING transitions exactly once to APPROVED or REJECTED.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// ReviewAction is what a reviewer decides on a pending Request.
type ReviewAction string

const (
	ActionApprove ReviewAction = "APPROVE"
	ActionReject  ReviewAction = "REJECT"
)

// Valid reports whether a is a known review action.
func (a ReviewAction) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// RequestMetadata holds the free-form part of a request: a reason for
// membership and elevation requests, or the new group's fields for CREATE_GROUP.
type RequestMetadata struct {
	Reason      string   `bson:"reason,omitempty" json:"reason,omitempty"`
	Name        string   `bson:"name,omitempty" json:"name,omitempty"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	JoinMode    JoinMode `bson:"join_mode,omitempty" json:"joinMode,omitempty"`
	PostMode    PostMode `bson:"post_mode,omitempty" json:"postMode,omitempty"`
}

// Request is a pending or reviewed ask for membership, posting rights,
// admin elevation, or a new group.
//
// GroupID is nil only for CREATE_GROUP. For an approved CREATE_GROUP the
// created group's id is recorded in CreatedGroupID.
type Request struct {
	ID             primitive.ObjectID  `bson:"_id" json:"id"`
	Type           RequestType         `bson:"type" json:"type"`
	GroupID        *primitive.ObjectID `bson:"group_id" json:"groupId"`
	RequesterID    primitive.ObjectID  `bson:"requester_id" json:"requesterId"`
	Status         RequestStatus       `bson:"status" json:"status"`
	Metadata       RequestMetadata     `bson:"metadata" json:"metadata"`
	CreatedAt      time.Time           `bson:"created_at" json:"createdAt"`
	ReviewedAt     *time.Time          `bson:"reviewed_at,omitempty" json:"reviewedAt,omitempty"`
	ReviewerID     *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewerId,omitempty"`
	GrantedLevel   PermissionLevel     `bson:"granted_level,omitempty" json:"grantedLevel,omitempty"`
	CreatedGroupID *primitive.ObjectID `bson:"created_group_id,omitempty" json:"createdGroupId,omitempty"`
}
