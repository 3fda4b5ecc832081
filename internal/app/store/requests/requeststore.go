// internal/app/store/requests/requeststore.go
package requeststore

import (
	"context"
	"time"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("requests")}
}

// Create inserts a PENDING request. Returns apperr.ErrDuplicatePending when
// the requester already has a pending request of the same type for the group.
func (s *Store) Create(ctx context.Context, r models.Request) (models.Request, error) {
	r.ID = primitive.NewObjectID()
	r.Status = models.StatusPending
	r.CreatedAt = time.Now().UTC()
	r.ReviewedAt = nil
	r.ReviewerID = nil
	r.GrantedLevel = ""
	r.CreatedGroupID = nil

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Request{}, apperr.ErrDuplicatePending
		}
		return models.Request{}, err
	}
	return r, nil
}

// GetByID loads a request. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Request, error) {
	var r models.Request
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.Request{}, err
	}
	return r, nil
}

// Decision is the outcome written when a request leaves PENDING.
type Decision struct {
	Status       models.RequestStatus
	ReviewerID   primitive.ObjectID
	GrantedLevel models.PermissionLevel
	At           time.Time

	// CreatedGroupID is the id an approved CREATE_GROUP will insert its
	// group under. It is written with the claim so nothing follows creation.
	CreatedGroupID *primitive.ObjectID
}

// Transition moves a request out of PENDING exactly once. The update is
// conditional on status == PENDING; if another reviewer got there first it
// returns apperr.ErrAlreadyReviewed and leaves the document untouched.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, d Decision) (models.Request, error) {
	at := d.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	set := bson.M{
		"status":      d.Status,
		"reviewer_id": d.ReviewerID,
		"reviewed_at": at,
	}
	if d.GrantedLevel != "" {
		set["granted_level"] = d.GrantedLevel
	}
	if d.CreatedGroupID != nil {
		set["created_group_id"] = *d.CreatedGroupID
	}

	var out models.Request
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return models.Request{}, apperr.ErrAlreadyReviewed
	}
	if err != nil {
		return models.Request{}, err
	}
	return out, nil
}

// Revert returns a request claimed by reviewerID back to PENDING. It is the
// compensating write when an approval's effect could not be applied and no
// transaction is available to roll the claim back.
func (s *Store) Revert(ctx context.Context, id, reviewerID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.StatusPending}, "reviewer_id": reviewerID},
		bson.M{
			"$set":   bson.M{"status": models.StatusPending},
			"$unset": bson.M{"reviewer_id": "", "reviewed_at": "", "granted_level": "", "created_group_id": ""},
		},
	)
	return err
}

// ListPending returns pending requests for a group, oldest first.
// An empty reqType matches every type.
func (s *Store) ListPending(ctx context.Context, groupID primitive.ObjectID, reqType models.RequestType) ([]models.Request, error) {
	filter := bson.M{"group_id": groupID, "status": models.StatusPending}
	if reqType != "" {
		filter["type"] = reqType
	}
	return s.find(ctx, filter, oldestFirst)
}

// ListPendingForGroups returns pending requests across the given groups, oldest first.
func (s *Store) ListPendingForGroups(ctx context.Context, groupIDs []primitive.ObjectID, reqType models.RequestType) ([]models.Request, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{"group_id": bson.M{"$in": groupIDs}, "status": models.StatusPending}
	if reqType != "" {
		filter["type"] = reqType
	}
	return s.find(ctx, filter, oldestFirst)
}

// ListPendingAll returns every pending request, oldest first.
func (s *Store) ListPendingAll(ctx context.Context, reqType models.RequestType) ([]models.Request, error) {
	filter := bson.M{"status": models.StatusPending}
	if reqType != "" {
		filter["type"] = reqType
	}
	return s.find(ctx, filter, oldestFirst)
}

// ListByRequester returns a requester's requests in every status, newest first.
func (s *Store) ListByRequester(ctx context.Context, requesterID primitive.ObjectID) ([]models.Request, error) {
	return s.find(ctx, bson.M{"requester_id": requesterID}, newestFirst)
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Request, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Request
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
