// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxRaiseAttempts bounds the read-compare-update loop in Grant and Raise.
const maxRaiseAttempts = 5

var errBadLevel = errors.New("unknown permission level")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

// Get returns the membership for (groupID, userID), or nil when the user is
// not a member.
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error) {
	var m models.GroupMembership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Add creates a membership at level. Returns apperr.ErrAlreadyMember if
// the user already belongs to the group.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, level models.PermissionLevel) (models.GroupMembership, error) {
	if !level.Valid() {
		return models.GroupMembership{}, errBadLevel
	}
	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, apperr.ErrAlreadyMember
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// Grant ensures the user is a member at level or higher: it inserts a new
// membership, or raises an existing lower one. It never lowers a level.
func (s *Store) Grant(ctx context.Context, groupID, userID primitive.ObjectID, level models.PermissionLevel) (models.GroupMembership, error) {
	return s.raise(ctx, groupID, userID, level, true)
}

// Raise lifts an existing membership to level, never lowering it.
// Returns apperr.ErrNotMember when there is no membership to raise.
func (s *Store) Raise(ctx context.Context, groupID, userID primitive.ObjectID, level models.PermissionLevel) (models.GroupMembership, error) {
	return s.raise(ctx, groupID, userID, level, false)
}

func (s *Store) raise(ctx context.Context, groupID, userID primitive.ObjectID, level models.PermissionLevel, insert bool) (models.GroupMembership, error) {
	if !level.Valid() {
		return models.GroupMembership{}, errBadLevel
	}

	for attempt := 0; attempt < maxRaiseAttempts; attempt++ {
		cur, err := s.Get(ctx, groupID, userID)
		if err != nil {
			return models.GroupMembership{}, err
		}

		if cur == nil {
			if !insert {
				return models.GroupMembership{}, apperr.ErrNotMember
			}
			m, err := s.Add(ctx, groupID, userID, level)
			if errors.Is(err, apperr.ErrAlreadyMember) {
				continue // lost an insert race; re-read
			}
			return m, err
		}

		if cur.Level.Rank() >= level.Rank() {
			return *cur, nil
		}

		// Compare-and-set on the level we read so a concurrent raise is never undone.
		var out models.GroupMembership
		err = s.c.FindOneAndUpdate(ctx,
			bson.M{"_id": cur.ID, "level": cur.Level},
			bson.M{"$set": bson.M{"level": level, "updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&out)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return models.GroupMembership{}, err
		}
		return out, nil
	}
	return models.GroupMembership{}, fmt.Errorf("raise membership %s/%s: too much contention", groupID.Hex(), userID.Hex())
}

// ListByUser returns every membership the user holds.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// ListByUserLevels returns the user's memberships whose level is one of levels.
func (s *Store) ListByUserLevels(ctx context.Context, userID primitive.ObjectID, levels ...models.PermissionLevel) ([]models.GroupMembership, error) {
	return s.find(ctx, bson.M{"user_id": userID, "level": bson.M{"$in": levels}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
