// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// insertion order
var listSort = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// GetByID loads a group. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts a group. Returns apperr.ErrDuplicateName when the folded
// name is already taken.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	g.Name = strings.TrimSpace(g.Name)
	g.NameCI = text.Fold(g.Name)
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, apperr.ErrDuplicateName
		}
		return models.Group{}, err
	}
	return g, nil
}

// Discard removes a group that was created moments ago by a unit of work
// that then failed. It is the compensating write when no transaction is
// available; groups are otherwise never deleted.
func (s *Store) Discard(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Patch holds the group fields that may be changed after creation.
// Nil fields are left untouched; Description may be cleared with "".
type Patch struct {
	Name        *string
	Description *string
	JoinMode    *models.JoinMode
	PostMode    *models.PostMode
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.JoinMode == nil && p.PostMode == nil
}

// Update applies p and returns the updated group.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.Group, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.JoinMode != nil {
		set["join_mode"] = *p.JoinMode
	}
	if p.PostMode != nil {
		set["post_mode"] = *p.PostMode
	}

	var g models.Group
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, apperr.ErrDuplicateName
		}
		return models.Group{}, err
	}
	return g, nil
}

// List returns every group in insertion order.
func (s *Store) List(ctx context.Context) ([]models.Group, error) {
	return s.find(ctx, bson.M{})
}

// ListByIDs returns the groups with the given ids in insertion order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(listSort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
