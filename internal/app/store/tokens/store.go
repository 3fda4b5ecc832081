// internal/app/store/tokens/store.go
package tokenstore

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/zeebo/blake3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists bearer-token digests. The raw bearer value never reaches
// the database; lookups hash the presented value and match on the digest.
type Store struct {
	c *mongo.Collection
}

// New creates a tokens Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("session_tokens")}
}

// Digest returns the hex BLAKE3-256 digest stored for a bearer value.
func Digest(raw string) string {
	sum := blake3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Create stores a token for userID valid until expiresAt.
func (s *Store) Create(ctx context.Context, raw string, userID primitive.ObjectID, issuedAt, expiresAt time.Time) (models.SessionToken, error) {
	t := models.SessionToken{
		ID:        primitive.NewObjectID(),
		TokenHash: Digest(raw),
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.SessionToken{}, err
	}
	return t, nil
}

// Lookup finds the token row for a bearer value. Expiry is not checked here.
// Returns mongo.ErrNoDocuments if the token is unknown or was revoked.
func (s *Store) Lookup(ctx context.Context, raw string) (models.SessionToken, error) {
	var t models.SessionToken
	if err := s.c.FindOne(ctx, bson.M{"token_hash": Digest(raw)}).Decode(&t); err != nil {
		return models.SessionToken{}, err
	}
	return t, nil
}

// Delete revokes a bearer value. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, raw string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token_hash": Digest(raw)})
	return err
}

// DeleteByUser revokes every token issued to userID.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes tokens whose expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
