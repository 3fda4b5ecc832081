// internal/app/store/otp/store.go
package otpstore

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of the one-time code (6 digits).
	CodeLength = 6
	// DefaultExpiry is how long a code is valid.
	DefaultExpiry = 5 * time.Minute
	// DefaultMaxAttempts is how many wrong codes kill a challenge.
	DefaultMaxAttempts = 5
	// BcryptCost for hashing codes.
	BcryptCost = 10
)

var codeSpace = big.NewInt(1_000_000)

// Store manages one-time code challenges.
type Store struct {
	c           *mongo.Collection
	expiry      time.Duration
	maxAttempts int
	now         func() time.Time
}

// New creates a Store. Non-positive expiry or maxAttempts fall back to the defaults.
func New(db *mongo.Database, expiry time.Duration, maxAttempts int) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{
		c:           db.Collection("otp_challenges"),
		expiry:      expiry,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for issuing and expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Expiry returns the lifetime of a new code.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Issue creates a fresh challenge for (subject, purpose), replacing any
// earlier one, and returns the plaintext code for delivery.
// Only the bcrypt hash of the code is stored.
func (s *Store) Issue(ctx context.Context, subject string, purpose models.OTPPurpose, pending *models.PendingUser) (string, models.OTPChallenge, error) {
	code, err := generateCode()
	if err != nil {
		return "", models.OTPChallenge{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", models.OTPChallenge{}, fmt.Errorf("hash code: %w", err)
	}

	now := s.now()
	// No _id in the replacement: an existing row keeps its id, an upsert gets a new one.
	ch := models.OTPChallenge{
		Subject:     subject,
		Purpose:     purpose,
		CodeHash:    string(hash),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.expiry),
		PendingUser: pending,
	}

	filter := bson.M{"subject": subject, "purpose": purpose}
	opts := options.Replace().SetUpsert(true)
	_, err = s.c.ReplaceOne(ctx, filter, ch, opts)
	if wafflemongo.IsDup(err) {
		// two upserts raced on the unique (subject, purpose) index; the row now exists
		_, err = s.c.ReplaceOne(ctx, filter, ch, opts)
	}
	if err != nil {
		return "", models.OTPChallenge{}, fmt.Errorf("store challenge: %w", err)
	}

	if err := s.c.FindOne(ctx, filter).Decode(&ch); err != nil {
		return "", models.OTPChallenge{}, err
	}
	return code, ch, nil
}

// Consume checks code against the active challenge and, on a match, marks it
// consumed with a compare-and-set so that exactly one caller succeeds.
// Both writes are keyed on the code hash that was checked, so a challenge
// re-issued in the meantime is left untouched.
//
// Errors: apperr.ErrInvalidOTP (no challenge, wrong code, already used),
// apperr.ErrOTPExpired, apperr.ErrTooManyAttempts. A wrong code only
// increments attempts; it never extends or shortens expiry.
func (s *Store) Consume(ctx context.Context, subject string, purpose models.OTPPurpose, code string) (*models.OTPChallenge, error) {
	var ch models.OTPChallenge
	err := s.c.FindOne(ctx, bson.M{"subject": subject, "purpose": purpose}).Decode(&ch)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrInvalidOTP
	}
	if err != nil {
		return nil, err
	}

	switch {
	case ch.Consumed:
		return nil, apperr.ErrInvalidOTP
	case !s.now().Before(ch.ExpiresAt):
		return nil, apperr.ErrOTPExpired
	case ch.Attempts >= s.maxAttempts:
		return nil, apperr.ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		_, err := s.c.UpdateOne(ctx,
			bson.M{"_id": ch.ID, "code_hash": ch.CodeHash, "consumed": false},
			bson.M{"$inc": bson.M{"attempts": 1}},
		)
		if err != nil {
			return nil, err
		}
		return nil, apperr.ErrInvalidOTP
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":       ch.ID,
			"code_hash": ch.CodeHash,
			"consumed":  false,
			"attempts":  bson.M{"$lt": s.maxAttempts},
		},
		bson.M{"$set": bson.M{"consumed": true}},
	)
	if err != nil {
		return nil, err
	}
	if res.ModifiedCount == 0 {
		return nil, apperr.ErrInvalidOTP
	}
	ch.Consumed = true
	return &ch, nil
}

// generateCode returns a uniformly random 6-digit code, leading zeros kept.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// DeleteExpired removes challenges that expired at or before now, and any
// that were already consumed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"expires_at": bson.M{"$lte": now}},
		{"consumed": true},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
