// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/campusboard/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Core collections this app uses
	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("group_memberships", groupMembershipsSchema())
	ensure("requests", requestsSchema())
	ensure("posts", postsSchema())

	// Credential state
	ensure("otp_challenges", otpChallengesSchema())
	ensure("session_tokens", sessionTokensSchema())

	// Append-only; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func strs[T ~string](vals []T) bson.A {
	out := make(bson.A, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "username_ci", "email", "email_ci", "password_hash", "role"},
			"properties": bson.M{
				"username":      nonBlank,
				"username_ci":   nonBlank,
				"email":         nonBlank,
				"email_ci":      nonBlank,
				"password_hash": nonBlank,
				"role":          bson.M{"enum": strs([]models.SystemRole{models.RoleAdmin, models.RoleUser})},
				"mfa_enabled":   bson.M{"bsonType": "bool"},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "join_mode", "post_mode", "creator_id"},
			"properties": bson.M{
				"name":       nonBlank,
				"name_ci":    nonBlank,
				"join_mode":  bson.M{"enum": strs([]models.JoinMode{models.JoinOpen, models.JoinRequest, models.JoinInviteOnly})},
				"post_mode":  bson.M{"enum": strs([]models.PostMode{models.PostOpen, models.PostAdminOnly, models.PostApprovedMembers})},
				"creator_id": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func groupMembershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "level"},
			"properties": bson.M{
				"group_id":   bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"level":      bson.M{"enum": strs(models.AllPermissionLevels)},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func requestsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"type", "requester_id", "status"},
			"properties": bson.M{
				"type": bson.M{"enum": strs([]models.RequestType{
					models.RequestJoin, models.RequestBecomeAdmin, models.RequestPostAccess, models.RequestCreateGroup,
				})},
				"group_id":      bson.M{"bsonType": bson.A{"objectId", "null"}},
				"requester_id":  bson.M{"bsonType": "objectId"},
				"status":        bson.M{"enum": strs([]models.RequestStatus{models.StatusPending, models.StatusApproved, models.StatusRejected})},
				"granted_level": bson.M{"enum": strs(models.AllPermissionLevels)},
				"metadata":      bson.M{"bsonType": "object"},
			},
		},
	}
}

func postsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "author_id", "content"},
			"properties": bson.M{
				"group_id":  bson.M{"bsonType": "objectId"},
				"author_id": bson.M{"bsonType": "objectId"},
				"title":     bson.M{"bsonType": "string"},
				"content":   nonBlank,
			},
		},
	}
}

func otpChallengesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"subject", "purpose", "code_hash", "expires_at", "consumed", "attempts"},
			"properties": bson.M{
				"subject":    nonBlank,
				"purpose":    bson.M{"enum": strs([]models.OTPPurpose{models.OTPRegister, models.OTPLoginMFA})},
				"code_hash":  nonBlank,
				"expires_at": bson.M{"bsonType": "date"},
				"consumed":   bson.M{"bsonType": "bool"},
				"attempts":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func sessionTokensSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"token_hash", "user_id", "expires_at"},
			"properties": bson.M{
				"token_hash": bson.M{"bsonType": "string", "minLength": 64, "maxLength": 64},
				"user_id":    bson.M{"bsonType": "objectId"},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
