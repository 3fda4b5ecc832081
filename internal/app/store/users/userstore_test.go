package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/indexes"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/dalemusser/campusboard/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newUser(username, email string) models.User {
	return models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$hash",
		MFAEnabled:   true,
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newUser("  Alice  ", "Alice@Example.COM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Username != "Alice" {
		t.Errorf("username not trimmed: %q", created.Username)
	}
	if created.UsernameCI != "alice" {
		t.Errorf("expected folded username, got %q", created.UsernameCI)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", created.Email)
	}
	if created.Role != models.RoleUser {
		t.Errorf("expected default role user, got %q", created.Role)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := newUser("bob", "bob@example.com")
	u.Role = "leader"
	if _, err := store.Create(ctx, u); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestStore_Create_DuplicateUsernameOrEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, newUser("carol", "carol@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := store.Create(ctx, newUser("CAROL", "other@example.com"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate username: got %v, want ErrAlreadyExists", err)
	}
	_, err = store.Create(ctx, newUser("carol2", "Carol@example.com"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate email: got %v, want ErrAlreadyExists", err)
	}
}

func TestStore_Lookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newUser("dave", "dave@example.com"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	byName, err := store.GetByUsername(ctx, "DAVE")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName.ID != created.ID {
		t.Error("GetByUsername returned wrong user")
	}

	byEmail, err := store.GetByEmail(ctx, " Dave@Example.com ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Error("GetByEmail returned wrong user")
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}

	taken, err := store.Taken(ctx, "someone", "DAVE@example.com")
	if err != nil {
		t.Fatalf("Taken: %v", err)
	}
	if !taken {
		t.Error("expected email to be reported taken")
	}
	taken, _ = store.Taken(ctx, "erin", "erin@example.com")
	if taken {
		t.Error("expected fresh username and email to be free")
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newUser("frank", "frank@example.com"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.SetRole(ctx, created.ID, models.RoleAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	got, _ := store.GetByID(ctx, created.ID)
	if !got.IsSystemAdmin() {
		t.Error("expected admin role after SetRole")
	}
	if err := store.SetRole(ctx, primitive.NewObjectID(), models.RoleAdmin); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments for unknown user, got %v", err)
	}
}
