package testutil

import (
	"testing"

	"github.com/dalemusser/campusboard/internal/app/services/registry"
	"github.com/dalemusser/campusboard/internal/app/services/workflow"
	groupstore "github.com/dalemusser/campusboard/internal/app/store/groups"
	membershipstore "github.com/dalemusser/campusboard/internal/app/store/memberships"
	poststore "github.com/dalemusser/campusboard/internal/app/store/posts"
	requeststore "github.com/dalemusser/campusboard/internal/app/store/requests"
	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/indexes"
	"github.com/dalemusser/campusboard/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Services bundles the group registry and request workflow wired against
// a test database, for handler tests.
type Services struct {
	Registry *registry.Registry
	Workflow *workflow.Engine
}

// NewServices ensures indexes on db and builds the services with a no-op
// logger and audit trail.
func NewServices(t *testing.T, db *mongo.Database) Services {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	tx := txn.New(db.Client(), zap.NewNop())
	requests := requeststore.New(db)
	reg := registry.New(registry.Deps{
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Posts:       poststore.New(db),
		Txn:         tx,
		Log:         zap.NewNop(),
	})
	wf := workflow.New(workflow.Deps{
		Requests: requests,
		Users:    userstore.New(db),
		Registry: reg,
		Txn:      tx,
		Log:      zap.NewNop(),
	})
	return Services{Registry: reg, Workflow: wf}
}
