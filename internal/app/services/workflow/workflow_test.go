package workflow_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/campusboard/internal/app/services/registry"
	"github.com/dalemusser/campusboard/internal/app/services/workflow"
	groupstore "github.com/dalemusser/campusboard/internal/app/store/groups"
	membershipstore "github.com/dalemusser/campusboard/internal/app/store/memberships"
	poststore "github.com/dalemusser/campusboard/internal/app/store/posts"
	requeststore "github.com/dalemusser/campusboard/internal/app/store/requests"
	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/indexes"
	"github.com/dalemusser/campusboard/internal/app/system/txn"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/dalemusser/campusboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db       *mongo.Database
	reg      *registry.Registry
	eng      *workflow.Engine
	requests *requeststore.Store
	members  *membershipstore.Store
	fx       *testutil.Fixtures
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db))

	tx := txn.New(db.Client(), zap.NewNop())
	requests := requeststore.New(db)
	members := membershipstore.New(db)
	reg := registry.New(registry.Deps{
		Groups:      groupstore.New(db),
		Memberships: members,
		Posts:       poststore.New(db),
		Requests:    requests,
		Txn:         tx,
		Log:         zap.NewNop(),
	})
	eng := workflow.New(workflow.Deps{
		Requests: requests,
		Users:    userstore.New(db),
		Registry: reg,
		Txn:      tx,
		Log:      zap.NewNop(),
	})
	return env{db: db, reg: reg, eng: eng, requests: requests, members: members, fx: testutil.NewFixtures(t, db)}
}

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

func TestSubmit_Validation(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)
	invite := e.fx.CreateGroup(ctx, "Secret", models.JoinInviteOnly, models.PostOpen, owner.ID)

	cases := []struct {
		name    string
		typ     models.RequestType
		groupID *primitive.ObjectID
		md      models.RequestMetadata
		want    error
		kind    apperr.Kind
	}{
		{"unknown type", "PROMOTE", ptr(g.ID), models.RequestMetadata{}, apperr.ErrInvalidType, apperr.InvalidInput},
		{"join without group", models.RequestJoin, nil, models.RequestMetadata{}, apperr.ErrInvalidType, apperr.InvalidInput},
		{"create with group", models.RequestCreateGroup, ptr(g.ID), models.RequestMetadata{Name: "X"}, apperr.ErrInvalidType, apperr.InvalidInput},
		{"create without name", models.RequestCreateGroup, nil, models.RequestMetadata{}, nil, apperr.InvalidInput},
		{"unknown group", models.RequestJoin, ptr(primitive.NewObjectID()), models.RequestMetadata{}, nil, apperr.NotFound},
		{"invite only", models.RequestJoin, ptr(invite.ID), models.RequestMetadata{}, apperr.ErrInviteOnly, apperr.Forbidden},
		{"post access for non-member", models.RequestPostAccess, ptr(g.ID), models.RequestMetadata{}, apperr.ErrNotMember, apperr.Forbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.eng.Submit(ctx, tc.typ, tc.groupID, user.ID, tc.md)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
}

func TestSubmit_DuplicatePending(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)

	req, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{Reason: "<b>I play</b>"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, "I play", req.Metadata.Reason)

	_, err = e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	assert.ErrorIs(t, err, apperr.ErrDuplicatePending)

	pending, err := e.requests.ListPending(ctx, g.ID, "")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReview_JoinApprovedOnce(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	reviewer := e.fx.CreateMember(ctx, "reviewer")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, reviewer.ID, models.LevelGrantAccess)

	req, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.eng.SetClock(func() time.Time { return at })

	out, err := e.eng.Review(ctx, req.ID, reviewer.ID, models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, out.Status)
	assert.Equal(t, models.LevelMember, out.GrantedLevel)
	require.NotNil(t, out.ReviewerID)
	assert.Equal(t, reviewer.ID, *out.ReviewerID)
	require.NotNil(t, out.ReviewedAt)
	assert.True(t, at.Equal(*out.ReviewedAt))

	m, err := e.members.Get(ctx, g.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.LevelMember, m.Level)

	_, err = e.eng.Review(ctx, req.ID, reviewer.ID, models.ActionReject, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status, "terminal state is unchanged")
}

func TestReview_Reject(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, owner.ID, models.LevelSuperAdmin)

	req, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)

	out, err := e.eng.Review(ctx, req.ID, owner.ID, models.ActionReject, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, out.Status)

	m, err := e.members.Get(ctx, g.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, m, "rejection grants nothing")

	// rejected requests free the slot for a new one
	_, err = e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	assert.NoError(t, err)
}

func TestReview_Errors(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	member := e.fx.CreateMember(ctx, "member")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, member.ID, models.LevelPostAccess)
	e.fx.CreateMembership(ctx, g.ID, owner.ID, models.LevelSuperAdmin)

	req, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)

	_, err = e.eng.Review(ctx, primitive.NewObjectID(), owner.ID, models.ActionApprove, "")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = e.eng.Review(ctx, req.ID, member.ID, models.ActionApprove, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden, "post_access cannot review")

	_, err = e.eng.Review(ctx, req.ID, owner.ID, "MAYBE", "")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = e.eng.Review(ctx, req.ID, owner.ID, models.ActionApprove, "overlord")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "failed reviews leave the request pending")
}

func TestReview_AdminCannotGrantSuperAdmin(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	admin := e.fx.CreateMember(ctx, "admin")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, admin.ID, models.LevelAdmin)

	req, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)

	_, err = e.eng.Review(ctx, req.ID, admin.ID, models.ActionApprove, models.LevelSuperAdmin)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	out, err := e.eng.Review(ctx, req.ID, admin.ID, models.ActionApprove, models.LevelAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.LevelAdmin, out.GrantedLevel)
}

func TestReview_BecomeAdminNeedsSuperAdmin(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	admin := e.fx.CreateMember(ctx, "admin")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinOpen, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, owner.ID, models.LevelSuperAdmin)
	e.fx.CreateMembership(ctx, g.ID, admin.ID, models.LevelAdmin)
	e.fx.CreateMembership(ctx, g.ID, user.ID, models.LevelMember)

	req, err := e.eng.Submit(ctx, models.RequestBecomeAdmin, &g.ID, user.ID, models.RequestMetadata{Reason: "I organize events"})
	require.NoError(t, err)

	_, err = e.eng.Review(ctx, req.ID, admin.ID, models.ActionApprove, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	out, err := e.eng.Review(ctx, req.ID, owner.ID, models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.LevelAdmin, out.GrantedLevel)

	view, err := e.reg.GetGroup(ctx, g.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, view.CurrentUserPermissions.IsGroupAdmin)
}

func TestReview_PostAccessScenario(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	granter := e.fx.CreateMember(ctx, "granter")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Newsletter", models.JoinOpen, models.PostApprovedMembers, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, granter.ID, models.LevelGrantAccess)

	_, err := e.reg.Join(ctx, g.ID, user.ID)
	require.NoError(t, err)

	_, err = e.reg.CreatePost(ctx, g.ID, user.ID, "Hello", "first post")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	req, err := e.eng.Submit(ctx, models.RequestPostAccess, &g.ID, user.ID, models.RequestMetadata{Reason: "weekly digest"})
	require.NoError(t, err)

	out, err := e.eng.Review(ctx, req.ID, granter.ID, models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.LevelPostAccess, out.GrantedLevel)

	_, err = e.reg.CreatePost(ctx, g.ID, user.ID, "Hello", "first post")
	assert.NoError(t, err)
}

func TestReview_FailedEffectLeavesPending(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinOpen, models.PostApprovedMembers, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, owner.ID, models.LevelSuperAdmin)
	m := e.fx.CreateMembership(ctx, g.ID, user.ID, models.LevelMember)

	req, err := e.eng.Submit(ctx, models.RequestPostAccess, &g.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)

	// the requester leaves before the review
	_, err = e.db.Collection("group_memberships").DeleteOne(ctx, bson.M{"_id": m.ID})
	require.NoError(t, err)

	_, err = e.eng.Review(ctx, req.ID, owner.ID, models.ActionApprove, "")
	assert.ErrorIs(t, err, apperr.ErrNotMember)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.ReviewerID)
}

func TestReview_FailedCreateGroupLeavesNoTrace(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sysadmin := e.fx.CreateAdmin(ctx, "root")
	user := e.fx.CreateMember(ctx, "founder")
	other := e.fx.CreateMember(ctx, "other")

	req, err := e.eng.Submit(ctx, models.RequestCreateGroup, nil, user.ID, models.RequestMetadata{
		Name:     "Astronomy",
		JoinMode: models.JoinOpen,
		PostMode: models.PostOpen,
	})
	require.NoError(t, err)

	// the name is taken between submission and review
	taken := e.fx.CreateGroup(ctx, "astronomy", models.JoinOpen, models.PostOpen, other.ID)

	_, err = e.eng.Review(ctx, req.ID, sysadmin.ID, models.ActionApprove, "")
	assert.ErrorIs(t, err, apperr.ErrDuplicateName)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Nil(t, stored.CreatedGroupID)
	owned, err := e.db.Collection("group_memberships").CountDocuments(ctx, bson.M{"user_id": user.ID})
	require.NoError(t, err)
	assert.Zero(t, owned, "no super_admin row is left behind")

	// once the name frees up the same request can still be approved
	_, err = e.db.Collection("groups").DeleteOne(ctx, bson.M{"_id": taken.ID})
	require.NoError(t, err)

	out, err := e.eng.Review(ctx, req.ID, sysadmin.ID, models.ActionApprove, "")
	require.NoError(t, err)
	require.NotNil(t, out.CreatedGroupID)
	m, err := e.members.Get(ctx, *out.CreatedGroupID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.LevelSuperAdmin, m.Level)
}

func TestReview_ConcurrentReviewersOneWins(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	a := e.fx.CreateMember(ctx, "a")
	b := e.fx.CreateMember(ctx, "b")
	user := e.fx.CreateMember(ctx, "user")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, a.ID, models.LevelAdmin)
	e.fx.CreateMembership(ctx, g.ID, b.ID, models.LevelAdmin)

	req, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)

	const n = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		reviewed int
	)
	for i := 0; i < n; i++ {
		reviewer, action := a.ID, models.ActionApprove
		if i%2 == 1 {
			reviewer, action = b.ID, models.ActionReject
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.eng.Review(ctx, req.ID, reviewer, action, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperr.KindOf(err) == apperr.Conflict:
				reviewed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, reviewed)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	m, err := e.members.Get(ctx, g.ID, user.ID)
	require.NoError(t, err)
	if stored.Status == models.StatusApproved {
		require.NotNil(t, m)
		assert.Equal(t, models.LevelMember, m.Level)
	} else {
		assert.Equal(t, models.StatusRejected, stored.Status)
		assert.Nil(t, m)
	}
}

func TestReview_CreateGroup(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sysadmin := e.fx.CreateAdmin(ctx, "root")
	user := e.fx.CreateMember(ctx, "founder")
	other := e.fx.CreateMember(ctx, "other")
	g := e.fx.CreateGroup(ctx, "Existing", models.JoinOpen, models.PostOpen, other.ID)
	e.fx.CreateMembership(ctx, g.ID, other.ID, models.LevelSuperAdmin)

	req, err := e.eng.Submit(ctx, models.RequestCreateGroup, nil, user.ID, models.RequestMetadata{
		Name:     "Astronomy",
		JoinMode: models.JoinRequest,
		PostMode: models.PostOpen,
	})
	require.NoError(t, err)

	_, err = e.eng.Review(ctx, req.ID, other.ID, models.ActionApprove, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden, "group super_admins cannot approve new groups")

	_, err = e.eng.Review(ctx, req.ID, sysadmin.ID, models.ActionApprove, models.LevelAdmin)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	out, err := e.eng.Review(ctx, req.ID, sysadmin.ID, models.ActionApprove, "")
	require.NoError(t, err)
	require.NotNil(t, out.CreatedGroupID)

	stored, err := e.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CreatedGroupID)
	assert.Equal(t, *out.CreatedGroupID, *stored.CreatedGroupID)

	view, err := e.reg.GetGroup(ctx, *out.CreatedGroupID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Astronomy", view.Name)
	assert.Equal(t, models.JoinRequest, view.JoinMode)
	assert.Equal(t, user.ID, view.CreatorID)
	assert.Equal(t, models.LevelSuperAdmin, view.CurrentUserPermissions.PermissionLevel)
}

func TestListPending(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateMember(ctx, "owner")
	granter := e.fx.CreateMember(ctx, "granter")
	plain := e.fx.CreateMember(ctx, "plain")
	joiner := e.fx.CreateMember(ctx, "joiner")
	g := e.fx.CreateGroup(ctx, "Chess", models.JoinRequest, models.PostApprovedMembers, owner.ID)
	e.fx.CreateMembership(ctx, g.ID, owner.ID, models.LevelSuperAdmin)
	e.fx.CreateMembership(ctx, g.ID, granter.ID, models.LevelGrantAccess)
	e.fx.CreateMembership(ctx, g.ID, plain.ID, models.LevelMember)

	join, err := e.eng.Submit(ctx, models.RequestJoin, &g.ID, joiner.ID, models.RequestMetadata{})
	require.NoError(t, err)
	_, err = e.eng.Submit(ctx, models.RequestBecomeAdmin, &g.ID, plain.ID, models.RequestMetadata{})
	require.NoError(t, err)
	_, err = e.eng.Submit(ctx, models.RequestPostAccess, &g.ID, plain.ID, models.RequestMetadata{})
	require.NoError(t, err)

	all, err := e.eng.ListPending(ctx, g.ID, owner.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, join.ID, all[0].ID, "oldest first")
	assert.Equal(t, "joiner", all[0].RequesterName)
	assert.Equal(t, "Chess", all[0].GroupName)

	scoped, err := e.eng.ListPending(ctx, g.ID, granter.ID, "")
	require.NoError(t, err)
	require.Len(t, scoped, 2, "grant_access does not see admin requests")
	for _, r := range scoped {
		assert.NotEqual(t, models.RequestBecomeAdmin, r.Type)
	}

	onlyJoin, err := e.eng.ListPending(ctx, g.ID, owner.ID, models.RequestJoin)
	require.NoError(t, err)
	assert.Len(t, onlyJoin, 1)

	_, err = e.eng.ListPending(ctx, g.ID, plain.ID, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.eng.ListPending(ctx, g.ID, owner.ID, "NOPE")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestListPendingAllAndMine(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sysadmin := e.fx.CreateAdmin(ctx, "root")
	owner := e.fx.CreateMember(ctx, "owner")
	user := e.fx.CreateMember(ctx, "user")
	g1 := e.fx.CreateGroup(ctx, "One", models.JoinRequest, models.PostOpen, owner.ID)
	g2 := e.fx.CreateGroup(ctx, "Two", models.JoinRequest, models.PostOpen, owner.ID)
	e.fx.CreateMembership(ctx, g1.ID, owner.ID, models.LevelAdmin)

	_, err := e.eng.Submit(ctx, models.RequestJoin, &g1.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)
	_, err = e.eng.Submit(ctx, models.RequestJoin, &g2.ID, user.ID, models.RequestMetadata{})
	require.NoError(t, err)
	create, err := e.eng.Submit(ctx, models.RequestCreateGroup, nil, user.ID, models.RequestMetadata{Name: "Three"})
	require.NoError(t, err)

	everything, err := e.eng.ListPendingAll(ctx, sysadmin.ID, "")
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	creates, err := e.eng.ListPendingAll(ctx, sysadmin.ID, models.RequestCreateGroup)
	require.NoError(t, err)
	require.Len(t, creates, 1)
	assert.Equal(t, "Three", creates[0].GroupName)

	mine, err := e.eng.ListPendingAll(ctx, owner.ID, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, g1.ID, *mine[0].GroupID)

	none, err := e.eng.ListPendingAll(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	own, err := e.eng.ListMine(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, create.ID, own[0].ID, "newest first")
}
