package credentials_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/campusboard/internal/app/services/credentials"
	otpstore "github.com/dalemusser/campusboard/internal/app/store/otp"
	tokenstore "github.com/dalemusser/campusboard/internal/app/store/tokens"
	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/indexes"
	"github.com/dalemusser/campusboard/internal/app/system/mailer"
	"github.com/dalemusser/campusboard/internal/app/system/ratelimit"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/dalemusser/campusboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// captureNotifier records the last code sent to each address.
type captureNotifier struct {
	mu    sync.Mutex
	codes map[string]mailer.CodeMessage
}

func (n *captureNotifier) SendCode(_ context.Context, msg mailer.CodeMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = make(map[string]mailer.CodeMessage)
	}
	n.codes[msg.To] = msg
	return nil
}

func (n *captureNotifier) last(t *testing.T, to string) mailer.CodeMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	msg, ok := n.codes[to]
	require.True(t, ok, "no code sent to %s", to)
	return msg
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type env struct {
	db       *mongo.Database
	v        *credentials.Verifier
	notifier *captureNotifier
	clock    *clock
	limiter  *ratelimit.LoginLimiter
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db))

	clk := &clock{t: time.Now().UTC()}
	otps := otpstore.New(db, 5*time.Minute, 5)
	otps.SetClock(clk.Now)

	limiter := ratelimit.NewLoginLimiter(zap.NewNop())
	t.Cleanup(limiter.Close)

	n := &captureNotifier{}
	v := credentials.New(credentials.Deps{
		Users:    userstore.New(db),
		OTPs:     otps,
		Tokens:   tokenstore.New(db),
		Hasher:   credentials.BcryptHasher{Cost: bcrypt.MinCost},
		Notifier: n,
		Limiter:  limiter,
		Audit:    auditlog.New(nil, zap.NewNop(), auditlog.Config{}),
		Log:      zap.NewNop(),
	})
	v.SetClock(clk.Now)
	return env{db: db, v: v, notifier: n, clock: clk, limiter: limiter}
}

func TestRegister(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := e.v.Register(ctx, "  Alice ", "Alice@Campus.test", "long enough pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Username)
	assert.Equal(t, "alice@campus.test", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.MFAEnabled, "self-registered accounts use MFA")
	assert.NotEqual(t, "long enough pw", u.PasswordHash)

	_, err = e.v.Register(ctx, "alice", "other@campus.test", "long enough pw")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestRegister_InvalidInput(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cases := []struct {
		name, username, email, password string
	}{
		{"short username", "al", "al@campus.test", "long enough pw"},
		{"bad email", "alice", "not-an-email", "long enough pw"},
		{"short password", "alice", "alice@campus.test", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.v.Register(ctx, tc.username, tc.email, tc.password)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
		})
	}
}

func TestRegistrationWithCode(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	require.NoError(t, e.v.BeginRegistration(ctx, "bob", "bob@campus.test", "long enough pw"))

	// nothing exists until the code is confirmed
	_, err := userstore.New(e.db).GetByUsername(ctx, "bob")
	require.ErrorIs(t, err, mongo.ErrNoDocuments)

	msg := e.notifier.last(t, "bob@campus.test")
	assert.Equal(t, models.OTPRegister, msg.Purpose)
	assert.Len(t, msg.Code, 6)

	_, err = e.v.CompleteRegistration(ctx, "bob@campus.test", wrongCode(msg.Code))
	assert.ErrorIs(t, err, apperr.ErrInvalidOTP)

	u, err := e.v.CompleteRegistration(ctx, "BOB@campus.test", msg.Code)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.True(t, u.MFAEnabled)

	// single use
	_, err = e.v.CompleteRegistration(ctx, "bob@campus.test", msg.Code)
	assert.ErrorIs(t, err, apperr.ErrInvalidOTP)
}

func TestBeginRegistration_Taken(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, e.db).CreateMember(ctx, "carol")
	err := e.v.BeginRegistration(ctx, "Carol", "new@campus.test", "long enough pw")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestLogin_WithoutMFA(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.NewFixtures(t, e.db).CreateAdmin(ctx, "root")

	res, err := e.v.BeginLogin(ctx, "root", testutil.FixturePassword)
	require.NoError(t, err)
	assert.Equal(t, credentials.StatusAuthenticated, res.Status)
	require.NotEmpty(t, res.Token)
	assert.Equal(t, e.clock.Now().Add(credentials.DefaultTokenTTL), res.ExpiresAt)

	id, err := e.v.VerifyToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, id.UserID)
	assert.True(t, id.IsSystemAdmin())
}

func TestLogin_WithMFA(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := testutil.NewFixtures(t, e.db).CreateMember(ctx, "dana")

	res, err := e.v.BeginLogin(ctx, "DANA", testutil.FixturePassword)
	require.NoError(t, err)
	assert.Equal(t, credentials.StatusMFARequired, res.Status)
	assert.Empty(t, res.Token)

	msg := e.notifier.last(t, member.Email)
	assert.Equal(t, models.OTPLoginMFA, msg.Purpose)

	_, err = e.v.CompleteLogin(ctx, "dana", wrongCode(msg.Code))
	assert.ErrorIs(t, err, apperr.ErrInvalidOTP)

	res, err = e.v.CompleteLogin(ctx, "dana", msg.Code)
	require.NoError(t, err)
	assert.Equal(t, credentials.StatusAuthenticated, res.Status)
	require.NotNil(t, res.User)
	assert.Equal(t, member.ID, res.User.ID)

	_, err = e.v.CompleteLogin(ctx, "dana", msg.Code)
	assert.ErrorIs(t, err, apperr.ErrInvalidOTP, "code is single use")
}

func TestCompleteLogin_ExpiredCode(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := testutil.NewFixtures(t, e.db).CreateMember(ctx, "erin")
	_, err := e.v.BeginLogin(ctx, "erin", testutil.FixturePassword)
	require.NoError(t, err)
	code := e.notifier.last(t, member.Email).Code

	e.clock.Advance(5 * time.Minute)
	_, err = e.v.CompleteLogin(ctx, "erin", code)
	assert.ErrorIs(t, err, apperr.ErrOTPExpired)
}

func TestCompleteLogin_TooManyAttempts(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := testutil.NewFixtures(t, e.db).CreateMember(ctx, "finn")
	_, err := e.v.BeginLogin(ctx, "finn", testutil.FixturePassword)
	require.NoError(t, err)
	code := e.notifier.last(t, member.Email).Code

	for i := 0; i < otpstore.DefaultMaxAttempts; i++ {
		_, err := e.v.CompleteLogin(ctx, "finn", wrongCode(code))
		require.ErrorIs(t, err, apperr.ErrInvalidOTP)
	}
	_, err = e.v.CompleteLogin(ctx, "finn", code)
	assert.ErrorIs(t, err, apperr.ErrTooManyAttempts)
}

func TestCompleteLogin_ConcurrentSingleToken(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := testutil.NewFixtures(t, e.db).CreateMember(ctx, "gail")
	_, err := e.v.BeginLogin(ctx, "gail", testutil.FixturePassword)
	require.NoError(t, err)
	code := e.notifier.last(t, member.Email).Code

	const n = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.v.CompleteLogin(ctx, "gail", code)
			if err == nil && res.Token != "" {
				mu.Lock()
				tokens++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, tokens)
}

func TestBeginLogin_Failures(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, e.db).CreateMember(ctx, "hank")

	_, err := e.v.BeginLogin(ctx, "hank", "wrong password")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = e.v.BeginLogin(ctx, "nobody", "wrong password")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials, "unknown users look like wrong passwords")
}

func TestBeginLogin_RateLimited(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	testutil.NewFixtures(t, e.db).CreateAdmin(ctx, "ivan")
	ctx = auditlog.WithMeta(ctx, auditlog.Meta{IP: "198.51.100.7"})

	for i := 0; i < ratelimit.DefaultUserLimit; i++ {
		_, err := e.v.BeginLogin(ctx, "ivan", "wrong password")
		require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	}
	_, err := e.v.BeginLogin(ctx, "ivan", testutil.FixturePassword)
	require.Error(t, err)
	assert.Equal(t, apperr.RateLimited, apperr.KindOf(err))
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
}

func TestVerifyToken(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.NewFixtures(t, e.db).CreateAdmin(ctx, "jo")
	tok, exp, err := e.v.IssueToken(ctx, admin)
	require.NoError(t, err)

	for _, bad := range []string{"", "not-a-token", tok + "x"} {
		_, err := e.v.VerifyToken(ctx, bad)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated, "token %q", bad)
	}

	e.clock.Set(exp.Add(-time.Second))
	_, err = e.v.VerifyToken(ctx, tok)
	require.NoError(t, err)

	e.clock.Advance(time.Second)
	_, err = e.v.VerifyToken(ctx, tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated, "expired at ExpiresAt")
}

func TestVerifyToken_SeesRoleChanges(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := testutil.NewFixtures(t, e.db).CreateMember(ctx, "kim")
	tok, _, err := e.v.IssueToken(ctx, u)
	require.NoError(t, err)

	require.NoError(t, userstore.New(e.db).SetRole(ctx, u.ID, models.RoleAdmin))
	id, err := e.v.VerifyToken(ctx, tok)
	require.NoError(t, err)
	assert.True(t, id.IsSystemAdmin())
}

func TestLogout(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := testutil.NewFixtures(t, e.db).CreateAdmin(ctx, "lee")
	tok, _, err := e.v.IssueToken(ctx, u)
	require.NoError(t, err)

	require.NoError(t, e.v.Logout(ctx, tok))
	_, err = e.v.VerifyToken(ctx, tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.NoError(t, e.v.Logout(ctx, tok), "second logout is a no-op")
	assert.NoError(t, e.v.Logout(ctx, "garbage"))
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, created, err := e.v.EnsureBootstrapAdmin(ctx, "admin", "admin@campus.test", "long enough pw")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.False(t, u.MFAEnabled)

	_, created, err = e.v.EnsureBootstrapAdmin(ctx, "admin", "admin@campus.test", "long enough pw")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := e.v.BeginLogin(ctx, "admin", "long enough pw")
	require.NoError(t, err)
	assert.Equal(t, credentials.StatusAuthenticated, res.Status)
}

func TestEnsureBootstrapAdmin_PromotesExisting(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := testutil.NewFixtures(t, e.db).CreateMember(ctx, "mo")
	tokens := tokenstore.New(e.db)
	now := time.Now().UTC()
	_, err := tokens.Create(ctx, "member-bearer", member.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	u, created, err := e.v.EnsureBootstrapAdmin(ctx, "mo", member.Email, "ignored password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.RoleAdmin, u.Role)

	// sessions from before the promotion are gone
	_, err = tokens.Lookup(ctx, "member-bearer")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	// an account that is already admin keeps its sessions
	_, err = tokens.Create(ctx, "admin-bearer", member.ID, now, now.Add(time.Hour))
	require.NoError(t, err)
	_, _, err = e.v.EnsureBootstrapAdmin(ctx, "mo", member.Email, "ignored password")
	require.NoError(t, err)
	_, err = tokens.Lookup(ctx, "admin-bearer")
	assert.NoError(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := credentials.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("secret password")
	require.NoError(t, err)
	assert.True(t, h.Compare(hash, "secret password"))
	assert.False(t, h.Compare(hash, "other password"))
	assert.False(t, h.Compare("not a hash", "secret password"))
}

// wrongCode returns a 6-digit code guaranteed to differ from code.
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
