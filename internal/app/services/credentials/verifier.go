// Package credentials verifies who a caller is: registration, the password
// plus one-time-code login state machine, and opaque bearer tokens.
//
// Login moves CREDENTIALS_SUBMITTED -> AUTHENTICATED for accounts without
// MFA, or CREDENTIALS_SUBMITTED -> MFA_PENDING -> AUTHENTICATED. A failure
// never advances the state; the only durable trace of a failed code is the
// challenge's attempt counter.
package credentials

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/campusboard/internal/app/store/otp"
	"github.com/dalemusser/campusboard/internal/app/store/tokens"
	"github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/auth"
	"github.com/dalemusser/campusboard/internal/app/system/inputval"
	"github.com/dalemusser/campusboard/internal/app/system/mailer"
	"github.com/dalemusser/campusboard/internal/app/system/normalize"
	"github.com/dalemusser/campusboard/internal/app/system/ratelimit"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultTokenTTL is the absolute lifetime of a bearer token.
const DefaultTokenTTL = 24 * time.Hour

// tokenBytes is the entropy of a bearer token before encoding.
const tokenBytes = 32

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

// LoginStatus is the outcome of a login step.
type LoginStatus string

const (
	StatusAuthenticated LoginStatus = "AUTHENTICATED"
	StatusMFARequired   LoginStatus = "MFA_REQUIRED"
)

// LoginResult is returned by BeginLogin and CompleteLogin.
// Token and User are set only when Status is AUTHENTICATED.
type LoginResult struct {
	Status    LoginStatus
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Deps are the Verifier's collaborators.
type Deps struct {
	Users    *userstore.Store
	OTPs     *otpstore.Store
	Tokens   *tokenstore.Store
	Hasher   Hasher
	Notifier mailer.Notifier
	Limiter  *ratelimit.LoginLimiter // optional
	Audit    *auditlog.Logger        // optional
	Log      *zap.Logger
	TokenTTL time.Duration
}

// Verifier implements registration, login and token checks.
type Verifier struct {
	users    *userstore.Store
	otps     *otpstore.Store
	tokens   *tokenstore.Store
	hasher   Hasher
	notifier mailer.Notifier
	limiter  *ratelimit.LoginLimiter
	audit    *auditlog.Logger
	log      *zap.Logger
	tokenTTL time.Duration
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// New constructs a Verifier.
func New(d Deps) *Verifier {
	if d.Hasher == nil {
		d.Hasher = BcryptHasher{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = mailer.LogNotifier{Log: d.Log}
	}
	if d.TokenTTL <= 0 {
		d.TokenTTL = DefaultTokenTTL
	}
	return &Verifier{
		users:    d.Users,
		otps:     d.OTPs,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		notifier: d.Notifier,
		limiter:  d.Limiter,
		audit:    d.Audit,
		log:      d.Log,
		tokenTTL: d.TokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for token expiry. For tests.
func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
}

/*─────────────────────────────────────────────────────────────────────────────*
| Registration                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func checkRegistration(username, email, password string) error {
	switch {
	case !inputval.IsValidUsername(username):
		return apperr.Invalid("username must be 3 to 32 letters, digits, dots, dashes or underscores")
	case !inputval.IsValidEmail(email):
		return apperr.Invalid("a valid email address is required")
	case len(password) < minPasswordLen:
		return apperr.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	case len(password) > maxPasswordLen:
		return apperr.Invalid(fmt.Sprintf("password must be at most %d bytes", maxPasswordLen))
	}
	return nil
}

// Register creates an account immediately. New accounts always have MFA on.
// Returns apperr.ErrAlreadyExists if the username or email is taken.
func (v *Verifier) Register(ctx context.Context, username, email, password string) (models.User, error) {
	username, email = normalize.Username(username), normalize.Email(email)
	if err := checkRegistration(username, email, password); err != nil {
		return models.User{}, err
	}
	hash, err := v.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	return v.createUser(ctx, models.PendingUser{Username: username, Email: email, PasswordHash: hash})
}

// BeginRegistration stages a registration behind a REGISTER code sent to
// email. Nothing is created until CompleteRegistration succeeds.
func (v *Verifier) BeginRegistration(ctx context.Context, username, email, password string) error {
	username, email = normalize.Username(username), normalize.Email(email)
	if err := checkRegistration(username, email, password); err != nil {
		return err
	}
	taken, err := v.users.Taken(ctx, username, email)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if taken {
		return apperr.ErrAlreadyExists
	}

	hash, err := v.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	pending := &models.PendingUser{Username: username, Email: email, PasswordHash: hash}
	code, _, err := v.otps.Issue(ctx, text.Fold(email), models.OTPRegister, pending)
	if err != nil {
		return fmt.Errorf("issue registration code: %w", err)
	}
	if err := v.notifier.SendCode(ctx, mailer.CodeMessage{
		To:        email,
		Username:  username,
		Purpose:   models.OTPRegister,
		Code:      code,
		ExpiresIn: v.otps.Expiry(),
	}); err != nil {
		return fmt.Errorf("deliver registration code: %w", err)
	}
	v.audit.RegistrationCodeSent(ctx, email)
	return nil
}

// CompleteRegistration consumes the REGISTER code for email and creates the
// staged account.
func (v *Verifier) CompleteRegistration(ctx context.Context, email, code string) (models.User, error) {
	email = normalize.Email(email)
	subject := text.Fold(email)
	ch, err := v.otps.Consume(ctx, subject, models.OTPRegister, code)
	if err != nil {
		v.codeFailed(ctx, subject, models.OTPRegister, err)
		return models.User{}, err
	}
	if ch.PendingUser == nil {
		return models.User{}, apperr.ErrInvalidOTP
	}
	return v.createUser(ctx, *ch.PendingUser)
}

func (v *Verifier) createUser(ctx context.Context, p models.PendingUser) (models.User, error) {
	u, err := v.users.Create(ctx, models.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         models.RoleUser,
		MFAEnabled:   true,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	v.log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))
	v.audit.Registered(ctx, u.ID, u.Username)
	return u, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// compareDummy burns a bcrypt comparison so unknown usernames take as long
// as wrong passwords.
func (v *Verifier) compareDummy(password string) {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = v.hasher.Hash("campusboard-timing-equalizer")
	})
	_ = v.hasher.Compare(v.dummyHash, password)
}

// BeginLogin checks a username and password. Accounts without MFA are
// authenticated at once; others get a LOGIN_MFA code and MFA_REQUIRED.
func (v *Verifier) BeginLogin(ctx context.Context, username, password string) (LoginResult, error) {
	username = normalize.Username(username)

	if v.limiter != nil {
		if ok, limit := v.limiter.Check(ctx, auditlog.MetaFrom(ctx).IP, username); !ok {
			v.audit.LoginFailedRateLimit(ctx, username, limit)
			return LoginResult{}, apperr.Wrap(apperr.RateLimited, apperr.ErrRateLimited.Code, ratelimit.Message(limit), nil)
		}
	}

	u, err := v.users.GetByUsername(ctx, username)
	if errors.Is(err, mongo.ErrNoDocuments) {
		v.compareDummy(password)
		v.audit.LoginFailedUserNotFound(ctx, username)
		return LoginResult{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !v.hasher.Compare(u.PasswordHash, password) {
		v.audit.LoginFailedWrongPassword(ctx, u.ID, u.Username)
		return LoginResult{}, apperr.ErrInvalidCredentials
	}

	if v.limiter != nil {
		v.limiter.ResetUser(ctx, username)
	}

	if !u.MFAEnabled {
		return v.authenticate(ctx, u, false)
	}

	code, _, err := v.otps.Issue(ctx, u.UsernameCI, models.OTPLoginMFA, nil)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue login code: %w", err)
	}
	if err := v.notifier.SendCode(ctx, mailer.CodeMessage{
		To:        u.Email,
		Username:  u.Username,
		Purpose:   models.OTPLoginMFA,
		Code:      code,
		ExpiresIn: v.otps.Expiry(),
	}); err != nil {
		return LoginResult{}, fmt.Errorf("deliver login code: %w", err)
	}
	v.audit.LoginMFARequired(ctx, u.ID, u.Username)
	return LoginResult{Status: StatusMFARequired}, nil
}

// CompleteLogin consumes the LOGIN_MFA code for username and issues a token.
// Concurrent submissions of the same correct code yield exactly one token.
func (v *Verifier) CompleteLogin(ctx context.Context, username, code string) (LoginResult, error) {
	username = normalize.Username(username)
	subject := text.Fold(username)

	if _, err := v.otps.Consume(ctx, subject, models.OTPLoginMFA, code); err != nil {
		v.codeFailed(ctx, subject, models.OTPLoginMFA, err)
		return LoginResult{}, err
	}

	u, err := v.users.GetByUsername(ctx, username)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return LoginResult{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	return v.authenticate(ctx, u, true)
}

func (v *Verifier) authenticate(ctx context.Context, u *models.User, mfa bool) (LoginResult, error) {
	tok, exp, err := v.IssueToken(ctx, *u)
	if err != nil {
		return LoginResult{}, err
	}
	v.audit.LoginSuccess(ctx, u.ID, u.Username, mfa)
	return LoginResult{Status: StatusAuthenticated, Token: tok, ExpiresAt: exp, User: u}, nil
}

func (v *Verifier) codeFailed(ctx context.Context, subject string, purpose models.OTPPurpose, err error) {
	reason := "error"
	if ae, ok := apperr.As(err); ok {
		reason = ae.Code
	}
	v.audit.VerificationCodeFailed(ctx, subject, string(purpose), reason)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Tokens                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// IssueToken creates a bearer token for u. The raw value is returned once;
// only its digest is stored.
func (v *Verifier) IssueToken(ctx context.Context, u models.User) (string, time.Time, error) {
	key := securecookie.GenerateRandomKey(tokenBytes)
	if key == nil {
		return "", time.Time{}, errors.New("token entropy unavailable")
	}
	raw := base64.RawURLEncoding.EncodeToString(key)

	now := v.now()
	exp := now.Add(v.tokenTTL)
	if _, err := v.tokens.Create(ctx, raw, u.ID, now, exp); err != nil {
		return "", time.Time{}, fmt.Errorf("store token: %w", err)
	}
	return raw, exp, nil
}

// wellFormed reports whether raw could have come from IssueToken.
func wellFormed(raw string) bool {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	return err == nil && len(b) == tokenBytes
}

// VerifyToken resolves a bearer token to the current state of its user.
// Missing, malformed, unknown, revoked or expired tokens all return
// apperr.ErrUnauthenticated.
func (v *Verifier) VerifyToken(ctx context.Context, raw string) (*auth.Identity, error) {
	if !wellFormed(raw) {
		return nil, apperr.ErrUnauthenticated
	}
	t, err := v.tokens.Lookup(ctx, raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if !v.now().Before(t.ExpiresAt) {
		return nil, apperr.ErrUnauthenticated
	}

	u, err := v.users.GetByID(ctx, t.UserID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &auth.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}, nil
}

// Logout revokes a token. Revoking an unknown token is not an error.
func (v *Verifier) Logout(ctx context.Context, raw string) error {
	if !wellFormed(raw) {
		return nil
	}
	t, err := v.tokens.Lookup(ctx, raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}
	if err := v.tokens.Delete(ctx, raw); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	v.audit.Logout(ctx, t.UserID)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Bootstrap                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// EnsureBootstrapAdmin makes sure the configured admin account exists and
// holds the admin role. It is created with MFA off so the first sign-in
// needs no mail delivery. created reports whether a new account was made.
// Promoting an existing account revokes its outstanding tokens.
func (v *Verifier) EnsureBootstrapAdmin(ctx context.Context, username, email, password string) (u models.User, created bool, err error) {
	username, email = normalize.Username(username), normalize.Email(email)

	existing, err := v.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			if err := v.users.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return models.User{}, false, fmt.Errorf("promote bootstrap admin: %w", err)
			}
			n, err := v.tokens.DeleteByUser(ctx, existing.ID)
			if err != nil {
				return models.User{}, false, fmt.Errorf("revoke tokens of promoted admin: %w", err)
			}
			v.log.Info("bootstrap admin promoted",
				zap.String("user_id", existing.ID.Hex()), zap.Int64("tokens_revoked", n))
			existing.Role = models.RoleAdmin
		}
		return *existing, false, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return models.User{}, false, fmt.Errorf("load bootstrap admin: %w", err)
	}

	if err := checkRegistration(username, email, password); err != nil {
		return models.User{}, false, err
	}
	hash, err := v.hasher.Hash(password)
	if err != nil {
		return models.User{}, false, fmt.Errorf("hash password: %w", err)
	}
	u, err = v.users.Create(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		MFAEnabled:   false,
	})
	if err != nil {
		return models.User{}, false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return u, true, nil
}
