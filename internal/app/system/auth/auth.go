package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Identity                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Identity is the authenticated caller, loaded fresh from storage on every
// request. Nothing the client sends besides the bearer token is trusted.
type Identity struct {
	UserID   primitive.ObjectID
	Username string
	Email    string
	Role     models.SystemRole
}

// IsSystemAdmin reports whether the caller holds the system admin role.
func (i *Identity) IsSystemAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// TokenVerifier resolves a raw bearer token to an Identity.
// Unknown, expired or malformed tokens return an Unauthenticated apperr.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the caller & “found?” flag.
func CurrentUser(r *http.Request) (*Identity, bool) {
	return FromContext(r.Context())
}

// FromContext returns the Identity stored in ctx.
func FromContext(ctx context.Context) (*Identity, bool) {
	u, ok := ctx.Value(currentUserKey).(*Identity)
	return u, ok && u != nil
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, currentUserKey, id)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Gateway authenticates requests by bearer token.
type Gateway struct {
	verifier TokenVerifier
	log      *zap.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(v TokenVerifier, logger *zap.Logger) *Gateway {
	return &Gateway{verifier: v, log: logger}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

// LoadIdentity injects the caller into context when the request carries a
// valid bearer token. Requests without one, or with a token that no longer
// verifies, continue anonymously; RequireSignedIn decides what that means.
// Storage failures answer 500 rather than silently downgrading the caller.
func (g *Gateway) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		id, err := g.verifier.VerifyToken(r.Context(), tok)
		if err != nil {
			if apperr.KindOf(err) == apperr.Unauthenticated {
				next.ServeHTTP(w, r)
				return
			}
			httpjson.WriteErr(w, r, g.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireSignedIn ensures there is a caller in context (set by LoadIdentity).
// If not signed in it answers 401 with a JSON error body.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpjson.Error(w, http.StatusUnauthorized, apperr.ErrUnauthenticated.Code, apperr.ErrUnauthenticated.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSystemAdmin ensures the caller holds the system admin role.
// Anonymous callers get 401; signed-in non-admins get 403.
func RequireSystemAdmin(next http.Handler) http.Handler {
	return RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := CurrentUser(r)
		if !u.IsSystemAdmin() {
			httpjson.Error(w, http.StatusForbidden, apperr.ErrForbidden.Code, apperr.ErrForbidden.Message)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
