package auditlog

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/campusboard/internal/app/system/ratelimit"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id in and out of the service.
const RequestIDHeader = "X-Request-ID"

// Meta is the per-request context recorded alongside every audit event.
type Meta struct {
	IP            string
	UserAgent     string
	CorrelationID string
}

type metaKey struct{}

// WithMeta returns a copy of ctx carrying m.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the Meta stored in ctx, or the zero value.
func MetaFrom(ctx context.Context) Meta {
	if m, ok := ctx.Value(metaKey{}).(Meta); ok {
		return m
	}
	return Meta{}
}

// Middleware attaches client IP, user agent and a correlation id to the
// request context. An incoming X-Request-ID is reused when it looks sane;
// otherwise a new UUID is generated. The id is echoed in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := WithMeta(r.Context(), Meta{
			IP:            ratelimit.ClientIP(r),
			UserAgent:     r.UserAgent(),
			CorrelationID: id,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
