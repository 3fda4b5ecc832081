package ratelimit

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Limit types reported when an attempt is refused.
const (
	LimitIP   = "ip"
	LimitUser = "user"
)

// Default login limits.
const (
	DefaultIPLimit    = 10
	DefaultIPWindow   = time.Minute
	DefaultUserLimit  = 5
	DefaultUserWindow = 5 * time.Minute
)

// LoginLimiter provides specialized rate limiting for login attempts.
// It tracks both IP-based and username-based limits to prevent:
// - Distributed attacks from multiple IPs
// - Targeted attacks on specific accounts
//
// Backend errors fail open and are logged; an unavailable Redis must not
// lock everyone out.
type LoginLimiter struct {
	ip   Counter
	user Counter
	log  *zap.Logger
}

// NewLoginLimiter creates an in-memory limiter with the default limits.
func NewLoginLimiter(log *zap.Logger) *LoginLimiter {
	return NewLoginLimiterWithCounters(
		New(DefaultIPLimit, DefaultIPWindow),
		New(DefaultUserLimit, DefaultUserWindow),
		log,
	)
}

// NewLoginLimiterWithCounters builds a limiter over caller-provided counters,
// e.g. two RedisLimiters.
func NewLoginLimiterWithCounters(ip, user Counter, log *zap.Logger) *LoginLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginLimiter{ip: ip, user: user, log: log}
}

// Close stops any in-process counters. Shared backends are left to their owner.
func (ll *LoginLimiter) Close() {
	for _, c := range []Counter{ll.ip, ll.user} {
		if cl, ok := c.(interface{ Close() }); ok {
			cl.Close()
		}
	}
}

func userKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Check records an attempt and reports whether it may proceed. When it may
// not, the second value is LimitIP or LimitUser.
func (ll *LoginLimiter) Check(ctx context.Context, ip, username string) (bool, string) {
	if ip != "" {
		ok, err := ll.ip.Hit(ctx, ip)
		if err != nil {
			ll.log.Warn("login limiter unavailable", zap.String("limit", LimitIP), zap.Error(err))
		} else if !ok {
			return false, LimitIP
		}
	}

	if key := userKey(username); key != "" {
		ok, err := ll.user.Hit(ctx, key)
		if err != nil {
			ll.log.Warn("login limiter unavailable", zap.String("limit", LimitUser), zap.Error(err))
		} else if !ok {
			return false, LimitUser
		}
	}

	return true, ""
}

// ResetUser clears the per-account counter after a successful login.
func (ll *LoginLimiter) ResetUser(ctx context.Context, username string) {
	key := userKey(username)
	if key == "" {
		return
	}
	if err := ll.user.Clear(ctx, key); err != nil {
		ll.log.Warn("login limiter reset failed", zap.Error(err))
	}
}

// Message returns the user-facing text for a refused attempt.
func Message(limitType string) string {
	if limitType == LimitUser {
		return "Too many login attempts for this account. Please wait a few minutes."
	}
	return "Too many login attempts. Please wait a minute before trying again."
}
