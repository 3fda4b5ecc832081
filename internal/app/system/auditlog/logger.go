// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/campusboard/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
//
// Each field takes one of:
//
//	"all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
type Config struct {
	// Auth covers registration, login, MFA and logout events.
	Auth string
	// Group covers group creation, edits, membership changes and posts.
	Group string
	// Request covers request submission and review.
	Request string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
//
// Request metadata (IP, user agent, correlation id) is read from the
// context, where Middleware puts it, so services can record events
// without seeing the *http.Request.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) setting(category string) string {
	switch category {
	case audit.CategoryAuth, audit.CategorySecurity:
		return l.config.Auth
	case audit.CategoryGroup:
		return l.config.Group
	case audit.CategoryRequest:
		return l.config.Request
	default:
		return "all"
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", event.CorrelationID))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.RequestID != nil {
		fields = append(fields, zap.String("campus_request_id", event.RequestID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == "off" {
		return
	}

	meta := MetaFrom(ctx)
	if event.IP == "" {
		event.IP = meta.IP
	}
	if event.UserAgent == "" {
		event.UserAgent = meta.UserAgent
	}
	if event.CorrelationID == "" {
		event.CorrelationID = meta.CorrelationID
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if l.store == nil {
			return
		}
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// Registered logs a completed registration.
func (l *Logger) Registered(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"username": username},
	})
}

// RegistrationCodeSent logs that a registration code was delivered.
func (l *Logger) RegistrationCodeSent(ctx context.Context, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistrationCodeSent,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginSuccess logs a completed login (token issued).
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, username string, mfa bool) {
	method := "password"
	if mfa {
		method = "password+otp"
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details: map[string]string{
			"username":    username,
			"auth_method": method,
		},
	})
}

// LoginMFARequired logs that a password check passed and a code was sent.
func (l *Logger) LoginMFARequired(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginMFARequired,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"username": username},
	})
}

// LoginFailedUserNotFound logs a failed login due to user not found.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, attemptedUsername string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		Success:       false,
		FailureReason: "user not found",
		Details: map[string]string{
			"attempted_username": attemptedUsername,
		},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"username": username},
	})
}

// LoginFailedRateLimit logs a login attempt rejected by the limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, username, limitType string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		Success:       false,
		FailureReason: "rate limit exceeded",
		Details: map[string]string{
			"username":   username,
			"limit_type": limitType,
		},
	})
}

// VerificationCodeFailed logs a rejected OTP. reason is the error code,
// never the submitted value.
func (l *Logger) VerificationCodeFailed(ctx context.Context, subject, purpose, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventVerificationCodeFailed,
		Success:       false,
		FailureReason: reason,
		Details: map[string]string{
			"subject": subject,
			"purpose": purpose,
		},
	})
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    &userID,
		Success:   true,
	})
}

// --- Group Events ---

// GroupCreated logs a new group. requestID is set when the group came from
// an approved CREATE_GROUP request.
func (l *Logger) GroupCreated(ctx context.Context, actorID, groupID primitive.ObjectID, requestID *primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: audit.EventGroupCreated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		RequestID: requestID,
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// GroupUpdated logs an edit to a group's name, description or modes.
func (l *Logger) GroupUpdated(ctx context.Context, actorID, groupID primitive.ObjectID, fields string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: audit.EventGroupUpdated,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"fields": fields},
	})
}

// MemberJoined logs an immediate join to an OPEN group.
func (l *Logger) MemberJoined(ctx context.Context, userID, groupID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: audit.EventMemberJoined,
		UserID:    &userID,
		ActorID:   &userID,
		GroupID:   &groupID,
		Success:   true,
	})
}

// MemberLevelGranted logs a membership created or raised by an approval.
func (l *Logger) MemberLevelGranted(ctx context.Context, actorID, userID, groupID primitive.ObjectID, level string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: audit.EventMemberLevelGranted,
		UserID:    &userID,
		ActorID:   &actorID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"level": level},
	})
}

// PostCreated logs a post published into a group.
func (l *Logger) PostCreated(ctx context.Context, authorID, groupID, postID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: audit.EventPostCreated,
		ActorID:   &authorID,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"post_id": postID.Hex()},
	})
}

// --- Request Events ---

// RequestSubmitted logs a new pending request. groupID is nil for CREATE_GROUP.
func (l *Logger) RequestSubmitted(ctx context.Context, requesterID, requestID primitive.ObjectID, groupID *primitive.ObjectID, reqType string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRequest,
		EventType: audit.EventRequestSubmitted,
		UserID:    &requesterID,
		ActorID:   &requesterID,
		GroupID:   groupID,
		RequestID: &requestID,
		Success:   true,
		Details:   map[string]string{"type": reqType},
	})
}

// RequestReviewed logs an approval or rejection.
func (l *Logger) RequestReviewed(ctx context.Context, reviewerID, requesterID, requestID primitive.ObjectID, groupID *primitive.ObjectID, reqType string, approved bool, level string) {
	eventType := audit.EventRequestRejected
	details := map[string]string{"type": reqType}
	if approved {
		eventType = audit.EventRequestApproved
		if level != "" {
			details["granted_level"] = level
		}
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRequest,
		EventType: eventType,
		UserID:    &requesterID,
		ActorID:   &reviewerID,
		GroupID:   groupID,
		RequestID: &requestID,
		Success:   true,
		Details:   details,
	})
}
