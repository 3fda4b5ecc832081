package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/campusboard/internal/domain/models"
	"go.uber.org/zap"
)

// CodeMessage is a one-time code to deliver to a user.
type CodeMessage struct {
	To        string // email address
	Username  string
	Purpose   models.OTPPurpose
	Code      string
	ExpiresIn time.Duration
}

// Notifier delivers one-time codes.
type Notifier interface {
	SendCode(ctx context.Context, msg CodeMessage) error
}

// CodeMailer delivers codes by email.
type CodeMailer struct {
	Mailer   *Mailer
	SiteName string
}

// SendCode implements Notifier.
func (c CodeMailer) SendCode(_ context.Context, msg CodeMessage) error {
	action := "sign in"
	if msg.Purpose == models.OTPRegister {
		action = "finish creating your account"
	}
	e := BuildVerificationEmail(VerificationEmailData{
		SiteName:  c.SiteName,
		Code:      msg.Code,
		Action:    action,
		ExpiresIn: FormatExpiry(msg.ExpiresIn),
	})
	e.To = msg.To
	return c.Mailer.Send(e)
}

// LogNotifier writes codes to the application log instead of sending them.
// It is meant for local development, where the log is the delivery channel.
type LogNotifier struct {
	Log *zap.Logger
}

// SendCode implements Notifier.
func (n LogNotifier) SendCode(_ context.Context, msg CodeMessage) error {
	n.Log.Info("verification code (log notifier)",
		zap.String("to", msg.To),
		zap.String("username", msg.Username),
		zap.String("purpose", string(msg.Purpose)),
		zap.String("code", msg.Code),
		zap.Duration("expires_in", msg.ExpiresIn),
	)
	return nil
}

// FormatExpiry renders d as "5 minutes", "1 hour", "90 seconds".
func FormatExpiry(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
