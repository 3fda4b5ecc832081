// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries everything specific to campusboard: storage backends,
// credential lifetimes, the login limiter, code delivery and audit settings.
// The struct is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis is optional. Blank RedisAddr keeps login limiting in process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Credentials
	TokenTTL        time.Duration // bearer token lifetime
	OTPTTL          time.Duration // one-time code lifetime
	OTPMaxAttempts  int           // wrong guesses before a code is burned
	RegistrationOTP bool          // POST /auth/register emails a code first
	BcryptCost      int           // 0 means bcrypt.DefaultCost
	SweepInterval   time.Duration // 0 disables the credential sweep

	// Login limiter (per window; see ratelimit.Default*Window)
	LoginIPLimit   int
	LoginUserLimit int

	// Bootstrap system admin, created or promoted at startup when set
	BootstrapAdminUsername string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Code delivery: "log" writes codes to the log, "smtp" emails them
	Notifier string
	SiteName string

	// Email/SMTP configuration (only used when Notifier is "smtp")
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address
	MailFromName string // From display name

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth    string
	AuditLogGroup   string
	AuditLogRequest string

	// Handler timeouts (zero keeps the timeouts package defaults)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
