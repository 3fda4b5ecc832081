// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/campusboard/internal/app/services/credentials"
	otpstore "github.com/dalemusser/campusboard/internal/app/store/otp"
	"github.com/dalemusser/campusboard/internal/app/system/inputval"
	"github.com/dalemusser/campusboard/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// appConfigKeys defines the configuration keys for campusboard.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, token_ttl, etc.
//   - Environment variables: CAMPUSBOARD_MONGO_URI, CAMPUSBOARD_TOKEN_TTL, etc.
//   - Command-line flags: --mongo_uri, --token_ttl, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "campusboard", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Redis (optional)
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared login limits (blank = in-memory)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Credentials
	{Name: "token_ttl", Default: "24h", Desc: "Bearer token lifetime (e.g., 24h, 90m)"},
	{Name: "otp_ttl", Default: "5m", Desc: "Verification code lifetime"},
	{Name: "otp_max_attempts", Default: otpstore.DefaultMaxAttempts, Desc: "Wrong guesses allowed per verification code"},
	{Name: "registration_otp", Default: true, Desc: "Require an emailed code to finish registration"},
	{Name: "bcrypt_cost", Default: 0, Desc: "bcrypt cost (0 = library default)"},
	{Name: "sweep_interval", Default: "15m", Desc: "How often expired tokens and codes are purged (0 = rely on TTL indexes)"},

	// Login limiter
	{Name: "login_ip_limit", Default: ratelimit.DefaultIPLimit, Desc: "Login attempts per IP per minute"},
	{Name: "login_user_limit", Default: ratelimit.DefaultUserLimit, Desc: "Login attempts per account per 5 minutes"},

	// Bootstrap admin
	{Name: "bootstrap_admin_username", Default: "", Desc: "Username of the system admin created or promoted on startup"},
	{Name: "bootstrap_admin_email", Default: "", Desc: "Email for a newly created bootstrap admin"},
	{Name: "bootstrap_admin_password", Default: "", Desc: "Password for a newly created bootstrap admin"},

	// Code delivery
	{Name: "notifier", Default: "log", Desc: "Verification code delivery: 'log' or 'smtp'"},
	{Name: "site_name", Default: "Campus Board", Desc: "Name used in outgoing email"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@campusboard.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Campus Board", Desc: "From display name"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_group", Default: "all", Desc: "Group event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_request", Default: "all", Desc: "Request event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Handler timeouts
	{Name: "timeout_ping", Default: "", Desc: "Health check timeout (blank = default)"},
	{Name: "timeout_short", Default: "", Desc: "Single-document operation timeout (blank = default)"},
	{Name: "timeout_medium", Default: "", Desc: "List/write operation timeout (blank = default)"},
	{Name: "timeout_long", Default: "", Desc: "Transaction/review timeout (blank = default)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CAMPUSBOARD_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAMPUSBOARD", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Redis
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		// Credentials
		TokenTTL:        appValues.Duration("token_ttl", credentials.DefaultTokenTTL),
		OTPTTL:          appValues.Duration("otp_ttl", otpstore.DefaultExpiry),
		OTPMaxAttempts:  appValues.Int("otp_max_attempts"),
		RegistrationOTP: appValues.Bool("registration_otp"),
		BcryptCost:      appValues.Int("bcrypt_cost"),
		SweepInterval:   appValues.Duration("sweep_interval", 15*time.Minute),

		// Login limiter
		LoginIPLimit:   appValues.Int("login_ip_limit"),
		LoginUserLimit: appValues.Int("login_user_limit"),

		// Bootstrap admin
		BootstrapAdminUsername: appValues.String("bootstrap_admin_username"),
		BootstrapAdminEmail:    appValues.String("bootstrap_admin_email"),
		BootstrapAdminPassword: appValues.String("bootstrap_admin_password"),

		// Code delivery
		Notifier: appValues.String("notifier"),
		SiteName: appValues.String("site_name"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		// Audit logging
		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogGroup:   appValues.String("audit_log_group"),
		AuditLogRequest: appValues.String("audit_log_request"),

		// Timeouts
		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Misconfiguration is caught here, before any backend is dialed.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}

	if appCfg.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", appCfg.TokenTTL)
	}
	if appCfg.OTPTTL <= 0 {
		return fmt.Errorf("otp_ttl must be positive, got %s", appCfg.OTPTTL)
	}
	if appCfg.OTPMaxAttempts <= 0 {
		return fmt.Errorf("otp_max_attempts must be positive, got %d", appCfg.OTPMaxAttempts)
	}
	if appCfg.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must not be negative, got %s", appCfg.SweepInterval)
	}
	if appCfg.LoginIPLimit <= 0 || appCfg.LoginUserLimit <= 0 {
		return fmt.Errorf("login_ip_limit and login_user_limit must be positive")
	}
	if appCfg.BcryptCost != 0 && (appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch appCfg.Notifier {
	case "log":
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("notifier is 'log': verification codes will be written to the log")
		}
	case "smtp":
		if appCfg.MailSMTPHost == "" || appCfg.MailFrom == "" {
			return fmt.Errorf("notifier 'smtp' requires mail_smtp_host and mail_from")
		}
	default:
		return fmt.Errorf("notifier must be 'log' or 'smtp', got %q", appCfg.Notifier)
	}

	for key, v := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_group":   appCfg.AuditLogGroup,
		"audit_log_request": appCfg.AuditLogRequest,
	} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be 'all', 'db', 'log' or 'off', got %q", key, v)
		}
	}

	if u := appCfg.BootstrapAdminUsername; u != "" {
		if !inputval.IsValidUsername(u) {
			return fmt.Errorf("bootstrap_admin_username %q is not a valid username", u)
		}
		if appCfg.BootstrapAdminEmail != "" && !inputval.IsValidEmail(appCfg.BootstrapAdminEmail) {
			return fmt.Errorf("bootstrap_admin_email %q is not a valid email", appCfg.BootstrapAdminEmail)
		}
	}

	return nil
}
