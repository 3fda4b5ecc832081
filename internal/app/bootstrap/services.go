// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/campusboard/internal/app/services/credentials"
	"github.com/dalemusser/campusboard/internal/app/services/registry"
	"github.com/dalemusser/campusboard/internal/app/services/workflow"
	"github.com/dalemusser/campusboard/internal/app/store/audit"
	groupstore "github.com/dalemusser/campusboard/internal/app/store/groups"
	membershipstore "github.com/dalemusser/campusboard/internal/app/store/memberships"
	otpstore "github.com/dalemusser/campusboard/internal/app/store/otp"
	poststore "github.com/dalemusser/campusboard/internal/app/store/posts"
	requeststore "github.com/dalemusser/campusboard/internal/app/store/requests"
	tokenstore "github.com/dalemusser/campusboard/internal/app/store/tokens"
	userstore "github.com/dalemusser/campusboard/internal/app/store/users"
	"github.com/dalemusser/campusboard/internal/app/system/auditlog"
	"github.com/dalemusser/campusboard/internal/app/system/mailer"
	"github.com/dalemusser/campusboard/internal/app/system/txn"
	"go.uber.org/zap"
)

// appServices is the service graph shared by Startup and BuildHandler.
type appServices struct {
	Users    *userstore.Store
	Groups   *groupstore.Store
	Events   *audit.Store
	Audit    *auditlog.Logger
	Verifier *credentials.Verifier
	Registry *registry.Registry
	Workflow *workflow.Engine
}

func newNotifier(appCfg AppConfig, logger *zap.Logger) mailer.Notifier {
	if appCfg.Notifier != "smtp" {
		return mailer.LogNotifier{Log: logger}
	}
	m := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	return mailer.CodeMailer{Mailer: m, SiteName: appCfg.SiteName}
}

func buildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) appServices {
	db := deps.MongoDatabase

	users := userstore.New(db)
	groups := groupstore.New(db)
	requests := requeststore.New(db)
	events := audit.New(db)

	auditLog := auditlog.New(events, logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Group:   appCfg.AuditLogGroup,
		Request: appCfg.AuditLogRequest,
	})
	tx := txn.New(deps.MongoClient, logger)

	verifier := credentials.New(credentials.Deps{
		Users:    users,
		OTPs:     otpstore.New(db, appCfg.OTPTTL, appCfg.OTPMaxAttempts),
		Tokens:   tokenstore.New(db),
		Hasher:   credentials.BcryptHasher{Cost: appCfg.BcryptCost},
		Notifier: newNotifier(appCfg, logger),
		Limiter:  deps.LoginLimiter,
		Audit:    auditLog,
		Log:      logger,
		TokenTTL: appCfg.TokenTTL,
	})

	reg := registry.New(registry.Deps{
		Groups:      groups,
		Memberships: membershipstore.New(db),
		Posts:       poststore.New(db),
		Txn:         tx,
		Audit:       auditLog,
		Log:         logger,
	})

	wf := workflow.New(workflow.Deps{
		Requests: requests,
		Users:    users,
		Registry: reg,
		Txn:      tx,
		Audit:    auditLog,
		Log:      logger,
	})

	return appServices{
		Users:    users,
		Groups:   groups,
		Events:   events,
		Audit:    auditLog,
		Verifier: verifier,
		Registry: reg,
		Workflow: wf,
	}
}
