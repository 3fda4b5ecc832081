// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies the configured handler timeouts and makes sure the bootstrap
// system admin exists, so a fresh deployment has someone who can approve
// CREATE_GROUP requests. The credential sweep starts last.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("handler timeouts",
		zap.Duration("ping", cur.Ping),
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long),
	)

	if err := ensureBootstrapAdmin(ctx, appCfg, buildServices(appCfg, deps, logger), logger); err != nil {
		return err
	}
	if deps.Sweep != nil {
		deps.Sweep.Start()
	}
	return nil
}

func ensureBootstrapAdmin(ctx context.Context, appCfg AppConfig, svc appServices, logger *zap.Logger) error {
	if appCfg.BootstrapAdminUsername == "" {
		return nil
	}

	u, created, err := svc.Verifier.EnsureBootstrapAdmin(ctx,
		appCfg.BootstrapAdminUsername, appCfg.BootstrapAdminEmail, appCfg.BootstrapAdminPassword)
	if err != nil {
		logger.Error("bootstrap admin failed", zap.String("username", appCfg.BootstrapAdminUsername), zap.Error(err))
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("created bootstrap admin", zap.String("username", u.Username))
	} else {
		logger.Info("bootstrap admin present", zap.String("username", u.Username))
	}
	return nil
}
