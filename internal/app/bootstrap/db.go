// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	otpstore "github.com/dalemusser/campusboard/internal/app/store/otp"
	tokenstore "github.com/dalemusser/campusboard/internal/app/store/tokens"
	"github.com/dalemusser/campusboard/internal/app/system/indexes"
	"github.com/dalemusser/campusboard/internal/app/system/ratelimit"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"github.com/dalemusser/campusboard/internal/app/system/validators"
	"github.com/dalemusser/campusboard/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB dials MongoDB and, when configured, Redis.
//
// Redis only backs the login limiter, so an unreachable Redis is logged
// and the limiter falls back to in-process counters rather than failing
// startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("campusboard")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable; login limits stay in process",
				zap.String("addr", appCfg.RedisAddr), zap.Error(err))
			_ = rdb.Close()
		} else {
			logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
			deps.Redis = rdb
		}
	}

	deps.LoginLimiter = newLoginLimiter(appCfg, deps.Redis, logger)
	deps.Sweep = newCredentialSweep(appCfg, deps.MongoDatabase, logger)
	return deps, nil
}

// newLoginLimiter shares counts through Redis when it is available.
func newLoginLimiter(appCfg AppConfig, rdb redis.UniversalClient, logger *zap.Logger) *ratelimit.LoginLimiter {
	ipLimit, userLimit := appCfg.LoginIPLimit, appCfg.LoginUserLimit
	if ipLimit <= 0 {
		ipLimit = ratelimit.DefaultIPLimit
	}
	if userLimit <= 0 {
		userLimit = ratelimit.DefaultUserLimit
	}

	if rdb != nil {
		return ratelimit.NewLoginLimiterWithCounters(
			ratelimit.NewRedis(rdb, "login_ip", ipLimit, ratelimit.DefaultIPWindow),
			ratelimit.NewRedis(rdb, "login_user", userLimit, ratelimit.DefaultUserWindow),
			logger,
		)
	}
	return ratelimit.NewLoginLimiterWithCounters(
		ratelimit.New(ipLimit, ratelimit.DefaultIPWindow),
		ratelimit.New(userLimit, ratelimit.DefaultUserWindow),
		logger,
	)
}

// newCredentialSweep returns nil when the sweep is disabled.
// Startup starts it; Shutdown stops it.
func newCredentialSweep(appCfg AppConfig, db *mongo.Database, logger *zap.Logger) *workers.CredentialSweep {
	if appCfg.SweepInterval <= 0 {
		return nil
	}
	return workers.NewCredentialSweep(map[string]workers.Expirer{
		"session_tokens": tokenstore.New(db),
		"otp_challenges": otpstore.New(db, appCfg.OTPTTL, appCfg.OTPMaxAttempts),
	}, logger, appCfg.SweepInterval)
}

// EnsureSchema creates collections with their JSON-schema validators and
// then the indexes every store relies on (unique names, the one-pending-
// request rule, TTLs on codes and tokens).
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("schema validators failed", zap.Error(err))
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("schema ensured")
	return nil
}
