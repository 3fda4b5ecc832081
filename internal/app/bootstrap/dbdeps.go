// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/campusboard/internal/app/system/ratelimit"
	"github.com/dalemusser/campusboard/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Redis is nil when redis_addr is blank, and Sweep is nil when
// sweep_interval is zero. LoginLimiter and Sweep live here rather than in
// the handler graph because they own goroutines that Shutdown must stop.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         redis.UniversalClient
	LoginLimiter  *ratelimit.LoginLimiter
	Sweep         *workers.CredentialSweep
}
