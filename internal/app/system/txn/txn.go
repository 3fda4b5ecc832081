// Package txn runs multi-document units of work inside a Mongo transaction
// when the deployment supports it.
//
// Standalone servers reject transactions. In that case Run executes the work
// directly, so callers must order their writes so that a failure part-way
// through can be compensated (claim first, apply, un-claim on error).
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes functions transactionally against one client.
type Runner struct {
	client      *mongo.Client
	log         *zap.Logger
	unsupported atomic.Bool
}

// New returns a Runner. A nil client runs every function without a transaction.
func New(client *mongo.Client, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, log: log}
}

// Run calls fn inside a transaction and commits if fn returns nil.
// The ctx passed to fn carries the session; all store calls must use it.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.client == nil || r.unsupported.Load() {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.markUnsupported(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.markUnsupported(err)
		return fn(ctx)
	}
	return err
}

// Transactional reports whether Run still attempts real transactions.
func (r *Runner) Transactional() bool {
	return r != nil && r.client != nil && !r.unsupported.Load()
}

func (r *Runner) markUnsupported(err error) {
	if r.unsupported.CompareAndSwap(false, true) {
		r.log.Warn("mongo transactions unsupported; using compensating writes", zap.Error(err))
	}
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server, or an operation illegal inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range []int{20, 51, 263} {
			if se.HasErrorCode(code) {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && (has("replica set") || has("session") || has("illegal operation")):
		return true
	case has("session") && has("not supported"):
		return true
	}
	return false
}
