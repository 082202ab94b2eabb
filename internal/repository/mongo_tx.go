package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const (
	labelTransient     = "TransientTransactionError"
	labelUnknownCommit = "UnknownTransactionCommitResult"
	maxCommitRetries   = 3

	retryInitialInterval = 20 * time.Millisecond
)

// TxOptions bounds how often a transaction aborted by a transient error
// (write conflict, primary step-down) is run again.
type TxOptions struct {
	MaxAttempts int
	MaxElapsed  time.Duration
}

type MongoTxRunner struct {
	client *mongo.Client
	opts   TxOptions
	logger *zap.SugaredLogger
}

func (o TxOptions) withDefaults() TxOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.MaxElapsed <= 0 {
		o.MaxElapsed = 5 * time.Second
	}
	return o
}

func NewMongoTxRunner(client *mongo.Client, opts TxOptions, logger *zap.SugaredLogger) *MongoTxRunner {
	return &MongoTxRunner{client: client, opts: opts.withDefaults(), logger: logger}
}

func (r *MongoTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	// already inside a transaction: join it
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	return retryTransient(ctx, r.opts, r.logger, func() error {
		return r.runOnce(ctx, fn)
	})
}

// retryTransient runs attempt until it succeeds, fails with an error that is
// not labelled TransientTransactionError, or opts are exhausted. The last
// error is returned as is.
func retryTransient(ctx context.Context, opts TxOptions, logger *zap.SugaredLogger, attempt func() error) error {
	opts = opts.withDefaults()
	n := 0
	op := func() error {
		n++
		err := attempt()
		if err == nil {
			return nil
		}
		if hasErrorLabel(err, labelTransient) {
			logger.Warnw("transaction aborted by transient error", "attempt", n, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxElapsedTime = opts.MaxElapsed
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(opts.MaxAttempts-1)), ctx)
	return backoff.Retry(op, policy)
}

// commitWithRetry repeats commit while its outcome is unknown, up to maxCommitRetries times.
func commitWithRetry(commit func() error) error {
	var err error
	for i := 0; i < maxCommitRetries; i++ {
		err = commit()
		if err == nil || !hasErrorLabel(err, labelUnknownCommit) {
			break
		}
	}
	return err
}

func (r *MongoTxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	// EndSession aborts a transaction left open by a panic in fn.
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txnOpts); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
				r.logger.Warnw("abort transaction failed", "error", abortErr)
			}
			return err
		}
		return commitWithRetry(func() error { return sess.CommitTransaction(sc) })
	})
}

func hasErrorLabel(err error, label string) bool {
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(label)
}
