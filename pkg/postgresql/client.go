package postgresql

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ClientTimeout = 5 * time.Second

// Client is satisfied by both *pgxpool.Pool and pgx.Tx.
type Client interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewClient opens the pool and pings it, retrying with exponential backoff
// up to maxConnAttempts times.
func NewClient(ctx context.Context, cfg *pgxpool.Config, maxConnAttempts int) (*pgxpool.Pool, error) {
	if maxConnAttempts < 1 {
		maxConnAttempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = ClientTimeout

	connect := func() (*pgxpool.Pool, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, ClientTimeout)
		defer cancel()

		pool, err := pgxpool.NewWithConfig(attemptCtx, cfg)
		if err != nil {
			return nil, err
		}

		if err = pool.Ping(attemptCtx); err != nil {
			pool.Close()
			return nil, err
		}

		return pool, nil
	}

	return backoff.Retry(ctx, connect,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(maxConnAttempts)),
	)
}
