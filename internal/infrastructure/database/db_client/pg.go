package db_client

import (
	"context"
	"fmt"
	"time"

	decimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mufasadev/grinpay/internal/config"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/mufasadev/grinpay/pkg/postgresql"
)

const (
	applicationName   = "grinpay"
	healthCheckPeriod = 30 * time.Second
	maxConnIdleTime   = 5 * time.Minute
)

type PGClient struct {
	cfg config.PostgreSQL
}

func NewPGClient(cfg config.PostgreSQL) *PGClient {
	return &PGClient{cfg: cfg}
}

// PoolConfig builds the pool settings shared by the server and the admin commands.
// Rates are NUMERIC, so every connection gets the shopspring decimal codec.
func (c *PGClient) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		decimal.Register(conn.TypeMap())
		return nil
	}
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	if c.cfg.MaxConns > 0 {
		poolConfig.MaxConns = c.cfg.MaxConns
	}
	return poolConfig, nil
}

// Connect opens the gateway's pool, retrying until the database answers a ping.
func (c *PGClient) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := c.PoolConfig()
	if err != nil {
		return nil, err
	}

	logger := log.Component("postgres")
	logger.Info().
		Str("host", c.cfg.Host).
		Str("database", c.cfg.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connecting to database")

	pool, err := postgresql.NewClient(ctx, poolConfig, c.cfg.MaxConnAttempts)
	if err != nil {
		return nil, fmt.Errorf("connect to %s/%s after %d attempts: %w", c.cfg.Host, c.cfg.Database, c.cfg.MaxConnAttempts, err)
	}
	return pool, nil
}
