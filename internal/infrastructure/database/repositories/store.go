package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/mufasadev/grinpay/pkg/postgresql"
	"github.com/rs/zerolog"
)

const maxSerializationRetries = 5

type StoreImpl struct {
	pool   *pgxpool.Pool
	db     postgresql.Client
	logger *zerolog.Logger
}

// NewStore returns a Store whose repositories run on the pool outside InTx.
func NewStore(pool *pgxpool.Pool) repositories.Store {
	return &StoreImpl{pool: pool, db: pool, logger: log.Component("store")}
}

func (s *StoreImpl) Transactions() repositories.TransactionRepository {
	return NewTransactionRepositoryImpl(s.db)
}

func (s *StoreImpl) ChainHeight() repositories.ChainHeightRepository {
	return NewChainHeightRepositoryImpl(s.db)
}

// InTx runs fn in a repeatable read transaction. Serialization failures
// (SQLSTATE 40001) restart fn from scratch. A nested call joins the outer transaction.
func (s *StoreImpl) InTx(ctx context.Context, fn func(repositories.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	var err error
	for attempt := 0; attempt < maxSerializationRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isSerializationError(err) {
			return err
		}
		// retry transaction if serialization error occurs (SQLSTATE 40001)
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("serialization failure, retrying")
	}
	return err
}

func (s *StoreImpl) runTx(ctx context.Context, fn func(repositories.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err = fn(&StoreImpl{db: tx, logger: s.logger}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
