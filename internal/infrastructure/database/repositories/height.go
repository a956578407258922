package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	"github.com/mufasadev/grinpay/pkg/postgresql"
)

type ChainHeightRepositoryImpl struct {
	db postgresql.Client
}

func NewChainHeightRepositoryImpl(db postgresql.Client) repositories.ChainHeightRepository {
	return &ChainHeightRepositoryImpl{db: db}
}

// Get returns the stored height, 0 when nothing has been reconciled yet.
func (r *ChainHeightRepositoryImpl) Get(ctx context.Context) (int64, error) {
	var height int64
	err := r.db.QueryRow(ctx, "SELECT height FROM current_height LIMIT 1").Scan(&height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get current height: %w", err)
	}
	return height, nil
}

const advanceHeight = `
WITH advanced AS (
  UPDATE current_height SET height = $1 WHERE height < $1
  RETURNING height
)
SELECT COALESCE((SELECT height FROM advanced), (SELECT height FROM current_height LIMIT 1), 0)`

// Advance only writes when height is above the stored value.
func (r *ChainHeightRepositoryImpl) Advance(ctx context.Context, height int64) (int64, error) {
	var stored int64
	if err := r.db.QueryRow(ctx, advanceHeight, height).Scan(&stored); err != nil {
		return 0, fmt.Errorf("advance current height: %w", err)
	}
	return stored, nil
}
