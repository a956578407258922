package interactor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mufasadev/grinpay/internal/domain/gateways"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/mufasadev/grinpay/pkg/workerpool"
	"github.com/rs/zerolog"
)

// SyncBatch is how many blocks past the stored height one sync tick requests.
const SyncBatch = 10

type ReconciliationInteractor struct {
	store  repositories.Store
	fsm    PaymentStateMachine
	node   gateways.NodeClient
	pool   *workerpool.Pool
	now    func() time.Time
	logger *zerolog.Logger
}

func NewReconciliationInteractor(
	store repositories.Store,
	fsm PaymentStateMachine,
	node gateways.NodeClient,
	pool *workerpool.Pool,
	opts ...ReconciliationOption,
) *ReconciliationInteractor {
	r := &ReconciliationInteractor{
		store:  store,
		fsm:    fsm,
		node:   node,
		pool:   pool,
		now:    time.Now,
		logger: log.Component("reconciliation"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type ReconciliationOption func(*ReconciliationInteractor)

func WithReconciliationClock(now func() time.Time) ReconciliationOption {
	return func(r *ReconciliationInteractor) {
		r.now = now
	}
}

// RejectExpiredNew rejects, in one statement, every new payment older than the new payment TTL.
func (r *ReconciliationInteractor) RejectExpiredNew(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-models.NewPaymentTTL)
	n, err := r.store.Transactions().RejectExpired(ctx, models.TypePayment, models.StatusNew, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg(apperrors.ErrFailedRejectExpiredPayments)
		return err
	}
	if n > 0 {
		r.logger.Info().Int64("count", n).Msg("expired new payments rejected")
	}
	return nil
}

// RejectExpiredPending rejects pending payments past their TTL one by one.
// A failure on one payment is logged and does not stop the others.
func (r *ReconciliationInteractor) RejectExpiredPending(ctx context.Context) error {
	pending, err := r.store.Transactions().ListByStatus(ctx, models.TypePayment, models.StatusPending)
	if err != nil {
		r.logger.Error().Err(err).Msg(apperrors.ErrFailedRejectExpiredPayments)
		return err
	}

	now := r.now()
	expired := make([]models.PendingPayment, 0, len(pending))
	for _, tx := range pending {
		if !tx.IsExpired(now) {
			continue
		}
		p, err := models.AsPendingPayment(tx)
		if err != nil {
			continue
		}
		expired = append(expired, p)
	}

	errs := workerpool.Each(ctx, r.pool, expired, func(ctx context.Context, p models.PendingPayment) error {
		_, err := r.fsm.RejectPayment(ctx, p)
		return err
	})
	for i, err := range errs {
		if err != nil {
			r.logger.Error().Err(err).Str("transaction_id", expired[i].ID.String()).Msg(apperrors.ErrFailedRejectExpiredPayments)
		}
	}
	return nil
}

// SyncWithNode matches outputs of the next blocks against payment commits.
// All transitions and the height advance commit together; any failure rolls
// the whole tick back and leaves the height where it was.
func (r *ReconciliationInteractor) SyncWithNode(ctx context.Context) error {
	height, err := r.store.ChainHeight().Get(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg(apperrors.ErrFailedSyncWithNode)
		return err
	}

	start := uint64(height) + 1
	var blocks []models.Block
	err = r.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		blocks, err = r.node.Blocks(ctx, start, start+SyncBatch)
		return err
	})
	if err != nil {
		r.logger.Error().Err(err).Uint64("start_height", start).Msg(apperrors.ErrFailedSyncWithNode)
		return err
	}

	newHeight := height
	commits := make(map[string]int64)
	for _, block := range blocks {
		if h := int64(block.Header.Height); h > newHeight {
			newHeight = h
		}
		for _, output := range block.Outputs {
			if output.IsCoinbase() || output.BlockHeight == nil {
				continue
			}
			commits[strings.ToLower(output.Commit)] = int64(*output.BlockHeight)
		}
	}

	err = r.store.InTx(ctx, func(tx repositories.Store) error {
		if err := r.applyChainOutputs(ctx, tx, commits); err != nil {
			return err
		}
		if newHeight > height {
			if _, err := tx.ChainHeight().Advance(ctx, newHeight); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Int64("height", height).Msg(apperrors.ErrFailedSyncWithNode)
		return err
	}

	if newHeight > height {
		r.logger.Debug().Int64("from", height).Int64("to", newHeight).Int("outputs", len(commits)).Msg("chain height advanced")
	}
	return nil
}

func (r *ReconciliationInteractor) applyChainOutputs(ctx context.Context, tx repositories.Store, commits map[string]int64) error {
	if len(commits) == 0 {
		return nil
	}

	keys := make([]string, 0, len(commits))
	for c := range commits {
		keys = append(keys, c)
	}
	sort.Strings(keys)

	matched, err := tx.Transactions().ListByCommits(ctx, keys)
	if err != nil {
		return err
	}

	fsm := r.fsm.WithStore(tx)
	for _, t := range matched {
		if t.Commit == nil {
			continue
		}
		height, ok := commits[strings.ToLower(*t.Commit)]
		if !ok {
			continue
		}

		switch t.Status {
		case models.StatusPending:
			p, err := models.AsPendingPayment(t)
			if err != nil {
				return err
			}
			if _, err = fsm.SeenInChainPayment(ctx, p, height); err != nil {
				return err
			}
		case models.StatusRejected:
			p, err := models.AsRejectedPayment(t)
			if err != nil {
				return err
			}
			if _, err = fsm.SeenInChainRejected(ctx, p, height); err != nil {
				return err
			}
		case models.StatusInChain, models.StatusRefund, models.StatusConfirmed:
			// already applied by an earlier pass over the same blocks
			if t.Height != nil && *t.Height == height {
				continue
			}
			return apperrors.NewGeneralError("transaction %s in status %s matched output at height %d, recorded height %v",
				t.ID, t.Status, height, heightOrNil(t.Height))
		default:
			return apperrors.NewGeneralError("transaction %s in status %s matched output at height %d", t.ID, t.Status, height)
		}
	}
	return nil
}

func heightOrNil(h *int64) interface{} {
	if h == nil {
		return nil
	}
	return *h
}

// Autoconfirm confirms every in-chain payment buried under enough blocks.
func (r *ReconciliationInteractor) Autoconfirm(ctx context.Context) error {
	current, err := r.store.ChainHeight().Get(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg(apperrors.ErrFailedAutoconfirmation)
		return err
	}

	inChain, err := r.store.Transactions().ListByStatus(ctx, models.TypePayment, models.StatusInChain)
	if err != nil {
		r.logger.Error().Err(err).Msg(apperrors.ErrFailedAutoconfirmation)
		return err
	}

	ready := make([]models.InChainPayment, 0, len(inChain))
	for _, tx := range inChain {
		if !tx.IsConfirmedAt(current) {
			continue
		}
		if p, err := models.AsInChainPayment(tx); err == nil {
			ready = append(ready, p)
		}
	}

	errs := workerpool.Each(ctx, r.pool, ready, func(ctx context.Context, p models.InChainPayment) error {
		_, err := r.fsm.ConfirmPayment(ctx, p, current)
		return err
	})
	for i, err := range errs {
		if err != nil {
			r.logger.Error().Err(err).Str("transaction_id", ready[i].ID.String()).Msg(apperrors.ErrFailedAutoconfirmation)
		}
	}
	return nil
}

func (r *ReconciliationInteractor) ReportConfirmed(ctx context.Context) error {
	return r.report(ctx, models.StatusConfirmed)
}

func (r *ReconciliationInteractor) ReportRejected(ctx context.Context) error {
	return r.report(ctx, models.StatusRejected)
}

func (r *ReconciliationInteractor) report(ctx context.Context, status models.TransactionStatus) error {
	unreported, err := r.store.Transactions().ListUnreportedByStatus(ctx, status, models.MaxReportAttempts, r.now().UTC())
	if err != nil {
		r.logger.Error().Err(err).Str("status", status.String()).Msg(apperrors.ErrFailedReportPayments)
		return err
	}

	errs := workerpool.Each(ctx, r.pool, unreported, func(ctx context.Context, tx *models.Transaction) error {
		p, err := models.AsReportable(tx)
		if err != nil {
			return err
		}
		return r.fsm.ReportPayment(ctx, p)
	})
	for i, err := range errs {
		if err != nil {
			r.logger.Debug().Err(err).Str("transaction_id", unreported[i].ID.String()).Msg(apperrors.ErrFailedReportPayments)
		}
	}
	return nil
}
