package interactor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: testNow}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore keeps transactions, the chain height and merchant balances in
// memory. InTx snapshots all of them and restores the snapshot when fn fails.
type memStore struct {
	mu        sync.Mutex
	clock     *clock
	txs       map[uuid.UUID]*models.Transaction
	height    int64
	merchants map[string]*models.Merchant
	rates     map[models.Currency]decimal.Decimal
	writes    int

	advanceErr error
}

var (
	_ repositories.Store                 = (*memStore)(nil)
	_ repositories.TransactionRepository = (*memStore)(nil)
	_ repositories.ChainHeightRepository = (*memStore)(nil)
)

func newMemStore(c *clock) *memStore {
	return &memStore{
		clock:     c,
		txs:       map[uuid.UUID]*models.Transaction{},
		merchants: map[string]*models.Merchant{},
		rates:     map[models.Currency]decimal.Decimal{},
	}
}

func (s *memStore) Transactions() repositories.TransactionRepository { return s }
func (s *memStore) ChainHeight() repositories.ChainHeightRepository  { return s }

func (s *memStore) InTx(ctx context.Context, fn func(repositories.Store) error) error {
	s.mu.Lock()
	txs := make(map[uuid.UUID]*models.Transaction, len(s.txs))
	for id, tx := range s.txs {
		txs[id] = clone(tx)
	}
	height := s.height
	balances := make(map[string]int64, len(s.merchants))
	for id, m := range s.merchants {
		balances[id] = m.Balance
	}
	writes := s.writes
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.txs = txs
		s.height = height
		for id, b := range balances {
			s.merchants[id].Balance = b
		}
		s.writes = writes
		s.mu.Unlock()
		return err
	}
	return nil
}

func clone(tx *models.Transaction) *models.Transaction {
	c := *tx
	c.SlateMessages = append([]string(nil), tx.SlateMessages...)
	return &c
}

func (s *memStore) put(tx *models.Transaction) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = clone(tx)
	return tx
}

func (s *memStore) get(id uuid.UUID) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.txs[id]; ok {
		return clone(tx)
	}
	return nil
}

func (s *memStore) balance(merchantID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merchants[merchantID].Balance
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *memStore) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; ok {
		return apperrors.NewAlreadyExistsError("transaction")
	}
	if _, ok := s.merchants[tx.MerchantID]; !ok {
		return apperrors.NewNotFoundError("merchant")
	}
	s.writes++
	s.txs[tx.ID] = clone(tx)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	if tx := s.get(id); tx != nil {
		return tx, nil
	}
	return nil, apperrors.NewNotFoundError("transaction")
}

func (s *memStore) GetByIDAndType(ctx context.Context, id uuid.UUID, txType models.TransactionType) (*models.Transaction, error) {
	tx, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.TransactionType != txType {
		return nil, apperrors.NewNotFoundError("transaction")
	}
	return tx, nil
}

func (s *memStore) list(match func(*models.Transaction) bool) []*models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Transaction, 0)
	for _, tx := range s.txs {
		if match(tx) {
			out = append(out, clone(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) ListByStatus(_ context.Context, txType models.TransactionType, status models.TransactionStatus) ([]*models.Transaction, error) {
	return s.list(func(tx *models.Transaction) bool {
		return tx.TransactionType == txType && tx.Status == status
	}), nil
}

func (s *memStore) ListByCommits(_ context.Context, commits []string) ([]*models.Transaction, error) {
	set := make(map[string]bool, len(commits))
	for _, c := range commits {
		set[c] = true
	}
	return s.list(func(tx *models.Transaction) bool {
		return tx.Commit != nil && set[*tx.Commit]
	}), nil
}

func (s *memStore) ListUnreportedByStatus(_ context.Context, status models.TransactionStatus, maxAttempts int, now time.Time) ([]*models.Transaction, error) {
	return s.list(func(tx *models.Transaction) bool {
		return !tx.Reported && tx.Status == status && tx.TransactionType == models.TypePayment &&
			tx.ReportAttempts < maxAttempts && (tx.NextReportAttempt == nil || !tx.NextReportAttempt.After(now))
	}), nil
}

// update applies fn to the stored transaction when guard holds.
func (s *memStore) update(id uuid.UUID, guard func(*models.Transaction) bool, fn func(*models.Transaction)) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("transaction")
	}
	if !guard(tx) {
		return nil, apperrors.NewWrongTransactionStatusError(tx.Status.String())
	}
	s.writes++
	fn(tx)
	return clone(tx), nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.TransactionStatus) (*models.Transaction, error) {
	return s.update(id, func(tx *models.Transaction) bool { return tx.Status == from }, func(tx *models.Transaction) {
		tx.Status = to
		tx.UpdatedAt = s.clock.Now()
	})
}

func (s *memStore) UpdateWalletFields(_ context.Context, id uuid.UUID, f models.WalletFields) (*models.Transaction, error) {
	return s.update(id, func(tx *models.Transaction) bool { return tx.Status == models.StatusNew }, func(tx *models.Transaction) {
		walletTxID, slateID, commit := f.WalletTxID, f.WalletTxSlateID, f.Commit
		tx.Status = models.StatusPending
		tx.WalletTxID = &walletTxID
		tx.WalletTxSlateID = &slateID
		tx.SlateMessages = f.SlateMessages
		tx.RealTransferFee = f.RealTransferFee
		tx.Commit = &commit
		tx.UpdatedAt = s.clock.Now()
	})
}

func (s *memStore) UpdateHeightAndStatus(_ context.Context, id uuid.UUID, from, to models.TransactionStatus, height int64) (*models.Transaction, error) {
	guard := func(tx *models.Transaction) bool {
		return tx.Status == from && (tx.Height == nil || *tx.Height <= height)
	}
	return s.update(id, guard, func(tx *models.Transaction) {
		h := height
		tx.Status = to
		tx.Height = &h
		tx.UpdatedAt = s.clock.Now()
	})
}

func (s *memStore) ConfirmAndCredit(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	guard := func(tx *models.Transaction) bool {
		return tx.Status == models.StatusInChain && tx.TransactionType == models.TypePayment
	}
	return s.update(id, guard, func(tx *models.Transaction) {
		tx.Status = models.StatusConfirmed
		tx.UpdatedAt = s.clock.Now()
		s.merchants[tx.MerchantID].Balance += tx.GrinAmount
	})
}

func (s *memStore) RejectExpired(_ context.Context, txType models.TransactionType, status models.TransactionStatus, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, tx := range s.txs {
		if tx.TransactionType == txType && tx.Status == status && tx.CreatedAt.Before(createdBefore) {
			tx.Status = models.StatusRejected
			tx.UpdatedAt = s.clock.Now()
			n++
		}
	}
	if n > 0 {
		s.writes++
	}
	return n, nil
}

func (s *memStore) MarkReported(_ context.Context, id uuid.UUID, status models.TransactionStatus) error {
	_, err := s.update(id, func(tx *models.Transaction) bool { return tx.Status == status && !tx.Reported }, func(tx *models.Transaction) {
		tx.Reported = true
	})
	return err
}

func (s *memStore) RecordReportAttempt(_ context.Context, id uuid.UUID, next time.Time) (*models.Transaction, error) {
	return s.update(id, func(tx *models.Transaction) bool { return !tx.Reported }, func(tx *models.Transaction) {
		n := next
		tx.ReportAttempts++
		tx.NextReportAttempt = &n
	})
}

func (s *memStore) Get(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, nil
}

func (s *memStore) Advance(_ context.Context, height int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advanceErr != nil {
		return 0, s.advanceErr
	}
	if height > s.height {
		s.writes++
		s.height = height
	}
	return s.height, nil
}

// memMerchants reads merchants out of the same memStore so credits are visible.
type memMerchants struct {
	store *memStore
}

func (m memMerchants) GetByID(_ context.Context, id string) (*models.Merchant, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	merchant, ok := m.store.merchants[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("merchant")
	}
	c := *merchant
	return &c, nil
}

func (m memMerchants) Create(_ context.Context, merchant *models.Merchant) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.merchants[merchant.ID]; ok {
		return apperrors.NewAlreadyExistsError("merchant")
	}
	merchant.CreatedAt = m.store.clock.Now()
	c := *merchant
	m.store.merchants[merchant.ID] = &c
	return nil
}

type memRates struct {
	store *memStore
}

func (r memRates) GetByCurrency(_ context.Context, currency models.Currency) (*models.Rate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rate, ok := r.store.rates[currency]
	if !ok {
		return nil, apperrors.NewNotFoundError("rate")
	}
	return &models.Rate{ID: string(currency), Rate: rate, UpdatedAt: r.store.clock.now}, nil
}

func (r memRates) Upsert(_ context.Context, currency models.Currency, rate decimal.Decimal) (*models.Rate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.rates[currency] = rate
	return &models.Rate{ID: string(currency), Rate: rate, UpdatedAt: r.store.clock.now}, nil
}

type notification struct {
	url          string
	token        string
	confirmation models.Confirmation
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []notification
}

func (n *fakeNotifier) Notify(_ context.Context, callbackURL, token string, c models.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{url: callbackURL, token: token, confirmation: c})
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeNode struct {
	mu     sync.Mutex
	blocks map[uint64]models.Block
	err    error
	calls  [][2]uint64
}

func (n *fakeNode) Blocks(_ context.Context, start, end uint64) ([]models.Block, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, [2]uint64{start, end})
	if n.err != nil {
		return nil, n.err
	}
	var out []models.Block
	for h := start; h <= end; h++ {
		if b, ok := n.blocks[h]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// addBlock puts a block at height holding the given commits.
func (n *fakeNode) addBlock(height uint64, commits ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.blocks == nil {
		n.blocks = map[uint64]models.Block{}
	}
	h := height
	b := models.Block{Header: models.BlockHeader{Height: height}}
	b.Outputs = append(b.Outputs, models.Output{OutputType: models.CoinbaseOutput, Commit: "coinbase", BlockHeight: &h})
	for _, c := range commits {
		b.Outputs = append(b.Outputs, models.Output{OutputType: "Transaction", Commit: strings.ToUpper(c), BlockHeight: &h})
	}
	n.blocks[height] = b
}

type fakeWallet struct {
	credited   uint64
	commit     []byte
	receiveErr error
	getTxErr   error
	received   []*models.Slate
}

func (w *fakeWallet) Receive(_ context.Context, slate *models.Slate) (*models.Slate, error) {
	w.received = append(w.received, slate)
	if w.receiveErr != nil {
		return nil, w.receiveErr
	}
	received := &models.Slate{Raw: slate.Raw, ID: slate.ID, Amount: slate.Amount}
	if w.commit != nil {
		received.Commits = []models.ByteArray{w.commit}
	}
	return received, nil
}

func (w *fakeWallet) GetTx(_ context.Context, slateID string) (*models.TxLogEntry, error) {
	if w.getTxErr != nil {
		return nil, w.getTxErr
	}
	msg := "thanks"
	fee := models.StringOrUint64(8_000_000)
	return &models.TxLogEntry{
		ID:             7,
		TxSlateID:      &slateID,
		AmountCredited: models.StringOrUint64(w.credited),
		Fee:            &fee,
		Messages: &models.ParticipantMessages{Messages: []models.ParticipantMessage{
			{ID: 0, Message: &msg},
		}},
	}, nil
}
