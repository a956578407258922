package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NewPaymentTTL               = 15 * time.Minute // since creation
	PendingPaymentTTL           = 7 * time.Minute  // since the transaction became pending
	NewPayoutTTL                = 5 * time.Minute
	InitializedPayoutTTL        = 5 * time.Minute
	PendingPayoutTTL            = 15 * time.Minute
	WaitPerConfirmation         = 5 * time.Minute
	MaxReportAttempts           = 10
	DefaultConfirmations        = 10
	AmountTolerance      uint64 = 1_000_000 // nanogrin a payer may overpay by
)

type TransactionStatus string

const (
	StatusNew         TransactionStatus = "new"
	StatusPending     TransactionStatus = "pending"
	StatusRejected    TransactionStatus = "rejected"
	StatusInChain     TransactionStatus = "in_chain"
	StatusConfirmed   TransactionStatus = "confirmed"
	StatusInitialized TransactionStatus = "initialized"
	StatusRefund      TransactionStatus = "refund"
)

func (s TransactionStatus) String() string {
	return string(s)
}

type TransactionType string

const (
	TypePayment TransactionType = "payment"
	TypePayout  TransactionType = "payout"
)

type Transaction struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	ExternalID        string            `json:"external_id" db:"external_id"`
	MerchantID        string            `json:"merchant_id" db:"merchant_id"`
	GrinAmount        int64             `json:"grin_amount" db:"grin_amount"`
	Amount            Money             `json:"amount" db:"amount"`
	Status            TransactionStatus `json:"status" db:"status"`
	Confirmations     int64             `json:"confirmations" db:"confirmations"`
	Email             *string           `json:"email,omitempty" db:"email"`
	Message           string            `json:"message" db:"message"`
	RedirectURL       *string           `json:"redirect_url,omitempty" db:"redirect_url"`
	TransactionType   TransactionType   `json:"transaction_type" db:"transaction_type"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
	Reported          bool              `json:"-" db:"reported"`
	ReportAttempts    int               `json:"-" db:"report_attempts"`
	NextReportAttempt *time.Time        `json:"-" db:"next_report_attempt"`
	WalletTxID        *int64            `json:"-" db:"wallet_tx_id"`
	WalletTxSlateID   *string           `json:"-" db:"wallet_tx_slate_id"`
	SlateMessages     []string          `json:"slate_messages,omitempty" db:"slate_messages"`
	RealTransferFee   *int64            `json:"-" db:"real_transfer_fee"`
	Height            *int64            `json:"-" db:"height"`
	Commit            *string           `json:"-" db:"commit"`
}

// WalletFields is the wallet linkage stored at the New to Pending transition.
type WalletFields struct {
	WalletTxID      int64
	WalletTxSlateID string
	SlateMessages   []string
	RealTransferFee *int64
	Commit          string
}

// ExpiresAt returns the deadline for the current status, if the status has one.
func (t *Transaction) ExpiresAt() (time.Time, bool) {
	switch t.Status {
	case StatusNew:
		if t.TransactionType == TypePayout {
			return t.CreatedAt.Add(NewPayoutTTL), true
		}
		return t.CreatedAt.Add(NewPaymentTTL), true
	case StatusPending:
		if t.TransactionType == TypePayout {
			return t.UpdatedAt.Add(PendingPayoutTTL), true
		}
		return t.UpdatedAt.Add(PendingPaymentTTL), true
	case StatusInitialized:
		if t.TransactionType == TypePayout {
			return t.CreatedAt.Add(InitializedPayoutTTL), true
		}
	case StatusInChain:
		return t.UpdatedAt.Add(time.Duration(t.Confirmations) * WaitPerConfirmation), true
	}
	return time.Time{}, false
}

// TimeUntilExpired is negative once the deadline has passed.
func (t *Transaction) TimeUntilExpired(now time.Time) (time.Duration, bool) {
	deadline, ok := t.ExpiresAt()
	if !ok {
		return 0, false
	}
	return deadline.Sub(now), true
}

func (t *Transaction) IsExpired(now time.Time) bool {
	left, ok := t.TimeUntilExpired(now)
	return ok && left < 0
}

// CurrentConfirmations is the number of blocks on top of the one holding the output.
func (t *Transaction) CurrentConfirmations(currentHeight int64) int64 {
	if t.Height == nil {
		return 0
	}
	return currentHeight - *t.Height
}

// IsConfirmedAt reports whether the output is buried deep enough at currentHeight.
func (t *Transaction) IsConfirmedAt(currentHeight int64) bool {
	return t.Height != nil && t.CurrentConfirmations(currentHeight) >= t.Confirmations
}

// IsInvalidAmount is true when received is short of grin_amount or overpays by more than the tolerance.
func (t *Transaction) IsInvalidAmount(received uint64) bool {
	required := uint64(t.GrinAmount)
	return received < required || received-required > AmountTolerance
}

func (t *Transaction) Grins() Money {
	return FromGrin(t.GrinAmount)
}

// Confirmation is the body posted to a merchant's callback URL.
type Confirmation struct {
	ID            uuid.UUID         `json:"id"`
	ExternalID    string            `json:"external_id"`
	MerchantID    string            `json:"merchant_id"`
	GrinAmount    int64             `json:"grin_amount"`
	Amount        Money             `json:"amount"`
	Status        TransactionStatus `json:"status"`
	Confirmations int64             `json:"confirmations"`
	Token         string            `json:"token"`
}

func NewConfirmation(t *Transaction, token string) Confirmation {
	return Confirmation{
		ID:            t.ID,
		ExternalID:    t.ExternalID,
		MerchantID:    t.MerchantID,
		GrinAmount:    t.GrinAmount,
		Amount:        t.Amount,
		Status:        t.Status,
		Confirmations: t.Confirmations,
		Token:         token,
	}
}
