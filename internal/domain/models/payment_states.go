package models

import (
	apperrors "github.com/mufasadev/grinpay/internal/errors"
)

// The wrappers below pin a payment to one status. They can only be obtained
// through the As* conversions, so a state machine method that accepts a
// PendingPayment cannot be handed a transaction in any other status.

type NewPayment struct{ *Transaction }

type PendingPayment struct{ *Transaction }

type InChainPayment struct{ *Transaction }

type ConfirmedPayment struct{ *Transaction }

type RejectedPayment struct{ *Transaction }

type RefundPayment struct{ *Transaction }

func checkPayment(tx *Transaction, status TransactionStatus) error {
	if tx == nil {
		return apperrors.NewGeneralError("nil transaction")
	}
	if tx.TransactionType != TypePayment || tx.Status != status {
		return apperrors.NewWrongTransactionStatusError(tx.Status.String())
	}
	return nil
}

func AsNewPayment(tx *Transaction) (NewPayment, error) {
	if err := checkPayment(tx, StatusNew); err != nil {
		return NewPayment{}, err
	}
	return NewPayment{tx}, nil
}

func AsPendingPayment(tx *Transaction) (PendingPayment, error) {
	if err := checkPayment(tx, StatusPending); err != nil {
		return PendingPayment{}, err
	}
	return PendingPayment{tx}, nil
}

func AsInChainPayment(tx *Transaction) (InChainPayment, error) {
	if err := checkPayment(tx, StatusInChain); err != nil {
		return InChainPayment{}, err
	}
	return InChainPayment{tx}, nil
}

func AsConfirmedPayment(tx *Transaction) (ConfirmedPayment, error) {
	if err := checkPayment(tx, StatusConfirmed); err != nil {
		return ConfirmedPayment{}, err
	}
	return ConfirmedPayment{tx}, nil
}

func AsRejectedPayment(tx *Transaction) (RejectedPayment, error) {
	if err := checkPayment(tx, StatusRejected); err != nil {
		return RejectedPayment{}, err
	}
	return RejectedPayment{tx}, nil
}

func AsRefundPayment(tx *Transaction) (RefundPayment, error) {
	if err := checkPayment(tx, StatusRefund); err != nil {
		return RefundPayment{}, err
	}
	return RefundPayment{tx}, nil
}

// Rejectable is satisfied by the states a payment can be rejected from.
type Rejectable interface {
	rejectable() *Transaction
}

func (p NewPayment) rejectable() *Transaction     { return p.Transaction }
func (p PendingPayment) rejectable() *Transaction { return p.Transaction }

// RejectableTransaction returns the transaction behind a Rejectable.
func RejectableTransaction(r Rejectable) *Transaction {
	return r.rejectable()
}

// Reportable is satisfied by the terminal states merchants are notified about.
type Reportable interface {
	reportable() *Transaction
}

func (p ConfirmedPayment) reportable() *Transaction { return p.Transaction }
func (p RejectedPayment) reportable() *Transaction  { return p.Transaction }

func ReportableTransaction(r Reportable) *Transaction {
	return r.reportable()
}

// AsReportable wraps a Confirmed or Rejected payment.
func AsReportable(tx *Transaction) (Reportable, error) {
	if tx != nil && tx.Status == StatusRejected {
		return AsRejectedPayment(tx)
	}
	return AsConfirmedPayment(tx)
}

// AsRejectable wraps a New or Pending payment.
func AsRejectable(tx *Transaction) (Rejectable, error) {
	if tx != nil && tx.Status == StatusPending {
		return AsPendingPayment(tx)
	}
	return AsNewPayment(tx)
}
