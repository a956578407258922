package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
)

type CreatePaymentDTO struct {
	ExternalID    string       `json:"external_id"`
	Amount        models.Money `json:"amount"`
	Confirmations int64        `json:"confirmations"`
	Email         *string      `json:"email,omitempty"`
	Message       string       `json:"message"`
	RedirectURL   *string      `json:"redirect_url,omitempty"`
}

type PaymentDTO struct {
	ID              uuid.UUID                `json:"id"`
	ExternalID      string                   `json:"external_id"`
	MerchantID      string                   `json:"merchant_id"`
	GrinAmount      int64                    `json:"grin_amount"`
	Grins           string                   `json:"grins"`
	Amount          models.Money             `json:"amount"`
	AmountFormatted string                   `json:"amount_formatted"`
	Status          models.TransactionStatus `json:"status"`
	Confirmations   int64                    `json:"confirmations"`
	Email           *string                  `json:"email,omitempty"`
	Message         string                   `json:"message"`
	RedirectURL     *string                  `json:"redirect_url,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

func NewPaymentDTO(tx *models.Transaction) PaymentDTO {
	return PaymentDTO{
		ID:              tx.ID,
		ExternalID:      tx.ExternalID,
		MerchantID:      tx.MerchantID,
		GrinAmount:      tx.GrinAmount,
		Grins:           tx.Grins().String(),
		Amount:          tx.Amount,
		AmountFormatted: tx.Amount.String(),
		Status:          tx.Status,
		Confirmations:   tx.Confirmations,
		Email:           tx.Email,
		Message:         tx.Message,
		RedirectURL:     tx.RedirectURL,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

type PaymentStatusDTO struct {
	TransactionID         uuid.UUID                `json:"transaction_id"`
	Status                models.TransactionStatus `json:"status"`
	Reported              bool                     `json:"reported"`
	SecondsUntilExpired   *int64                   `json:"seconds_until_expired"`
	CurrentConfirmations  int64                    `json:"current_confirmations"`
	RequiredConfirmations int64                    `json:"required_confirmations"`
}

type BalanceDTO struct {
	Balance     int64  `json:"balance"`
	BalanceGrin string `json:"balance_grin"`
}
