package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Merchant struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Balance     int64     `json:"balance"`
	Token       string    `json:"-"`
	CallbackURL *string   `json:"callback_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasCallback reports whether the merchant expects outcome notifications.
func (m *Merchant) HasCallback() bool {
	return m.CallbackURL != nil && *m.CallbackURL != ""
}

// Rate is the price of one GRIN in the currency identified by ID.
type Rate struct {
	ID        string          `json:"id"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}
