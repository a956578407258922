package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// jsonbVersion is the leading byte of the binary jsonb representation.
const jsonbVersion byte = 1

type Currency string

const (
	GRIN Currency = "GRIN"
	BTC  Currency = "BTC"
	EUR  Currency = "EUR"
	USD  Currency = "USD"
)

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case GRIN, BTC, EUR, USD:
		return c, nil
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// Precision is the number of minor units in one major unit.
func (c Currency) Precision() int64 {
	switch c {
	case GRIN:
		return 1_000_000_000
	case BTC:
		return 100_000_000
	default:
		return 100
	}
}

func (c Currency) decimals() int32 {
	switch c {
	case GRIN:
		return 9
	case BTC:
		return 8
	default:
		return 2
	}
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Money is an amount of minor units of a currency.
type Money struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

func NewMoney(amount int64, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

func FromGrin(nanogrin int64) Money {
	return Money{Amount: nanogrin, Currency: GRIN}
}

// ConvertTo converts m into currency using the rate registered for m's currency.
// The result is truncated: amount * target precision / trunc(source precision * rate).
func (m Money) ConvertTo(currency Currency, rate decimal.Decimal) (Money, error) {
	divisor := decimal.NewFromInt(m.Currency.Precision()).Mul(rate).Truncate(0)
	if !divisor.IsPositive() {
		return Money{}, fmt.Errorf("invalid rate %s for %s", rate, m.Currency)
	}
	numerator := decimal.NewFromInt(m.Amount).Mul(decimal.NewFromInt(currency.Precision()))
	quotient, _ := numerator.QuoRem(divisor, 0)
	return Money{Amount: quotient.IntPart(), Currency: currency}, nil
}

// Format renders the amount in major units. GRIN is shown with three decimals rounded up.
func (m Money) Format() string {
	d := decimal.New(m.Amount, -m.Currency.decimals())
	if m.Currency == GRIN {
		return d.RoundUp(3).StringFixed(3)
	}
	return d.StringFixed(m.Currency.decimals())
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Format(), m.Currency)
}

// MarshalBinary returns the jsonb binary wire form: a version byte followed by
// the JSON document. pgx adds and strips the version byte itself when it talks
// to Postgres, so the repositories bind Value; this form exists for raw binary
// payloads, which Scan also accepts.
func (m Money) MarshalBinary() ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append([]byte{jsonbVersion}, body...), nil
}

func (m *Money) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty jsonb payload")
	}
	if data[0] != jsonbVersion {
		return fmt.Errorf("unsupported jsonb encoding version %d", data[0])
	}
	return json.Unmarshal(data[1:], m)
}

// Value implements driver.Valuer so Money can be bound to a jsonb parameter.
func (m Money) Value() (driver.Value, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(body), nil
}

// Scan implements sql.Scanner for both the text and the versioned binary jsonb
// forms. pgx normally hands over the text form; a leading version byte is decoded
// through UnmarshalBinary.
func (m *Money) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return fmt.Errorf("cannot scan NULL into Money")
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	if len(data) > 0 && data[0] == jsonbVersion {
		return m.UnmarshalBinary(data)
	}
	return json.Unmarshal(data, m)
}
