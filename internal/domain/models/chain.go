package models

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const CoinbaseOutput = "Coinbase"

type BlockHeader struct {
	Height uint64 `json:"height"`
}

type Output struct {
	OutputType  string  `json:"output_type"`
	Commit      string  `json:"commit"`
	BlockHeight *uint64 `json:"block_height,omitempty"`
}

func (o Output) IsCoinbase() bool {
	return o.OutputType == CoinbaseOutput
}

type Block struct {
	Header  BlockHeader `json:"header"`
	Outputs []Output    `json:"outputs"`
}

// StringOrUint64 decodes from either a JSON number or a decimal string.
type StringOrUint64 uint64

func (v *StringOrUint64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 value %s: %w", data, err)
	}
	*v = StringOrUint64(n)
	return nil
}

func (v StringOrUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(v), 10))
}

// ByteArray decodes from a JSON array of byte values or a hex string.
type ByteArray []byte

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw, err := hex.DecodeString(s)
		if err != nil {
			return err
		}
		*b = raw
		return nil
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	raw := make([]byte, len(ints))
	for i, n := range ints {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte value %d out of range", n)
		}
		raw[i] = byte(n)
	}
	*b = raw
	return nil
}

func (b ByteArray) Hex() string {
	return hex.EncodeToString(b)
}

type ParticipantMessage struct {
	ID      StringOrUint64 `json:"id"`
	Message *string        `json:"message"`
}

type ParticipantMessages struct {
	Messages []ParticipantMessage `json:"messages"`
}

type TxLogEntry struct {
	ID             uint32               `json:"id"`
	TxSlateID      *string              `json:"tx_slate_id"`
	AmountCredited StringOrUint64       `json:"amount_credited"`
	AmountDebited  StringOrUint64       `json:"amount_debited"`
	Fee            *StringOrUint64      `json:"fee"`
	Messages       *ParticipantMessages `json:"messages"`
}

// MessageTexts returns the non-empty participant messages.
func (e TxLogEntry) MessageTexts() []string {
	if e.Messages == nil {
		return nil
	}
	texts := make([]string, 0, len(e.Messages.Messages))
	for _, m := range e.Messages.Messages {
		if m.Message != nil && *m.Message != "" {
			texts = append(texts, *m.Message)
		}
	}
	return texts
}

// WalletFields extracts the linkage stored when a payment becomes pending.
func (e TxLogEntry) WalletFields(commit string) WalletFields {
	f := WalletFields{
		WalletTxID:    int64(e.ID),
		SlateMessages: e.MessageTexts(),
		Commit:        commit,
	}
	if e.TxSlateID != nil {
		f.WalletTxSlateID = *e.TxSlateID
	}
	if e.Fee != nil {
		fee := int64(*e.Fee)
		f.RealTransferFee = &fee
	}
	return f
}

// Slate is kept as the raw document exchanged with the wallet; only the
// fields the gateway needs are decoded from it.
type Slate struct {
	Raw json.RawMessage

	ID     uuid.UUID
	Amount uint64
	// Commits holds output commitments in slate order.
	Commits []ByteArray
}

type slateView struct {
	ID     uuid.UUID      `json:"id"`
	Amount StringOrUint64 `json:"amount"`
	Tx     struct {
		Body struct {
			Outputs []struct {
				Commit ByteArray `json:"commit"`
			} `json:"outputs"`
		} `json:"body"`
	} `json:"tx"`
}

func ParseSlate(raw []byte) (*Slate, error) {
	var view slateView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("invalid slate: %w", err)
	}
	s := &Slate{
		Raw:    append(json.RawMessage(nil), raw...),
		ID:     view.ID,
		Amount: uint64(view.Amount),
	}
	for _, o := range view.Tx.Body.Outputs {
		s.Commits = append(s.Commits, o.Commit)
	}
	return s, nil
}

// FirstCommit is the hex form of the first output commitment.
func (s *Slate) FirstCommit() (string, error) {
	if len(s.Commits) == 0 || len(s.Commits[0]) == 0 {
		return "", fmt.Errorf("slate %s has no outputs", s.ID)
	}
	return s.Commits[0].Hex(), nil
}

func (s *Slate) MarshalJSON() ([]byte, error) {
	if len(s.Raw) == 0 {
		return []byte("null"), nil
	}
	return s.Raw, nil
}

func (s *Slate) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSlate(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
