package wallet

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mufasadev/grinpay/internal/domain/models"
)

// txListResponse is the retrieve_txs answer. The owner API sends it as a
// two element array [updated, txs]; the object form is accepted as well.
type txListResponse struct {
	Updated bool                `json:"updated"`
	Txs     []models.TxLogEntry `json:"txs"`
}

func (r *txListResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		type plain txListResponse
		return json.Unmarshal(data, (*plain)(r))
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("unexpected retrieve_txs response of %d elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &r.Updated); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &r.Txs)
}
