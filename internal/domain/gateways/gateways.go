package gateways

import (
	"context"

	"github.com/mufasadev/grinpay/internal/domain/models"
)

// NodeClient reads blocks from a Grin node.
type NodeClient interface {
	// Blocks returns the blocks in the inclusive height range [start, end].
	Blocks(ctx context.Context, start, end uint64) ([]models.Block, error)
}

type WalletClient interface {
	// GetTx returns the wallet log entry for a slate id. Exactly one entry must exist.
	GetTx(ctx context.Context, slateID string) (*models.TxLogEntry, error)
	// Receive hands a sender slate to the wallet and returns the receiver slate.
	Receive(ctx context.Context, slate *models.Slate) (*models.Slate, error)
}

// Notifier delivers a payment outcome to a merchant callback URL.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, token string, confirmation models.Confirmation) error
}
