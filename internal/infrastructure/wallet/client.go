package wallet

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mufasadev/grinpay/internal/domain/gateways"
	"github.com/mufasadev/grinpay/internal/domain/models"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/infrastructure/rpc"
)

const (
	retrieveTxsPath = "v1/wallet/owner/retrieve_txs"
	receiveTxPath   = "v1/wallet/foreign/receive_tx"
)

type Client struct {
	rpc *rpc.Client
}

func NewClient(cfg rpc.Config) (gateways.WalletClient, error) {
	c, err := rpc.New(cfg, "wallet_client")
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

// GetTx asks the wallet to refresh from the node and return the entry for slateID.
func (c *Client) GetTx(ctx context.Context, slateID string) (*models.TxLogEntry, error) {
	query := url.Values{}
	query.Set("tx_id", slateID)
	query.Set("refresh", "")

	var response txListResponse
	if err := c.rpc.GetJSON(ctx, retrieveTxsPath, query, &response); err != nil {
		return nil, apperrors.NewWalletAPIError(err)
	}

	entries := response.Txs
	if len(entries) != 1 {
		return nil, apperrors.NewWalletAPIError(fmt.Errorf("expected one transaction for slate %s, got %d", slateID, len(entries)))
	}
	return &entries[0], nil
}

func (c *Client) Receive(ctx context.Context, slate *models.Slate) (*models.Slate, error) {
	if slate == nil || len(slate.Raw) == 0 {
		return nil, apperrors.NewBadRequestError("empty slate")
	}

	var received models.Slate
	if err := c.rpc.PostJSON(ctx, receiveTxPath, slate.Raw, &received); err != nil {
		return nil, apperrors.NewWalletAPIError(err)
	}
	return &received, nil
}
