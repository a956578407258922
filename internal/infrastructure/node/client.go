package node

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mufasadev/grinpay/internal/domain/gateways"
	"github.com/mufasadev/grinpay/internal/domain/models"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/infrastructure/rpc"
)

const outputsByHeightPath = "v1/chain/outputs/byheight"

type Client struct {
	rpc *rpc.Client
}

func NewClient(cfg rpc.Config) (gateways.NodeClient, error) {
	c, err := rpc.New(cfg, "node_client")
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

// Blocks returns the blocks in [start, end] with their outputs.
func (c *Client) Blocks(ctx context.Context, start, end uint64) ([]models.Block, error) {
	query := url.Values{}
	query.Set("start_height", strconv.FormatUint(start, 10))
	query.Set("end_height", strconv.FormatUint(end, 10))

	var blocks []models.Block
	if err := c.rpc.GetJSON(ctx, outputsByHeightPath, query, &blocks); err != nil {
		return nil, apperrors.NewNodeAPIError(err)
	}
	return blocks, nil
}
