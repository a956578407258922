package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/infrastructure/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blocksResponse = `[
  {
    "header": {"hash": "0a1b", "height": 501, "previous": "09ff"},
    "outputs": [
      {"output_type": "Coinbase", "commit": "08aa", "spent": false, "block_height": 501},
      {"output_type": "Transaction", "commit": "09bb", "spent": false, "block_height": 501}
    ]
  },
  {
    "header": {"hash": "0a1c", "height": 502, "previous": "0a1b"},
    "outputs": [
      {"output_type": "Transaction", "commit": "09cc", "spent": false}
    ]
  }
]`

func TestClient_Blocks(t *testing.T) {
	t.Run("decodes blocks and sends auth", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chain/outputs/byheight", r.URL.Path)
			assert.Equal(t, "501", r.URL.Query().Get("start_height"))
			assert.Equal(t, "511", r.URL.Query().Get("end_height"))
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "grin", user)
			assert.Equal(t, "secret", pass)
			w.Write([]byte(blocksResponse))
		}))
		defer srv.Close()

		c, err := NewClient(rpc.Config{URL: srv.URL, User: "grin", Password: "secret"})
		require.NoError(t, err)

		blocks, err := c.Blocks(context.Background(), 501, 511)
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, uint64(501), blocks[0].Header.Height)
		assert.True(t, blocks[0].Outputs[0].IsCoinbase())
		assert.False(t, blocks[0].Outputs[1].IsCoinbase())
		require.NotNil(t, blocks[0].Outputs[1].BlockHeight)
		assert.Equal(t, uint64(501), *blocks[0].Outputs[1].BlockHeight)
		assert.Nil(t, blocks[1].Outputs[0].BlockHeight)
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c, err := NewClient(rpc.Config{URL: srv.URL})
		require.NoError(t, err)

		_, err = c.Blocks(context.Background(), 1, 11)
		var nodeErr *apperrors.NodeAPIError
		require.ErrorAs(t, err, &nodeErr)
		var statusErr *rpc.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		c, err := NewClient(rpc.Config{URL: srv.URL, MaxElapsed: 5 * time.Second})
		require.NoError(t, err)

		blocks, err := c.Blocks(context.Background(), 1, 11)
		require.NoError(t, err)
		assert.Empty(t, blocks)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("undecodable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not": "a list"}`))
		}))
		defer srv.Close()

		c, err := NewClient(rpc.Config{URL: srv.URL})
		require.NoError(t, err)

		_, err = c.Blocks(context.Background(), 1, 11)
		var nodeErr *apperrors.NodeAPIError
		assert.ErrorAs(t, err, &nodeErr)
	})
}
