package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmation() models.Confirmation {
	return models.Confirmation{
		ID:            uuid.MustParse("9f3e8c37-53f1-4d3c-9a3e-3f1c7e0b2a10"),
		ExternalID:    "order-42",
		MerchantID:    "shop",
		GrinAmount:    1_000_000_000,
		Amount:        models.NewMoney(1000, models.EUR),
		Status:        models.StatusConfirmed,
		Confirmations: 10,
		Token:         "merchant-token",
	}
}

func TestNotifier_Notify(t *testing.T) {
	t.Run("signed json body", func(t *testing.T) {
		var body []byte
		var signature string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			signature = r.Header.Get(SignatureHeader)
			body, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		n := NewNotifier(time.Second)
		err := n.Notify(context.Background(), srv.URL, "merchant-token", confirmation())
		require.NoError(t, err)

		assert.True(t, Verify("merchant-token", body, signature))
		assert.False(t, Verify("other-token", body, signature))

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		for _, key := range []string{"id", "external_id", "merchant_id", "grin_amount", "amount", "status", "confirmations", "token"} {
			assert.Contains(t, got, key)
		}
		assert.Equal(t, "confirmed", got["status"])
		assert.Equal(t, "merchant-token", got["token"])
	})

	t.Run("non 2xx is a callback error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewNotifier(time.Second).Notify(context.Background(), srv.URL, "t", confirmation())
		var cbErr *apperrors.MerchantCallbackError
		require.ErrorAs(t, err, &cbErr)
		assert.Equal(t, srv.URL, cbErr.CallbackURL)
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		err := NewNotifier(time.Second).Notify(context.Background(), url, "t", confirmation())
		var cbErr *apperrors.MerchantCallbackError
		assert.ErrorAs(t, err, &cbErr)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		err := NewNotifier(20*time.Millisecond).Notify(context.Background(), srv.URL, "t", confirmation())
		assert.Error(t, err)
	})
}

func TestSign(t *testing.T) {
	assert.Equal(t, "a777724d943eb48dc69bca8a4a6d57a04db3f9ec7e1de4e581e860265bdf3032", Sign("key", []byte("{}")))
	assert.Len(t, Sign("key", []byte("{}")), 64)
	assert.Equal(t, Sign("key", []byte("{}")), Sign("key", []byte("{}")))
	assert.NotEqual(t, Sign("key", []byte("{}")), Sign("key", []byte("[]")))
	assert.False(t, Verify("key", []byte("{}"), "not hex"))
}
