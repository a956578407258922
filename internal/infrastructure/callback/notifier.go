package callback

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mufasadev/grinpay/internal/domain/gateways"
	"github.com/mufasadev/grinpay/internal/domain/models"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
)

const SignatureHeader = "X-Grinpay-Signature"

// Notifier makes a single delivery attempt per call. Retries are scheduled
// by the caller through the transaction's report fields.
type Notifier struct {
	http   *http.Client
	logger *zerolog.Logger
}

func NewNotifier(timeout time.Duration) gateways.Notifier {
	return &Notifier{
		http:   &http.Client{Timeout: timeout},
		logger: log.Component("merchant_notifier"),
	}
}

// Sign returns the hex HMAC-SHA256 of body keyed with the merchant token.
func Sign(token string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body for token. The gateway only
// signs; Verify is the check a merchant runs on the X-Grinpay-Signature header.
func Verify(token string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

func (n *Notifier) Notify(ctx context.Context, callbackURL string, token string, confirmation models.Confirmation) error {
	body, err := json.Marshal(confirmation)
	if err != nil {
		return apperrors.NewMerchantCallbackError(callbackURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewMerchantCallbackError(callbackURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(token, body))

	resp, err := n.http.Do(req)
	if err != nil {
		return apperrors.NewMerchantCallbackError(callbackURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewMerchantCallbackError(callbackURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	n.logger.Debug().Str("transaction_id", confirmation.ID.String()).Str("url", callbackURL).Msg("callback delivered")
	return nil
}
