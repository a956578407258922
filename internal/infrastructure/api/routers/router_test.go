package routers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/infrastructure/api/handlers"
	"github.com/mufasadev/grinpay/internal/usecases/dtos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merchantID = "merchant-1"

type fakeMerchants struct{}

func (fakeMerchants) ExistsByID(_ context.Context, id string) (bool, error) {
	if id == merchantID {
		return true, nil
	}
	return false, errors.NewNotFoundError("merchant")
}

type fakePayments struct {
	payments   map[uuid.UUID]*dtos.PaymentDTO
	createErr  error
	makeErr    error
	lastSlate  []byte
	lastCreate *dtos.CreatePaymentDTO
}

func (f *fakePayments) CreatePayment(_ context.Context, merchant string, dto *dtos.CreatePaymentDTO) (*dtos.PaymentDTO, error) {
	f.lastCreate = dto
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := &dtos.PaymentDTO{
		ID:         uuid.New(),
		ExternalID: dto.ExternalID,
		MerchantID: merchant,
		Amount:     dto.Amount,
		Status:     models.StatusNew,
	}
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakePayments) MakePayment(_ context.Context, _ string, id uuid.UUID, raw []byte) (*models.Slate, error) {
	f.lastSlate = raw
	if f.makeErr != nil {
		return nil, f.makeErr
	}
	if _, ok := f.payments[id]; !ok {
		return nil, errors.NewNotFoundError("transaction")
	}
	return models.ParseSlate([]byte(`{"id":"0436430c-2b02-624c-2032-570501212b00","amount":"100","signed":true}`))
}

func (f *fakePayments) GetPayment(_ context.Context, _ string, id uuid.UUID) (*dtos.PaymentDTO, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, errors.NewNotFoundError("transaction")
	}
	return p, nil
}

func (f *fakePayments) GetStatus(_ context.Context, _ string, id uuid.UUID) (*dtos.PaymentStatusDTO, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, errors.NewNotFoundError("transaction")
	}
	seconds := int64(900)
	return &dtos.PaymentStatusDTO{
		TransactionID:         p.ID,
		Status:                p.Status,
		SecondsUntilExpired:   &seconds,
		RequiredConfirmations: 10,
	}, nil
}

type fakeBalance struct{}

func (fakeBalance) GetBalance(_ context.Context, _ string) (*dtos.BalanceDTO, error) {
	return &dtos.BalanceDTO{Balance: 201_000_000, BalanceGrin: "0.201 GRIN"}, nil
}

func newTestRouter(payments *fakePayments) http.Handler {
	return NewRouter(Handlers{
		Payments:  handlers.NewPaymentHandler(payments),
		Balance:   handlers.NewBalanceHandler(fakeBalance{}),
		Merchants: fakeMerchants{},
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Payments(t *testing.T) {
	payments := &fakePayments{payments: map[uuid.UUID]*dtos.PaymentDTO{}}
	router := newTestRouter(payments)

	rec := do(t, router, http.MethodPost, "/api/v1/merchants/merchant-1/payments",
		`{"external_id":"order-1","amount":{"amount":1000,"currency":"EUR"},"confirmations":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var created dtos.PaymentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "order-1", created.ExternalID)
	assert.Equal(t, models.NewMoney(1000, models.EUR), payments.lastCreate.Amount)
	assert.Equal(t, int64(5), payments.lastCreate.Confirmations)

	t.Run("get", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/merchants/merchant-1/payments/"+created.ID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got dtos.PaymentDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("status", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/merchants/merchant-1/payments/"+created.ID.String()+"/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "new", got["status"])
		assert.Equal(t, float64(900), got["seconds_until_expired"])
		assert.Equal(t, float64(10), got["required_confirmations"])
	})

	t.Run("make payment returns receiver slate", func(t *testing.T) {
		slate := `{"id":"0436430c-2b02-624c-2032-570501212b00","amount":"100"}`
		rec := do(t, router, http.MethodPost, "/api/v1/merchants/merchant-1/payments/"+created.ID.String(), slate)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, slate, string(payments.lastSlate))
		assert.JSONEq(t, `{"id":"0436430c-2b02-624c-2032-570501212b00","amount":"100","signed":true}`, rec.Body.String())
	})

	t.Run("invalid transaction id", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/merchants/merchant-1/payments/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/merchants/merchant-1/payments/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/merchants/merchant-1/payments", `{"amount":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_ErrorMapping(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"wrong amount", errors.NewWrongAmountError(100, 50), http.StatusUnprocessableEntity},
		{"wrong status", errors.NewWrongTransactionStatusError("pending"), http.StatusUnprocessableEntity},
		{"wallet down", errors.NewWalletAPIError(assert.AnError), http.StatusBadGateway},
		{"bad slate", errors.NewBadRequestError("slate"), http.StatusBadRequest},
		{"internal", errors.NewGeneralError("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &fakePayments{payments: map[uuid.UUID]*dtos.PaymentDTO{id: {ID: id}}, makeErr: tt.err}
			rec := do(t, newTestRouter(payments), http.MethodPost, "/api/v1/merchants/merchant-1/payments/"+id.String(), `{}`)
			assert.Equal(t, tt.code, rec.Code)

			var body errors.HTTPError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}

	t.Run("unsupported currency on create", func(t *testing.T) {
		payments := &fakePayments{payments: map[uuid.UUID]*dtos.PaymentDTO{}, createErr: errors.NewUnsupportedCurrencyError("JPY")}
		rec := do(t, newTestRouter(payments), http.MethodPost, "/api/v1/merchants/merchant-1/payments",
			`{"external_id":"x","amount":{"amount":1,"currency":"GRIN"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_Merchants(t *testing.T) {
	router := newTestRouter(&fakePayments{payments: map[uuid.UUID]*dtos.PaymentDTO{}})

	t.Run("balance", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/merchants/merchant-1/balance", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"balance":201000000,"balance_grin":"0.201 GRIN"}`, rec.Body.String())
	})

	t.Run("unknown merchant", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/merchants/nobody/balance", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, router, http.MethodPost, "/api/v1/merchants/nobody/payments", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
