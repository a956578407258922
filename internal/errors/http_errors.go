package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleHTTPError handles http errors
func HandleHTTPError(w http.ResponseWriter, err error) {
	httpErr := &HTTPError{
		Code:    StatusCode(err),
		Message: err.Error(),
	}
	if httpErr.Code == http.StatusInternalServerError {
		httpErr.Message = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Code)
	json.NewEncoder(w).Encode(httpErr)
}

// StatusCode maps the error taxonomy onto HTTP status codes.
func StatusCode(err error) int {
	var (
		badRequest  *BadRequestError
		notFound    *NotFoundError
		exists      *AlreadyExistsError
		wrongStatus *WrongTransactionStatusError
		wrongAmount *WrongAmountError
		currency    *UnsupportedCurrencyError
		wallet      *WalletAPIError
		node        *NodeAPIError
	)
	switch {
	case errors.As(err, &badRequest), errors.As(err, &exists), errors.As(err, &currency):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &wrongStatus), errors.As(err, &wrongAmount):
		return http.StatusUnprocessableEntity
	case errors.As(err, &wallet), errors.As(err, &node):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
