package errors

import (
	"errors"
	"fmt"
)

const (
	ErrFailedRejectExpiredPayments    = "Failed to reject expired payments"
	ErrFailedSyncWithNode             = "Failed to sync with node"
	ErrFailedAutoconfirmation         = "Failed to run autoconfirmation"
	ErrFailedReportPayments           = "Failed to report payments"
	ErrorFailedToConnectToTheDatabase = "Failed to connect to the database"
	ErrorFailedToRunTheServer         = "Failed to run the server"
	ErrorFailedToShutdownTheServer    = "Failed to shutdown the server"
	ErrFailedDecodeRequestBody        = "Failed to decode request body"
	ErrInvalidRequestBody             = "Invalid request body"
	ErrFailedCreatePayment            = "Failed to create payment"
	ErrFailedMakePayment              = "Failed to make payment"
	ErrMerchantIDRequired             = "Merchant ID is required"
	ErrInvalidMerchantID              = "Invalid Merchant ID"
	ErrInvalidTransactionID           = "Invalid transaction ID"
)

type BadRequestError struct {
	Message string
}

func NewBadRequestError(message string) *BadRequestError {
	return &BadRequestError{Message: message}
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("Bad request: %s", e.Message)
}

// NotFoundError is returned when a looked up entity does not exist.
type NotFoundError struct {
	Entity string
}

func NewNotFoundError(entity string) *NotFoundError {
	return &NotFoundError{Entity: entity}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.Entity)
}

// AlreadyExistsError covers unique and foreign key violations.
type AlreadyExistsError struct {
	Entity string
}

func NewAlreadyExistsError(entity string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("entity already exists: %s", e.Entity)
}

// WrongTransactionStatusError means a transition was attempted from a state it is not defined for.
type WrongTransactionStatusError struct {
	Status string
}

func NewWrongTransactionStatusError(status string) *WrongTransactionStatusError {
	return &WrongTransactionStatusError{Status: status}
}

func (e *WrongTransactionStatusError) Error() string {
	return fmt.Sprintf("wrong transaction status %s", e.Status)
}

type WrongAmountError struct {
	Required uint64
	Received uint64
}

func NewWrongAmountError(required, received uint64) *WrongAmountError {
	return &WrongAmountError{Required: required, Received: received}
}

func (e *WrongAmountError) Error() string {
	return fmt.Sprintf("wrong amount. Required %d received %d", e.Required, e.Received)
}

type UnsupportedCurrencyError struct {
	Currency string
}

func NewUnsupportedCurrencyError(currency string) *UnsupportedCurrencyError {
	return &UnsupportedCurrencyError{Currency: currency}
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency: %s", e.Currency)
}

// WalletAPIError wraps network, status and decode failures of the wallet RPC.
type WalletAPIError struct {
	Err error
}

func NewWalletAPIError(err error) *WalletAPIError {
	return &WalletAPIError{Err: err}
}

func (e *WalletAPIError) Error() string {
	return fmt.Sprintf("wallet API error: %v", e.Err)
}

func (e *WalletAPIError) Unwrap() error {
	return e.Err
}

// NodeAPIError wraps network, status and decode failures of the node RPC.
type NodeAPIError struct {
	Err error
}

func NewNodeAPIError(err error) *NodeAPIError {
	return &NodeAPIError{Err: err}
}

func (e *NodeAPIError) Error() string {
	return fmt.Sprintf("node API error: %v", e.Err)
}

func (e *NodeAPIError) Unwrap() error {
	return e.Err
}

type MerchantCallbackError struct {
	CallbackURL string
	Err         error
}

func NewMerchantCallbackError(callbackURL string, err error) *MerchantCallbackError {
	return &MerchantCallbackError{CallbackURL: callbackURL, Err: err}
}

func (e *MerchantCallbackError) Error() string {
	return fmt.Sprintf("cannot call callback_url %s: %v", e.CallbackURL, e.Err)
}

func (e *MerchantCallbackError) Unwrap() error {
	return e.Err
}

// GeneralError is the catch-all for invariant violations and internal failures.
type GeneralError struct {
	Message string
}

func NewGeneralError(format string, args ...interface{}) *GeneralError {
	return &GeneralError{Message: fmt.Sprintf(format, args...)}
}

func (e *GeneralError) Error() string {
	return fmt.Sprintf("general error: %s", e.Message)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsWrongStatus reports whether err is, or wraps, a WrongTransactionStatusError.
func IsWrongStatus(err error) bool {
	var e *WrongTransactionStatusError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
