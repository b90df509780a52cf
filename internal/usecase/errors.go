package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation              ErrorKind = "validation_error"
	KindUnauthorized            ErrorKind = "unauthorized"
	KindNotFound                ErrorKind = "not_found"
	KindGatewayUnavailable      ErrorKind = "gateway_unavailable"
	KindPaymentInitiationFailed ErrorKind = "payment_initiation_failed"
	KindVerificationFailed      ErrorKind = "verification_failed"
	KindInternal                ErrorKind = "internal"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:              http.StatusBadRequest,
	KindUnauthorized:            http.StatusUnauthorized,
	KindNotFound:                http.StatusNotFound,
	KindGatewayUnavailable:      http.StatusServiceUnavailable,
	KindPaymentInitiationFailed: http.StatusBadRequest,
	KindVerificationFailed:      http.StatusBadRequest,
	KindInternal:                http.StatusInternalServerError,
}

// HTTPError is the only error type usecases return to handlers.
// GatewayResponse carries the provider payload for the two gateway rejection
// kinds; Err keeps the underlying cause for logging and is never rendered.
type HTTPError struct {
	Kind            ErrorKind
	Status          int
	Message         string
	GatewayResponse json.RawMessage
	Err             error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(kind ErrorKind, message string) error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &HTTPError{
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func newGatewayError(kind ErrorKind, message string, raw json.RawMessage) error {
	he := NewHTTPError(kind, message).(*HTTPError)
	he.GatewayResponse = raw
	return he
}

func newGatewayUnavailable(cause error) error {
	he := NewHTTPError(KindGatewayUnavailable, "payment gateway unavailable").(*HTTPError)
	he.Err = cause
	return he
}

// 500。原因はログ用に保持する
func newInternalError(message string, cause error) error {
	he := NewHTTPError(KindInternal, message).(*HTTPError)
	he.Err = cause
	return he
}

// 既にHTTPErrorならそのまま返す
func asUsecaseError(err error, message string) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return newInternalError(message, err)
}
