package common

import (
	"context"
	"errors"
	"net/http"
)

// Error codes returned to clients. Each code maps to one HTTP status.
const (
	CodeUnauthenticated           = "UNAUTHENTICATED"
	CodeInvalidRequest            = "INVALID_REQUEST"
	CodeInvalidSignature          = "INVALID_SIGNATURE"
	CodeMissingCorrelation        = "MISSING_CORRELATION"
	CodeProfileProvisioningFailed = "PROFILE_PROVISIONING_FAILED"
	CodeCartNotFound              = "CART_NOT_FOUND"
	CodeCartEmpty                 = "CART_EMPTY"
	CodeOrderPersistenceFailed    = "ORDER_PERSISTENCE_FAILED"
	CodeUpstreamUnavailable       = "UPSTREAM_UNAVAILABLE"
	CodeTimeout                   = "TIMEOUT"
	CodeNotFound                  = "NOT_FOUND"
	CodeInternal                  = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var target *AppError
	return errors.As(err, &target) && target.Code == code
}

func Unauthenticated(message string, err error) *AppError {
	return NewAppError(CodeUnauthenticated, message, http.StatusUnauthorized, err)
}

func InvalidRequest(message string, details any) *AppError {
	e := NewAppError(CodeInvalidRequest, message, http.StatusBadRequest, nil)
	e.Details = details
	return e
}

func InvalidSignature(err error) *AppError {
	return NewAppError(CodeInvalidSignature, "signature verification failed", http.StatusBadRequest, err)
}

func MissingCorrelation(message string) *AppError {
	return NewAppError(CodeMissingCorrelation, message, http.StatusBadRequest, nil)
}

func ProfileProvisioningFailed(err error) *AppError {
	return NewAppError(CodeProfileProvisioningFailed, "unable to provision profile", http.StatusInternalServerError, err)
}

func CartNotFound(err error) *AppError {
	return NewAppError(CodeCartNotFound, "cart not found", http.StatusInternalServerError, err)
}

func CartEmpty() *AppError {
	return NewAppError(CodeCartEmpty, "cart has no items", http.StatusInternalServerError, nil)
}

func OrderPersistenceFailed(err error) *AppError {
	return NewAppError(CodeOrderPersistenceFailed, "unable to persist order", http.StatusInternalServerError, err)
}

// Upstream classifies a failed call to an external dependency, separating deadline
// expiry from plain unavailability.
func Upstream(service string, err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewAppError(CodeTimeout, service+" timed out", http.StatusGatewayTimeout, err)
	}
	return NewAppError(CodeUpstreamUnavailable, service+" unavailable", http.StatusBadGateway, err)
}
