// internal/domain/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can pick a status code
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindStockExceeded     Kind = "stock_exceeded"
	KindEmptyCart         Kind = "empty_cart"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidState      Kind = "invalid_state_transition"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation_failed"
	KindInternal          Kind = "internal"
)

// Error is a business failure with enough context for the caller to react
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a context value and returns the same error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound reports a missing cart, order, product, payment or category
func NotFound(resource string) *Error {
	return New(KindNotFound, "%s not found", resource)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, "%s", message)
}

// StockExceeded reports a cart quantity above the product's current stock
func StockExceeded(available int) *Error {
	return New(KindStockExceeded, "requested quantity exceeds available stock (%d available)", available).
		WithDetail("available", available)
}

func EmptyCart() *Error {
	return New(KindEmptyCart, "cart is empty or does not exist")
}

// InsufficientStock reports a checkout-time stock failure for one product
func InsufficientStock(productName string) *Error {
	return New(KindInsufficientStock, "insufficient stock for: %s", productName).
		WithDetail("product", productName)
}

// InvalidState reports an operation forbidden by the current status
func InvalidState(status string, format string, args ...interface{}) *Error {
	return New(KindInvalidState, format, args...).WithDetail("status", status)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// Internal wraps an unexpected infrastructure failure
func Internal(message string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Details returns the context attached to err, if any
func Details(err error) map[string]interface{} {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
