package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is against these.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation error")
)

// Error carries a machine-readable code next to the wrapped sentinel.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *Error {
	return &Error{
		Code:    "not_found",
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Err:     ErrNotFound,
	}
}

func InsufficientStock(productID string, requested, available int) *Error {
	return &Error{
		Code:    "insufficient_stock",
		Message: fmt.Sprintf("not enough stock for product %s: requested %d, available %d", productID, requested, available),
		Err:     ErrInsufficientStock,
	}
}

func Validation(field, reason string) *Error {
	return &Error{
		Code:    "validation_error",
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Err:     ErrValidation,
	}
}
