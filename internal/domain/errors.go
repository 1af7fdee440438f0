package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error taxonomy shared by all modules. Handlers map these to HTTP status codes.
var (
	ErrValidation           = errors.New("validation error")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrNotFound             = errors.New("not found")
	ErrUpstreamUnavailable  = errors.New("market data unavailable")
	ErrStore                = errors.New("store error")
)

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientFundsError is returned when a cash-settled BUY costs more than the balance.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientPositionError is returned when a SELL exceeds the quantity held.
type InsufficientPositionError struct {
	Ticker    string
	Requested decimal.Decimal
	Held      decimal.Decimal
}

func (e *InsufficientPositionError) Error() string {
	return fmt.Sprintf("insufficient position in %s: selling %s, holding %s",
		e.Ticker, e.Requested.String(), e.Held.String())
}

func (e *InsufficientPositionError) Unwrap() error { return ErrInsufficientPosition }

// StoreErr marks a persistence failure with ErrStore while keeping the driver error in the chain.
func StoreErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStore, err))
}

// UpstreamErr marks a market data failure with ErrUpstreamUnavailable.
func UpstreamErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUpstreamUnavailable, err))
}
