package payments

import "errors"

// Domain errors for the payment ledger.
var (
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// Validation errors.
	ErrInvalidAmount = errors.New("payment amount must be greater than zero")
	ErrInvalidMethod = errors.New("invalid payment method")

	// Business rule errors.
	ErrOrderCancelled = errors.New("cannot record payment against a cancelled order")
	ErrRouteFinished  = errors.New("order belongs to a finished route; ledger is closed for this engine")
)
