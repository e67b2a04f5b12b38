package orders

import "errors"

// Domain errors for orders.
var (
	// ErrNotFound indicates the requested order was not found.
	ErrNotFound = errors.New("order not found")

	// Status transition errors.
	ErrCannotApprove = errors.New("cannot approve order in current status")
	ErrCannotCancel  = errors.New("cannot cancel order in current status")

	// Business rule errors.
	ErrDistributorMismatch = errors.New("order belongs to different distributor")
)
