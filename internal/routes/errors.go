package routes

import "errors"

// Domain errors for the route lifecycle.
var (
	// ErrRouteNotFound indicates the requested route was not found.
	ErrRouteNotFound = errors.New("route not found")
	// ErrStopNotFound indicates the requested stop was not found.
	ErrStopNotFound = errors.New("stop not found")

	// State errors.
	ErrStopAlreadyClosed = errors.New("stop already completed or failed")
	ErrRouteNotCompleted = errors.New("route must be completed before liquidation")
	ErrRouteNotFinished  = errors.New("route has not been liquidated")
	ErrRouteFinished     = errors.New("route already liquidated")

	// Validation errors.
	ErrNoOrders           = errors.New("at least one order is required")
	ErrDuplicateOrder     = errors.New("order listed more than once")
	ErrOrderNotRoutable   = errors.New("order is not approved for routing")
	ErrOrderNotFound      = errors.New("order not found for distributor")
	ErrMissingCoordinates = errors.New("order delivery address has no usable coordinates")
	ErrInvalidAmount      = errors.New("collected amount cannot be negative")
	ErrReasonRequired     = errors.New("failure reason is required")
)
