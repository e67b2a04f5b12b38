package routes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
)

// CreateRouteRequest represents a request to create a route from approved orders.
type CreateRouteRequest struct {
	DistributorID int64     `json:"distributor_id" validate:"required,gt=0"`
	DriverID      int64     `json:"driver_id" validate:"required,gt=0"`
	OrderIDs      []int64   `json:"order_ids" validate:"required,min=1,dive,gt=0"`
	PlannedDate   time.Time `json:"planned_date" validate:"required"`
	Notes         *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CompleteStopRequest represents a driver's successful delivery outcome.
type CompleteStopRequest struct {
	AmountCollected decimal.Decimal      `json:"amount_collected"`
	PaymentMethod   orders.PaymentMethod `json:"payment_method" validate:"omitempty"`
	Notes           *string              `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// FailStopRequest represents a driver's failed delivery outcome.
type FailStopRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// CompleteStopResult reports the state after a completion.
type CompleteStopResult struct {
	Stop           RouteStop            `json:"stop"`
	BalanceDue     decimal.Decimal      `json:"balance_due"`
	PaymentStatus  orders.PaymentStatus `json:"payment_status"`
	RouteCompleted bool                 `json:"route_completed"`
}

// FailStopResult reports the state after a failure record.
type FailStopResult struct {
	Stop           RouteStop `json:"stop"`
	RouteCompleted bool      `json:"route_completed"`
}

// ListRequest represents filters for listing routes.
type ListRequest struct {
	DistributorID int64      `json:"distributor_id" validate:"required,gt=0"`
	DriverID      *int64     `json:"driver_id,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	Limit         int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int        `json:"offset" validate:"gte=0"`
}

// ListResponse represents the API response for route listings.
type ListResponse struct {
	Routes []WithDetails `json:"routes"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// DetailResponse represents the API response for a single route.
type DetailResponse struct {
	Route WithDetails     `json:"route"`
	Stops []StopWithOrder `json:"stops"`
}

// SettlementResponse is the wire form of a liquidation summary.
type SettlementResponse struct {
	RouteID        int64           `json:"route_id"`
	RouteNumber    string          `json:"route_number"`
	Status         Status          `json:"status"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	Difference     decimal.Decimal `json:"difference"`
}
