// Package routes implements the delivery route lifecycle: planning a
// sequenced route from approved orders, recording driver outcomes per stop,
// cascading route completion, and liquidating a finished route against the
// payment ledger.
package routes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/shared"
)

// Status represents the lifecycle of a route. It never regresses:
// active -> completed is derived by cascade, completed -> finished is the
// explicit liquidation step and permanently terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFinished  Status = "finished"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFinished:
		return true
	default:
		return false
	}
}

// CanFinish checks if the route can be liquidated.
func (s Status) CanFinish() bool {
	return s == StatusCompleted
}

// StopStatus represents the lifecycle of a single stop. Both completed and
// failed are terminal; a stop never transitions twice.
type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopCompleted StopStatus = "completed"
	StopFailed    StopStatus = "failed"
)

// Terminal reports whether the stop has reached a final state.
func (s StopStatus) Terminal() bool {
	return s == StopCompleted || s == StopFailed
}

// Route is a driver's ordered set of stops for a planned date.
type Route struct {
	ID            int64      `json:"id" db:"id"`
	RouteNumber   string     `json:"route_number" db:"route_number"`
	DistributorID int64      `json:"distributor_id" db:"distributor_id"`
	DriverID      int64      `json:"driver_id" db:"driver_id"`
	CreatedBy     int64      `json:"created_by" db:"created_by"`
	PlannedDate   time.Time  `json:"planned_date" db:"planned_date"`
	Status        Status     `json:"status" db:"status"`
	TotalStops    int        `json:"total_stops" db:"total_stops"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
	FinishedAt    *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// RouteStop is one delivery attempt against a single order. Customer name,
// phone and delivery coordinates are snapshotted at route creation so the
// stop stays readable if the customer record changes later.
type RouteStop struct {
	ID            int64             `json:"id" db:"id"`
	RouteID       int64             `json:"route_id" db:"route_id"`
	OrderID       int64             `json:"order_id" db:"order_id"`
	SequenceOrder int               `json:"sequence_order" db:"sequence_order"`
	Status        StopStatus        `json:"status" db:"status"`
	Location      shared.Coordinate `json:"location" db:"-"`
	CustomerName  string            `json:"customer_name" db:"customer_name"`
	CustomerPhone *string           `json:"customer_phone,omitempty" db:"customer_phone"`
	Address       *string           `json:"address,omitempty" db:"address"`
	DeliveredAt   *time.Time        `json:"delivered_at,omitempty" db:"delivered_at"`
	Notes         *string           `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// WithDetails includes joined data for route listings.
type WithDetails struct {
	Route
	TerminalStops  int             `json:"terminal_stops" db:"terminal_stops"`
	CollectedTotal decimal.Decimal `json:"collected_total" db:"collected_total"`
}

// StopWithOrder includes order data for the route detail view.
type StopWithOrder struct {
	RouteStop
	OrderTotal    decimal.Decimal      `json:"order_total" db:"order_total"`
	PaymentMethod orders.PaymentMethod `json:"payment_method" db:"payment_method"`
	PaymentStatus orders.PaymentStatus `json:"payment_status" db:"payment_status"`
	Collected     decimal.Decimal      `json:"collected" db:"collected"`
}

// RoutableOrder is the typed projection used to validate route creation.
type RoutableOrder struct {
	OrderID       int64                `db:"order_id"`
	DistributorID int64                `db:"distributor_id"`
	CustomerID    int64                `db:"customer_id"`
	Status        orders.Status        `db:"status"`
	PaymentMethod orders.PaymentMethod `db:"payment_method"`
	TotalAmount   decimal.Decimal      `db:"total_amount"`
	CustomerName  string               `db:"customer_name"`
	CustomerPhone *string              `db:"customer_phone"`
	Address       *string              `db:"address"`
	Location      shared.Coordinate    `db:"-"`
}

// SettlementRow is the per-stop projection the liquidation computes over.
type SettlementRow struct {
	StopID        int64                `db:"stop_id"`
	SequenceOrder int                  `db:"sequence_order"`
	StopStatus    StopStatus           `db:"stop_status"`
	OrderID       int64                `db:"order_id"`
	CustomerName  string               `db:"customer_name"`
	PaymentMethod orders.PaymentMethod `db:"payment_method"`
	OrderTotal    decimal.Decimal      `db:"order_total"`
	// Collected is the sum of payments attributed to this stop.
	Collected decimal.Decimal `db:"collected"`
	// PaidElsewhere is the sum of payments against the order that were not
	// attributed to this stop (prior office payments, other routes).
	PaidElsewhere decimal.Decimal `db:"paid_elsewhere"`
}

// Settlement is the liquidation summary for a route.
type Settlement struct {
	RouteID        int64           `json:"route_id"`
	RouteNumber    string          `json:"route_number"`
	Status         Status          `json:"status"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	// Difference is expected minus collected; positive means shortfall.
	Difference decimal.Decimal `json:"difference"`
	Rows       []SettlementRow `json:"rows"`
}
