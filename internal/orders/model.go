// Package orders provides order entity logic for the distribution engine.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of an order.
type Status string

const (
	StatusPendingApproval Status = "pending_approval" // Placed, awaiting distributor review
	StatusApproved        Status = "approved"         // Accepted, eligible for routing
	StatusInTransit       Status = "in_transit"       // Assigned to an active route
	StatusDelivered       Status = "delivered"        // Driver completed the stop
	StatusCancelled       Status = "cancelled"        // Rejected or withdrawn
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingApproval, StatusApproved, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is the closed transition table for order statuses.
var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusApproved, StatusCancelled},
	StatusApproved:        {StatusInTransit, StatusCancelled},
	StatusInTransit:       {StatusDelivered},
	StatusDelivered:       {},
	StatusCancelled:       {},
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanApprove checks if the order can be approved.
func (s Status) CanApprove() bool {
	return s.CanTransition(StatusApproved)
}

// CanRoute checks if the order can be placed on a route.
func (s Status) CanRoute() bool {
	return s == StatusApproved
}

// CanCancel checks if the order can be cancelled.
func (s Status) CanCancel() bool {
	return s.CanTransition(StatusCancelled)
}

// PaymentStatus is derived from the payment ledger, never set directly.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending" // No payments recorded
	PaymentPartial PaymentStatus = "partial" // Some money collected, balance remains
	PaymentPaid    PaymentStatus = "paid"    // Ledger covers the full total
)

// IsValid checks if the payment status is valid.
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	default:
		return false
	}
}

// PaymentMethod enumerates how an order is settled.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodCredit   PaymentMethod = "credit"
)

// IsValid checks if the payment method is valid.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCredit:
		return true
	default:
		return false
	}
}

// CollectOnDelivery reports whether the driver is expected to collect
// money for this method at the door. Credit orders settle later against
// the customer's credit line.
func (m PaymentMethod) CollectOnDelivery() bool {
	return m == MethodCash || m == MethodTransfer
}

// Order represents a customer order owned by a distributor. Orders are
// never deleted, only status-transitioned.
type Order struct {
	ID            int64           `json:"id" db:"id"`
	DistributorID int64           `json:"distributor_id" db:"distributor_id"`
	CustomerID    int64           `json:"customer_id" db:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status        Status          `json:"status" db:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	DeliveredBy   *int64          `json:"delivered_by,omitempty" db:"delivered_by"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// WithCustomer includes joined customer data for display.
type WithCustomer struct {
	Order
	CustomerName  string  `json:"customer_name" db:"customer_name"`
	CustomerPhone *string `json:"customer_phone,omitempty" db:"customer_phone"`
}
