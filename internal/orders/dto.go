package orders

import "time"

// ApproveRequest represents a request to approve a pending order. The
// distributor id scopes the action: approving another distributor's order
// is forbidden.
type ApproveRequest struct {
	DistributorID int64   `json:"distributor_id" validate:"required,gt=0"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CancelRequest represents a request to cancel an order, scoped by
// distributor like ApproveRequest.
type CancelRequest struct {
	DistributorID int64  `json:"distributor_id" validate:"required,gt=0"`
	Reason        string `json:"reason" validate:"required,min=5,max=500"`
}

// ListRequest represents filters for listing orders.
type ListRequest struct {
	DistributorID int64          `json:"distributor_id" validate:"required,gt=0"`
	CustomerID    *int64         `json:"customer_id,omitempty"`
	Status        *Status        `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	Limit         int            `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int            `json:"offset" validate:"gte=0"`
}

// ListResponse represents the API response for order listings.
type ListResponse struct {
	Orders []WithCustomer `json:"orders"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
