package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
)

// Service handles ledger business logic.
type Service struct {
	repo Repository
}

// NewService creates a new service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Balance derives an order's outstanding balance and payment status from its
// total and the ledger, read in one consistent snapshot.
func (s *Service) Balance(ctx context.Context, orderID int64) (*Balance, error) {
	snap, err := s.repo.Ledger(ctx, orderID)
	if err != nil {
		return nil, err
	}
	due, status := ComputeBalance(snap.Total, snap.Paid)
	return &Balance{
		OrderID: snap.OrderID,
		Total:   snap.Total,
		Paid:    snap.Paid,
		Due:     due,
		Status:  status,
	}, nil
}

// RecordPaymentRequest represents a manual payment recorded by office staff.
type RecordPaymentRequest struct {
	Amount      decimal.Decimal      `json:"amount" validate:"required"`
	Method      orders.PaymentMethod `json:"method" validate:"required"`
	PaymentDate *time.Time           `json:"payment_date,omitempty"`
	Notes       *string              `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// RecordPayment appends a payment to an order's ledger. The ledger is
// append-only: there is no update or delete path.
func (s *Service) RecordPayment(ctx context.Context, orderID int64, req RecordPaymentRequest, actorID int64) (*Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethod, req.Method)
	}

	snap, err := s.repo.Ledger(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if snap.Status == orders.StatusCancelled {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrOrderCancelled)
	}

	finished, err := s.repo.OrderOnFinishedRoute(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("check route state: %w", err)
	}
	if finished {
		return nil, ErrRouteFinished
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	return s.repo.RecordPayment(ctx, RecordPaymentInput{
		Reference:     uuid.New(),
		OrderID:       orderID,
		CustomerID:    snap.CustomerID,
		DistributorID: snap.DistributorID,
		Amount:        req.Amount,
		Method:        req.Method,
		PaymentDate:   paymentDate,
		CreatedBy:     actorID,
		Notes:         req.Notes,
	})
}

// ListByOrder returns the ledger entries for an order, oldest first.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}
