package orders

import (
	"context"
	"fmt"
)

// Service provides business logic for orders.
type Service struct {
	repo Repository
}

// NewService creates a new service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves an order by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetWithCustomer retrieves an order with joined customer data.
func (s *Service) GetWithCustomer(ctx context.Context, id int64) (*WithCustomer, error) {
	return s.repo.GetWithCustomer(ctx, id)
}

// List returns a paginated list of orders.
func (s *Service) List(ctx context.Context, req ListRequest) ([]WithCustomer, int, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	return s.repo.List(ctx, req)
}

// Approve moves a pending order to approved so it becomes routable.
func (s *Service) Approve(ctx context.Context, id int64, req ApproveRequest) (*Order, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if existing.DistributorID != req.DistributorID {
		return nil, fmt.Errorf("order %d: %w", id, ErrDistributorMismatch)
	}

	if !existing.Status.CanApprove() {
		return nil, fmt.Errorf("%w: %s", ErrCannotApprove, existing.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, existing.Status, StatusApproved, req.Notes); err != nil {
		return nil, fmt.Errorf("approve order: %w", err)
	}

	return s.repo.GetByID(ctx, id)
}

// Cancel cancels an order that is not yet in transit.
func (s *Service) Cancel(ctx context.Context, id int64, req CancelRequest) (*Order, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if existing.DistributorID != req.DistributorID {
		return nil, fmt.Errorf("order %d: %w", id, ErrDistributorMismatch)
	}

	if !existing.Status.CanCancel() {
		return nil, fmt.Errorf("%w: %s", ErrCannotCancel, existing.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, existing.Status, StatusCancelled, &req.Reason); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	return s.repo.GetByID(ctx, id)
}
