package routes

import (
	"context"
	"fmt"

	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/routes/optimizer"
)

// CreateRoute builds a route and its sequenced stops from approved orders.
// Validation happens before any write; the route, its stops, and the order
// transitions are applied in one transaction, so a failure leaves nothing
// behind.
func (s *Service) CreateRoute(ctx context.Context, req CreateRouteRequest, createdBy int64) (int64, error) {
	if len(req.OrderIDs) == 0 {
		return 0, ErrNoOrders
	}

	seen := make(map[int64]struct{}, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		if _, dup := seen[id]; dup {
			return 0, fmt.Errorf("order %d: %w", id, ErrDuplicateOrder)
		}
		seen[id] = struct{}{}
	}

	candidates, err := s.repo.GetRoutableOrders(ctx, req.DistributorID, req.OrderIDs)
	if err != nil {
		return 0, fmt.Errorf("resolve orders: %w", err)
	}

	byID := make(map[int64]*RoutableOrder, len(candidates))
	for i := range candidates {
		byID[candidates[i].OrderID] = &candidates[i]
	}

	for _, id := range req.OrderIDs {
		candidate, ok := byID[id]
		if !ok {
			return 0, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		if !candidate.Status.CanRoute() {
			return 0, fmt.Errorf("order %d (%s): %w", id, candidate.Status, ErrOrderNotRoutable)
		}
		if !candidate.Location.Valid() {
			return 0, fmt.Errorf("order %d: %w", id, ErrMissingCoordinates)
		}
	}

	sequence := s.sequenceStops(ctx, req.DistributorID, req.OrderIDs, byID)

	var routeID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		routeNumber, err := tx.NextRouteNumber(ctx, req.DistributorID, req.PlannedDate)
		if err != nil {
			return fmt.Errorf("route number: %w", err)
		}

		id, err := tx.InsertRoute(ctx, Route{
			RouteNumber:   routeNumber,
			DistributorID: req.DistributorID,
			DriverID:      req.DriverID,
			CreatedBy:     createdBy,
			PlannedDate:   req.PlannedDate,
			Status:        StatusActive,
			TotalStops:    len(sequence),
			Notes:         req.Notes,
		})
		if err != nil {
			return fmt.Errorf("insert route: %w", err)
		}
		routeID = id

		for i, orderID := range sequence {
			candidate := byID[orderID]
			stop := RouteStop{
				RouteID:       routeID,
				OrderID:       orderID,
				SequenceOrder: i + 1,
				Status:        StopPending,
				Location:      candidate.Location,
				CustomerName:  candidate.CustomerName,
				CustomerPhone: candidate.CustomerPhone,
				Address:       candidate.Address,
			}
			if _, err := tx.InsertStop(ctx, stop); err != nil {
				return fmt.Errorf("insert stop %d: %w", i+1, err)
			}
			if err := tx.TransitionOrder(ctx, orderID, orders.StatusApproved, orders.StatusInTransit); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return routeID, nil
}

// sequenceStops asks the optimizer for an ordering and falls back to the
// caller-supplied order when the gateway degrades. A single stop or a
// missing warehouse coordinate skips the external call entirely.
func (s *Service) sequenceStops(ctx context.Context, distributorID int64, orderIDs []int64, byID map[int64]*RoutableOrder) []int64 {
	if s.optimizer == nil || len(orderIDs) < 2 {
		return orderIDs
	}

	origin, ok, err := s.warehouses.WarehouseLocation(ctx, distributorID)
	if err != nil || !ok {
		return orderIDs
	}

	stops := make([]optimizer.Stop, 0, len(orderIDs))
	for _, id := range orderIDs {
		stops = append(stops, optimizer.Stop{ID: id, Location: byID[id].Location})
	}

	ordered, ok := s.optimizer.Optimize(ctx, origin, stops)
	if !ok {
		return orderIDs
	}
	return ordered
}
