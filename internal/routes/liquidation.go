package routes

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FinishRoute liquidates a completed route: it freezes the route as
// finished and returns the settlement summary comparing what the driver
// should have collected against the ledger. Finishing an already finished
// route is idempotent and returns the same summary; an active route is
// rejected so no stop can sneak in after the numbers are drawn.
func (s *Service) FinishRoute(ctx context.Context, routeID int64) (*Settlement, error) {
	route, err := s.repo.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	switch route.Status {
	case StatusFinished:
		// Replay: the route is frozen, recompute over the frozen ledger.
		return s.settle(ctx, route)
	case StatusActive:
		return nil, fmt.Errorf("route %d has open stops: %w", routeID, ErrRouteNotCompleted)
	}

	var settlement *Settlement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetRouteForUpdate(ctx, routeID)
		if err != nil {
			return err
		}
		if locked.Status == StatusActive {
			return fmt.Errorf("route %d has open stops: %w", routeID, ErrRouteNotCompleted)
		}

		now := time.Now()
		if locked.Status == StatusCompleted {
			won, err := tx.FinishRoute(ctx, routeID, now)
			if err != nil {
				return err
			}
			if won {
				locked.Status = StatusFinished
				locked.FinishedAt = &now
			}
		}
		if locked.Status != StatusFinished {
			// Lost the guard to a concurrent finisher; read its timestamp.
			fresh, err := tx.GetRouteForUpdate(ctx, routeID)
			if err != nil {
				return err
			}
			locked = fresh
		}

		rows, err := tx.SettlementRows(ctx, routeID)
		if err != nil {
			return err
		}
		settlement = computeSettlement(locked, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, settlement)
	}
	return settlement, nil
}

// GetSettlement returns the liquidation summary for a finished route.
func (s *Service) GetSettlement(ctx context.Context, routeID int64) (*Settlement, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, routeID); ok {
			return cached, nil
		}
	}

	route, err := s.repo.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status != StatusFinished {
		return nil, fmt.Errorf("route %d is %s: %w", routeID, route.Status, ErrRouteNotFinished)
	}
	return s.settle(ctx, route)
}

func (s *Service) settle(ctx context.Context, route *Route) (*Settlement, error) {
	rows, err := s.repo.SettlementRows(ctx, route.ID)
	if err != nil {
		return nil, err
	}
	settlement := computeSettlement(route, rows)
	if s.cache != nil {
		s.cache.Set(ctx, settlement)
	}
	return settlement, nil
}

// computeSettlement folds per-stop rows into the route summary. Expected
// counts only orders the driver was supposed to collect on: credit orders
// are invoiced later, and any amount already paid off-route reduces what
// the driver owed. Collected counts every ledger entry attributed to the
// route's stops regardless of method.
func computeSettlement(route *Route, rows []SettlementRow) *Settlement {
	expected := decimal.Zero
	collected := decimal.Zero
	for _, row := range rows {
		collected = collected.Add(row.Collected)
		if !row.PaymentMethod.CollectOnDelivery() {
			continue
		}
		owed := row.OrderTotal.Sub(row.PaidElsewhere)
		if owed.IsNegative() {
			owed = decimal.Zero
		}
		expected = expected.Add(owed)
	}

	return &Settlement{
		RouteID:        route.ID,
		RouteNumber:    route.RouteNumber,
		Status:         route.Status,
		FinishedAt:     route.FinishedAt,
		TotalExpected:  expected,
		TotalCollected: collected,
		Difference:     expected.Sub(collected),
		Rows:           rows,
	}
}
