package routes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rutero-app/rutero/internal/payments"
)

// CompleteDelivery records a successful delivery outcome for a stop in one
// transaction: the collected amount goes to the payment ledger, the order
// becomes delivered with a freshly derived payment status, the stop closes,
// and route completion cascades. A stop that is already terminal yields
// ErrStopAlreadyClosed and no writes, which is what makes driver retries
// over flaky networks safe.
func (s *Service) CompleteDelivery(ctx context.Context, stopID int64, req CompleteStopRequest, actorID int64) (*CompleteStopResult, error) {
	if req.AmountCollected.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if req.AmountCollected.IsPositive() && !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("payment method %q: %w", req.PaymentMethod, payments.ErrInvalidMethod)
	}

	var result CompleteStopResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stop, err := tx.GetStopForUpdate(ctx, stopID)
		if err != nil {
			return err
		}
		if stop.Status.Terminal() {
			return fmt.Errorf("stop %d (%s): %w", stopID, stop.Status, ErrStopAlreadyClosed)
		}

		route, err := tx.GetRouteForUpdate(ctx, stop.RouteID)
		if err != nil {
			return err
		}
		if route.Status == StatusFinished {
			return fmt.Errorf("route %d: %w", route.ID, ErrRouteFinished)
		}

		ledger, err := tx.OrderLedger(ctx, stop.OrderID)
		if err != nil {
			return err
		}

		now := time.Now()
		if req.AmountCollected.IsPositive() {
			// A stop yields at most one door collection, so the receipt
			// reference is derived from the stop id and stays stable on retry.
			err := tx.InsertStopPayment(ctx, StopPaymentInput{
				Reference:     uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("STOP:%d", stop.ID))),
				OrderID:       stop.OrderID,
				CustomerID:    ledger.CustomerID,
				DistributorID: ledger.DistributorID,
				RouteStopID:   stop.ID,
				Amount:        req.AmountCollected,
				Method:        req.PaymentMethod,
				PaymentDate:   now,
				CreatedBy:     actorID,
				Notes:         req.Notes,
			})
			if err != nil {
				return fmt.Errorf("record payment: %w", err)
			}
			// Re-read so the derived status reflects the post-insert ledger
			// rather than a locally mutated counter.
			ledger, err = tx.OrderLedger(ctx, stop.OrderID)
			if err != nil {
				return err
			}
		}

		due, paymentStatus := payments.ComputeBalance(ledger.Total, ledger.Paid)

		if err := tx.MarkOrderDelivered(ctx, stop.OrderID, now, actorID, paymentStatus); err != nil {
			return err
		}

		closed, err := tx.CloseStop(ctx, stopID, StopCompleted, &now, req.Notes)
		if err != nil {
			return err
		}
		if !closed {
			return fmt.Errorf("stop %d: %w", stopID, ErrStopAlreadyClosed)
		}

		completed, err := s.cascade(ctx, tx, stop.RouteID)
		if err != nil {
			return err
		}

		stop.Status = StopCompleted
		stop.DeliveredAt = &now
		if req.Notes != nil {
			stop.Notes = req.Notes
		}
		result = CompleteStopResult{
			Stop:           *stop,
			BalanceDue:     due,
			PaymentStatus:  paymentStatus,
			RouteCompleted: completed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// MarkFailed records a failed delivery attempt. The order and the ledger
// are untouched; the stop still reaches a terminal state and counts toward
// route completion.
func (s *Service) MarkFailed(ctx context.Context, stopID int64, req FailStopRequest, actorID int64) (*FailStopResult, error) {
	if req.Reason == "" {
		return nil, ErrReasonRequired
	}

	var result FailStopResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stop, err := tx.GetStopForUpdate(ctx, stopID)
		if err != nil {
			return err
		}
		if stop.Status.Terminal() {
			return fmt.Errorf("stop %d (%s): %w", stopID, stop.Status, ErrStopAlreadyClosed)
		}

		route, err := tx.GetRouteForUpdate(ctx, stop.RouteID)
		if err != nil {
			return err
		}
		if route.Status == StatusFinished {
			return fmt.Errorf("route %d: %w", route.ID, ErrRouteFinished)
		}

		reason := fmt.Sprintf("failed: %s", req.Reason)
		closed, err := tx.CloseStop(ctx, stopID, StopFailed, nil, &reason)
		if err != nil {
			return err
		}
		if !closed {
			return fmt.Errorf("stop %d: %w", stopID, ErrStopAlreadyClosed)
		}

		completed, err := s.cascade(ctx, tx, stop.RouteID)
		if err != nil {
			return err
		}

		stop.Status = StopFailed
		stop.Notes = &reason
		result = FailStopResult{Stop: *stop, RouteCompleted: completed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// cascade transitions the route to completed once every stop is terminal.
// The conditional write tolerates two stops finishing concurrently: only
// one writer wins, the other is a no-op, and the final state is the same.
func (s *Service) cascade(ctx context.Context, tx TxRepository, routeID int64) (bool, error) {
	pending, err := tx.CountPendingStops(ctx, routeID)
	if err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}
	return tx.CompleteRoute(ctx, routeID)
}
