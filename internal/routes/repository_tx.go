package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rutero-app/rutero/internal/orders"
)

// txRepository implements TxRepository.
type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertRoute(ctx context.Context, route Route) (int64, error) {
	query := `
		INSERT INTO routes (route_number, distributor_id, driver_id, created_by,
		                    planned_date, status, total_stops, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		route.RouteNumber, route.DistributorID, route.DriverID, route.CreatedBy,
		route.PlannedDate, route.Status, route.TotalStops, route.Notes, time.Now(),
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertStop(ctx context.Context, stop RouteStop) (int64, error) {
	query := `
		INSERT INTO route_stops (route_id, order_id, sequence_order, status,
		                         latitude, longitude, customer_name, customer_phone,
		                         address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		stop.RouteID, stop.OrderID, stop.SequenceOrder, stop.Status,
		stop.Location.Lat, stop.Location.Lng, stop.CustomerName, stop.CustomerPhone,
		stop.Address, stop.Notes, time.Now(),
	).Scan(&id)
	return id, err
}

// NextRouteNumber allocates the next per-distributor per-day route number
// in the R-YYYYMMDD-NNNN scheme. A transaction-scoped advisory lock on the
// distributor serializes concurrent planners; under repeatable read a bare
// count would hand the same sequence to both.
func (t *txRepository) NextRouteNumber(ctx context.Context, distributorID int64, date time.Time) (string, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, distributorID); err != nil {
		return "", err
	}

	var seq int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) + 1
		FROM routes
		WHERE distributor_id = $1 AND planned_date::date = $2::date
	`, distributorID, date).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("R-%s-%04d", date.Format("20060102"), seq), nil
}

func (t *txRepository) TransitionOrder(ctx context.Context, orderID int64, from, to orders.Status) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, to, time.Now(), orderID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w (expected %s)", orderID, ErrOrderNotRoutable, from)
	}
	return nil
}

func (t *txRepository) GetStopForUpdate(ctx context.Context, stopID int64) (*RouteStop, error) {
	query := `SELECT` + stopColumns + ` FROM route_stops WHERE id = $1 FOR UPDATE`
	var s RouteStop
	if err := scanStop(t.tx.QueryRow(ctx, query, stopID), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStopNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (t *txRepository) GetRouteForUpdate(ctx context.Context, routeID int64) (*Route, error) {
	query := `SELECT` + routeColumns + ` FROM routes WHERE id = $1 FOR UPDATE`
	var rt Route
	if err := scanRoute(t.tx.QueryRow(ctx, query, routeID), &rt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (t *txRepository) CloseStop(ctx context.Context, stopID int64, status StopStatus, deliveredAt *time.Time, notes *string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE route_stops
		SET status = $1,
		    delivered_at = $2,
		    notes = COALESCE($3, notes),
		    updated_at = $4
		WHERE id = $5 AND status = 'pending'
	`, status, deliveredAt, notes, time.Now(), stopID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepository) InsertStopPayment(ctx context.Context, input StopPaymentInput) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments (reference, order_id, customer_id, distributor_id, route_stop_id,
		                      amount, method, payment_date, created_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		input.Reference, input.OrderID, input.CustomerID, input.DistributorID, input.RouteStopID,
		input.Amount, input.Method, input.PaymentDate, input.CreatedBy, input.Notes,
		time.Now(),
	)
	return err
}

func (t *txRepository) OrderLedger(ctx context.Context, orderID int64) (*OrderLedgerSnapshot, error) {
	query := `
		SELECT o.id, o.customer_id, o.distributor_id, o.payment_method, o.status,
		       o.total_amount,
		       COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.order_id = o.id), 0)
		FROM orders o
		WHERE o.id = $1
	`
	var snap OrderLedgerSnapshot
	err := t.tx.QueryRow(ctx, query, orderID).Scan(
		&snap.OrderID, &snap.CustomerID, &snap.DistributorID, &snap.Method,
		&snap.Status, &snap.Total, &snap.Paid,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (t *txRepository) MarkOrderDelivered(ctx context.Context, orderID int64, deliveredAt time.Time, deliveredBy int64, status orders.PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET status = 'delivered',
		    payment_status = $1,
		    delivered_at = $2,
		    delivered_by = $3,
		    updated_at = $4
		WHERE id = $5 AND status = 'in_transit'
	`, status, deliveredAt, deliveredBy, time.Now(), orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w (expected in_transit)", orderID, ErrOrderNotRoutable)
	}
	return nil
}

func (t *txRepository) CountPendingStops(ctx context.Context, routeID int64) (int, error) {
	var pending int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM route_stops WHERE route_id = $1 AND status = 'pending'
	`, routeID).Scan(&pending)
	return pending, err
}

func (t *txRepository) CompleteRoute(ctx context.Context, routeID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE routes SET status = 'completed', updated_at = $1
		WHERE id = $2 AND status = 'active'
	`, time.Now(), routeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepository) FinishRoute(ctx context.Context, routeID int64, finishedAt time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE routes SET status = 'finished', finished_at = $1, updated_at = $2
		WHERE id = $3 AND status = 'completed'
	`, finishedAt, time.Now(), routeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepository) SettlementRows(ctx context.Context, routeID int64) ([]SettlementRow, error) {
	rows, err := t.tx.Query(ctx, settlementRowsQuery, routeID)
	if err != nil {
		return nil, err
	}
	return scanSettlementRows(rows)
}
