package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/platform/db"
)

// Repository defines the interface for ledger persistence.
type Repository interface {
	// Ledger reads the order total and payment sum in one snapshot.
	Ledger(ctx context.Context, orderID int64) (*LedgerSnapshot, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	// RecordPayment appends a ledger entry and refreshes the order's derived
	// payment status in one transaction.
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*Payment, error)
	// OrderOnFinishedRoute reports whether the order is attached to a stop of
	// a finished (liquidated) route.
	OrderOnFinishedRoute(ctx context.Context, orderID int64) (bool, error)
}

// RecordPaymentInput carries the immutable data a ledger entry requires.
type RecordPaymentInput struct {
	Reference     uuid.UUID
	OrderID       int64
	CustomerID    int64
	DistributorID int64
	Amount        decimal.Decimal
	Method        orders.PaymentMethod
	PaymentDate   time.Time
	CreatedBy     int64
	Notes         *string
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ledgerQuery aggregates the ledger inside the same statement that reads the
// order total, so both sides come from one consistent snapshot.
const ledgerQuery = `
	SELECT o.id, o.distributor_id, o.customer_id, o.status, o.payment_method,
	       o.total_amount,
	       COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.order_id = o.id), 0)
	FROM orders o
	WHERE o.id = $1
`

func (r *repository) Ledger(ctx context.Context, orderID int64) (*LedgerSnapshot, error) {
	var snap LedgerSnapshot
	err := r.pool.QueryRow(ctx, ledgerQuery, orderID).Scan(
		&snap.OrderID, &snap.DistributorID, &snap.CustomerID, &snap.Status,
		&snap.Method, &snap.Total, &snap.Paid,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	query := `
		SELECT id, reference, order_id, customer_id, distributor_id, amount, method,
		       payment_date, created_by, notes, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY payment_date, id
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		err := rows.Scan(
			&p.ID, &p.Reference, &p.OrderID, &p.CustomerID, &p.DistributorID, &p.Amount,
			&p.Method, &p.PaymentDate, &p.CreatedBy, &p.Notes, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *repository) RecordPayment(ctx context.Context, input RecordPaymentInput) (*Payment, error) {
	var created Payment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO payments (reference, order_id, customer_id, distributor_id, amount,
			                      method, payment_date, created_by, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, reference, order_id, customer_id, distributor_id, amount, method,
			          payment_date, created_by, notes, created_at
		`
		now := time.Now()
		err := tx.QueryRow(ctx, insert,
			input.Reference, input.OrderID, input.CustomerID, input.DistributorID, input.Amount,
			input.Method, input.PaymentDate, input.CreatedBy, input.Notes, now,
		).Scan(
			&created.ID, &created.Reference, &created.OrderID, &created.CustomerID,
			&created.DistributorID, &created.Amount, &created.Method, &created.PaymentDate,
			&created.CreatedBy, &created.Notes, &created.CreatedAt,
		)
		if err != nil {
			return err
		}

		var snap LedgerSnapshot
		if err := tx.QueryRow(ctx, ledgerQuery, input.OrderID).Scan(
			&snap.OrderID, &snap.DistributorID, &snap.CustomerID, &snap.Status,
			&snap.Method, &snap.Total, &snap.Paid,
		); err != nil {
			return err
		}
		_, status := ComputeBalance(snap.Total, snap.Paid)

		_, err = tx.Exec(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3`,
			status, now, input.OrderID,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *repository) OrderOnFinishedRoute(ctx context.Context, orderID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM route_stops rs
			INNER JOIN routes rt ON rt.id = rs.route_id
			WHERE rs.order_id = $1 AND rt.status = 'finished'
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&exists)
	return exists, err
}
