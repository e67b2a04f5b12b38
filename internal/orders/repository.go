package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for order persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetWithCustomer(ctx context.Context, id int64) (*WithCustomer, error)
	List(ctx context.Context, req ListRequest) ([]WithCustomer, int, error)
	// UpdateStatus performs a conditional transition guarded by the current
	// status. Returns ErrNotFound when the guard does not match.
	UpdateStatus(ctx context.Context, id int64, from, to Status, notes *string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const orderColumns = `
	id, distributor_id, customer_id, total_amount, payment_method,
	status, payment_status, delivered_at, delivered_by, notes,
	created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.DistributorID, &o.CustomerID, &o.TotalAmount, &o.PaymentMethod,
		&o.Status, &o.PaymentStatus, &o.DeliveredAt, &o.DeliveredBy, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	var o Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) GetWithCustomer(ctx context.Context, id int64) (*WithCustomer, error) {
	query := `
		SELECT o.id, o.distributor_id, o.customer_id, o.total_amount, o.payment_method,
		       o.status, o.payment_status, o.delivered_at, o.delivered_by, o.notes,
		       o.created_at, o.updated_at,
		       c.name AS customer_name,
		       c.phone AS customer_phone
		FROM orders o
		INNER JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`
	var wc WithCustomer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&wc.ID, &wc.DistributorID, &wc.CustomerID, &wc.TotalAmount, &wc.PaymentMethod,
		&wc.Status, &wc.PaymentStatus, &wc.DeliveredAt, &wc.DeliveredBy, &wc.Notes,
		&wc.CreatedAt, &wc.UpdatedAt, &wc.CustomerName, &wc.CustomerPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wc, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]WithCustomer, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("o.distributor_id = $%d", argPos))
	args = append(args, req.DistributorID)
	argPos++

	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	if req.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("o.payment_status = $%d", argPos))
		args = append(args, *req.PaymentStatus)
		argPos++
	}

	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}

	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders o %s`, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.distributor_id, o.customer_id, o.total_amount, o.payment_method,
		       o.status, o.payment_status, o.delivered_at, o.delivered_by, o.notes,
		       o.created_at, o.updated_at,
		       c.name AS customer_name,
		       c.phone AS customer_phone
		FROM orders o
		INNER JOIN customers c ON c.id = o.customer_id
		%s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []WithCustomer
	for rows.Next() {
		var wc WithCustomer
		err := rows.Scan(
			&wc.ID, &wc.DistributorID, &wc.CustomerID, &wc.TotalAmount, &wc.PaymentMethod,
			&wc.Status, &wc.PaymentStatus, &wc.DeliveredAt, &wc.DeliveredBy, &wc.Notes,
			&wc.CreatedAt, &wc.UpdatedAt, &wc.CustomerName, &wc.CustomerPhone,
		)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, wc)
	}

	return results, total, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status, notes *string) error {
	query := `
		UPDATE orders
		SET status = $1,
		    notes = COALESCE($2, notes),
		    updated_at = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := r.pool.Exec(ctx, query, to, notes, time.Now(), id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
