package routes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
)

// Repository defines the interface for route persistence.
type Repository interface {
	// Read operations
	GetRoute(ctx context.Context, id int64) (*Route, error)
	GetWithDetails(ctx context.Context, id int64) (*WithDetails, error)
	GetStopsWithOrders(ctx context.Context, routeID int64) ([]StopWithOrder, error)
	GetStop(ctx context.Context, stopID int64) (*RouteStop, error)
	List(ctx context.Context, req ListRequest) ([]WithDetails, int, error)
	// GetRoutableOrders resolves candidate orders with customer snapshots
	// for route creation validation.
	GetRoutableOrders(ctx context.Context, distributorID int64, orderIDs []int64) ([]RoutableOrder, error)
	SettlementRows(ctx context.Context, routeID int64) ([]SettlementRow, error)

	// Write operations (transactional)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// OrderLedgerSnapshot is the in-transaction read of an order's financials.
type OrderLedgerSnapshot struct {
	OrderID       int64
	CustomerID    int64
	DistributorID int64
	Method        orders.PaymentMethod
	Status        orders.Status
	Total         decimal.Decimal
	Paid          decimal.Decimal
}

// StopPaymentInput carries a ledger entry attributed to a route stop.
type StopPaymentInput struct {
	Reference     uuid.UUID
	OrderID       int64
	CustomerID    int64
	DistributorID int64
	RouteStopID   int64
	Amount        decimal.Decimal
	Method        orders.PaymentMethod
	PaymentDate   time.Time
	CreatedBy     int64
	Notes         *string
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	InsertRoute(ctx context.Context, route Route) (int64, error)
	InsertStop(ctx context.Context, stop RouteStop) (int64, error)
	NextRouteNumber(ctx context.Context, distributorID int64, date time.Time) (string, error)
	// TransitionOrder performs a conditional order status update; a guard
	// mismatch fails the transaction.
	TransitionOrder(ctx context.Context, orderID int64, from, to orders.Status) error

	// GetStopForUpdate loads a stop with a row lock, serializing concurrent
	// completion attempts for the same stop.
	GetStopForUpdate(ctx context.Context, stopID int64) (*RouteStop, error)
	GetRouteForUpdate(ctx context.Context, routeID int64) (*Route, error)
	// CloseStop performs the compare-and-swap pending -> terminal write.
	// Returns false when another writer already closed the stop.
	CloseStop(ctx context.Context, stopID int64, status StopStatus, deliveredAt *time.Time, notes *string) (bool, error)

	InsertStopPayment(ctx context.Context, input StopPaymentInput) error
	// OrderLedger reads the order total and ledger sum within the transaction.
	OrderLedger(ctx context.Context, orderID int64) (*OrderLedgerSnapshot, error)
	MarkOrderDelivered(ctx context.Context, orderID int64, deliveredAt time.Time, deliveredBy int64, status orders.PaymentStatus) error

	CountPendingStops(ctx context.Context, routeID int64) (int, error)
	// CompleteRoute performs the guarded active -> completed cascade write.
	// Returns false when the route was not active (another stop already won).
	CompleteRoute(ctx context.Context, routeID int64) (bool, error)
	// FinishRoute performs the guarded completed -> finished liquidation
	// write. Returns false when the guard does not match.
	FinishRoute(ctx context.Context, routeID int64, finishedAt time.Time) (bool, error)
	SettlementRows(ctx context.Context, routeID int64) ([]SettlementRow, error)
}

// repository implements Repository using pgxpool.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx wraps the callback in a read-committed transaction. Every write
// path locks its rows up front (FOR UPDATE plus guarded updates), so later
// statements must see row versions committed after those locks were taken;
// repeatable read would pin the pre-lock snapshot and hand concurrent
// planners the same daily route sequence.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const routeColumns = `
	id, route_number, distributor_id, driver_id, created_by, planned_date,
	status, total_stops, notes, finished_at, created_at, updated_at`

func scanRoute(row pgx.Row, rt *Route) error {
	return row.Scan(
		&rt.ID, &rt.RouteNumber, &rt.DistributorID, &rt.DriverID, &rt.CreatedBy,
		&rt.PlannedDate, &rt.Status, &rt.TotalStops, &rt.Notes, &rt.FinishedAt,
		&rt.CreatedAt, &rt.UpdatedAt,
	)
}

func (r *repository) GetRoute(ctx context.Context, id int64) (*Route, error) {
	query := `SELECT` + routeColumns + ` FROM routes WHERE id = $1`
	var rt Route
	if err := scanRoute(r.pool.QueryRow(ctx, query, id), &rt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &rt, nil
}

const routeDetailsQuery = `
	SELECT rt.id, rt.route_number, rt.distributor_id, rt.driver_id, rt.created_by,
	       rt.planned_date, rt.status, rt.total_stops, rt.notes, rt.finished_at,
	       rt.created_at, rt.updated_at,
	       COUNT(rs.id) FILTER (WHERE rs.status <> 'pending') AS terminal_stops,
	       COALESCE((SELECT SUM(p.amount)
	                 FROM payments p
	                 INNER JOIN route_stops prs ON prs.id = p.route_stop_id
	                 WHERE prs.route_id = rt.id), 0) AS collected_total
	FROM routes rt
	LEFT JOIN route_stops rs ON rs.route_id = rt.id`

const routeDetailsGroup = `
	GROUP BY rt.id, rt.route_number, rt.distributor_id, rt.driver_id, rt.created_by,
	         rt.planned_date, rt.status, rt.total_stops, rt.notes, rt.finished_at,
	         rt.created_at, rt.updated_at`

func scanRouteDetails(row pgx.Row, wd *WithDetails) error {
	return row.Scan(
		&wd.ID, &wd.RouteNumber, &wd.DistributorID, &wd.DriverID, &wd.CreatedBy,
		&wd.PlannedDate, &wd.Status, &wd.TotalStops, &wd.Notes, &wd.FinishedAt,
		&wd.CreatedAt, &wd.UpdatedAt, &wd.TerminalStops, &wd.CollectedTotal,
	)
}

func (r *repository) GetWithDetails(ctx context.Context, id int64) (*WithDetails, error) {
	query := routeDetailsQuery + ` WHERE rt.id = $1` + routeDetailsGroup
	var wd WithDetails
	if err := scanRouteDetails(r.pool.QueryRow(ctx, query, id), &wd); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &wd, nil
}

func (r *repository) GetStopsWithOrders(ctx context.Context, routeID int64) ([]StopWithOrder, error) {
	query := `
		SELECT rs.id, rs.route_id, rs.order_id, rs.sequence_order, rs.status,
		       COALESCE(rs.latitude, 0), COALESCE(rs.longitude, 0),
		       rs.customer_name, rs.customer_phone, rs.address,
		       rs.delivered_at, rs.notes, rs.created_at, rs.updated_at,
		       o.total_amount AS order_total,
		       o.payment_method,
		       o.payment_status,
		       COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.route_stop_id = rs.id), 0) AS collected
		FROM route_stops rs
		INNER JOIN orders o ON o.id = rs.order_id
		WHERE rs.route_id = $1
		ORDER BY rs.sequence_order, rs.id
	`
	rows, err := r.pool.Query(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StopWithOrder
	for rows.Next() {
		var s StopWithOrder
		err := rows.Scan(
			&s.ID, &s.RouteID, &s.OrderID, &s.SequenceOrder, &s.Status,
			&s.Location.Lat, &s.Location.Lng,
			&s.CustomerName, &s.CustomerPhone, &s.Address,
			&s.DeliveredAt, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
			&s.OrderTotal, &s.PaymentMethod, &s.PaymentStatus, &s.Collected,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

const stopColumns = `
	id, route_id, order_id, sequence_order, status,
	COALESCE(latitude, 0), COALESCE(longitude, 0),
	customer_name, customer_phone, address, delivered_at, notes,
	created_at, updated_at`

func scanStop(row pgx.Row, s *RouteStop) error {
	return row.Scan(
		&s.ID, &s.RouteID, &s.OrderID, &s.SequenceOrder, &s.Status,
		&s.Location.Lat, &s.Location.Lng,
		&s.CustomerName, &s.CustomerPhone, &s.Address, &s.DeliveredAt, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
	)
}

func (r *repository) GetStop(ctx context.Context, stopID int64) (*RouteStop, error) {
	query := `SELECT` + stopColumns + ` FROM route_stops WHERE id = $1`
	var s RouteStop
	if err := scanStop(r.pool.QueryRow(ctx, query, stopID), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStopNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]WithDetails, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("rt.distributor_id = $%d", argPos))
	args = append(args, req.DistributorID)
	argPos++

	if req.DriverID != nil {
		conditions = append(conditions, fmt.Sprintf("rt.driver_id = $%d", argPos))
		args = append(args, *req.DriverID)
		argPos++
	}

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("rt.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("rt.planned_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}

	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("rt.planned_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM routes rt %s`, whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`%s %s %s
		ORDER BY rt.planned_date DESC, rt.id DESC
		LIMIT $%d OFFSET $%d
	`, routeDetailsQuery, whereClause, routeDetailsGroup, argPos, argPos+1)

	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []WithDetails
	for rows.Next() {
		var wd WithDetails
		if err := scanRouteDetails(rows, &wd); err != nil {
			return nil, 0, err
		}
		results = append(results, wd)
	}

	return results, total, rows.Err()
}

func (r *repository) GetRoutableOrders(ctx context.Context, distributorID int64, orderIDs []int64) ([]RoutableOrder, error) {
	query := `
		SELECT o.id AS order_id,
		       o.distributor_id,
		       o.customer_id,
		       o.status,
		       o.payment_method,
		       o.total_amount,
		       c.name AS customer_name,
		       c.phone AS customer_phone,
		       c.address,
		       COALESCE(c.latitude, 0),
		       COALESCE(c.longitude, 0)
		FROM orders o
		INNER JOIN customers c ON c.id = o.customer_id
		WHERE o.distributor_id = $1 AND o.id = ANY($2)
	`
	rows, err := r.pool.Query(ctx, query, distributorID, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoutableOrder
	for rows.Next() {
		var ro RoutableOrder
		err := rows.Scan(
			&ro.OrderID, &ro.DistributorID, &ro.CustomerID, &ro.Status,
			&ro.PaymentMethod, &ro.TotalAmount, &ro.CustomerName,
			&ro.CustomerPhone, &ro.Address, &ro.Location.Lat, &ro.Location.Lng,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, ro)
	}

	return out, rows.Err()
}

const settlementRowsQuery = `
	SELECT rs.id AS stop_id,
	       rs.sequence_order,
	       rs.status AS stop_status,
	       o.id AS order_id,
	       rs.customer_name,
	       o.payment_method,
	       o.total_amount AS order_total,
	       COALESCE((SELECT SUM(p.amount) FROM payments p
	                 WHERE p.route_stop_id = rs.id), 0) AS collected,
	       COALESCE((SELECT SUM(p.amount) FROM payments p
	                 WHERE p.order_id = o.id
	                   AND (p.route_stop_id IS NULL OR p.route_stop_id <> rs.id)), 0) AS paid_elsewhere
	FROM route_stops rs
	INNER JOIN orders o ON o.id = rs.order_id
	WHERE rs.route_id = $1
	ORDER BY rs.sequence_order, rs.id
`

func scanSettlementRows(rows pgx.Rows) ([]SettlementRow, error) {
	defer rows.Close()
	var out []SettlementRow
	for rows.Next() {
		var sr SettlementRow
		err := rows.Scan(
			&sr.StopID, &sr.SequenceOrder, &sr.StopStatus, &sr.OrderID,
			&sr.CustomerName, &sr.PaymentMethod, &sr.OrderTotal,
			&sr.Collected, &sr.PaidElsewhere,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (r *repository) SettlementRows(ctx context.Context, routeID int64) ([]SettlementRow, error) {
	rows, err := r.pool.Query(ctx, settlementRowsQuery, routeID)
	if err != nil {
		return nil, err
	}
	return scanSettlementRows(rows)
}
