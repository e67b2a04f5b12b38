package routes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/routes/optimizer"
	"github.com/rutero-app/rutero/internal/shared"
)

// memOrder holds the order fields the route lifecycle touches.
type memOrder struct {
	ID            int64
	DistributorID int64
	CustomerID    int64
	Status        orders.Status
	PaymentStatus orders.PaymentStatus
	Method        orders.PaymentMethod
	Total         decimal.Decimal
	CustomerName  string
	Location      shared.Coordinate
	DeliveredAt   *time.Time
}

// memPayment is a ledger entry; RouteStopID nil means an office payment.
type memPayment struct {
	Reference   uuid.UUID
	OrderID     int64
	RouteStopID *int64
	Amount      decimal.Decimal
	Method      orders.PaymentMethod
	CreatedBy   int64
}

// memRepo is an in-memory Repository + TxRepository. WithTx snapshots state
// and restores it when the callback fails, mimicking a rollback.
type memRepo struct {
	mu       sync.Mutex
	routes   map[int64]*Route
	stops    map[int64]*RouteStop
	orders   map[int64]*memOrder
	payments []memPayment
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		routes: make(map[int64]*Route),
		stops:  make(map[int64]*RouteStop),
		orders: make(map[int64]*memOrder),
		nextID: 1000,
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) addOrder(o memOrder) *memOrder {
	if o.ID == 0 {
		o.ID = m.id()
	}
	if o.Status == "" {
		o.Status = orders.StatusApproved
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = orders.PaymentPending
	}
	m.orders[o.ID] = &o
	return &o
}

func (m *memRepo) snapshot() *memRepo {
	clone := newMemRepo()
	clone.nextID = m.nextID
	for id, rt := range m.routes {
		cp := *rt
		clone.routes[id] = &cp
	}
	for id, st := range m.stops {
		cp := *st
		clone.stops[id] = &cp
	}
	for id, o := range m.orders {
		cp := *o
		clone.orders[id] = &cp
	}
	clone.payments = append([]memPayment(nil), m.payments...)
	return clone
}

func (m *memRepo) restore(snap *memRepo) {
	m.routes = snap.routes
	m.stops = snap.stops
	m.orders = snap.orders
	m.payments = snap.payments
	m.nextID = snap.nextID
}

// Repository

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// Repository read methods lock the mutex themselves; they are only called
// outside WithTx, which holds it for the whole transaction.

func (m *memRepo) GetRoute(ctx context.Context, id int64) (*Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRoute(id)
}

func (m *memRepo) getRoute(id int64) (*Route, error) {
	rt, ok := m.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}
	cp := *rt
	return &cp, nil
}

func (m *memRepo) GetWithDetails(ctx context.Context, id int64) (*WithDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.withDetails(id)
}

func (m *memRepo) withDetails(id int64) (*WithDetails, error) {
	rt, err := m.getRoute(id)
	if err != nil {
		return nil, err
	}
	wd := WithDetails{Route: *rt, CollectedTotal: decimal.Zero}
	for _, stop := range m.stops {
		if stop.RouteID != id {
			continue
		}
		if stop.Status.Terminal() {
			wd.TerminalStops++
		}
	}
	for _, p := range m.payments {
		if p.RouteStopID == nil {
			continue
		}
		if stop, ok := m.stops[*p.RouteStopID]; ok && stop.RouteID == id {
			wd.CollectedTotal = wd.CollectedTotal.Add(p.Amount)
		}
	}
	return &wd, nil
}

func (m *memRepo) GetStopsWithOrders(ctx context.Context, routeID int64) ([]StopWithOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StopWithOrder
	for _, stop := range m.stops {
		if stop.RouteID != routeID {
			continue
		}
		o := m.orders[stop.OrderID]
		swo := StopWithOrder{
			RouteStop:     *stop,
			OrderTotal:    o.Total,
			PaymentMethod: o.Method,
			PaymentStatus: o.PaymentStatus,
			Collected:     m.collectedByStop(stop.ID),
		}
		out = append(out, swo)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SequenceOrder < out[i].SequenceOrder {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memRepo) GetStop(ctx context.Context, stopID int64) (*RouteStop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getStop(stopID)
}

func (m *memRepo) getStop(stopID int64) (*RouteStop, error) {
	stop, ok := m.stops[stopID]
	if !ok {
		return nil, ErrStopNotFound
	}
	cp := *stop
	return &cp, nil
}

func (m *memRepo) List(ctx context.Context, req ListRequest) ([]WithDetails, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WithDetails
	for id, rt := range m.routes {
		if rt.DistributorID != req.DistributorID {
			continue
		}
		if req.Status != nil && rt.Status != *req.Status {
			continue
		}
		if req.DriverID != nil && rt.DriverID != *req.DriverID {
			continue
		}
		wd, err := m.withDetails(id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *wd)
	}
	return out, len(out), nil
}

func (m *memRepo) GetRoutableOrders(ctx context.Context, distributorID int64, orderIDs []int64) ([]RoutableOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RoutableOrder
	for _, id := range orderIDs {
		o, ok := m.orders[id]
		if !ok || o.DistributorID != distributorID {
			continue
		}
		out = append(out, RoutableOrder{
			OrderID:       o.ID,
			DistributorID: o.DistributorID,
			CustomerID:    o.CustomerID,
			Status:        o.Status,
			PaymentMethod: o.Method,
			TotalAmount:   o.Total,
			CustomerName:  o.CustomerName,
			Location:      o.Location,
		})
	}
	return out, nil
}

func (m *memRepo) collectedByStop(stopID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.RouteStopID != nil && *p.RouteStopID == stopID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

func (m *memRepo) paidElsewhere(orderID, stopID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID != orderID {
			continue
		}
		if p.RouteStopID != nil && *p.RouteStopID == stopID {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum
}

func (m *memRepo) SettlementRows(ctx context.Context, routeID int64) ([]SettlementRow, error) {
	var out []SettlementRow
	for _, stop := range m.stops {
		if stop.RouteID != routeID {
			continue
		}
		o := m.orders[stop.OrderID]
		out = append(out, SettlementRow{
			StopID:        stop.ID,
			SequenceOrder: stop.SequenceOrder,
			StopStatus:    stop.Status,
			OrderID:       o.ID,
			CustomerName:  o.CustomerName,
			PaymentMethod: o.Method,
			OrderTotal:    o.Total,
			Collected:     m.collectedByStop(stop.ID),
			PaidElsewhere: m.paidElsewhere(o.ID, stop.ID),
		})
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].SequenceOrder < out[i].SequenceOrder {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// TxRepository

func (m *memRepo) InsertRoute(ctx context.Context, route Route) (int64, error) {
	route.ID = m.id()
	route.CreatedAt = time.Now()
	route.UpdatedAt = route.CreatedAt
	m.routes[route.ID] = &route
	return route.ID, nil
}

func (m *memRepo) InsertStop(ctx context.Context, stop RouteStop) (int64, error) {
	stop.ID = m.id()
	stop.CreatedAt = time.Now()
	stop.UpdatedAt = stop.CreatedAt
	m.stops[stop.ID] = &stop
	return stop.ID, nil
}

func (m *memRepo) NextRouteNumber(ctx context.Context, distributorID int64, date time.Time) (string, error) {
	seq := 1
	day := date.Format("20060102")
	for _, rt := range m.routes {
		if rt.DistributorID == distributorID && rt.PlannedDate.Format("20060102") == day {
			seq++
		}
	}
	return fmt.Sprintf("R-%s-%04d", day, seq), nil
}

func (m *memRepo) TransitionOrder(ctx context.Context, orderID int64, from, to orders.Status) error {
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return fmt.Errorf("order %d: %w", orderID, ErrOrderNotRoutable)
	}
	o.Status = to
	return nil
}

func (m *memRepo) GetStopForUpdate(ctx context.Context, stopID int64) (*RouteStop, error) {
	return m.getStop(stopID)
}

func (m *memRepo) GetRouteForUpdate(ctx context.Context, routeID int64) (*Route, error) {
	return m.getRoute(routeID)
}

func (m *memRepo) CloseStop(ctx context.Context, stopID int64, status StopStatus, deliveredAt *time.Time, notes *string) (bool, error) {
	stop, ok := m.stops[stopID]
	if !ok || stop.Status != StopPending {
		return false, nil
	}
	stop.Status = status
	stop.DeliveredAt = deliveredAt
	if notes != nil {
		stop.Notes = notes
	}
	stop.UpdatedAt = time.Now()
	return true, nil
}

func (m *memRepo) InsertStopPayment(ctx context.Context, input StopPaymentInput) error {
	stopID := input.RouteStopID
	m.payments = append(m.payments, memPayment{
		Reference:   input.Reference,
		OrderID:     input.OrderID,
		RouteStopID: &stopID,
		Amount:      input.Amount,
		Method:      input.Method,
		CreatedBy:   input.CreatedBy,
	})
	return nil
}

func (m *memRepo) addOfficePayment(orderID int64, amount decimal.Decimal, method orders.PaymentMethod) {
	m.payments = append(m.payments, memPayment{OrderID: orderID, Amount: amount, Method: method})
}

func (m *memRepo) OrderLedger(ctx context.Context, orderID int64) (*OrderLedgerSnapshot, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	paid := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID == orderID {
			paid = paid.Add(p.Amount)
		}
	}
	return &OrderLedgerSnapshot{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		DistributorID: o.DistributorID,
		Method:        o.Method,
		Status:        o.Status,
		Total:         o.Total,
		Paid:          paid,
	}, nil
}

func (m *memRepo) MarkOrderDelivered(ctx context.Context, orderID int64, deliveredAt time.Time, deliveredBy int64, status orders.PaymentStatus) error {
	o, ok := m.orders[orderID]
	if !ok || o.Status != orders.StatusInTransit {
		return fmt.Errorf("order %d not in transit", orderID)
	}
	o.Status = orders.StatusDelivered
	o.PaymentStatus = status
	o.DeliveredAt = &deliveredAt
	return nil
}

func (m *memRepo) CountPendingStops(ctx context.Context, routeID int64) (int, error) {
	n := 0
	for _, stop := range m.stops {
		if stop.RouteID == routeID && stop.Status == StopPending {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) CompleteRoute(ctx context.Context, routeID int64) (bool, error) {
	rt, ok := m.routes[routeID]
	if !ok || rt.Status != StatusActive {
		return false, nil
	}
	rt.Status = StatusCompleted
	rt.UpdatedAt = time.Now()
	return true, nil
}

func (m *memRepo) FinishRoute(ctx context.Context, routeID int64, finishedAt time.Time) (bool, error) {
	rt, ok := m.routes[routeID]
	if !ok || rt.Status != StatusCompleted {
		return false, nil
	}
	rt.Status = StatusFinished
	rt.FinishedAt = &finishedAt
	rt.UpdatedAt = time.Now()
	return true, nil
}

// fakeOptimizer returns a canned sequence.
type fakeOptimizer struct {
	ordered []int64
	ok      bool
	calls   int
}

func (f *fakeOptimizer) Optimize(ctx context.Context, origin shared.Coordinate, stops []optimizer.Stop) ([]int64, bool) {
	f.calls++
	return f.ordered, f.ok
}

// fakeWarehouses locates a distributor warehouse.
type fakeWarehouses struct {
	loc shared.Coordinate
	ok  bool
	err error
}

func (f *fakeWarehouses) WarehouseLocation(ctx context.Context, distributorID int64) (shared.Coordinate, bool, error) {
	return f.loc, f.ok, f.err
}
