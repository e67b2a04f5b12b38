package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutero-app/rutero/internal/orders"
)

// mockRepository keeps the ledger in memory.
type mockRepository struct {
	snapshots map[int64]*LedgerSnapshot
	entries   map[int64][]Payment
	finished  map[int64]bool
	nextID    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		snapshots: make(map[int64]*LedgerSnapshot),
		entries:   make(map[int64][]Payment),
		finished:  make(map[int64]bool),
		nextID:    1,
	}
}

func (m *mockRepository) addOrder(orderID int64, total int64, method orders.PaymentMethod) {
	m.snapshots[orderID] = &LedgerSnapshot{
		OrderID:       orderID,
		DistributorID: 1,
		CustomerID:    10,
		Status:        orders.StatusApproved,
		Method:        method,
		Total:         decimal.NewFromInt(total),
		Paid:          decimal.Zero,
	}
}

func (m *mockRepository) Ledger(ctx context.Context, orderID int64) (*LedgerSnapshot, error) {
	snap, ok := m.snapshots[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *snap
	return &cp, nil
}

func (m *mockRepository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	return m.entries[orderID], nil
}

func (m *mockRepository) RecordPayment(ctx context.Context, input RecordPaymentInput) (*Payment, error) {
	snap, ok := m.snapshots[input.OrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	p := Payment{
		ID:            m.nextID,
		Reference:     input.Reference,
		OrderID:       input.OrderID,
		CustomerID:    input.CustomerID,
		DistributorID: input.DistributorID,
		Amount:        input.Amount,
		Method:        input.Method,
		PaymentDate:   input.PaymentDate,
		CreatedBy:     input.CreatedBy,
		Notes:         input.Notes,
		CreatedAt:     time.Now(),
	}
	m.nextID++
	m.entries[input.OrderID] = append(m.entries[input.OrderID], p)
	snap.Paid = snap.Paid.Add(input.Amount)
	return &p, nil
}

func (m *mockRepository) OrderOnFinishedRoute(ctx context.Context, orderID int64) (bool, error) {
	return m.finished[orderID], nil
}

func TestRecordPayment(t *testing.T) {
	repo := newMockRepository()
	repo.addOrder(1, 100000, orders.MethodCash)
	svc := NewService(repo)

	payment, err := svc.RecordPayment(context.Background(), 1, RecordPaymentRequest{
		Amount: decimal.NewFromInt(60000),
		Method: orders.MethodTransfer,
	}, 42)
	require.NoError(t, err)

	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(60000)))
	assert.Equal(t, orders.MethodTransfer, payment.Method)
	assert.Equal(t, int64(42), payment.CreatedBy)
	assert.NotEqual(t, uuid.Nil, payment.Reference)
	assert.False(t, payment.PaymentDate.IsZero())

	balance, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, balance.Due.Equal(decimal.NewFromInt(40000)))
	assert.Equal(t, orders.PaymentPartial, balance.Status)
}

func TestRecordPaymentValidation(t *testing.T) {
	repo := newMockRepository()
	repo.addOrder(1, 100000, orders.MethodCash)
	svc := NewService(repo)

	tests := []struct {
		name    string
		req     RecordPaymentRequest
		wantErr error
	}{
		{"zero amount", RecordPaymentRequest{Amount: decimal.Zero, Method: orders.MethodCash}, ErrInvalidAmount},
		{"negative amount", RecordPaymentRequest{Amount: decimal.NewFromInt(-5), Method: orders.MethodCash}, ErrInvalidAmount},
		{"unknown method", RecordPaymentRequest{Amount: decimal.NewFromInt(10), Method: "barter"}, ErrInvalidMethod},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), 1, tc.req, 42)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Empty(t, repo.entries[1])
}

func TestRecordPaymentUnknownOrder(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.RecordPayment(context.Background(), 404, RecordPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: orders.MethodCash,
	}, 42)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRecordPaymentRejectsFinishedRoute(t *testing.T) {
	repo := newMockRepository()
	repo.addOrder(1, 100000, orders.MethodCash)
	repo.finished[1] = true
	svc := NewService(repo)

	_, err := svc.RecordPayment(context.Background(), 1, RecordPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: orders.MethodCash,
	}, 42)
	require.ErrorIs(t, err, ErrRouteFinished)
	assert.Empty(t, repo.entries[1])
}

func TestRecordPaymentRejectsCancelledOrder(t *testing.T) {
	repo := newMockRepository()
	repo.addOrder(1, 100000, orders.MethodCash)
	repo.snapshots[1].Status = orders.StatusCancelled
	svc := NewService(repo)

	_, err := svc.RecordPayment(context.Background(), 1, RecordPaymentRequest{
		Amount: decimal.NewFromInt(10000),
		Method: orders.MethodCash,
	}, 42)
	require.ErrorIs(t, err, ErrOrderCancelled)
	assert.Empty(t, repo.entries[1])
}

func TestRecordPaymentExplicitDate(t *testing.T) {
	repo := newMockRepository()
	repo.addOrder(1, 100000, orders.MethodCash)
	svc := NewService(repo)

	date := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	payment, err := svc.RecordPayment(context.Background(), 1, RecordPaymentRequest{
		Amount:      decimal.NewFromInt(10000),
		Method:      orders.MethodCash,
		PaymentDate: &date,
	}, 42)
	require.NoError(t, err)
	assert.True(t, payment.PaymentDate.Equal(date))
}

func TestBalanceUnknownOrder(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.Balance(context.Background(), 404)
	require.ErrorIs(t, err, ErrOrderNotFound)
}
