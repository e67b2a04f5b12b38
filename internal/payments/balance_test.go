package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rutero-app/rutero/internal/orders"
)

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		paid       int64
		wantDue    int64
		wantStatus orders.PaymentStatus
	}{
		{"nothing paid", 100000, 0, 100000, orders.PaymentPending},
		{"partial payment", 100000, 60000, 40000, orders.PaymentPartial},
		{"exact payment", 50000, 50000, 0, orders.PaymentPaid},
		{"overpayment floors due", 50000, 70000, 0, orders.PaymentPaid},
		{"one peso short", 100000, 99999, 1, orders.PaymentPartial},
		{"zero total", 0, 0, 0, orders.PaymentPending},
		{"zero total with payment", 0, 10000, 0, orders.PaymentPaid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			due, status := ComputeBalance(decimal.NewFromInt(tc.total), decimal.NewFromInt(tc.paid))
			assert.True(t, due.Equal(decimal.NewFromInt(tc.wantDue)), "due = %s", due)
			assert.Equal(t, tc.wantStatus, status)
		})
	}
}

func TestComputeBalanceFractionalAmounts(t *testing.T) {
	total := decimal.RequireFromString("99.99")
	paid := decimal.RequireFromString("33.33")

	due, status := ComputeBalance(total, paid)
	assert.True(t, due.Equal(decimal.RequireFromString("66.66")))
	assert.Equal(t, orders.PaymentPartial, status)
}
