package payments

import (
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
)

// ComputeBalance derives the amount due and payment status from an order
// total and the ledger sum. Due is floored at zero: overpayment never
// produces a negative balance.
func ComputeBalance(total, paid decimal.Decimal) (decimal.Decimal, orders.PaymentStatus) {
	due := total.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}

	switch {
	case paid.IsZero():
		return due, orders.PaymentPending
	case paid.GreaterThanOrEqual(total):
		return due, orders.PaymentPaid
	default:
		return due, orders.PaymentPartial
	}
}
