// Package payments provides the append-only payment ledger and the order
// balance calculator. Payments are immutable once created; all financial
// state is recomputed from the ledger rather than mutated in place.
package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/orders"
)

// Payment is a ledger entry recording money received against an order.
type Payment struct {
	ID            int64                `json:"id" db:"id"`
	Reference     uuid.UUID            `json:"reference" db:"reference"`
	OrderID       int64                `json:"order_id" db:"order_id"`
	CustomerID    int64                `json:"customer_id" db:"customer_id"`
	DistributorID int64                `json:"distributor_id" db:"distributor_id"`
	Amount        decimal.Decimal      `json:"amount" db:"amount"`
	Method        orders.PaymentMethod `json:"method" db:"method"`
	PaymentDate   time.Time            `json:"payment_date" db:"payment_date"`
	CreatedBy     int64                `json:"created_by" db:"created_by"`
	Notes         *string              `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time            `json:"created_at" db:"created_at"`
}

// LedgerSnapshot is a consistent read of an order's total and its ledger sum.
type LedgerSnapshot struct {
	OrderID       int64                `db:"order_id"`
	DistributorID int64                `db:"distributor_id"`
	CustomerID    int64                `db:"customer_id"`
	Status        orders.Status        `db:"status"`
	Method        orders.PaymentMethod `db:"method"`
	Total         decimal.Decimal      `db:"total"`
	Paid          decimal.Decimal      `db:"paid"`
}

// Balance describes what an order still owes.
type Balance struct {
	OrderID int64                `json:"order_id"`
	Total   decimal.Decimal      `json:"total"`
	Paid    decimal.Decimal      `json:"paid"`
	Due     decimal.Decimal      `json:"due"`
	Status  orders.PaymentStatus `json:"status"`
}
