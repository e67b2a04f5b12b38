// Package customers provides customer lookups for the distribution engine.
package customers

import (
	"time"

	"github.com/rutero-app/rutero/internal/shared"
)

// Customer represents a storefront customer owned by a distributor.
type Customer struct {
	ID            int64             `json:"id" db:"id"`
	DistributorID int64             `json:"distributor_id" db:"distributor_id"`
	Name          string            `json:"name" db:"name"`
	Phone         *string           `json:"phone,omitempty" db:"phone"`
	Address       *string           `json:"address,omitempty" db:"address"`
	Location      shared.Coordinate `json:"location" db:"-"`
	CreditLimit   *float64          `json:"credit_limit,omitempty" db:"credit_limit"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}
