// Package distributors provides distributor and warehouse lookups.
package distributors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rutero-app/rutero/internal/shared"
)

// ErrNotFound indicates the requested distributor was not found.
var ErrNotFound = errors.New("distributor not found")

// Distributor represents a tenant of the platform.
type Distributor struct {
	ID       int64             `json:"id" db:"id"`
	Name     string            `json:"name" db:"name"`
	Location shared.Coordinate `json:"location" db:"-"`
}

// Repository defines the interface for distributor persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Distributor, error)
	// WarehouseLocation returns the distributor's warehouse coordinate.
	// The boolean is false when no usable coordinate is on record.
	WarehouseLocation(ctx context.Context, distributorID int64) (shared.Coordinate, bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Distributor, error) {
	query := `
		SELECT id, name, COALESCE(warehouse_latitude, 0), COALESCE(warehouse_longitude, 0)
		FROM distributors
		WHERE id = $1
	`
	var d Distributor
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Location.Lat, &d.Location.Lng)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repository) WarehouseLocation(ctx context.Context, distributorID int64) (shared.Coordinate, bool, error) {
	d, err := r.GetByID(ctx, distributorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.Coordinate{}, false, nil
		}
		return shared.Coordinate{}, false, err
	}
	return d.Location, d.Location.Valid(), nil
}
