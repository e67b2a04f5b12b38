package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested customer was not found.
var ErrNotFound = errors.New("customer not found")

// Repository defines the interface for customer persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Customer, error)
	ListByDistributor(ctx context.Context, distributorID int64, limit, offset int) ([]Customer, int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	query := `
		SELECT id, distributor_id, name, phone, address,
		       COALESCE(latitude, 0), COALESCE(longitude, 0),
		       credit_limit, created_at, updated_at
		FROM customers
		WHERE id = $1
	`
	var c Customer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.DistributorID, &c.Name, &c.Phone, &c.Address,
		&c.Location.Lat, &c.Location.Lng,
		&c.CreditLimit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListByDistributor(ctx context.Context, distributorID int64, limit, offset int) ([]Customer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM customers WHERE distributor_id = $1`, distributorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, distributor_id, name, phone, address,
		       COALESCE(latitude, 0), COALESCE(longitude, 0),
		       credit_limit, created_at, updated_at
		FROM customers
		WHERE distributor_id = $1
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, distributorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		err := rows.Scan(
			&c.ID, &c.DistributorID, &c.Name, &c.Phone, &c.Address,
			&c.Location.Lat, &c.Location.Lng,
			&c.CreditLimit, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}

	return out, total, rows.Err()
}
