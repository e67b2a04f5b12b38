package routes

import (
	"context"

	"github.com/rutero-app/rutero/internal/routes/optimizer"
	"github.com/rutero-app/rutero/internal/shared"
)

// Optimizer sequences stops from a warehouse origin. ok=false means the
// caller keeps its own ordering.
type Optimizer interface {
	Optimize(ctx context.Context, origin shared.Coordinate, stops []optimizer.Stop) ([]int64, bool)
}

// WarehouseLocator resolves a distributor's warehouse coordinate.
type WarehouseLocator interface {
	WarehouseLocation(ctx context.Context, distributorID int64) (shared.Coordinate, bool, error)
}

// SettlementCache stores computed liquidation summaries for fast re-reads.
type SettlementCache interface {
	Get(ctx context.Context, routeID int64) (*Settlement, bool)
	Set(ctx context.Context, settlement *Settlement)
}

// Service provides business logic for the route lifecycle.
type Service struct {
	repo       Repository
	optimizer  Optimizer
	warehouses WarehouseLocator
	cache      SettlementCache
}

// NewService creates a new service.
func NewService(repo Repository, opt Optimizer, warehouses WarehouseLocator) *Service {
	return &Service{repo: repo, optimizer: opt, warehouses: warehouses}
}

// SetSettlementCache installs an optional cache for liquidation summaries.
func (s *Service) SetSettlementCache(cache SettlementCache) {
	s.cache = cache
}

// GetWithDetails retrieves a route with aggregate details.
func (s *Service) GetWithDetails(ctx context.Context, id int64) (*WithDetails, error) {
	return s.repo.GetWithDetails(ctx, id)
}

// GetStopsWithOrders retrieves the stops of a route with order data.
func (s *Service) GetStopsWithOrders(ctx context.Context, routeID int64) ([]StopWithOrder, error) {
	return s.repo.GetStopsWithOrders(ctx, routeID)
}

// List returns a paginated list of routes.
func (s *Service) List(ctx context.Context, req ListRequest) ([]WithDetails, int, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	return s.repo.List(ctx, req)
}
