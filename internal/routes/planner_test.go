package routes

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/shared"
)

func plannedDate() time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
}

func seedApprovedOrders(repo *memRepo, distributorID int64, n int) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		o := repo.addOrder(memOrder{
			DistributorID: distributorID,
			CustomerID:    repo.id(),
			Status:        orders.StatusApproved,
			Method:        orders.MethodCash,
			Total:         decimal.NewFromInt(int64(100 * (i + 1))),
			CustomerName:  "Bodega " + string(rune('A'+i)),
			Location:      shared.Coordinate{Lat: 4.6 + float64(i)*0.01, Lng: -74.08},
		})
		ids = append(ids, o.ID)
	}
	return ids
}

func TestCreateRouteHappyPath(t *testing.T) {
	repo := newMemRepo()
	orderIDs := seedApprovedOrders(repo, 1, 3)
	opt := &fakeOptimizer{ordered: []int64{orderIDs[2], orderIDs[0], orderIDs[1]}, ok: true}
	svc := NewService(repo, opt, &fakeWarehouses{loc: shared.Coordinate{Lat: 4.60, Lng: -74.07}, ok: true})

	routeID, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
		DistributorID: 1,
		DriverID:      7,
		OrderIDs:      orderIDs,
		PlannedDate:   plannedDate(),
	}, 42)
	require.NoError(t, err)
	require.NotZero(t, routeID)

	route, err := repo.GetRoute(context.Background(), routeID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, route.Status)
	assert.Equal(t, 3, route.TotalStops)
	assert.Equal(t, "R-20260314-0001", route.RouteNumber)
	assert.Equal(t, int64(42), route.CreatedBy)

	stops, err := repo.GetStopsWithOrders(context.Background(), routeID)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	// Optimizer ordering wins and sequence numbers are contiguous from 1.
	assert.Equal(t, orderIDs[2], stops[0].OrderID)
	assert.Equal(t, orderIDs[0], stops[1].OrderID)
	assert.Equal(t, orderIDs[1], stops[2].OrderID)
	for i, stop := range stops {
		assert.Equal(t, i+1, stop.SequenceOrder)
		assert.Equal(t, StopPending, stop.Status)
		assert.NotEmpty(t, stop.CustomerName)
	}

	// Every routed order moved to in_transit.
	for _, id := range orderIDs {
		assert.Equal(t, orders.StatusInTransit, repo.orders[id].Status)
	}
}

func TestCreateRouteOptimizerFallback(t *testing.T) {
	repo := newMemRepo()
	orderIDs := seedApprovedOrders(repo, 1, 3)
	opt := &fakeOptimizer{ok: false}
	svc := NewService(repo, opt, &fakeWarehouses{loc: shared.Coordinate{Lat: 4.60, Lng: -74.07}, ok: true})

	routeID, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
		DistributorID: 1,
		DriverID:      7,
		OrderIDs:      orderIDs,
		PlannedDate:   plannedDate(),
	}, 42)
	require.NoError(t, err)

	stops, err := repo.GetStopsWithOrders(context.Background(), routeID)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	// Request order preserved when the optimizer degrades.
	for i, stop := range stops {
		assert.Equal(t, orderIDs[i], stop.OrderID)
	}
	assert.Equal(t, 1, opt.calls)
}

func TestCreateRouteSkipsOptimizerForSingleStop(t *testing.T) {
	repo := newMemRepo()
	orderIDs := seedApprovedOrders(repo, 1, 1)
	opt := &fakeOptimizer{ordered: orderIDs, ok: true}
	svc := NewService(repo, opt, &fakeWarehouses{loc: shared.Coordinate{Lat: 4.60, Lng: -74.07}, ok: true})

	_, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
		DistributorID: 1,
		DriverID:      7,
		OrderIDs:      orderIDs,
		PlannedDate:   plannedDate(),
	}, 42)
	require.NoError(t, err)
	assert.Zero(t, opt.calls)
}

func TestCreateRouteSkipsOptimizerWithoutWarehouse(t *testing.T) {
	repo := newMemRepo()
	orderIDs := seedApprovedOrders(repo, 1, 2)
	opt := &fakeOptimizer{ordered: []int64{orderIDs[1], orderIDs[0]}, ok: true}
	svc := NewService(repo, opt, &fakeWarehouses{ok: false})

	routeID, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
		DistributorID: 1,
		DriverID:      7,
		OrderIDs:      orderIDs,
		PlannedDate:   plannedDate(),
	}, 42)
	require.NoError(t, err)
	assert.Zero(t, opt.calls)

	stops, err := repo.GetStopsWithOrders(context.Background(), routeID)
	require.NoError(t, err)
	assert.Equal(t, orderIDs[0], stops[0].OrderID)
}

func TestCreateRouteValidation(t *testing.T) {
	repo := newMemRepo()
	approved := seedApprovedOrders(repo, 1, 1)
	delivered := repo.addOrder(memOrder{
		DistributorID: 1,
		Status:        orders.StatusDelivered,
		Method:        orders.MethodCash,
		Total:         decimal.NewFromInt(100),
		CustomerName:  "Entregada",
		Location:      shared.Coordinate{Lat: 4.6, Lng: -74.08},
	})
	noCoords := repo.addOrder(memOrder{
		DistributorID: 1,
		Status:        orders.StatusApproved,
		Method:        orders.MethodCash,
		Total:         decimal.NewFromInt(100),
		CustomerName:  "Sin GPS",
	})
	otherDistributor := repo.addOrder(memOrder{
		DistributorID: 2,
		Status:        orders.StatusApproved,
		Method:        orders.MethodCash,
		Total:         decimal.NewFromInt(100),
		CustomerName:  "Ajena",
		Location:      shared.Coordinate{Lat: 4.6, Lng: -74.08},
	})

	svc := NewService(repo, &fakeOptimizer{}, &fakeWarehouses{ok: false})

	tests := []struct {
		name     string
		orderIDs []int64
		wantErr  error
	}{
		{"no orders", nil, ErrNoOrders},
		{"duplicate order", []int64{approved[0], approved[0]}, ErrDuplicateOrder},
		{"unknown order", []int64{approved[0], 999999}, ErrOrderNotFound},
		{"wrong distributor", []int64{otherDistributor.ID}, ErrOrderNotFound},
		{"not approved", []int64{delivered.ID}, ErrOrderNotRoutable},
		{"missing coordinates", []int64{noCoords.ID}, ErrMissingCoordinates},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
				DistributorID: 1,
				DriverID:      7,
				OrderIDs:      tc.orderIDs,
				PlannedDate:   plannedDate(),
			}, 42)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	// Validation failures must not leave partial state behind.
	assert.Empty(t, repo.routes)
	assert.Empty(t, repo.stops)
	assert.Equal(t, orders.StatusApproved, repo.orders[approved[0]].Status)
}

func TestRouteNumberIncrementsPerDay(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &fakeOptimizer{}, &fakeWarehouses{ok: false})

	for i := 0; i < 2; i++ {
		orderIDs := seedApprovedOrders(repo, 1, 1)
		routeID, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
			DistributorID: 1,
			DriverID:      7,
			OrderIDs:      orderIDs,
			PlannedDate:   plannedDate(),
		}, 42)
		require.NoError(t, err)
		route, err := repo.GetRoute(context.Background(), routeID)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, "R-20260314-0001", route.RouteNumber)
		} else {
			assert.Equal(t, "R-20260314-0002", route.RouteNumber)
		}
	}
}

func TestRouteNumbersUniqueUnderConcurrentPlanning(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, &fakeOptimizer{}, &fakeWarehouses{ok: false})

	const planners = 8
	batches := make([][]int64, planners)
	for i := range batches {
		batches[i] = seedApprovedOrders(repo, 1, 1)
	}

	routeIDs := make([]int64, planners)
	var wg sync.WaitGroup
	for i := 0; i < planners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.CreateRoute(context.Background(), CreateRouteRequest{
				DistributorID: 1,
				DriverID:      7,
				OrderIDs:      batches[i],
				PlannedDate:   plannedDate(),
			}, 42)
			assert.NoError(t, err)
			routeIDs[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, planners)
	for _, id := range routeIDs {
		route, err := repo.GetRoute(context.Background(), id)
		require.NoError(t, err)
		_, dup := seen[route.RouteNumber]
		assert.False(t, dup, "route number %s allocated twice", route.RouteNumber)
		seen[route.RouteNumber] = struct{}{}
	}
	assert.Len(t, seen, planners)
}
