package routes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func finishedSettlement(routeID int64) *Settlement {
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	return &Settlement{
		RouteID:        routeID,
		RouteNumber:    "R-20260314-0001",
		Status:         StatusFinished,
		FinishedAt:     &now,
		TotalExpected:  decimal.NewFromInt(200000),
		TotalCollected: decimal.NewFromInt(150000),
		Difference:     decimal.NewFromInt(50000),
	}
}

func TestSettlementCacheRoundTrip(t *testing.T) {
	cache := NewRedisSettlementCache(testRedis(t), time.Hour)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)

	s := finishedSettlement(1)
	s.Rows = []SettlementRow{
		{
			StopID:        10,
			SequenceOrder: 1,
			StopStatus:    StopCompleted,
			OrderID:       100,
			CustomerName:  "Tienda La Esquina",
			PaymentMethod: "cash",
			OrderTotal:    decimal.NewFromInt(200000),
			Collected:     decimal.NewFromInt(150000),
			PaidElsewhere: decimal.Zero,
		},
	}
	cache.Set(ctx, s)

	got, ok := cache.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "R-20260314-0001", got.RouteNumber)
	assert.True(t, got.Difference.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, StatusFinished, got.Status)

	// The per-stop breakdown feeds the CSV export, so a cache hit must
	// carry it intact.
	require.Len(t, got.Rows, 1)
	assert.Equal(t, int64(10), got.Rows[0].StopID)
	assert.Equal(t, "Tienda La Esquina", got.Rows[0].CustomerName)
	assert.True(t, got.Rows[0].Collected.Equal(decimal.NewFromInt(150000)))
}

func TestSettlementCacheSkipsUnfinished(t *testing.T) {
	cache := NewRedisSettlementCache(testRedis(t), time.Hour)
	ctx := context.Background()

	s := finishedSettlement(2)
	s.Status = StatusCompleted
	cache.Set(ctx, s)

	_, ok := cache.Get(ctx, 2)
	assert.False(t, ok)
}

func TestSettlementCacheIgnoresCorruptEntry(t *testing.T) {
	client := testRedis(t)
	cache := NewRedisSettlementCache(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "rutero:settlement:3", "not-json", time.Hour).Err())

	_, ok := cache.Get(ctx, 3)
	assert.False(t, ok)
}

func TestWriteSettlementCSV(t *testing.T) {
	s := finishedSettlement(1)
	s.Rows = []SettlementRow{
		{
			StopID:        10,
			SequenceOrder: 1,
			StopStatus:    StopCompleted,
			OrderID:       100,
			CustomerName:  "Tienda La Esquina",
			PaymentMethod: "cash",
			OrderTotal:    decimal.NewFromInt(120000),
			Collected:     decimal.NewFromInt(120000),
			PaidElsewhere: decimal.Zero,
		},
		{
			StopID:        11,
			SequenceOrder: 2,
			StopStatus:    StopFailed,
			OrderID:       101,
			CustomerName:  "Minimercado Centro",
			PaymentMethod: "cash",
			OrderTotal:    decimal.NewFromInt(80000),
			Collected:     decimal.NewFromInt(30000),
			PaidElsewhere: decimal.Zero,
		},
	}

	var b strings.Builder
	require.NoError(t, WriteSettlementCSV(&b, s))
	out := b.String()

	assert.Contains(t, out, "Route,R-20260314-0001")
	assert.Contains(t, out, "Tienda La Esquina")
	assert.Contains(t, out, "failed")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// Summary header + 6 summary rows + stop header + 2 stop rows.
	assert.Len(t, lines, 10)
}
