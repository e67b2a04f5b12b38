package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StaleRouteScanJob flags routes that stayed unfinished past the cutoff.
// A completed route nobody liquidated means cash is sitting with a driver;
// an old active route usually means a stop outcome was never recorded.
type StaleRouteScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// NewStaleRouteScanJob initialises the stale route handler.
func NewStaleRouteScanJob(pool *pgxpool.Pool, logger *slog.Logger) *StaleRouteScanJob {
	return &StaleRouteScanJob{Pool: pool, Logger: logger}
}

// Handle executes the stale route scan.
func (j *StaleRouteScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("stale route scan: handler not configured")
	}
	var payload StaleRouteScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CutoffHours <= 0 {
		payload.CutoffHours = 48
	}

	cutoff := time.Now().Add(-time.Duration(payload.CutoffHours) * time.Hour)
	logger := j.logger().With(slog.Int("cutoff_hours", payload.CutoffHours))
	logger.Info("starting stale route scan")

	rows, err := j.Pool.Query(ctx, `
		SELECT id, route_number, distributor_id, driver_id, status, planned_date
		FROM routes
		WHERE status IN ('active', 'completed') AND created_at < $1
		ORDER BY created_at
	`, cutoff)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}
	defer rows.Close()

	flagged := 0
	for rows.Next() {
		var id, distributorID, driverID int64
		var routeNumber, status string
		var plannedDate time.Time
		if err := rows.Scan(&id, &routeNumber, &distributorID, &driverID, &status, &plannedDate); err != nil {
			return err
		}
		flagged++
		logger.Warn("stale route detected",
			slog.Int64("route_id", id),
			slog.String("route_number", routeNumber),
			slog.Int64("distributor_id", distributorID),
			slog.Int64("driver_id", driverID),
			slog.String("status", status),
			slog.Time("planned_date", plannedDate),
		)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	logger.Info("completed stale route scan", slog.Int("flagged", flagged))
	return nil
}

func (j *StaleRouteScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
