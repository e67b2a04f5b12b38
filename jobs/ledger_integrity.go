package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rutero-app/rutero/internal/observability"
	"github.com/rutero-app/rutero/internal/payments"
)

// LedgerIntegrityJob compares stored order payment statuses against the
// status derived from the ledger. Drift should never happen because statuses
// are only written inside the same transaction as the ledger entry; this
// sweep is the alarm if that assumption breaks.
type LedgerIntegrityJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewLedgerIntegrityJob initialises the integrity sweep handler.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Pool: pool, Logger: logger, Metrics: metrics}
}

type driftedOrder struct {
	OrderID int64
	Stored  string
	Derived string
}

// Handle executes the ledger integrity sweep.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	logger := j.logger().With(slog.Bool("repair", payload.Repair))
	logger.Info("starting ledger integrity sweep")

	drifted, scanned, err := j.scan(ctx)
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		return err
	}

	for _, d := range drifted {
		logger.Warn("payment status drift detected",
			slog.Int64("order_id", d.OrderID),
			slog.String("stored", d.Stored),
			slog.String("derived", d.Derived),
		)
	}
	if j.Metrics != nil {
		j.Metrics.SetLedgerDrift(len(drifted))
	}

	if payload.Repair && len(drifted) > 0 {
		repaired, err := j.repair(ctx, drifted)
		if err != nil {
			logger.Error("repair failed", slog.Any("error", err))
			return err
		}
		logger.Info("repaired drifted statuses", slog.Int("repaired", repaired))
	}

	logger.Info("completed ledger integrity sweep",
		slog.Int("scanned", scanned),
		slog.Int("drifted", len(drifted)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *LedgerIntegrityJob) scan(ctx context.Context) ([]driftedOrder, int, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT o.id, o.payment_status, o.total_amount,
		       COALESCE(SUM(p.amount), 0) AS paid
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.status <> 'cancelled'
		GROUP BY o.id, o.payment_status, o.total_amount
	`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var drifted []driftedOrder
	scanned := 0
	for rows.Next() {
		var orderID int64
		var stored string
		var total, paid decimal.Decimal
		if err := rows.Scan(&orderID, &stored, &total, &paid); err != nil {
			return nil, 0, err
		}
		scanned++
		_, derived := payments.ComputeBalance(total, paid)
		if stored != string(derived) {
			drifted = append(drifted, driftedOrder{
				OrderID: orderID,
				Stored:  stored,
				Derived: string(derived),
			})
		}
	}
	return drifted, scanned, rows.Err()
}

func (j *LedgerIntegrityJob) repair(ctx context.Context, drifted []driftedOrder) (int, error) {
	repaired := 0
	for _, d := range drifted {
		tag, err := j.Pool.Exec(ctx,
			`UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2 AND payment_status = $3`,
			d.Derived, d.OrderID, d.Stored,
		)
		if err != nil {
			return repaired, err
		}
		repaired += int(tag.RowsAffected())
	}
	return repaired, nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
