package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity recomputes order payment statuses from the ledger.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskStaleRouteScan flags routes that never reached liquidation.
	TaskStaleRouteScan = "routes:stale_scan"
)

// LedgerIntegrityPayload configures a ledger integrity sweep.
type LedgerIntegrityPayload struct {
	// Repair rewrites drifted payment statuses instead of only reporting them.
	Repair bool `json:"repair"`
}

// NewLedgerIntegrityTask constructs an Asynq task.
func NewLedgerIntegrityTask(repair bool) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{Repair: repair})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// StaleRouteScanPayload configures a stale route sweep.
type StaleRouteScanPayload struct {
	// CutoffHours is how long a route may stay unfinished before it is flagged.
	CutoffHours int `json:"cutoff_hours"`
}

// NewStaleRouteScanTask constructs an Asynq task.
func NewStaleRouteScanTask(cutoffHours int) (*asynq.Task, error) {
	data, err := json.Marshal(StaleRouteScanPayload{CutoffHours: cutoffHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleRouteScan, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueLedgerIntegrity enqueues an on-demand integrity sweep.
func (c *Client) EnqueueLedgerIntegrity(ctx context.Context, repair bool) (*asynq.TaskInfo, error) {
	task, err := NewLedgerIntegrityTask(repair)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
