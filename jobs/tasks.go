package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity verifies the trial balance and stored account balances.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskBudgetWarmup pre-computes budget actuals into the cache.
	TaskBudgetWarmup = "budgets:warmup"
)

const dateLayout = "2006-01-02"

// IntegrityPayload selects the trial balance date. Empty means today.
type IntegrityPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// BudgetWarmupPayload selects the budgets to warm. Zero year means the year of AsOf.
type BudgetWarmupPayload struct {
	Year int    `json:"year,omitempty"`
	AsOf string `json:"as_of,omitempty"`
}

// NewIntegrityTask constructs a ledger integrity task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data, asynq.MaxRetry(1), asynq.Timeout(5*time.Minute)), nil
}

// NewBudgetWarmupTask constructs a budget warmup task.
func NewBudgetWarmupTask(payload BudgetWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBudgetWarmup, data, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)), nil
}

func parseAsOf(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("jobs: invalid as_of %q: %w", raw, err)
	}
	return day, nil
}
