package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ines-erp/ledger/internal/jobs"
)

// Warmer pre-computes budget actuals for a financial year.
type Warmer interface {
	Warm(ctx context.Context, year int, asOf time.Time) (int, error)
}

// BudgetWarmupJob fills the budget actual cache ahead of variance reads.
type BudgetWarmupJob struct {
	Budgets Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBudgetWarmupJob wires dependencies for the warmup handler.
func NewBudgetWarmupJob(budgets Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *BudgetWarmupJob {
	return &BudgetWarmupJob{
		Budgets: budgets,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes budget warmup tasks.
func (j *BudgetWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Budgets == nil {
		return errors.New("budget warmup: handler not configured")
	}
	var payload BudgetWarmupPayload
	if raw := t.Payload(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("budget warmup: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf, err := parseAsOf(payload.AsOf, j.clock())
	if err != nil {
		return fmt.Errorf("budget warmup: %v: %w", err, asynq.SkipRetry)
	}
	year := payload.Year
	if year == 0 {
		year = asOf.Year()
	}

	tracker := j.Metrics.Track(TaskBudgetWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("year", year))
	start := time.Now()
	warmed, err := j.Budgets.Warm(ctx, year, asOf)
	if err != nil {
		logger.Error("warm budget actuals", slog.Int("warmed", warmed), slog.Any("error", err))
		return err
	}
	logger.Info("completed budget warmup", slog.Int("lines", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *BudgetWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBudgetWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBudgetWarmup))
}
