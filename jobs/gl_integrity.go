package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/reports"
	jobmetrics "github.com/ines-erp/ledger/internal/jobs"
)

// ErrIntegrity reports that the ledger failed an integrity check.
var ErrIntegrity = errors.New("jobs: ledger integrity violated")

// TrialBalancer builds the trial balance checked by the integrity job.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, asOf time.Time) (reports.TrialBalance, error)
}

// BalanceMismatch is an account whose stored running balance disagrees with
// its opening balance plus posted history.
type BalanceMismatch struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Stored    decimal.Decimal `json:"stored"`
	Expected  decimal.Decimal `json:"expected"`
}

// IntegrityReport is the outcome of one integrity run.
type IntegrityReport struct {
	AsOf          time.Time         `json:"as_of"`
	TrialBalanced bool              `json:"trial_balanced"`
	TotalDebit    decimal.Decimal   `json:"total_debit"`
	TotalCredit   decimal.Decimal   `json:"total_credit"`
	Mismatches    []BalanceMismatch `json:"mismatches"`
}

// OK reports whether the run found nothing wrong.
func (r IntegrityReport) OK() bool {
	return r.TrialBalanced && len(r.Mismatches) == 0
}

// IntegrityJob checks that the ledger still balances.
type IntegrityJob struct {
	Store   accounting.Gateway
	Reports TrialBalancer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewIntegrityJob wires dependencies for the integrity handler.
func NewIntegrityJob(store accounting.Gateway, tb TrialBalancer, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{
		Store:   store,
		Reports: tb,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes ledger integrity tasks.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil || j.Reports == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if raw := t.Payload(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("ledger integrity: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf, err := parseAsOf(payload.AsOf, j.clock())
	if err != nil {
		return fmt.Errorf("ledger integrity: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	report, err := j.Check(ctx, asOf)
	if err != nil {
		j.logger().Error("ledger integrity check", slog.Any("error", err))
		return err
	}
	if !report.OK() {
		return ErrIntegrity
	}
	return nil
}

// Check runs the trial balance and stored balance checks, logging and
// counting every finding.
func (j *IntegrityJob) Check(ctx context.Context, asOf time.Time) (IntegrityReport, error) {
	tb, err := j.Reports.TrialBalance(ctx, asOf)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("trial balance: %w", err)
	}
	report := IntegrityReport{
		AsOf:          tb.AsOf,
		TrialBalanced: tb.IsBalanced,
		TotalDebit:    tb.TotalDebit,
		TotalCredit:   tb.TotalCredit,
	}
	report.Mismatches, err = storedBalanceMismatches(ctx, j.Store)
	if err != nil {
		return IntegrityReport{}, err
	}

	logger := j.logger().With(slog.Time("as_of", report.AsOf))
	if !report.TrialBalanced {
		j.Metrics.AddMismatches("trial_balance", 1)
		logger.Error("trial balance out of balance",
			slog.String("total_debit", report.TotalDebit.String()),
			slog.String("total_credit", report.TotalCredit.String()))
	}
	for _, m := range report.Mismatches {
		logger.Error("stored balance mismatch",
			slog.String("account", m.Code),
			slog.String("stored", m.Stored.String()),
			slog.String("expected", m.Expected.String()))
	}
	j.Metrics.AddMismatches("account_balance", len(report.Mismatches))
	if report.OK() {
		logger.Info("ledger integrity verified")
	}
	return report, nil
}

func storedBalanceMismatches(ctx context.Context, store accounting.Gateway) ([]BalanceMismatch, error) {
	var out []BalanceMismatch
	err := store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		accounts, err := r.ListAccounts(ctx, accounting.AccountFilter{IncludeInactive: true})
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		activity, err := r.Activity(ctx, accounting.ActivityQuery{})
		if err != nil {
			return fmt.Errorf("activity: %w", err)
		}
		net := make(map[uuid.UUID]decimal.Decimal, len(activity))
		for _, a := range activity {
			net[a.AccountID] = net[a.AccountID].Add(a.Net())
		}
		for _, account := range accounts {
			expected := account.OpeningBalance.Add(net[account.ID])
			if !expected.Equal(account.CurrentBalance) {
				out = append(out, BalanceMismatch{
					AccountID: account.ID,
					Code:      account.Code,
					Stored:    account.CurrentBalance,
					Expected:  expected,
				})
			}
		}
		return nil
	})
	return out, err
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
