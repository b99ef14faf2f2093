package budgets

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/audit"
	"github.com/ines-erp/ledger/internal/platform/cache"
)

// MovementSource reports posted debit-positive movement for an account.
type MovementSource interface {
	NetMovement(ctx context.Context, id uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

// Eligibility decides whether an account may carry a budget line.
type Eligibility func(ctx context.Context, account accounting.Account) error

// ActiveAccount accepts any active account, control accounts included.
func ActiveAccount(_ context.Context, account accounting.Account) error {
	if !account.IsActive {
		return shared.InvalidAccount("", account.Code, "account inactive")
	}
	return nil
}

// Tracker manages budgets and compares them with posted activity.
type Tracker struct {
	store     accounting.Gateway
	movements MovementSource
	cache     *cache.Versioned
	eligible  Eligibility
	recorder  *accounting.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithCache memoises actuals until the ledger changes.
func WithCache(c *cache.Versioned) Option {
	return func(t *Tracker) { t.cache = c }
}

// WithEligibility replaces the budget line eligibility rule.
func WithEligibility(fn Eligibility) Option {
	return func(t *Tracker) {
		if fn != nil {
			t.eligible = fn
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker constructs the budget tracker.
func NewTracker(store accounting.Gateway, movements MovementSource, recorder *accounting.Recorder, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		movements: movements,
		eligible:  ActiveAccount,
		recorder:  recorder,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithNow overrides the clock for testing.
func (t *Tracker) WithNow(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// CreateBudget stores a DRAFT budget. One budget per year and category.
func (t *Tracker) CreateBudget(ctx context.Context, in CreateBudgetInput) (accounting.Budget, error) {
	if err := in.Validate(); err != nil {
		return accounting.Budget{}, err
	}
	now := t.now()
	budget := accounting.Budget{
		ID:            uuid.New(),
		Name:          in.Name,
		Description:   in.Description,
		FinancialYear: in.FinancialYear,
		Category:      in.Category,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Status:        accounting.BudgetStatusDraft,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
	}
	for _, line := range in.Lines {
		budget.Lines = append(budget.Lines, accounting.BudgetLine{
			ID:        uuid.New(),
			BudgetID:  budget.ID,
			AccountID: line.AccountID,
			Amount:    line.Amount,
			Notes:     line.Notes,
		})
	}
	err := t.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		for _, line := range budget.Lines {
			account, err := tx.GetAccount(ctx, line.AccountID)
			if err != nil {
				if errors.Is(err, shared.ErrAccountNotFound) {
					return shared.InvalidAccount("", line.AccountID.String(), "account not found")
				}
				return err
			}
			if err := t.eligible(ctx, account); err != nil {
				return err
			}
		}
		return tx.InsertBudget(ctx, budget)
	})
	if err != nil {
		return accounting.Budget{}, err
	}
	t.recorder.Record(ctx, audit.Event{
		Actor:    in.CreatedBy,
		Action:   "budget.create",
		Entity:   "budget",
		EntityID: budget.ID.String(),
		At:       now,
		After:    budget,
	})
	return budget, nil
}

// Approve moves a DRAFT budget to APPROVED.
func (t *Tracker) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (accounting.Budget, error) {
	var before, after accounting.Budget
	err := t.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		budget, err := tx.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		if budget.Status != accounting.BudgetStatusDraft {
			return shared.InvalidStatus("", "budget "+budget.Name+" is "+string(budget.Status))
		}
		before = budget
		now := t.now()
		budget.Status = accounting.BudgetStatusApproved
		budget.ApprovedBy = approvedBy
		budget.ApprovedAt = &now
		after = budget
		return tx.UpdateBudget(ctx, budget)
	})
	if err != nil {
		return accounting.Budget{}, err
	}
	t.recorder.Record(ctx, audit.Event{
		Actor:    approvedBy,
		Action:   "budget.approve",
		Entity:   "budget",
		EntityID: id.String(),
		At:       *after.ApprovedAt,
		Before:   before,
		After:    after,
	})
	return after, nil
}

// Get returns a budget with its lines.
func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (accounting.Budget, error) {
	return t.store.GetBudget(ctx, id)
}

// List returns budgets for year, or all budgets when year is nil.
func (t *Tracker) List(ctx context.Context, year *int) ([]accounting.Budget, error) {
	y := 0
	if year != nil {
		y = *year
	}
	return t.store.ListBudgets(ctx, y)
}

// ActualFor returns posted movement for the line's account over
// [budget start, min(asOf, budget end)] on the account's normal side.
// A zero asOf means today.
func (t *Tracker) ActualFor(ctx context.Context, lineID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	budget, line, account, err := t.resolve(ctx, lineID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.actual(ctx, budget, line, account, t.asOf(asOf))
}

// Variance compares a budget line with its actual.
func (t *Tracker) Variance(ctx context.Context, lineID uuid.UUID, asOf time.Time) (LineVariance, error) {
	budget, line, account, err := t.resolve(ctx, lineID)
	if err != nil {
		return LineVariance{}, err
	}
	day := t.asOf(asOf)
	actual, err := t.actual(ctx, budget, line, account, day)
	if err != nil {
		return LineVariance{}, err
	}
	variance, percent := Compare(line.Amount, actual)
	return LineVariance{
		LineID:          line.ID,
		BudgetID:        budget.ID,
		AccountID:       account.ID,
		AccountCode:     account.Code,
		AccountName:     account.Name,
		AsOf:            day,
		Budgeted:        line.Amount,
		Actual:          actual,
		Variance:        variance,
		VariancePercent: percent,
	}, nil
}

// Warm computes actuals for every line of the year's budgets so later reads hit the cache.
func (t *Tracker) Warm(ctx context.Context, year int, asOf time.Time) (int, error) {
	budgets, err := t.store.ListBudgets(ctx, year)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, budget := range budgets {
		for _, line := range budget.Lines {
			if err := ctx.Err(); err != nil {
				return warmed, err
			}
			if _, err := t.ActualFor(ctx, line.ID, asOf); err != nil {
				return warmed, err
			}
			warmed++
		}
	}
	return warmed, nil
}

func (t *Tracker) asOf(day time.Time) time.Time {
	if day.IsZero() {
		day = t.now()
	}
	return shared.DateOnly(day)
}

func (t *Tracker) resolve(ctx context.Context, lineID uuid.UUID) (accounting.Budget, accounting.BudgetLine, accounting.Account, error) {
	budget, err := t.store.GetBudgetByLine(ctx, lineID)
	if err != nil {
		return accounting.Budget{}, accounting.BudgetLine{}, accounting.Account{}, err
	}
	line, ok := budget.Line(lineID)
	if !ok {
		return accounting.Budget{}, accounting.BudgetLine{}, accounting.Account{}, shared.ErrBudgetNotFound
	}
	account, err := t.store.GetAccount(ctx, line.AccountID)
	if err != nil {
		return accounting.Budget{}, accounting.BudgetLine{}, accounting.Account{}, err
	}
	return budget, line, account, nil
}

func (t *Tracker) actual(ctx context.Context, budget accounting.Budget, line accounting.BudgetLine, account accounting.Account, asOf time.Time) (decimal.Decimal, error) {
	from, to, ok := ActualWindow(budget.StartDate, budget.EndDate, asOf)
	if !ok {
		return decimal.Zero, nil
	}
	load := func(ctx context.Context) (any, error) {
		movement, err := t.movements.NetMovement(ctx, account.ID, from, to)
		if err != nil {
			return nil, err
		}
		return account.Normalized(movement), nil
	}
	if t.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return v.(decimal.Decimal), nil
	}
	key, err := t.cache.BuildKey(ctx, "budget-actual", line.ID.String(), to.Format("20060102"))
	if err == nil {
		var out decimal.Decimal
		if err = t.cache.FetchJSON(ctx, key, &out, load); err == nil {
			return out, nil
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return decimal.Zero, err
	}
	t.logger.WarnContext(ctx, "budget actual cache unavailable", slog.String("line_id", line.ID.String()), slog.Any("error", err))
	v, err := load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}
