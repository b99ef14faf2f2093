package budgets

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/journals"
	"github.com/ines-erp/ledger/internal/accounting/periods"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/audit"
	"github.com/ines-erp/ledger/internal/platform/cache"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store    *accounting.MemoryStore
	registry *accounts.Registry
	engine   *journals.Engine
	sink     *audit.MemorySink
	supplies accounting.Account
	cash     accounting.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := accounting.NewMemoryStore()
	sink := audit.NewMemorySink()
	recorder := accounting.NewRecorder(sink, nil)
	registry := accounts.NewRegistry(store, recorder)
	manager := periods.NewManager(store, recorder)
	engine := journals.NewEngine(store, manager, recorder, journals.WithBackoff(0))

	_, err := manager.CreatePeriod(ctx, periods.CreatePeriodInput{Name: "FY2024-25", StartDate: date(2024, 1, 1), EndDate: date(2025, 12, 31)})
	require.NoError(t, err)
	supplies, err := registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "5010", Name: "Office supplies", Type: accounting.AccountTypeExpense})
	require.NoError(t, err)
	cash, err := registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "1010", Name: "Cash", Type: accounting.AccountTypeAsset})
	require.NoError(t, err)
	return &fixture{store: store, registry: registry, engine: engine, sink: sink, supplies: supplies, cash: cash}
}

func (f *fixture) spend(t *testing.T, day time.Time, v int64) {
	t.Helper()
	ctx := context.Background()
	entry, err := f.engine.CreateDraft(ctx, journals.DraftInput{
		PostingDate: day,
		Description: "supplies",
		Lines: []journals.LineInput{
			{AccountID: f.supplies.ID, Debit: decimal.NewFromInt(v), Credit: decimal.Zero},
			{AccountID: f.cash.ID, Debit: decimal.Zero, Credit: decimal.NewFromInt(v)},
		},
	})
	require.NoError(t, err)
	_, err = f.engine.Post(ctx, entry.ID, "clerk")
	require.NoError(t, err)
}

func (f *fixture) budget(t *testing.T, tracker *Tracker, v int64) accounting.Budget {
	t.Helper()
	budget, err := tracker.CreateBudget(context.Background(), CreateBudgetInput{
		Name:          "Operating 2024",
		FinancialYear: 2024,
		Category:      "OPEX",
		CreatedBy:     "planner",
		Lines:         []LineInput{{AccountID: f.supplies.ID, Amount: decimal.NewFromInt(v)}},
	})
	require.NoError(t, err)
	return budget
}

func TestVarianceAgainstPostedExpenses(t *testing.T) {
	f := newFixture(t)
	tracker := NewTracker(f.store, f.registry, accounting.NewRecorder(f.sink, nil))
	budget := f.budget(t, tracker, 1000000)
	require.Equal(t, date(2024, 1, 1), budget.StartDate)
	require.Equal(t, date(2024, 12, 31), budget.EndDate)

	f.spend(t, date(2024, 3, 10), 250000)
	f.spend(t, date(2024, 7, 2), 350000)
	f.spend(t, date(2025, 1, 5), 999)

	lineID := budget.Lines[0].ID
	v, err := tracker.Variance(context.Background(), lineID, date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, v.Actual.Equal(decimal.NewFromInt(600000)), v.Actual.String())
	require.True(t, v.Variance.Equal(decimal.NewFromInt(400000)), v.Variance.String())
	require.True(t, v.VariancePercent.Equal(decimal.NewFromInt(40)), v.VariancePercent.String())
	require.Equal(t, "5010", v.AccountCode)

	midYear, err := tracker.ActualFor(context.Background(), lineID, date(2024, 6, 30))
	require.NoError(t, err)
	require.True(t, midYear.Equal(decimal.NewFromInt(250000)))

	before, err := tracker.ActualFor(context.Background(), lineID, date(2023, 12, 1))
	require.NoError(t, err)
	require.True(t, before.IsZero())
}

func TestCompare(t *testing.T) {
	v, pct := Compare(decimal.Zero, decimal.NewFromInt(50))
	require.True(t, v.Equal(decimal.NewFromInt(-50)))
	require.True(t, pct.IsZero())

	v, pct = Compare(decimal.NewFromInt(300), decimal.NewFromInt(400))
	require.True(t, v.Equal(decimal.NewFromInt(-100)))
	require.True(t, pct.Equal(decimal.RequireFromString("-33.33")), pct.String())
}

func TestCreateBudgetRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := NewTracker(f.store, f.registry, nil)
	f.budget(t, tracker, 10)

	_, err := tracker.CreateBudget(ctx, CreateBudgetInput{Name: "Again", FinancialYear: 2024, Category: "OPEX",
		Lines: []LineInput{{AccountID: f.cash.ID, Amount: decimal.NewFromInt(1)}}})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	_, err = tracker.CreateBudget(ctx, CreateBudgetInput{Name: "Ghost", FinancialYear: 2024, Category: "CAPEX",
		Lines: []LineInput{{AccountID: uuid.New(), Amount: decimal.NewFromInt(1)}}})
	require.ErrorIs(t, err, shared.ErrInvalidAccount)

	_, err = tracker.CreateBudget(ctx, CreateBudgetInput{Name: "Negative", FinancialYear: 2024, Category: "CAPEX",
		Lines: []LineInput{{AccountID: f.cash.ID, Amount: decimal.NewFromInt(-1)}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	strict := NewTracker(f.store, f.registry, nil, WithEligibility(func(_ context.Context, a accounting.Account) error {
		if a.Type != accounting.AccountTypeExpense {
			return shared.InvalidAccount("", a.Code, "only expense accounts are budgeted")
		}
		return nil
	}))
	_, err = strict.CreateBudget(ctx, CreateBudgetInput{Name: "Cash plan", FinancialYear: 2025, Category: "CASH",
		Lines: []LineInput{{AccountID: f.cash.ID, Amount: decimal.NewFromInt(1)}}})
	require.ErrorIs(t, err, shared.ErrInvalidAccount)

	year := 2024
	listed, err := tracker.List(ctx, &year)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestApproveOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tracker := NewTracker(f.store, f.registry, accounting.NewRecorder(f.sink, nil))
	budget := f.budget(t, tracker, 10)

	approved, err := tracker.Approve(ctx, budget.ID, "cfo")
	require.NoError(t, err)
	require.Equal(t, accounting.BudgetStatusApproved, approved.Status)
	require.Equal(t, "cfo", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	_, err = tracker.Approve(ctx, budget.ID, "cfo")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
	_, err = tracker.Approve(ctx, uuid.New(), "cfo")
	require.ErrorIs(t, err, shared.ErrBudgetNotFound)

	last := f.sink.Events()[len(f.sink.Events())-1]
	require.Equal(t, "budget.approve", last.Action)
}

func TestCachedActualInvalidatedByLedgerChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	versioned := cache.NewVersioned(client, "ledger-test", time.Minute)

	tracker := NewTracker(f.store, f.registry, nil, WithCache(versioned))
	budget := f.budget(t, tracker, 1000)
	lineID := budget.Lines[0].ID
	asOf := date(2024, 12, 31)

	f.spend(t, date(2024, 2, 1), 100)
	warmed, err := tracker.Warm(ctx, 2024, asOf)
	require.NoError(t, err)
	require.Equal(t, 1, warmed)

	f.spend(t, date(2024, 2, 2), 50)
	stale, err := tracker.ActualFor(ctx, lineID, asOf)
	require.NoError(t, err)
	require.True(t, stale.Equal(decimal.NewFromInt(100)), stale.String())

	require.NoError(t, versioned.LedgerChanged(ctx))
	fresh, err := tracker.ActualFor(ctx, lineID, asOf)
	require.NoError(t, err)
	require.True(t, fresh.Equal(decimal.NewFromInt(150)), fresh.String())
}

func TestCacheOutageFallsBackToLedger(t *testing.T) {
	f := newFixture(t)
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker := NewTracker(f.store, f.registry, nil, WithCache(cache.NewVersioned(client, "ledger-test", time.Minute)))
	budget := f.budget(t, tracker, 1000)
	f.spend(t, date(2024, 4, 1), 70)
	srv.Close()

	actual, err := tracker.ActualFor(context.Background(), budget.Lines[0].ID, date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, actual.Equal(decimal.NewFromInt(70)))
}
