package reports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/budgets"
	"github.com/ines-erp/ledger/internal/accounting/journals"
	"github.com/ines-erp/ledger/internal/accounting/periods"
)

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

type ledger struct {
	store    *accounting.MemoryStore
	engine   *journals.Engine
	registry *accounts.Registry
	gen      *Generator
	ids      map[string]uuid.UUID
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	ctx := context.Background()
	store := accounting.NewMemoryStore()
	registry := accounts.NewRegistry(store, nil)
	manager := periods.NewManager(store, nil)
	engine := journals.NewEngine(store, manager, nil, journals.WithBackoff(0))
	engine.WithNow(func() time.Time { return date(2024, 9, 30) })
	gen := NewGenerator(store)
	gen.WithNow(func() time.Time { return date(2024, 9, 30) })

	_, err := manager.CreatePeriod(ctx, periods.CreatePeriodInput{Name: "FY2024", StartDate: date(2024, 1, 1), EndDate: date(2024, 12, 31), IsCurrent: true})
	require.NoError(t, err)

	l := &ledger{store: store, engine: engine, registry: registry, gen: gen, ids: map[string]uuid.UUID{}}
	for _, in := range []accounts.CreateAccountInput{
		{Code: "1010", Name: "Cash", Type: accounting.AccountTypeAsset, OpeningBalance: decimal.NewFromInt(1000)},
		{Code: "1500", Name: "Equipment", Type: accounting.AccountTypeAsset},
		{Code: "2500", Name: "Bank loan", Type: accounting.AccountTypeLiability},
		{Code: "3000", Name: "Share capital", Type: accounting.AccountTypeEquity, OpeningBalance: decimal.NewFromInt(-1000)},
		{Code: "4010", Name: "Sales", Type: accounting.AccountTypeRevenue},
		{Code: "5010", Name: "Rent", Type: accounting.AccountTypeExpense},
	} {
		acc, err := registry.CreateAccount(ctx, in)
		require.NoError(t, err)
		l.ids[in.Code] = acc.ID
	}
	return l
}

// post moves v from credit account to debit account, tagging the cash leg with cat.
func (l *ledger) post(t *testing.T, day time.Time, debit, credit string, v int64, cat accounting.CashFlowCategory) accounting.JournalEntry {
	t.Helper()
	ctx := context.Background()
	debitLine := journals.LineInput{AccountID: l.ids[debit], Debit: decimal.NewFromInt(v), Credit: decimal.Zero}
	creditLine := journals.LineInput{AccountID: l.ids[credit], Debit: decimal.Zero, Credit: decimal.NewFromInt(v)}
	if debit == "1010" {
		debitLine.Category = cat
	}
	if credit == "1010" {
		creditLine.Category = cat
	}
	entry, err := l.engine.CreateDraft(ctx, journals.DraftInput{PostingDate: day, Lines: []journals.LineInput{debitLine, creditLine}})
	require.NoError(t, err)
	posted, err := l.engine.Post(ctx, entry.ID, "clerk")
	require.NoError(t, err)
	return posted
}

func (l *ledger) seed(t *testing.T) {
	t.Helper()
	l.post(t, date(2024, 2, 10), "1010", "4010", 500, accounting.CashFlowOperating)
	l.post(t, date(2024, 3, 1), "5010", "1010", 200, accounting.CashFlowOperating)
	l.post(t, date(2024, 4, 5), "1500", "1010", 300, accounting.CashFlowInvesting)
	l.post(t, date(2024, 5, 20), "1010", "2500", 400, accounting.CashFlowFinancing)

	_, err := l.engine.CreateDraft(context.Background(), journals.DraftInput{PostingDate: date(2024, 6, 1), Lines: []journals.LineInput{
		{AccountID: l.ids["5010"], Debit: decimal.NewFromInt(9999), Credit: decimal.Zero},
		{AccountID: l.ids["1010"], Debit: decimal.Zero, Credit: decimal.NewFromInt(9999)},
	}})
	require.NoError(t, err)
}

func TestTrialBalanceFromPostedHistory(t *testing.T) {
	l := newLedger(t)
	l.seed(t)

	tb, err := l.gen.TrialBalance(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, date(2024, 9, 30), tb.AsOf)
	require.True(t, tb.IsBalanced)
	require.True(t, tb.TotalDebit.Equal(decimal.NewFromInt(1900)), tb.TotalDebit.String())
	require.True(t, tb.TotalCredit.Equal(decimal.NewFromInt(1900)), tb.TotalCredit.String())

	early, err := l.gen.TrialBalance(context.Background(), date(2024, 2, 28))
	require.NoError(t, err)
	require.True(t, early.IsBalanced)
	require.True(t, early.TotalDebit.Equal(decimal.NewFromInt(1500)), early.TotalDebit.String())
}

func TestIncomeStatementAndBalanceSheet(t *testing.T) {
	l := newLedger(t)
	l.seed(t)
	ctx := context.Background()

	is, err := l.gen.IncomeStatement(ctx, date(2024, 1, 1), date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, is.Revenue.Total.Equal(decimal.NewFromInt(500)))
	require.True(t, is.Expense.Total.Equal(decimal.NewFromInt(200)))
	require.True(t, is.NetIncome.Equal(decimal.NewFromInt(300)))

	march, err := l.gen.IncomeStatement(ctx, date(2024, 3, 1), date(2024, 3, 31))
	require.NoError(t, err)
	require.True(t, march.Revenue.Total.IsZero())
	require.True(t, march.NetIncome.Equal(decimal.NewFromInt(-200)))

	bs, err := l.gen.BalanceSheet(ctx, date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, bs.Assets.Total.Equal(decimal.NewFromInt(1700)), bs.Assets.Total.String())
	require.True(t, bs.Liabilities.Total.Equal(decimal.NewFromInt(400)))
	require.True(t, bs.Equity.Total.Equal(decimal.NewFromInt(1300)), bs.Equity.Total.String())
	require.True(t, bs.IsBalanced)

	_, err = l.gen.IncomeStatement(ctx, date(2024, 5, 1), date(2024, 4, 1))
	require.Error(t, err)
}

func TestCashFlowBuckets(t *testing.T) {
	l := newLedger(t)
	l.seed(t)

	cf, err := l.gen.CashFlowStatement(context.Background(), date(2024, 1, 1), date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, cf.Operating.Total.Equal(decimal.NewFromInt(300)), cf.Operating.Total.String())
	require.Len(t, cf.Operating.Lines, 1)
	require.Equal(t, "1010", cf.Operating.Lines[0].Code)
	require.True(t, cf.Investing.Total.Equal(decimal.NewFromInt(-300)))
	require.True(t, cf.Financing.Total.Equal(decimal.NewFromInt(400)))
	require.True(t, cf.NetCashFlow.Equal(decimal.NewFromInt(400)))
}

func TestReversalLeavesStatementsAsBefore(t *testing.T) {
	l := newLedger(t)
	l.seed(t)
	ctx := context.Background()
	before, err := l.gen.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)

	sale := l.post(t, date(2024, 9, 1), "1010", "4010", 250, accounting.CashFlowOperating)
	_, err = l.engine.Reverse(ctx, journals.ReverseInput{EntryID: sale.ID, ReversedBy: "controller"})
	require.NoError(t, err)

	after, err := l.gen.TrialBalance(ctx, time.Time{})
	require.NoError(t, err)
	require.True(t, before.TotalDebit.Equal(after.TotalDebit))
	require.True(t, after.IsBalanced)

	is, err := l.gen.IncomeStatement(ctx, date(2024, 1, 1), date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, is.Revenue.Total.Equal(decimal.NewFromInt(500)), is.Revenue.Total.String())
}

func TestBudgetVarianceReport(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	tracker := budgets.NewTracker(l.store, l.registry, nil)
	budget, err := tracker.CreateBudget(ctx, budgets.CreateBudgetInput{
		Name:          "FY2024 opex",
		FinancialYear: 2024,
		Lines:         []budgets.LineInput{{AccountID: l.ids["5010"], Amount: decimal.NewFromInt(1000000)}},
	})
	require.NoError(t, err)
	l.post(t, date(2024, 2, 1), "5010", "1010", 600000, accounting.CashFlowOperating)

	limit := decimal.NewFromInt(25)
	report, err := l.gen.BudgetVariance(ctx, budget.ID, date(2024, 12, 31), Thresholds{Percent: &limit})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	require.True(t, row.Variance.Equal(decimal.NewFromInt(400000)))
	require.True(t, row.VariancePercent.Equal(decimal.NewFromInt(40)))
	require.True(t, row.Flagged)
	require.Equal(t, "FY2024 opex", report.BudgetName)
}

func TestPackBuildsAllStatements(t *testing.T) {
	l := newLedger(t)
	l.seed(t)

	pack, err := l.gen.Pack(context.Background(), time.Time{}, date(2024, 12, 31))
	require.NoError(t, err)
	require.True(t, pack.TrialBalance.IsBalanced)
	require.True(t, pack.Balance.IsBalanced)
	require.Equal(t, date(2024, 1, 1), pack.Income.From)
	require.True(t, pack.Income.NetIncome.Equal(decimal.NewFromInt(300)))
	require.True(t, pack.CashFlow.NetCashFlow.Equal(decimal.NewFromInt(400)))
}

func TestStatementsAreReadOnlyAndRepeatable(t *testing.T) {
	l := newLedger(t)
	l.seed(t)
	ctx := context.Background()

	type accountState struct {
		Balance string
		Version int64
	}
	snapshot := func() (map[string]accountState, []accounting.JournalEntry) {
		all, err := l.store.ListAccounts(ctx, accounting.AccountFilter{IncludeInactive: true})
		require.NoError(t, err)
		state := make(map[string]accountState, len(all))
		for _, acc := range all {
			state[acc.Code] = accountState{Balance: acc.CurrentBalance.String(), Version: acc.Version}
		}
		entries, _, err := l.store.ListEntries(ctx, accounting.EntryFilter{})
		require.NoError(t, err)
		return state, entries
	}
	render := func() string {
		pack, err := l.gen.Pack(ctx, time.Time{}, date(2024, 12, 31))
		require.NoError(t, err)
		tb, err := l.gen.TrialBalance(ctx, date(2024, 6, 30))
		require.NoError(t, err)
		raw, err := json.Marshal(map[string]any{"pack": pack, "mid_year_tb": tb})
		require.NoError(t, err)
		return string(raw)
	}

	accountsBefore, entriesBefore := snapshot()
	first := render()
	second := render()
	require.JSONEq(t, first, second)

	accountsAfter, entriesAfter := snapshot()
	require.Equal(t, accountsBefore, accountsAfter)
	require.Equal(t, statuses(entriesBefore), statuses(entriesAfter))
}

func statuses(entries []accounting.JournalEntry) map[uuid.UUID]accounting.EntryStatus {
	out := make(map[uuid.UUID]accounting.EntryStatus, len(entries))
	for _, entry := range entries {
		out[entry.ID] = entry.Status
	}
	return out
}
