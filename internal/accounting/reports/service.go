package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/budgets"
	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// Generator builds financial statements from posted history. It never writes.
type Generator struct {
	store accounting.Gateway
	now   func() time.Time
}

// NewGenerator constructs the statement generator.
func NewGenerator(store accounting.Gateway) *Generator {
	return &Generator{store: store, now: time.Now}
}

// WithNow overrides the clock for testing.
func (g *Generator) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// TrialBalance lists closing balances as of asOf. A zero asOf means today.
func (g *Generator) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	asOf = g.day(asOf)
	var out TrialBalance
	err := g.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		rows, err := loadBalances(ctx, r, time.Time{}, asOf, true)
		if err != nil {
			return err
		}
		out = BuildTrialBalance(rows)
		return nil
	})
	out.AsOf = asOf
	return out, err
}

// IncomeStatement reports revenue and expense movement within [from, to].
func (g *Generator) IncomeStatement(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	from, to, err := g.window(from, to)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var out ProfitAndLoss
	err = g.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		rows, err := loadBalances(ctx, r, from, to, false)
		if err != nil {
			return err
		}
		out = BuildProfitAndLoss(rows)
		return nil
	})
	out.From, out.To = from, to
	return out, err
}

// BalanceSheet reports assets against liabilities and equity as of asOf.
func (g *Generator) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	asOf = g.day(asOf)
	var out BalanceSheet
	err := g.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		rows, err := loadBalances(ctx, r, time.Time{}, asOf, true)
		if err != nil {
			return err
		}
		out = BuildBalanceSheet(rows)
		return nil
	})
	out.AsOf = asOf
	return out, err
}

// CashFlowStatement nets tagged posted lines within [from, to] per activity bucket.
func (g *Generator) CashFlowStatement(ctx context.Context, from, to time.Time) (CashFlowStatement, error) {
	from, to, err := g.window(from, to)
	if err != nil {
		return CashFlowStatement{}, err
	}
	var out CashFlowStatement
	err = g.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		accounts, err := r.ListAccounts(ctx, accounting.AccountFilter{IncludeInactive: true})
		if err != nil {
			return err
		}
		activity, err := r.Activity(ctx, accounting.ActivityQuery{From: from, To: to, ByCategory: true})
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]AccountBalance, len(accounts))
		for _, acc := range accounts {
			byID[acc.ID] = AccountBalance{AccountID: acc.ID, Code: acc.Code, Name: acc.Name, Type: acc.Type}
		}
		out = BuildCashFlow(activity, byID)
		return nil
	})
	out.From, out.To = from, to
	return out, err
}

// BudgetVariance compares every line of a budget with posted activity up to asOf.
func (g *Generator) BudgetVariance(ctx context.Context, budgetID uuid.UUID, asOf time.Time, thresholds Thresholds) (BudgetVarianceReport, error) {
	asOf = g.day(asOf)
	var out BudgetVarianceReport
	err := g.store.Snapshot(ctx, func(ctx context.Context, r accounting.Reader) error {
		budget, err := r.GetBudget(ctx, budgetID)
		if err != nil {
			return err
		}
		rows := make([]BudgetVarianceRow, 0, len(budget.Lines))
		ids := make([]uuid.UUID, 0, len(budget.Lines))
		for _, line := range budget.Lines {
			ids = append(ids, line.AccountID)
		}
		net := map[uuid.UUID]decimal.Decimal{}
		if from, to, ok := budgets.ActualWindow(budget.StartDate, budget.EndDate, asOf); ok && len(ids) > 0 {
			activity, err := r.Activity(ctx, accounting.ActivityQuery{From: from, To: to, AccountIDs: ids})
			if err != nil {
				return err
			}
			for _, a := range activity {
				net[a.AccountID] = a.Net()
			}
		}
		for _, line := range budget.Lines {
			acc, err := r.GetAccount(ctx, line.AccountID)
			if err != nil {
				return err
			}
			movement, ok := net[line.AccountID]
			if !ok {
				movement = decimal.Zero
			}
			rows = append(rows, BudgetVarianceRow{
				LineID:      line.ID,
				AccountID:   acc.ID,
				AccountCode: acc.Code,
				AccountName: acc.Name,
				Budgeted:    line.Amount,
				Actual:      acc.Normalized(movement),
			})
		}
		out = BuildBudgetVariance(rows, thresholds)
		out.BudgetID = budget.ID
		out.BudgetName = budget.Name
		out.FinancialYear = budget.FinancialYear
		return nil
	})
	out.AsOf = asOf
	return out, err
}

// Statements bundles the four primary statements for a reporting window.
type Statements struct {
	TrialBalance TrialBalance      `json:"trial_balance"`
	Income       ProfitAndLoss     `json:"income_statement"`
	Balance      BalanceSheet      `json:"balance_sheet"`
	CashFlow     CashFlowStatement `json:"cash_flow"`
}

// Pack builds all primary statements concurrently, each in its own snapshot.
func (g *Generator) Pack(ctx context.Context, from, to time.Time) (Statements, error) {
	from, to, err := g.window(from, to)
	if err != nil {
		return Statements{}, err
	}
	var out Statements
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		out.TrialBalance, err = g.TrialBalance(ctx, to)
		return err
	})
	eg.Go(func() (err error) {
		out.Income, err = g.IncomeStatement(ctx, from, to)
		return err
	})
	eg.Go(func() (err error) {
		out.Balance, err = g.BalanceSheet(ctx, to)
		return err
	})
	eg.Go(func() (err error) {
		out.CashFlow, err = g.CashFlowStatement(ctx, from, to)
		return err
	})
	if err := eg.Wait(); err != nil {
		return Statements{}, err
	}
	return out, nil
}

func (g *Generator) day(t time.Time) time.Time {
	if t.IsZero() {
		t = g.now()
	}
	return shared.DateOnly(t)
}

// window defaults the range to the start of to's year through to (today when zero).
func (g *Generator) window(from, to time.Time) (time.Time, time.Time, error) {
	to = g.day(to)
	if from.IsZero() {
		from = time.Date(to.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	from = shared.DateOnly(from)
	if to.Before(from) {
		return time.Time{}, time.Time{}, shared.Invalid("report range ends before it starts")
	}
	return from, to, nil
}

// loadBalances joins accounts with posted activity inside [from, to].
func loadBalances(ctx context.Context, r accounting.Reader, from, to time.Time, withOpening bool) ([]AccountBalance, error) {
	accounts, err := r.ListAccounts(ctx, accounting.AccountFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	activity, err := r.Activity(ctx, accounting.ActivityQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]AccountBalance, len(accounts))
	for _, acc := range accounts {
		row := AccountBalance{
			AccountID:  acc.ID,
			Code:       acc.Code,
			Name:       acc.Name,
			Type:       acc.Type,
			NormalSide: acc.NormalSide,
			Active:     acc.IsActive,
			Opening:    decimal.Zero,
			Debit:      decimal.Zero,
			Credit:     decimal.Zero,
		}
		if withOpening {
			row.Opening = acc.OpeningBalance
		}
		byID[acc.ID] = row
	}
	for _, a := range activity {
		row, ok := byID[a.AccountID]
		if !ok {
			continue
		}
		row.Debit = row.Debit.Add(a.Debit)
		row.Credit = row.Credit.Add(a.Credit)
		byID[a.AccountID] = row
	}
	rows := make([]AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, byID[acc.ID])
	}
	return rows, nil
}
