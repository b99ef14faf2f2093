package reports

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting/budgets"
)

// Thresholds flag variance rows whose absolute variance or percentage reaches a limit.
// Nil limits are ignored.
type Thresholds struct {
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
}

// Exceeded reports whether either limit is reached.
func (t Thresholds) Exceeded(variance, percent decimal.Decimal) bool {
	if t.Amount != nil && variance.Abs().GreaterThanOrEqual(*t.Amount) {
		return true
	}
	if t.Percent != nil && percent.Abs().GreaterThanOrEqual(*t.Percent) {
		return true
	}
	return false
}

// BudgetVarianceRow compares one budget line with its actual.
type BudgetVarianceRow struct {
	LineID          uuid.UUID       `json:"line_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	AccountCode     string          `json:"account_code"`
	AccountName     string          `json:"account_name"`
	Budgeted        decimal.Decimal `json:"budgeted"`
	Actual          decimal.Decimal `json:"actual"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	Flagged         bool            `json:"flagged"`
}

// BudgetVarianceReport lists budgeted against actual per line, largest variance first.
type BudgetVarianceReport struct {
	BudgetID             uuid.UUID           `json:"budget_id"`
	BudgetName           string              `json:"budget_name"`
	FinancialYear        int                 `json:"financial_year"`
	AsOf                 time.Time           `json:"as_of"`
	Rows                 []BudgetVarianceRow `json:"rows"`
	TotalBudgeted        decimal.Decimal     `json:"total_budgeted"`
	TotalActual          decimal.Decimal     `json:"total_actual"`
	TotalVariance        decimal.Decimal     `json:"total_variance"`
	TotalVariancePercent decimal.Decimal     `json:"total_variance_percent"`
}

// BuildBudgetVariance computes variance rows and applies threshold flags.
func BuildBudgetVariance(rows []BudgetVarianceRow, thresholds Thresholds) BudgetVarianceReport {
	report := BudgetVarianceReport{Rows: make([]BudgetVarianceRow, 0, len(rows)), TotalBudgeted: decimal.Zero, TotalActual: decimal.Zero}
	for _, row := range rows {
		row.Variance, row.VariancePercent = budgets.Compare(row.Budgeted, row.Actual)
		row.Flagged = thresholds.Exceeded(row.Variance, row.VariancePercent)
		report.Rows = append(report.Rows, row)
		report.TotalBudgeted = report.TotalBudgeted.Add(row.Budgeted)
		report.TotalActual = report.TotalActual.Add(row.Actual)
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Variance.Abs().GreaterThan(report.Rows[j].Variance.Abs())
	})
	report.TotalVariance, report.TotalVariancePercent = budgets.Compare(report.TotalBudgeted, report.TotalActual)
	return report
}
