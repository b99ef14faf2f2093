package budgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// LineInput is one planned amount in a new budget.
type LineInput struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Notes     string
}

// CreateBudgetInput describes a budget for one year and category.
type CreateBudgetInput struct {
	Name          string
	Description   string
	FinancialYear int
	Category      string
	StartDate     time.Time
	EndDate       time.Time
	CreatedBy     string
	Lines         []LineInput
}

// Validate checks field-level constraints and defaults the date range to the calendar year.
func (in *CreateBudgetInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return shared.Invalid("budget name required")
	}
	if in.FinancialYear < 1900 || in.FinancialYear > 9999 {
		return shared.Invalid("financial year out of range")
	}
	if in.StartDate.IsZero() {
		in.StartDate = time.Date(in.FinancialYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if in.EndDate.IsZero() {
		in.EndDate = time.Date(in.FinancialYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	in.StartDate = shared.DateOnly(in.StartDate)
	in.EndDate = shared.DateOnly(in.EndDate)
	if in.EndDate.Before(in.StartDate) {
		return shared.Invalid("budget end date precedes start date")
	}
	if len(in.Lines) == 0 {
		return shared.Invalid("budget requires at least one line")
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Lines))
	for idx, line := range in.Lines {
		if line.AccountID == uuid.Nil {
			return shared.Invalid(fmt.Sprintf("line %d missing account", idx+1))
		}
		if line.Amount.IsNegative() {
			return shared.Invalid(fmt.Sprintf("line %d negative amount", idx+1))
		}
		if _, dup := seen[line.AccountID]; dup {
			return shared.Invalid(fmt.Sprintf("line %d repeats account %s", idx+1, line.AccountID))
		}
		seen[line.AccountID] = struct{}{}
	}
	return nil
}

// LineVariance compares a budget line with posted activity.
type LineVariance struct {
	LineID          uuid.UUID       `json:"line_id"`
	BudgetID        uuid.UUID       `json:"budget_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	AccountCode     string          `json:"account_code"`
	AccountName     string          `json:"account_name"`
	AsOf            time.Time       `json:"as_of"`
	Budgeted        decimal.Decimal `json:"budgeted"`
	Actual          decimal.Decimal `json:"actual"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
}

var hundred = decimal.NewFromInt(100)

// Compare returns budgeted minus actual and that difference as a percentage of
// budgeted, both rounded to cents. The percentage is zero when nothing was budgeted.
func Compare(budgeted, actual decimal.Decimal) (variance, percent decimal.Decimal) {
	variance = budgeted.Sub(actual)
	if budgeted.IsZero() {
		return shared.Round2(variance), decimal.Zero
	}
	percent = variance.Div(budgeted).Mul(hundred)
	return shared.Round2(variance), shared.Round2(percent)
}

// ActualWindow clamps [start, asOf] to the budget range. ok is false when asOf precedes start.
func ActualWindow(start, end, asOf time.Time) (from, to time.Time, ok bool) {
	from = shared.DateOnly(start)
	to = shared.DateOnly(end)
	if !asOf.IsZero() && shared.DateOnly(asOf).Before(to) {
		to = shared.DateOnly(asOf)
	}
	return from, to, !to.Before(from)
}
