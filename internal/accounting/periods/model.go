package periods

import (
	"strings"
	"time"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// CreatePeriodInput describes a new financial period.
type CreatePeriodInput struct {
	Name          string
	FinancialYear int
	StartDate     time.Time
	EndDate       time.Time
	IsCurrent     bool
	CreatedBy     string
}

// Validate checks field-level constraints.
func (in *CreatePeriodInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return shared.Invalid("period name required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return shared.Invalid("period start and end dates required")
	}
	in.StartDate = shared.DateOnly(in.StartDate)
	in.EndDate = shared.DateOnly(in.EndDate)
	if in.EndDate.Before(in.StartDate) {
		return shared.Invalid("period end date precedes start date")
	}
	if in.FinancialYear == 0 {
		in.FinancialYear = in.StartDate.Year()
	}
	return nil
}
