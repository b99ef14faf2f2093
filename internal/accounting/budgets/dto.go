package budgets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type budgetLineRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes" validate:"max=500"`
}

type createBudgetRequest struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Description   string              `json:"description"`
	FinancialYear int                 `json:"financial_year" validate:"required,gte=1900,lte=9999"`
	Category      string              `json:"category" validate:"max=100"`
	StartDate     string              `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string              `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Lines         []budgetLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (r createBudgetRequest) toInput(actor string) (CreateBudgetInput, error) {
	in := CreateBudgetInput{
		Name:          r.Name,
		Description:   r.Description,
		FinancialYear: r.FinancialYear,
		Category:      r.Category,
		CreatedBy:     actor,
	}
	var err error
	if r.StartDate != "" {
		if in.StartDate, err = time.Parse("2006-01-02", r.StartDate); err != nil {
			return CreateBudgetInput{}, err
		}
	}
	if r.EndDate != "" {
		if in.EndDate, err = time.Parse("2006-01-02", r.EndDate); err != nil {
			return CreateBudgetInput{}, err
		}
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, LineInput{AccountID: l.AccountID, Amount: l.Amount, Notes: l.Notes})
	}
	return in, nil
}

type actualResponse struct {
	LineID uuid.UUID       `json:"line_id"`
	AsOf   string          `json:"as_of"`
	Actual decimal.Decimal `json:"actual"`
}
