package periods

import "time"

type createPeriodRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	FinancialYear int    `json:"financial_year" validate:"omitempty,gte=1900,lte=9999"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsCurrent     bool   `json:"is_current"`
}

func (r createPeriodRequest) toInput(actor string) (CreatePeriodInput, error) {
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return CreatePeriodInput{}, err
	}
	end, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return CreatePeriodInput{}, err
	}
	return CreatePeriodInput{
		Name:          r.Name,
		FinancialYear: r.FinancialYear,
		StartDate:     start,
		EndDate:       end,
		IsCurrent:     r.IsCurrent,
		CreatedBy:     actor,
	}, nil
}

type postableResponse struct {
	Date     string `json:"date"`
	Postable bool   `json:"postable"`
}
