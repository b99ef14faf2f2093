package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
)

type lineRequest struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Description string          `json:"description" validate:"max=500"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	CostCenter  string          `json:"cost_center" validate:"max=50"`
	ProjectCode string          `json:"project_code" validate:"max=50"`
	Category    string          `json:"cash_flow_category" validate:"omitempty,oneof=OPERATING INVESTING FINANCING"`
}

type draftRequest struct {
	EntryDate          string        `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	PostingDate        string        `json:"posting_date" validate:"omitempty,datetime=2006-01-02"`
	Description        string        `json:"description" validate:"required,max=500"`
	Reference          string        `json:"reference" validate:"max=100"`
	SourceDocumentType string        `json:"source_document_type" validate:"max=50"`
	SourceDocumentID   *uuid.UUID    `json:"source_document_id"`
	Lines              []lineRequest `json:"lines" validate:"required,dive"`
}

func (r draftRequest) toInput(actor string) (DraftInput, error) {
	in := DraftInput{
		Description:        r.Description,
		Reference:          r.Reference,
		SourceDocumentType: r.SourceDocumentType,
		SourceDocumentID:   r.SourceDocumentID,
		CreatedBy:          actor,
		Lines:              make([]LineInput, 0, len(r.Lines)),
	}
	var err error
	if r.EntryDate != "" {
		if in.EntryDate, err = time.Parse("2006-01-02", r.EntryDate); err != nil {
			return DraftInput{}, err
		}
	}
	if r.PostingDate != "" {
		if in.PostingDate, err = time.Parse("2006-01-02", r.PostingDate); err != nil {
			return DraftInput{}, err
		}
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, LineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			CostCenter:  l.CostCenter,
			ProjectCode: l.ProjectCode,
			Category:    accounting.CashFlowCategory(l.Category),
		})
	}
	return in, nil
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type listResponse struct {
	Entries  []accounting.JournalEntry `json:"entries"`
	Total    int                       `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}
