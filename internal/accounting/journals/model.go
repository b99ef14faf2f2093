package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// LineInput describes a journal line for a draft.
type LineInput struct {
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	CostCenter  string
	ProjectCode string
	Category    accounting.CashFlowCategory
}

// DraftInput groups fields required to create or edit a draft entry.
type DraftInput struct {
	EntryDate          time.Time
	PostingDate        time.Time
	Description        string
	Reference          string
	SourceDocumentType string
	SourceDocumentID   *uuid.UUID
	CreatedBy          string
	Lines              []LineInput
}

// AmountScale is the number of fractional digits the ledger stores for amounts.
const AmountScale = 4

// Validate checks line shape. Balance is checked only when posting.
func (in *DraftInput) Validate(now time.Time) error {
	if len(in.Lines) < 2 {
		return shared.TooFewLines("", len(in.Lines))
	}
	for idx, line := range in.Lines {
		n := idx + 1
		if line.AccountID == uuid.Nil {
			return shared.Invalid(fmt.Sprintf("line %d missing account", n))
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.Invalid(fmt.Sprintf("line %d negative amount", n))
		}
		if exceedsScale(line.Debit) || exceedsScale(line.Credit) {
			return shared.Invalid(fmt.Sprintf("line %d amount has more than %d decimal places", n, AmountScale))
		}
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return shared.Invalid(fmt.Sprintf("line %d must carry exactly one of debit or credit", n))
		}
		if !line.Category.Valid() {
			return shared.Invalid(fmt.Sprintf("line %d unknown cash-flow category %q", n, line.Category))
		}
	}
	if in.EntryDate.IsZero() {
		in.EntryDate = now
	}
	in.EntryDate = shared.DateOnly(in.EntryDate)
	if in.PostingDate.IsZero() {
		in.PostingDate = in.EntryDate
	}
	in.PostingDate = shared.DateOnly(in.PostingDate)
	return nil
}

func exceedsScale(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(AmountScale))
}

func (in DraftInput) lines(entryID uuid.UUID) []accounting.JournalLine {
	out := make([]accounting.JournalLine, 0, len(in.Lines))
	for idx, line := range in.Lines {
		out = append(out, accounting.JournalLine{
			ID:          uuid.New(),
			EntryID:     entryID,
			AccountID:   line.AccountID,
			LineNumber:  idx + 1,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
			CostCenter:  line.CostCenter,
			ProjectCode: line.ProjectCode,
			Category:    line.Category,
		})
	}
	return out
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID    uuid.UUID
	Reason     string
	ReversedBy string
}
