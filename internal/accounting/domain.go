package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which balances of this type increase.
func (t AccountType) NormalSide() NormalSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalSideDebit
	default:
		return NormalSideCredit
	}
}

// NormalSide is the side an account's balance normally sits on.
type NormalSide string

const (
	NormalSideDebit  NormalSide = "DEBIT"
	NormalSideCredit NormalSide = "CREDIT"
)

// Valid reports whether s is DEBIT or CREDIT.
func (s NormalSide) Valid() bool {
	return s == NormalSideDebit || s == NormalSideCredit
}

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

// Valid reports whether s is a known entry status.
func (s EntryStatus) Valid() bool {
	return s == EntryStatusDraft || s == EntryStatusPosted || s == EntryStatusReversed
}

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusActive PeriodStatus = "ACTIVE"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Valid reports whether s is a known period status.
func (s PeriodStatus) Valid() bool {
	return s == PeriodStatusActive || s == PeriodStatusClosed
}

// BudgetStatus enumerates budget approval states.
type BudgetStatus string

const (
	BudgetStatusDraft    BudgetStatus = "DRAFT"
	BudgetStatusApproved BudgetStatus = "APPROVED"
)

// Valid reports whether s is a known budget status.
func (s BudgetStatus) Valid() bool {
	return s == BudgetStatusDraft || s == BudgetStatusApproved
}

// CashFlowCategory tags a journal line for the cash-flow statement.
type CashFlowCategory string

const (
	CashFlowNone      CashFlowCategory = ""
	CashFlowOperating CashFlowCategory = "OPERATING"
	CashFlowInvesting CashFlowCategory = "INVESTING"
	CashFlowFinancing CashFlowCategory = "FINANCING"
)

// Valid reports whether c is empty or one of the three activity buckets.
func (c CashFlowCategory) Valid() bool {
	switch c {
	case CashFlowNone, CashFlowOperating, CashFlowInvesting, CashFlowFinancing:
		return true
	}
	return false
}

// Account models a chart of accounts node. Balances are debit-positive.
type Account struct {
	ID                 uuid.UUID       `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Type               AccountType     `json:"type"`
	NormalSide         NormalSide      `json:"normal_side"`
	Category           string          `json:"category"`
	ParentID           *uuid.UUID      `json:"parent_id,omitempty"`
	Level              int             `json:"level"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	CurrentBalance     decimal.Decimal `json:"current_balance"`
	IsActive           bool            `json:"is_active"`
	AllowDirectPosting bool            `json:"allow_direct_posting"`
	IsControl          bool            `json:"is_control"`
	Version            int64           `json:"version"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Postable reports whether journal lines may target the account.
func (a Account) Postable() bool {
	return a.IsActive && a.AllowDirectPosting
}

// Normalized expresses a debit-positive amount on the account's normal side.
func (a Account) Normalized(amount decimal.Decimal) decimal.Decimal {
	if a.NormalSide == NormalSideCredit {
		return amount.Neg()
	}
	return amount
}

// JournalEntry captures posting metadata.
type JournalEntry struct {
	ID                 uuid.UUID       `json:"id"`
	Number             string          `json:"number"`
	EntryDate          time.Time       `json:"entry_date"`
	PostingDate        time.Time       `json:"posting_date"`
	Description        string          `json:"description"`
	Reference          string          `json:"reference"`
	SourceDocumentType string          `json:"source_document_type"`
	SourceDocumentID   *uuid.UUID      `json:"source_document_id,omitempty"`
	TotalDebit         decimal.Decimal `json:"total_debit"`
	TotalCredit        decimal.Decimal `json:"total_credit"`
	Status             EntryStatus     `json:"status"`
	PostedBy           string          `json:"posted_by"`
	PostedAt           *time.Time      `json:"posted_at,omitempty"`
	ReversalOfID       *uuid.UUID      `json:"reversal_of_id,omitempty"`
	ReversedByID       *uuid.UUID      `json:"reversed_by_id,omitempty"`
	ReversalReason     string          `json:"reversal_reason"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Lines              []JournalLine   `json:"lines"`
}

// HasPosted reports whether the entry's lines count toward balances.
func (e JournalEntry) HasPosted() bool {
	return e.Status == EntryStatusPosted || e.Status == EntryStatusReversed
}

// Totals sums the debit and credit columns of the entry's lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID          uuid.UUID        `json:"id"`
	EntryID     uuid.UUID        `json:"entry_id"`
	AccountID   uuid.UUID        `json:"account_id"`
	LineNumber  int              `json:"line_number"`
	Description string           `json:"description"`
	Debit       decimal.Decimal  `json:"debit"`
	Credit      decimal.Decimal  `json:"credit"`
	CostCenter  string           `json:"cost_center"`
	ProjectCode string           `json:"project_code"`
	Category    CashFlowCategory `json:"category"`
}

// Delta is the debit-positive effect of the line on its account.
func (l JournalLine) Delta() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// FinancialPeriod represents a fiscal period window.
type FinancialPeriod struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	FinancialYear int          `json:"financial_year"`
	StartDate     time.Time    `json:"start_date"`
	EndDate       time.Time    `json:"end_date"`
	Status        PeriodStatus `json:"status"`
	IsCurrent     bool         `json:"is_current"`
	CloseDate     *time.Time   `json:"close_date,omitempty"`
	ClosedBy      string       `json:"closed_by"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Covers reports whether day falls inside the period, inclusive.
func (p FinancialPeriod) Covers(day time.Time) bool {
	return shared.WithinDates(day, p.StartDate, p.EndDate)
}

// Overlaps reports whether two periods share at least one day.
func (p FinancialPeriod) Overlaps(other FinancialPeriod) bool {
	return !shared.DateOnly(p.EndDate).Before(shared.DateOnly(other.StartDate)) &&
		!shared.DateOnly(other.EndDate).Before(shared.DateOnly(p.StartDate))
}

// Budget groups planned amounts per account over a date range.
type Budget struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	FinancialYear int          `json:"financial_year"`
	Category      string       `json:"category"`
	StartDate     time.Time    `json:"start_date"`
	EndDate       time.Time    `json:"end_date"`
	Status        BudgetStatus `json:"status"`
	ApprovedBy    string       `json:"approved_by"`
	ApprovedAt    *time.Time   `json:"approved_at,omitempty"`
	CreatedBy     string       `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
	Lines         []BudgetLine `json:"lines"`
}

// Line returns the budget line with the given id.
func (b Budget) Line(id uuid.UUID) (BudgetLine, bool) {
	for _, line := range b.Lines {
		if line.ID == id {
			return line, true
		}
	}
	return BudgetLine{}, false
}

// BudgetLine is the planned amount for one account.
type BudgetLine struct {
	ID        uuid.UUID       `json:"id"`
	BudgetID  uuid.UUID       `json:"budget_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
}

// AccountFilter narrows chart-of-accounts listings.
type AccountFilter struct {
	Type            AccountType `json:"type"`
	ParentID        *uuid.UUID  `json:"parent_id,omitempty"`
	IncludeInactive bool        `json:"include_inactive"`
}

// EntryFilter narrows and pages journal listings.
type EntryFilter struct {
	From     time.Time   `json:"from"`
	To       time.Time   `json:"to"`
	Status   EntryStatus `json:"status"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Normalize applies paging defaults.
func (f EntryFilter) Normalize() EntryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	if f.PageSize > 500 {
		f.PageSize = 500
	}
	return f
}

// ActivityQuery selects posted lines for aggregation. Zero dates are open bounds.
type ActivityQuery struct {
	From       time.Time   `json:"from"`
	To         time.Time   `json:"to"`
	AccountIDs []uuid.UUID `json:"account_ids"`
	ByCategory bool        `json:"by_category"`
}

// AccountActivity aggregates posted line amounts for one account (and category when requested).
type AccountActivity struct {
	AccountID uuid.UUID        `json:"account_id"`
	Category  CashFlowCategory `json:"category"`
	Debit     decimal.Decimal  `json:"debit"`
	Credit    decimal.Decimal  `json:"credit"`
}

// Net returns debit minus credit.
func (a AccountActivity) Net() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}
