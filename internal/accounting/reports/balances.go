package reports

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
)

// AccountBalance models a ledger account with aggregated posted activity.
// Amounts are debit-positive.
type AccountBalance struct {
	AccountID  uuid.UUID
	Code       string
	Name       string
	Type       accounting.AccountType
	NormalSide accounting.NormalSide
	Active     bool
	Opening    decimal.Decimal
	Debit      decimal.Decimal
	Credit     decimal.Decimal
}

// Closing computes the closing balance for the account.
func (a AccountBalance) Closing() decimal.Decimal {
	return a.Opening.Add(a.Debit).Sub(a.Credit)
}

// Movement is the net posted activity without the opening balance.
func (a AccountBalance) Movement() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}
