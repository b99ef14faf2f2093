package reports

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
)

// CashFlowLine is the net tagged movement of one account within a bucket.
type CashFlowLine struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// CashFlowSection is one activity bucket.
type CashFlowSection struct {
	Category accounting.CashFlowCategory `json:"category"`
	Lines    []CashFlowLine              `json:"lines"`
	Total    decimal.Decimal             `json:"total"`
}

// CashFlowStatement groups tagged posted lines into operating, investing and financing.
type CashFlowStatement struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Operating   CashFlowSection `json:"operating"`
	Investing   CashFlowSection `json:"investing"`
	Financing   CashFlowSection `json:"financing"`
	NetCashFlow decimal.Decimal `json:"net_cash_flow"`
}

// BuildCashFlow nets categorised activity per bucket. Each tagged line
// contributes debit minus credit; untagged activity is ignored.
func BuildCashFlow(activity []accounting.AccountActivity, accounts map[uuid.UUID]AccountBalance) CashFlowStatement {
	sections := map[accounting.CashFlowCategory]*CashFlowSection{
		accounting.CashFlowOperating: {Category: accounting.CashFlowOperating, Lines: []CashFlowLine{}, Total: decimal.Zero},
		accounting.CashFlowInvesting: {Category: accounting.CashFlowInvesting, Lines: []CashFlowLine{}, Total: decimal.Zero},
		accounting.CashFlowFinancing: {Category: accounting.CashFlowFinancing, Lines: []CashFlowLine{}, Total: decimal.Zero},
	}
	for _, a := range activity {
		section, ok := sections[a.Category]
		if !ok {
			continue
		}
		amount := a.Net()
		acc := accounts[a.AccountID]
		section.Lines = append(section.Lines, CashFlowLine{AccountID: a.AccountID, Code: acc.Code, Name: acc.Name, Amount: amount})
		section.Total = section.Total.Add(amount)
	}
	for _, section := range sections {
		sort.Slice(section.Lines, func(i, j int) bool { return section.Lines[i].Code < section.Lines[j].Code })
	}
	out := CashFlowStatement{
		Operating: *sections[accounting.CashFlowOperating],
		Investing: *sections[accounting.CashFlowInvesting],
		Financing: *sections[accounting.CashFlowFinancing],
	}
	out.NetCashFlow = out.Operating.Total.Add(out.Investing.Total).Add(out.Financing.Total)
	return out
}
