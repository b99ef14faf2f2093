package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the income statement.
type ProfitAndLoss struct {
	From      time.Time            `json:"from"`
	To        time.Time            `json:"to"`
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome decimal.Decimal      `json:"net_income"`
}

// BuildProfitAndLoss aggregates range movement into revenue (credit minus debit)
// and expense (debit minus credit) sections. Opening balances are ignored.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue", Accounts: []ProfitAndLossAccount{}, Total: decimal.Zero}
	expense := ProfitAndLossSection{Label: "Expense", Accounts: []ProfitAndLossAccount{}, Total: decimal.Zero}

	for _, acc := range accounts {
		if acc.Debit.IsZero() && acc.Credit.IsZero() {
			continue
		}
		amount := acc.Movement()
		row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: amount}
		switch acc.Type {
		case accounting.AccountTypeRevenue:
			row.Amount = amount.Neg()
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case accounting.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
