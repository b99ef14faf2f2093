package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// CurrentEarningsLabel names the synthetic equity row carrying unclosed profit.
const CurrentEarningsLabel = "Current earnings"

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// Assets are debit-positive; liabilities and equity are credit-positive.
type BalanceSheet struct {
	AsOf                      time.Time           `json:"as_of"`
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	IsBalanced                bool                `json:"is_balanced"`
}

// BuildBalanceSheet aggregates closing balances into assets, liabilities, and equity.
// Revenue and expense balances fold into a current earnings equity row.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Accounts: []BalanceSheetAccount{}, Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Accounts: []BalanceSheetAccount{}, Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Accounts: []BalanceSheetAccount{}, Total: decimal.Zero}
	earnings := decimal.Zero

	for _, acc := range accounts {
		balance := acc.Closing()
		if !acc.Active && balance.IsZero() {
			continue
		}
		row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: balance}
		switch acc.Type {
		case accounting.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case accounting.AccountTypeLiability:
			row.Balance = balance.Neg()
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case accounting.AccountTypeEquity:
			row.Balance = balance.Neg()
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case accounting.AccountTypeRevenue, accounting.AccountTypeExpense:
			earnings = earnings.Sub(balance)
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })
	if !earnings.IsZero() {
		equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Name: CurrentEarningsLabel, Balance: earnings})
		equity.Total = equity.Total.Add(earnings)
	}

	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: total,
		IsBalanced:                shared.BalancedWithinCent(assets.Total, total),
	}
}
