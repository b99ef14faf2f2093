package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// TrialBalanceAccount represents a row inside a trial balance group.
// A positive closing balance is shown in DebitBalance, a negative one in CreditBalance.
type TrialBalanceAccount struct {
	Code          string                 `json:"code"`
	Name          string                 `json:"name"`
	Type          accounting.AccountType `json:"type"`
	Opening       decimal.Decimal        `json:"opening"`
	Debit         decimal.Decimal        `json:"debit"`
	Credit        decimal.Decimal        `json:"credit"`
	Closing       decimal.Decimal        `json:"closing"`
	DebitBalance  decimal.Decimal        `json:"debit_balance"`
	CreditBalance decimal.Decimal        `json:"credit_balance"`
	Abnormal      bool                   `json:"abnormal"`
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key           string                `json:"key"`
	Accounts      []TrialBalanceAccount `json:"accounts"`
	Opening       decimal.Decimal       `json:"opening"`
	Debit         decimal.Decimal       `json:"debit"`
	Credit        decimal.Decimal       `json:"credit"`
	Closing       decimal.Decimal       `json:"closing"`
	DebitBalance  decimal.Decimal       `json:"debit_balance"`
	CreditBalance decimal.Decimal       `json:"credit_balance"`
}

// TrialBalance is the final structure rendered to clients.
type TrialBalance struct {
	AsOf         time.Time           `json:"as_of"`
	Groups       []TrialBalanceGroup `json:"groups"`
	TotalDebit   decimal.Decimal     `json:"total_debit"`
	TotalCredit  decimal.Decimal     `json:"total_credit"`
	TotalOpening decimal.Decimal     `json:"total_opening"`
	TotalClosing decimal.Decimal     `json:"total_closing"`
	IsBalanced   bool                `json:"is_balanced"`
}

// BuildTrialBalance converts account balances into grouped trial balance data.
// Inactive accounts are listed only while they still carry a balance.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		closing := acc.Closing()
		if !acc.Active && closing.IsZero() {
			continue
		}
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceAccount{
			Code:          acc.Code,
			Name:          acc.Name,
			Type:          acc.Type,
			Opening:       acc.Opening,
			Debit:         acc.Debit,
			Credit:        acc.Credit,
			Closing:       closing,
			DebitBalance:  decimal.Zero,
			CreditBalance: decimal.Zero,
		}
		switch closing.Sign() {
		case 1:
			row.DebitBalance = closing
			row.Abnormal = acc.NormalSide == accounting.NormalSideCredit
		case -1:
			row.CreditBalance = closing.Neg()
			row.Abnormal = acc.NormalSide == accounting.NormalSideDebit
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Opening = grp.Opening.Add(row.Opening)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Closing = grp.Closing.Add(row.Closing)
		grp.DebitBalance = grp.DebitBalance.Add(row.DebitBalance)
		grp.CreditBalance = grp.CreditBalance.Add(row.CreditBalance)
	}

	sort.Strings(keys)
	result := TrialBalance{
		Groups:       make([]TrialBalanceGroup, 0, len(keys)),
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
		TotalOpening: decimal.Zero,
		TotalClosing: decimal.Zero,
	}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalOpening = result.TotalOpening.Add(grp.Opening)
		result.TotalDebit = result.TotalDebit.Add(grp.DebitBalance)
		result.TotalCredit = result.TotalCredit.Add(grp.CreditBalance)
		result.TotalClosing = result.TotalClosing.Add(grp.Closing)
	}
	result.IsBalanced = shared.BalancedWithinCent(result.TotalDebit, result.TotalCredit)
	return result
}
