package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/periods"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/app"
)

type seedAccount struct {
	code    string
	name    string
	accType accounting.AccountType
	parent  string
	opening int64
}

// Headers are control accounts; leaves accept postings.
var chart = []seedAccount{
	{"1000", "Assets", accounting.AccountTypeAsset, "", 0},
	{"1100", "Cash and bank", accounting.AccountTypeAsset, "1000", 0},
	{"1110", "Petty cash", accounting.AccountTypeAsset, "1100", 0},
	{"1120", "Operating bank account", accounting.AccountTypeAsset, "1100", 50000},
	{"1200", "Receivables", accounting.AccountTypeAsset, "1000", 0},
	{"1210", "Trade receivables", accounting.AccountTypeAsset, "1200", 0},
	{"1400", "Fixed assets", accounting.AccountTypeAsset, "1000", 0},
	{"1410", "Office equipment", accounting.AccountTypeAsset, "1400", 0},
	{"2000", "Liabilities", accounting.AccountTypeLiability, "", 0},
	{"2110", "Trade payables", accounting.AccountTypeLiability, "2000", 0},
	{"2120", "Tax payable", accounting.AccountTypeLiability, "2000", 0},
	{"3000", "Equity", accounting.AccountTypeEquity, "", 0},
	{"3100", "Paid-in capital", accounting.AccountTypeEquity, "3000", -50000},
	{"3200", "Retained earnings", accounting.AccountTypeEquity, "3000", 0},
	{"4000", "Revenue", accounting.AccountTypeRevenue, "", 0},
	{"4100", "Sales", accounting.AccountTypeRevenue, "4000", 0},
	{"4200", "Other income", accounting.AccountTypeRevenue, "4000", 0},
	{"5000", "Expenses", accounting.AccountTypeExpense, "", 0},
	{"5100", "Cost of goods sold", accounting.AccountTypeExpense, "5000", 0},
	{"5210", "Salaries", accounting.AccountTypeExpense, "5000", 0},
	{"5220", "Rent", accounting.AccountTypeExpense, "5000", 0},
	{"5300", "Office supplies", accounting.AccountTypeExpense, "5000", 0},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("PG_DSN must point at the database to seed")
	}
	ctx := context.Background()
	ledger, err := app.Build(ctx, cfg, app.NewLogger(cfg), nil)
	if err != nil {
		log.Fatalf("build ledger: %v", err)
	}
	defer ledger.Close() //nolint:errcheck

	fmt.Println("→ Seeding chart of accounts...")
	if err := seedChart(ctx, ledger.Accounts); err != nil {
		log.Fatalf("seed accounts: %v", err)
	}
	fmt.Println("→ Seeding financial period...")
	if err := seedPeriod(ctx, ledger.Periods, time.Now().UTC().Year()); err != nil {
		log.Fatalf("seed period: %v", err)
	}
	fmt.Println("✓ Seed complete")
}

func seedChart(ctx context.Context, registry *accounts.Registry) error {
	ids := make(map[string]uuid.UUID, len(chart))
	leaves := make(map[string]bool, len(chart))
	for _, a := range chart {
		leaves[a.code] = true
	}
	for _, a := range chart {
		if a.parent != "" {
			leaves[a.parent] = false
		}
	}
	for _, a := range chart {
		existing, err := registry.GetByCode(ctx, a.code)
		if err == nil {
			ids[a.code] = existing.ID
			continue
		}
		if !errors.Is(err, shared.ErrAccountNotFound) {
			return err
		}
		in := accounts.CreateAccountInput{
			Code:           a.code,
			Name:           a.name,
			Type:           a.accType,
			OpeningBalance: decimal.NewFromInt(a.opening),
			IsControl:      !leaves[a.code],
			CreatedBy:      "seed",
		}
		if a.parent != "" {
			parentID := ids[a.parent]
			in.ParentID = &parentID
		}
		created, err := registry.CreateAccount(ctx, in)
		if err != nil {
			return fmt.Errorf("account %s: %w", a.code, err)
		}
		ids[a.code] = created.ID
	}
	return nil
}

func seedPeriod(ctx context.Context, manager *periods.Manager, year int) error {
	_, err := manager.CreatePeriod(ctx, periods.CreatePeriodInput{
		Name:      fmt.Sprintf("FY%d", year),
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		IsCurrent: true,
		CreatedBy: "seed",
	})
	if errors.Is(err, shared.ErrPeriodOverlap) {
		return nil
	}
	return err
}
