package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reader exposes read access to ledger state.
type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error)
	GetEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, int, error)
	GetPeriod(ctx context.Context, id uuid.UUID) (FinancialPeriod, error)
	PeriodForDate(ctx context.Context, day time.Time) (FinancialPeriod, error)
	CurrentPeriod(ctx context.Context) (FinancialPeriod, error)
	ListPeriods(ctx context.Context, year int) ([]FinancialPeriod, error)
	GetBudget(ctx context.Context, id uuid.UUID) (Budget, error)
	GetBudgetByLine(ctx context.Context, lineID uuid.UUID) (Budget, error)
	ListBudgets(ctx context.Context, year int) ([]Budget, error)
	Activity(ctx context.Context, q ActivityQuery) ([]AccountActivity, error)
}

// Tx exposes transactional operations. Writes become visible only on commit.
type Tx interface {
	Reader
	LockAccount(ctx context.Context, id uuid.UUID) (Account, error)
	InsertAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) error
	LockEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	InsertEntry(ctx context.Context, entry JournalEntry) error
	UpdateEntry(ctx context.Context, entry JournalEntry) error
	ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error
	NextEntryNumber(ctx context.Context, year int) (string, error)
	LockPeriod(ctx context.Context, id uuid.UUID) (FinancialPeriod, error)
	InsertPeriod(ctx context.Context, period FinancialPeriod) error
	UpdatePeriod(ctx context.Context, period FinancialPeriod) error
	InsertBudget(ctx context.Context, budget Budget) error
	UpdateBudget(ctx context.Context, budget Budget) error
}

// Gateway is the persistence contract consumed by every ledger component.
type Gateway interface {
	Reader
	// WithTx runs fn in one transaction; any error rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
	// Snapshot runs fn against a consistent read-only view.
	Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error
}

// EntryNumber formats the human-facing journal number.
func EntryNumber(year, seq int) string {
	return fmt.Sprintf("JE-%d-%06d", year, seq)
}
