package accounting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

// MemoryStore is an in-process Gateway. Entities live in arenas addressed by id
// indexes; committed states are immutable so snapshots need no locking.
type MemoryStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *memState
	now     func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: time.Now}
}

// WithNow overrides the clock for testing.
func (m *MemoryStore) WithNow(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

func (m *MemoryStore) current() *memState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// WithTx serialises writers; fn mutates a private copy that replaces the
// committed state only when fn returns nil.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := m.current().clone()
	if err := fn(ctx, &memTx{memState: staged, now: m.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = staged
	m.mu.Unlock()
	return nil
}

// Snapshot runs fn against the last committed state.
func (m *MemoryStore) Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	return fn(ctx, m.current())
}

func (m *MemoryStore) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return m.current().GetAccount(ctx, id)
}

func (m *MemoryStore) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return m.current().GetAccountByCode(ctx, code)
}

func (m *MemoryStore) ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error) {
	return m.current().ListAccounts(ctx, filter)
}

func (m *MemoryStore) GetEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return m.current().GetEntry(ctx, id)
}

func (m *MemoryStore) ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, int, error) {
	return m.current().ListEntries(ctx, filter)
}

func (m *MemoryStore) GetPeriod(ctx context.Context, id uuid.UUID) (FinancialPeriod, error) {
	return m.current().GetPeriod(ctx, id)
}

func (m *MemoryStore) PeriodForDate(ctx context.Context, day time.Time) (FinancialPeriod, error) {
	return m.current().PeriodForDate(ctx, day)
}

func (m *MemoryStore) CurrentPeriod(ctx context.Context) (FinancialPeriod, error) {
	return m.current().CurrentPeriod(ctx)
}

func (m *MemoryStore) ListPeriods(ctx context.Context, year int) ([]FinancialPeriod, error) {
	return m.current().ListPeriods(ctx, year)
}

func (m *MemoryStore) GetBudget(ctx context.Context, id uuid.UUID) (Budget, error) {
	return m.current().GetBudget(ctx, id)
}

func (m *MemoryStore) GetBudgetByLine(ctx context.Context, lineID uuid.UUID) (Budget, error) {
	return m.current().GetBudgetByLine(ctx, lineID)
}

func (m *MemoryStore) ListBudgets(ctx context.Context, year int) ([]Budget, error) {
	return m.current().ListBudgets(ctx, year)
}

func (m *MemoryStore) Activity(ctx context.Context, q ActivityQuery) ([]AccountActivity, error) {
	return m.current().Activity(ctx, q)
}

type memState struct {
	accounts   []Account
	accountIdx map[uuid.UUID]int
	codeIdx    map[string]int
	entries    []JournalEntry
	entryIdx   map[uuid.UUID]int
	numberIdx  map[string]int
	periods    []FinancialPeriod
	periodIdx  map[uuid.UUID]int
	budgets    []Budget
	budgetIdx  map[uuid.UUID]int
	lineIdx    map[uuid.UUID]int
	sequences  map[int]int
}

func newMemState() *memState {
	return &memState{
		accountIdx: map[uuid.UUID]int{},
		codeIdx:    map[string]int{},
		entryIdx:   map[uuid.UUID]int{},
		numberIdx:  map[string]int{},
		periodIdx:  map[uuid.UUID]int{},
		budgetIdx:  map[uuid.UUID]int{},
		lineIdx:    map[uuid.UUID]int{},
		sequences:  map[int]int{},
	}
}

// clone copies arenas and indexes. Line slices are shared because they are
// only ever replaced, never mutated in place.
func (s *memState) clone() *memState {
	out := &memState{
		accounts:   append([]Account(nil), s.accounts...),
		accountIdx: cloneMap(s.accountIdx),
		codeIdx:    cloneMap(s.codeIdx),
		entries:    append([]JournalEntry(nil), s.entries...),
		entryIdx:   cloneMap(s.entryIdx),
		numberIdx:  cloneMap(s.numberIdx),
		periods:    append([]FinancialPeriod(nil), s.periods...),
		periodIdx:  cloneMap(s.periodIdx),
		budgets:    append([]Budget(nil), s.budgets...),
		budgetIdx:  cloneMap(s.budgetIdx),
		lineIdx:    cloneMap(s.lineIdx),
		sequences:  cloneMap(s.sequences),
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memState) GetAccount(_ context.Context, id uuid.UUID) (Account, error) {
	idx, ok := s.accountIdx[id]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return s.accounts[idx], nil
}

func (s *memState) GetAccountByCode(_ context.Context, code string) (Account, error) {
	idx, ok := s.codeIdx[code]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return s.accounts[idx], nil
}

func (s *memState) ListAccounts(_ context.Context, filter AccountFilter) ([]Account, error) {
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if !filter.IncludeInactive && !a.IsActive {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.ParentID != nil && (a.ParentID == nil || *a.ParentID != *filter.ParentID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *memState) GetEntry(_ context.Context, id uuid.UUID) (JournalEntry, error) {
	idx, ok := s.entryIdx[id]
	if !ok {
		return JournalEntry{}, shared.ErrEntryNotFound
	}
	return copyEntry(s.entries[idx]), nil
}

func (s *memState) ListEntries(_ context.Context, filter EntryFilter) ([]JournalEntry, int, error) {
	filter = filter.Normalize()
	matched := make([]JournalEntry, 0)
	for _, e := range s.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !shared.WithinDates(e.PostingDate, filter.From, filter.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PostingDate.Equal(matched[j].PostingDate) {
			return matched[i].PostingDate.After(matched[j].PostingDate)
		}
		return matched[i].Number > matched[j].Number
	})
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []JournalEntry{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	page := make([]JournalEntry, 0, end-start)
	for _, e := range matched[start:end] {
		page = append(page, copyEntry(e))
	}
	return page, total, nil
}

func (s *memState) GetPeriod(_ context.Context, id uuid.UUID) (FinancialPeriod, error) {
	idx, ok := s.periodIdx[id]
	if !ok {
		return FinancialPeriod{}, shared.ErrPeriodNotFound
	}
	return s.periods[idx], nil
}

func (s *memState) PeriodForDate(_ context.Context, day time.Time) (FinancialPeriod, error) {
	for _, p := range s.periods {
		if p.Covers(day) {
			return p, nil
		}
	}
	return FinancialPeriod{}, shared.ErrPeriodNotFound
}

func (s *memState) CurrentPeriod(_ context.Context) (FinancialPeriod, error) {
	for _, p := range s.periods {
		if p.IsCurrent {
			return p, nil
		}
	}
	return FinancialPeriod{}, shared.ErrPeriodNotFound
}

func (s *memState) ListPeriods(_ context.Context, year int) ([]FinancialPeriod, error) {
	out := make([]FinancialPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		if year != 0 && p.FinancialYear != year {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *memState) GetBudget(_ context.Context, id uuid.UUID) (Budget, error) {
	idx, ok := s.budgetIdx[id]
	if !ok {
		return Budget{}, shared.ErrBudgetNotFound
	}
	return copyBudget(s.budgets[idx]), nil
}

func (s *memState) GetBudgetByLine(_ context.Context, lineID uuid.UUID) (Budget, error) {
	idx, ok := s.lineIdx[lineID]
	if !ok {
		return Budget{}, shared.ErrBudgetNotFound
	}
	return copyBudget(s.budgets[idx]), nil
}

func (s *memState) ListBudgets(_ context.Context, year int) ([]Budget, error) {
	out := make([]Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		if year != 0 && b.FinancialYear != year {
			continue
		}
		out = append(out, copyBudget(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FinancialYear != out[j].FinancialYear {
			return out[i].FinancialYear < out[j].FinancialYear
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

type activityKey struct {
	account  uuid.UUID
	category CashFlowCategory
}

func (s *memState) Activity(_ context.Context, q ActivityQuery) ([]AccountActivity, error) {
	var wanted map[uuid.UUID]struct{}
	if len(q.AccountIDs) > 0 {
		wanted = make(map[uuid.UUID]struct{}, len(q.AccountIDs))
		for _, id := range q.AccountIDs {
			wanted[id] = struct{}{}
		}
	}
	totals := map[activityKey]*AccountActivity{}
	var order []activityKey
	for _, e := range s.entries {
		if !e.HasPosted() || !shared.WithinDates(e.PostingDate, q.From, q.To) {
			continue
		}
		for _, line := range e.Lines {
			if wanted != nil {
				if _, ok := wanted[line.AccountID]; !ok {
					continue
				}
			}
			key := activityKey{account: line.AccountID}
			if q.ByCategory {
				key.category = line.Category
			}
			agg, ok := totals[key]
			if !ok {
				agg = &AccountActivity{AccountID: key.account, Category: key.category, Debit: decimal.Zero, Credit: decimal.Zero}
				totals[key] = agg
				order = append(order, key)
			}
			agg.Debit = agg.Debit.Add(line.Debit)
			agg.Credit = agg.Credit.Add(line.Credit)
		}
	}
	out := make([]AccountActivity, 0, len(order))
	for _, key := range order {
		out = append(out, *totals[key])
	}
	return out, nil
}

type memTx struct {
	*memState
	now func() time.Time
}

func (t *memTx) LockAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return t.GetAccount(ctx, id)
}

func (t *memTx) InsertAccount(_ context.Context, account Account) error {
	if _, ok := t.codeIdx[account.Code]; ok {
		return fmt.Errorf("%w: account code %s", shared.ErrDuplicate, account.Code)
	}
	if _, ok := t.accountIdx[account.ID]; ok {
		return fmt.Errorf("%w: account id %s", shared.ErrDuplicate, account.ID)
	}
	t.accounts = append(t.accounts, account)
	t.accountIdx[account.ID] = len(t.accounts) - 1
	t.codeIdx[account.Code] = len(t.accounts) - 1
	return nil
}

func (t *memTx) UpdateAccount(_ context.Context, account Account) error {
	idx, ok := t.accountIdx[account.ID]
	if !ok {
		return shared.ErrAccountNotFound
	}
	stored := t.accounts[idx]
	if stored.Version != account.Version {
		return shared.ConcurrentModification(stored.Code, "stale account version")
	}
	account.Code = stored.Code
	account.CurrentBalance = stored.CurrentBalance
	account.Version = stored.Version + 1
	account.UpdatedAt = t.now()
	t.accounts[idx] = account
	return nil
}

func (t *memTx) ApplyBalanceDelta(_ context.Context, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) error {
	idx, ok := t.accountIdx[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	stored := t.accounts[idx]
	if stored.Version != expectedVersion {
		return shared.ConcurrentModification(stored.Code, "stale account version")
	}
	stored.CurrentBalance = stored.CurrentBalance.Add(delta)
	stored.Version++
	stored.UpdatedAt = t.now()
	t.accounts[idx] = stored
	return nil
}

func (t *memTx) LockEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return t.GetEntry(ctx, id)
}

func (t *memTx) InsertEntry(_ context.Context, entry JournalEntry) error {
	if _, ok := t.numberIdx[entry.Number]; ok {
		return fmt.Errorf("%w: journal number %s", shared.ErrDuplicate, entry.Number)
	}
	t.entries = append(t.entries, copyEntry(entry))
	t.entryIdx[entry.ID] = len(t.entries) - 1
	t.numberIdx[entry.Number] = len(t.entries) - 1
	return nil
}

func (t *memTx) UpdateEntry(_ context.Context, entry JournalEntry) error {
	idx, ok := t.entryIdx[entry.ID]
	if !ok {
		return shared.ErrEntryNotFound
	}
	entry.Lines = t.entries[idx].Lines
	entry.Number = t.entries[idx].Number
	t.entries[idx] = entry
	return nil
}

func (t *memTx) ReplaceLines(_ context.Context, entryID uuid.UUID, lines []JournalLine) error {
	idx, ok := t.entryIdx[entryID]
	if !ok {
		return shared.ErrEntryNotFound
	}
	stored := t.entries[idx]
	stored.Lines = append([]JournalLine(nil), lines...)
	t.entries[idx] = stored
	return nil
}

func (t *memTx) NextEntryNumber(_ context.Context, year int) (string, error) {
	t.sequences[year]++
	return EntryNumber(year, t.sequences[year]), nil
}

func (t *memTx) LockPeriod(ctx context.Context, id uuid.UUID) (FinancialPeriod, error) {
	return t.GetPeriod(ctx, id)
}

func (t *memTx) InsertPeriod(_ context.Context, period FinancialPeriod) error {
	if _, ok := t.periodIdx[period.ID]; ok {
		return fmt.Errorf("%w: period id %s", shared.ErrDuplicate, period.ID)
	}
	t.periods = append(t.periods, period)
	t.periodIdx[period.ID] = len(t.periods) - 1
	return nil
}

func (t *memTx) UpdatePeriod(_ context.Context, period FinancialPeriod) error {
	idx, ok := t.periodIdx[period.ID]
	if !ok {
		return shared.ErrPeriodNotFound
	}
	t.periods[idx] = period
	return nil
}

func (t *memTx) InsertBudget(_ context.Context, budget Budget) error {
	for _, b := range t.budgets {
		if b.FinancialYear == budget.FinancialYear && b.Category == budget.Category {
			return fmt.Errorf("%w: budget for %d/%s", shared.ErrDuplicate, budget.FinancialYear, budget.Category)
		}
	}
	t.budgets = append(t.budgets, copyBudget(budget))
	idx := len(t.budgets) - 1
	t.budgetIdx[budget.ID] = idx
	for _, line := range budget.Lines {
		t.lineIdx[line.ID] = idx
	}
	return nil
}

func (t *memTx) UpdateBudget(_ context.Context, budget Budget) error {
	idx, ok := t.budgetIdx[budget.ID]
	if !ok {
		return shared.ErrBudgetNotFound
	}
	t.budgets[idx] = copyBudget(budget)
	for _, line := range budget.Lines {
		t.lineIdx[line.ID] = idx
	}
	return nil
}

func copyEntry(e JournalEntry) JournalEntry {
	e.Lines = append([]JournalLine(nil), e.Lines...)
	return e
}

func copyBudget(b Budget) Budget {
	b.Lines = append([]BudgetLine(nil), b.Lines...)
	return b
}
