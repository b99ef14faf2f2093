package journals

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/accounts"
	"github.com/ines-erp/ledger/internal/accounting/periods"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/audit"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	store    *accounting.MemoryStore
	engine   *Engine
	registry *accounts.Registry
	periods  *periods.Manager
	sink     *audit.MemorySink
	cash     accounting.Account
	revenue  accounting.Account
	expense  accounting.Account
	june     accounting.FinancialPeriod
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	store := accounting.NewMemoryStore()
	sink := audit.NewMemorySink()
	recorder := accounting.NewRecorder(sink, nil)
	now := func() time.Time { return time.Date(2024, 6, 20, 9, 30, 0, 0, time.UTC) }

	registry := accounts.NewRegistry(store, recorder)
	manager := periods.NewManager(store, recorder)
	manager.WithNow(now)
	engine := NewEngine(store, manager, recorder, append([]Option{WithBackoff(0)}, opts...)...)
	engine.WithNow(now)

	f := &fixture{store: store, engine: engine, registry: registry, periods: manager, sink: sink}
	var err error
	f.cash, err = registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "1010", Name: "Cash", Type: accounting.AccountTypeAsset})
	require.NoError(t, err)
	f.revenue, err = registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "4010", Name: "Sales", Type: accounting.AccountTypeRevenue})
	require.NoError(t, err)
	f.expense, err = registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "5010", Name: "Supplies", Type: accounting.AccountTypeExpense})
	require.NoError(t, err)
	f.june, err = manager.CreatePeriod(ctx, periods.CreatePeriodInput{Name: "Jun 2024", StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 30), IsCurrent: true})
	require.NoError(t, err)
	return f
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.CurrentBalance
}

func (f *fixture) draft(t *testing.T, day time.Time, debit, credit int64) accounting.JournalEntry {
	t.Helper()
	entry, err := f.engine.CreateDraft(context.Background(), DraftInput{
		PostingDate: day,
		Description: "cash sale",
		CreatedBy:   "clerk",
		Lines: []LineInput{
			{AccountID: f.cash.ID, Debit: amount(debit), Credit: decimal.Zero},
			{AccountID: f.revenue.ID, Debit: decimal.Zero, Credit: amount(credit)},
		},
	})
	require.NoError(t, err)
	return entry
}

func TestPostBalancedEntryMovesBalances(t *testing.T) {
	f := newFixture(t)
	entry := f.draft(t, date(2024, 6, 15), 100000, 100000)
	require.Equal(t, accounting.EntryStatusDraft, entry.Status)
	require.Equal(t, "JE-2024-000001", entry.Number)
	require.True(t, f.balance(t, f.cash.ID).IsZero())

	posted, err := f.engine.Post(context.Background(), entry.ID, "controller")
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusPosted, posted.Status)
	require.Equal(t, "controller", posted.PostedBy)
	require.NotNil(t, posted.PostedAt)
	require.True(t, posted.TotalDebit.Equal(amount(100000)))

	require.True(t, f.balance(t, f.cash.ID).Equal(amount(100000)))
	require.True(t, f.balance(t, f.revenue.ID).Equal(amount(-100000)))

	last := f.sink.Events()[len(f.sink.Events())-1]
	require.Equal(t, "journal.post", last.Action)
	require.Equal(t, "controller", last.Actor)
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	f := newFixture(t)
	entry := f.draft(t, date(2024, 6, 15), 100000, 90000)

	_, err := f.engine.Post(context.Background(), entry.ID, "controller")
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	var le *shared.LedgerError
	require.True(t, errors.As(err, &le))
	require.Equal(t, entry.Number, le.EntryNumber)

	require.True(t, f.balance(t, f.cash.ID).IsZero())
	require.True(t, f.balance(t, f.revenue.ID).IsZero())
	stored, err := f.engine.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusDraft, stored.Status)
}

func TestPostToleratesSubCentDifference(t *testing.T) {
	f := newFixture(t)
	entry, err := f.engine.CreateDraft(context.Background(), DraftInput{
		PostingDate: date(2024, 6, 15),
		Lines: []LineInput{
			{AccountID: f.cash.ID, Debit: decimal.RequireFromString("10.005"), Credit: decimal.Zero},
			{AccountID: f.revenue.ID, Debit: decimal.Zero, Credit: decimal.RequireFromString("10.000")},
		},
	})
	require.NoError(t, err)
	_, err = f.engine.Post(context.Background(), entry.ID, "controller")
	require.NoError(t, err)

	entry, err = f.engine.CreateDraft(context.Background(), DraftInput{
		PostingDate: date(2024, 6, 15),
		Lines: []LineInput{
			{AccountID: f.cash.ID, Debit: decimal.RequireFromString("10.01"), Credit: decimal.Zero},
			{AccountID: f.revenue.ID, Debit: decimal.Zero, Credit: decimal.RequireFromString("10.00")},
		},
	})
	require.NoError(t, err)
	_, err = f.engine.Post(context.Background(), entry.ID, "controller")
	require.ErrorIs(t, err, shared.ErrUnbalanced)
}

func TestPostRejectsClosedPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.draft(t, date(2024, 6, 15), 500, 500)
	_, err := f.periods.ClosePeriod(ctx, f.june.ID, "controller")
	require.NoError(t, err)

	_, err = f.engine.Post(ctx, entry.ID, "controller")
	require.ErrorIs(t, err, shared.ErrClosedPeriod)
	var le *shared.LedgerError
	require.True(t, errors.As(err, &le))
	require.Equal(t, entry.Number, le.EntryNumber)
	require.True(t, f.balance(t, f.cash.ID).IsZero())

	uncovered := f.draft(t, date(2024, 8, 1), 500, 500)
	_, err = f.engine.Post(ctx, uncovered.ID, "controller")
	require.ErrorIs(t, err, shared.ErrClosedPeriod)
}

func TestReverseRestoresBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.draft(t, date(2024, 6, 10), 250, 250)
	_, err := f.engine.Post(ctx, before.ID, "controller")
	require.NoError(t, err)
	cashBefore := f.balance(t, f.cash.ID)
	revBefore := f.balance(t, f.revenue.ID)

	entry := f.draft(t, date(2024, 6, 15), 100000, 100000)
	_, err = f.engine.Post(ctx, entry.ID, "controller")
	require.NoError(t, err)

	mirror, err := f.engine.Reverse(ctx, ReverseInput{EntryID: entry.ID, Reason: "duplicate invoice", ReversedBy: "controller"})
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusPosted, mirror.Status)
	require.NotNil(t, mirror.ReversalOfID)
	require.Equal(t, entry.ID, *mirror.ReversalOfID)
	require.Equal(t, date(2024, 6, 20), mirror.PostingDate)
	require.Len(t, mirror.Lines, 2)
	require.True(t, mirror.Lines[0].Credit.Equal(amount(100000)))
	require.True(t, mirror.Lines[1].Debit.Equal(amount(100000)))

	original, err := f.engine.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusReversed, original.Status)
	require.Equal(t, mirror.ID, *original.ReversedByID)

	require.True(t, f.balance(t, f.cash.ID).Equal(cashBefore))
	require.True(t, f.balance(t, f.revenue.ID).Equal(revBefore))

	_, err = f.engine.Reverse(ctx, ReverseInput{EntryID: entry.ID, ReversedBy: "controller"})
	require.ErrorIs(t, err, shared.ErrAlreadyReversed)
	_, err = f.engine.Reverse(ctx, ReverseInput{EntryID: mirror.ID, ReversedBy: "controller"})
	require.ErrorIs(t, err, shared.ErrReversalOfReversal)
}

func TestReverseRequiresPostedEntry(t *testing.T) {
	f := newFixture(t)
	entry := f.draft(t, date(2024, 6, 15), 10, 10)
	_, err := f.engine.Reverse(context.Background(), ReverseInput{EntryID: entry.ID})
	require.ErrorIs(t, err, shared.ErrNotPosted)

	_, err = f.engine.Reverse(context.Background(), ReverseInput{EntryID: uuid.New()})
	require.ErrorIs(t, err, shared.ErrEntryNotFound)
}

func TestReverseBlockedWhenTodayIsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.draft(t, date(2024, 6, 15), 10, 10)
	_, err := f.engine.Post(ctx, entry.ID, "controller")
	require.NoError(t, err)
	_, err = f.periods.ClosePeriod(ctx, f.june.ID, "controller")
	require.NoError(t, err)

	_, err = f.engine.Reverse(ctx, ReverseInput{EntryID: entry.ID, ReversedBy: "controller"})
	require.ErrorIs(t, err, shared.ErrClosedPeriod)
	stored, err := f.engine.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusPosted, stored.Status)
}

func TestPostRejectsIneligibleAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	control, err := f.registry.CreateAccount(ctx, accounts.CreateAccountInput{Code: "1000", Name: "Assets", Type: accounting.AccountTypeAsset, IsControl: true})
	require.NoError(t, err)
	entry, err := f.engine.CreateDraft(ctx, DraftInput{
		PostingDate: date(2024, 6, 15),
		Lines: []LineInput{
			{AccountID: control.ID, Debit: amount(5), Credit: decimal.Zero},
			{AccountID: f.revenue.ID, Debit: decimal.Zero, Credit: amount(5)},
		},
	})
	require.NoError(t, err)
	_, err = f.engine.Post(ctx, entry.ID, "controller")
	require.ErrorIs(t, err, shared.ErrInvalidAccount)

	_, err = f.engine.CreateDraft(ctx, DraftInput{
		Lines: []LineInput{
			{AccountID: uuid.New(), Debit: amount(5), Credit: decimal.Zero},
			{AccountID: f.revenue.ID, Debit: decimal.Zero, Credit: amount(5)},
		},
	})
	require.ErrorIs(t, err, shared.ErrInvalidAccount)
}

func TestDraftValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.CreateDraft(ctx, DraftInput{Lines: []LineInput{{AccountID: f.cash.ID, Debit: amount(1)}}})
	require.ErrorIs(t, err, shared.ErrTooFewLines)

	_, err = f.engine.CreateDraft(ctx, DraftInput{Lines: []LineInput{
		{AccountID: f.cash.ID, Debit: amount(1), Credit: amount(1)},
		{AccountID: f.revenue.ID, Credit: amount(1)},
	}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.engine.CreateDraft(ctx, DraftInput{Lines: []LineInput{
		{AccountID: f.cash.ID, Debit: amount(-1)},
		{AccountID: f.revenue.ID, Credit: amount(1)},
	}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateDraftOnlyWhileDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.draft(t, date(2024, 6, 15), 100, 90)
	updated, err := f.engine.UpdateDraft(ctx, entry.ID, DraftInput{
		PostingDate: date(2024, 6, 16),
		Description: "corrected",
		Lines: []LineInput{
			{AccountID: f.cash.ID, Debit: amount(90), Credit: decimal.Zero},
			{AccountID: f.revenue.ID, Debit: decimal.Zero, Credit: amount(90)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, entry.Number, updated.Number)
	require.True(t, updated.TotalDebit.Equal(amount(90)))

	_, err = f.engine.Post(ctx, entry.ID, "controller")
	require.NoError(t, err)
	require.True(t, f.balance(t, f.cash.ID).Equal(amount(90)))

	_, err = f.engine.UpdateDraft(ctx, entry.ID, DraftInput{Lines: []LineInput{
		{AccountID: f.cash.ID, Debit: amount(1)},
		{AccountID: f.revenue.ID, Credit: amount(1)},
	}})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
	_, err = f.engine.Post(ctx, entry.ID, "controller")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

// flakyGateway fails the first n transactions with a concurrent modification.
type flakyGateway struct {
	*accounting.MemoryStore
	failures atomic.Int32
}

func (g *flakyGateway) WithTx(ctx context.Context, fn func(context.Context, accounting.Tx) error) error {
	if g.failures.Add(-1) >= 0 {
		return shared.ConcurrentModification("1010", "simulated conflict")
	}
	return g.MemoryStore.WithTx(ctx, fn)
}

type countingObserver struct {
	retries  int
	outcomes []string
}

func (o *countingObserver) ObservePosting(outcome string) { o.outcomes = append(o.outcomes, outcome) }
func (o *countingObserver) ObserveRetry()                 { o.retries++ }

type countingNotifier struct{ calls int }

func (n *countingNotifier) LedgerChanged(context.Context) error {
	n.calls++
	return nil
}

func TestPostRetriesConcurrentModification(t *testing.T) {
	f := newFixture(t)
	entry := f.draft(t, date(2024, 6, 15), 40, 40)

	flaky := &flakyGateway{MemoryStore: f.store}
	observer := &countingObserver{}
	notifier := &countingNotifier{}
	engine := NewEngine(flaky, f.periods, nil, WithBackoff(0), WithMaxRetries(3), WithObserver(observer), WithNotifier(notifier))
	engine.WithNow(f.engine.now)

	flaky.failures.Store(2)
	posted, err := engine.Post(context.Background(), entry.ID, "controller")
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusPosted, posted.Status)
	require.Equal(t, 2, observer.retries)
	require.Equal(t, []string{"posted"}, observer.outcomes)
	require.Equal(t, 1, notifier.calls)
	require.True(t, f.balance(t, f.cash.ID).Equal(amount(40)))

	other := f.draft(t, date(2024, 6, 15), 40, 40)
	flaky.failures.Store(10)
	_, err = engine.Post(context.Background(), other.ID, "controller")
	require.ErrorIs(t, err, shared.ErrConcurrentModification)
	require.Equal(t, "conflict", observer.outcomes[len(observer.outcomes)-1])
	require.True(t, f.balance(t, f.cash.ID).Equal(amount(40)))
}

func TestCreateDraftRetriesConcurrentModification(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyGateway{MemoryStore: f.store}
	observer := &countingObserver{}
	engine := NewEngine(flaky, f.periods, nil, WithBackoff(0), WithMaxRetries(3), WithObserver(observer))
	engine.WithNow(f.engine.now)

	in := DraftInput{
		PostingDate: date(2024, 6, 15),
		Lines: []LineInput{
			{AccountID: f.cash.ID, Debit: amount(12)},
			{AccountID: f.revenue.ID, Credit: amount(12)},
		},
	}
	flaky.failures.Store(2)
	entry, err := engine.CreateDraft(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, accounting.EntryStatusDraft, entry.Status)
	require.NotEmpty(t, entry.Number)
	require.Equal(t, 2, observer.retries)

	stored, err := f.store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, entry.Number, stored.Number)

	flaky.failures.Store(10)
	_, err = engine.CreateDraft(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestConcurrentPostsConserveBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const workers = 24
	ids := make([]uuid.UUID, 0, workers)
	for i := 0; i < workers; i++ {
		entry, err := f.engine.CreateDraft(ctx, DraftInput{
			PostingDate: date(2024, 6, 15),
			Lines: []LineInput{
				{AccountID: f.expense.ID, Debit: amount(7), Credit: decimal.Zero},
				{AccountID: f.cash.ID, Debit: decimal.Zero, Credit: amount(10)},
				{AccountID: f.revenue.ID, Debit: amount(3), Credit: decimal.Zero},
			},
		})
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := f.engine.Post(gctx, id, "worker")
			return err
		})
	}
	require.NoError(t, g.Wait())

	require.True(t, f.balance(t, f.cash.ID).Equal(amount(-10*workers)))
	require.True(t, f.balance(t, f.expense.ID).Equal(amount(7*workers)))
	require.True(t, f.balance(t, f.revenue.ID).Equal(amount(3*workers)))

	all, err := f.store.ListAccounts(ctx, accounting.AccountFilter{IncludeInactive: true})
	require.NoError(t, err)
	total := decimal.Zero
	for _, acc := range all {
		total = total.Add(acc.CurrentBalance)
	}
	require.True(t, total.IsZero(), total.String())
}

func TestOutcomeLabels(t *testing.T) {
	require.Equal(t, "posted", Outcome(nil))
	require.Equal(t, "unbalanced", Outcome(shared.Unbalanced("JE-1", "x")))
	require.Equal(t, "closed_period", Outcome(shared.ClosedPeriod("JE-1", "Jun", "closed")))
	require.Equal(t, "invalid_status", Outcome(shared.NotPosted("JE-1")))
	require.Equal(t, "invalid", Outcome(shared.TooFewLines("JE-1", 1)))
	require.Equal(t, "invalid", Outcome(shared.Invalid("line 1 missing account")))
	require.Equal(t, "error", Outcome(errors.New("boom")))
}

type stubGuard struct {
	err error
}

func (g stubGuard) EnsurePostable(context.Context, accounting.Reader, time.Time) error {
	return g.err
}

func TestPostSurfacesGuardRejection(t *testing.T) {
	f := newFixture(t)
	entry := f.draft(t, date(2024, 6, 15), 100, 100)

	locked := NewEngine(f.store, stubGuard{err: shared.ClosedPeriod("", "Jun 2024", "hard closed")}, nil, WithBackoff(0))
	_, err := locked.Post(context.Background(), entry.ID, "controller")
	if !errors.Is(err, shared.ErrClosedPeriod) {
		t.Fatalf("expected ErrClosedPeriod, got %v", err)
	}

	open := NewEngine(f.store, stubGuard{}, nil, WithBackoff(0))
	if _, err := open.Post(context.Background(), entry.ID, "controller"); err != nil {
		t.Fatalf("expected post to succeed, got %v", err)
	}
}
