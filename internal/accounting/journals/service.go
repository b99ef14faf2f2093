package journals

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/audit"
)

// DefaultMaxRetries bounds how often a post is retried after a concurrent modification.
const DefaultMaxRetries = 3

// PeriodGuard blocks postings dated outside an active period.
type PeriodGuard interface {
	EnsurePostable(ctx context.Context, r accounting.Reader, day time.Time) error
}

// Notifier is told after a posting or reversal commits.
type Notifier interface {
	LedgerChanged(ctx context.Context) error
}

// Observer receives posting outcomes for metrics.
type Observer interface {
	ObservePosting(outcome string)
	ObserveRetry()
}

// Engine validates, posts and reverses journal entries.
type Engine struct {
	store      accounting.Gateway
	guard      PeriodGuard
	recorder   *accounting.Recorder
	notifiers  []Notifier
	observer   Observer
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithMaxRetries sets how many extra attempts a conflicting post gets.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(e *Engine) { e.backoff = d }
}

// WithNotifier registers a post-commit listener.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifiers = append(e.notifiers, n)
		}
	}
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine constructs the journal engine.
func NewEngine(store accounting.Gateway, guard PeriodGuard, recorder *accounting.Recorder, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		guard:      guard,
		recorder:   recorder,
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
		backoff:    5 * time.Millisecond,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Get returns an entry with its lines.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (accounting.JournalEntry, error) {
	return e.store.GetEntry(ctx, id)
}

// List pages through entries, newest posting date first.
func (e *Engine) List(ctx context.Context, filter accounting.EntryFilter) ([]accounting.JournalEntry, int, error) {
	return e.store.ListEntries(ctx, filter)
}

// CreateDraft stores a DRAFT entry. Account balances are untouched.
func (e *Engine) CreateDraft(ctx context.Context, in DraftInput) (accounting.JournalEntry, error) {
	now := e.now()
	if err := in.Validate(now); err != nil {
		return accounting.JournalEntry{}, err
	}
	entry := accounting.JournalEntry{
		ID:                 uuid.New(),
		EntryDate:          in.EntryDate,
		PostingDate:        in.PostingDate,
		Description:        in.Description,
		Reference:          in.Reference,
		SourceDocumentType: in.SourceDocumentType,
		SourceDocumentID:   in.SourceDocumentID,
		Status:             accounting.EntryStatusDraft,
		CreatedBy:          in.CreatedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	entry.Lines = in.lines(entry.ID)
	entry.TotalDebit, entry.TotalCredit = entry.Totals()
	err := e.withRetry(ctx, func() error {
		return e.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
			if err := ensureAccountsExist(ctx, tx, entry.Lines); err != nil {
				return err
			}
			number, err := tx.NextEntryNumber(ctx, entry.PostingDate.Year())
			if err != nil {
				return err
			}
			entry.Number = number
			return tx.InsertEntry(ctx, entry)
		})
	})
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	e.recorder.Record(ctx, audit.Event{
		Actor:    in.CreatedBy,
		Action:   "journal.create",
		Entity:   "journal_entry",
		EntityID: entry.ID.String(),
		At:       now,
		After:    entry,
	})
	return entry, nil
}

// UpdateDraft replaces the header and lines of an entry still in DRAFT.
func (e *Engine) UpdateDraft(ctx context.Context, id uuid.UUID, in DraftInput) (accounting.JournalEntry, error) {
	now := e.now()
	if err := in.Validate(now); err != nil {
		return accounting.JournalEntry{}, err
	}
	var before, after accounting.JournalEntry
	err := e.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		entry, err := tx.LockEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != accounting.EntryStatusDraft {
			return shared.InvalidStatus(entry.Number, "only drafts can be edited")
		}
		before = entry
		lines := in.lines(entry.ID)
		if err := ensureAccountsExist(ctx, tx, lines); err != nil {
			return err
		}
		entry.EntryDate = in.EntryDate
		entry.PostingDate = in.PostingDate
		entry.Description = in.Description
		entry.Reference = in.Reference
		entry.SourceDocumentType = in.SourceDocumentType
		entry.SourceDocumentID = in.SourceDocumentID
		entry.Lines = lines
		entry.TotalDebit, entry.TotalCredit = entry.Totals()
		entry.UpdatedAt = now
		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.ReplaceLines(ctx, entry.ID, lines); err != nil {
			return err
		}
		after = entry
		return nil
	})
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	e.recorder.Record(ctx, audit.Event{
		Actor:    in.CreatedBy,
		Action:   "journal.update",
		Entity:   "journal_entry",
		EntityID: id.String(),
		At:       now,
		Before:   before,
		After:    after,
	})
	return after, nil
}

// Post validates a draft and applies its lines to account balances atomically.
func (e *Engine) Post(ctx context.Context, id uuid.UUID, postedBy string) (accounting.JournalEntry, error) {
	var before, posted accounting.JournalEntry
	err := e.withRetry(ctx, func() error {
		return e.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
			entry, err := tx.LockEntry(ctx, id)
			if err != nil {
				return err
			}
			if entry.Status != accounting.EntryStatusDraft {
				return shared.InvalidStatus(entry.Number, "entry is "+string(entry.Status))
			}
			before = entry
			posted, err = e.postInTx(ctx, tx, entry, postedBy)
			return err
		})
	})
	e.observe(err)
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	e.afterCommit(ctx, audit.Event{
		Actor:    postedBy,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: posted.ID.String(),
		At:       *posted.PostedAt,
		Before:   before,
		After:    posted,
	})
	return posted, nil
}

// postInTx runs the posting pipeline against an entry already loaded in tx.
func (e *Engine) postInTx(ctx context.Context, tx accounting.Tx, entry accounting.JournalEntry, postedBy string) (accounting.JournalEntry, error) {
	if len(entry.Lines) < 2 {
		return accounting.JournalEntry{}, shared.TooFewLines(entry.Number, len(entry.Lines))
	}
	debit, credit := entry.Totals()
	if !shared.BalancedWithinCent(debit, credit) {
		return accounting.JournalEntry{}, shared.Unbalanced(entry.Number,
			fmt.Sprintf("debit %s credit %s", debit.StringFixed(2), credit.StringFixed(2)))
	}
	if e.guard != nil {
		if err := e.guard.EnsurePostable(ctx, tx, entry.PostingDate); err != nil {
			var le *shared.LedgerError
			if errors.As(err, &le) && le.EntryNumber == "" {
				le.EntryNumber = entry.Number
			}
			return accounting.JournalEntry{}, err
		}
	}

	deltas := map[uuid.UUID]decimal.Decimal{}
	for _, line := range entry.Lines {
		if cur, ok := deltas[line.AccountID]; ok {
			deltas[line.AccountID] = cur.Add(line.Delta())
		} else {
			deltas[line.AccountID] = line.Delta()
		}
	}
	ids := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	// Fixed lock order keeps concurrent posts over the same accounts deadlock-free.
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	locked := make([]accounting.Account, 0, len(ids))
	for _, id := range ids {
		account, err := tx.LockAccount(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return accounting.JournalEntry{}, shared.InvalidAccount(entry.Number, id.String(), "account not found")
			}
			return accounting.JournalEntry{}, err
		}
		if !account.IsActive {
			return accounting.JournalEntry{}, shared.InvalidAccount(entry.Number, account.Code, "account inactive")
		}
		if !account.AllowDirectPosting {
			return accounting.JournalEntry{}, shared.InvalidAccount(entry.Number, account.Code, "account does not allow direct posting")
		}
		locked = append(locked, account)
	}
	for _, account := range locked {
		delta := deltas[account.ID]
		if delta.IsZero() {
			continue
		}
		if err := tx.ApplyBalanceDelta(ctx, account.ID, delta, account.Version); err != nil {
			return accounting.JournalEntry{}, err
		}
	}

	now := e.now()
	entry.Status = accounting.EntryStatusPosted
	entry.PostedBy = postedBy
	entry.PostedAt = &now
	entry.TotalDebit = debit
	entry.TotalCredit = credit
	entry.UpdatedAt = now
	if err := tx.UpdateEntry(ctx, entry); err != nil {
		return accounting.JournalEntry{}, err
	}
	return entry, nil
}

// Reverse posts a mirror of a POSTED entry dated today and marks the original REVERSED.
func (e *Engine) Reverse(ctx context.Context, in ReverseInput) (accounting.JournalEntry, error) {
	if in.EntryID == uuid.Nil {
		return accounting.JournalEntry{}, shared.Invalid("entry id required")
	}
	var before, original, mirror accounting.JournalEntry
	err := e.withRetry(ctx, func() error {
		return e.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
			entry, err := tx.LockEntry(ctx, in.EntryID)
			if err != nil {
				return err
			}
			switch {
			case entry.Status == accounting.EntryStatusDraft:
				return shared.NotPosted(entry.Number)
			case entry.Status == accounting.EntryStatusReversed || entry.ReversedByID != nil:
				return shared.AlreadyReversed(entry.Number)
			case entry.ReversalOfID != nil:
				return &shared.LedgerError{Kind: shared.ErrReversalOfReversal, EntryNumber: entry.Number}
			}
			before = entry

			now := e.now()
			today := shared.DateOnly(now)
			number, err := tx.NextEntryNumber(ctx, today.Year())
			if err != nil {
				return err
			}
			draft := accounting.JournalEntry{
				ID:                 uuid.New(),
				Number:             number,
				EntryDate:          today,
				PostingDate:        today,
				Description:        defaultReversalDescription(in.Reason, entry.Number),
				Reference:          entry.Number,
				SourceDocumentType: entry.SourceDocumentType,
				SourceDocumentID:   entry.SourceDocumentID,
				Status:             accounting.EntryStatusDraft,
				ReversalOfID:       &entry.ID,
				ReversalReason:     in.Reason,
				CreatedBy:          in.ReversedBy,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			draft.Lines = reverseLines(draft.ID, entry.Lines)
			draft.TotalDebit, draft.TotalCredit = draft.Totals()
			if err := tx.InsertEntry(ctx, draft); err != nil {
				return err
			}
			mirror, err = e.postInTx(ctx, tx, draft, in.ReversedBy)
			if err != nil {
				return err
			}

			entry.Status = accounting.EntryStatusReversed
			entry.ReversedByID = &mirror.ID
			entry.ReversalReason = in.Reason
			entry.UpdatedAt = now
			if err := tx.UpdateEntry(ctx, entry); err != nil {
				return err
			}
			original = entry
			return nil
		})
	})
	e.observe(err)
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	e.afterCommit(ctx, audit.Event{
		Actor:    in.ReversedBy,
		Action:   "journal.reverse",
		Entity:   "journal_entry",
		EntityID: original.ID.String(),
		At:       *mirror.PostedAt,
		Before:   before,
		After:    map[string]any{"original": original, "reversal": mirror},
	})
	return mirror, nil
}

func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrConcurrentModification) || attempt >= e.maxRetries {
			return err
		}
		if e.observer != nil {
			e.observer.ObserveRetry()
		}
		e.logger.DebugContext(ctx, "posting conflict, retrying", slog.Int("attempt", attempt+1), slog.Any("error", err))
		if e.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.backoff * time.Duration(attempt+1)):
			}
		}
	}
}

func (e *Engine) afterCommit(ctx context.Context, event audit.Event) {
	e.recorder.Record(ctx, event)
	for _, n := range e.notifiers {
		if err := n.LedgerChanged(ctx); err != nil {
			e.logger.WarnContext(ctx, "ledger change notification failed", slog.Any("error", err))
		}
	}
}

func (e *Engine) observe(err error) {
	if e.observer != nil {
		e.observer.ObservePosting(Outcome(err))
	}
}

// Outcome classifies a posting result for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "posted"
	case errors.Is(err, shared.ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, shared.ErrClosedPeriod):
		return "closed_period"
	case errors.Is(err, shared.ErrInvalidAccount):
		return "invalid_account"
	case errors.Is(err, shared.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, shared.ErrTooFewLines), errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrAlreadyReversed), errors.Is(err, shared.ErrNotPosted),
		errors.Is(err, shared.ErrInvalidStatus), errors.Is(err, shared.ErrReversalOfReversal):
		return "invalid_status"
	default:
		return "error"
	}
}

func ensureAccountsExist(ctx context.Context, r accounting.Reader, lines []accounting.JournalLine) error {
	seen := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		if _, err := r.GetAccount(ctx, line.AccountID); err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return shared.InvalidAccount("", line.AccountID.String(), "account not found")
			}
			return err
		}
	}
	return nil
}

func reverseLines(entryID uuid.UUID, lines []accounting.JournalLine) []accounting.JournalLine {
	out := make([]accounting.JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, accounting.JournalLine{
			ID:          uuid.New(),
			EntryID:     entryID,
			AccountID:   line.AccountID,
			LineNumber:  line.LineNumber,
			Description: line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
			CostCenter:  line.CostCenter,
			ProjectCode: line.ProjectCode,
			Category:    line.Category,
		})
	}
	return out
}

func defaultReversalDescription(reason, number string) string {
	if reason != "" {
		return "Reversal of " + number + ": " + reason
	}
	return "Reversal of " + number
}
