package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ines-erp/ledger/internal/accounting"
	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/audit"
)

// Manager owns the financial calendar and decides which dates accept postings.
type Manager struct {
	store    accounting.Gateway
	recorder *accounting.Recorder
	now      func() time.Time
}

func NewManager(store accounting.Gateway, recorder *accounting.Recorder) *Manager {
	return &Manager{store: store, recorder: recorder, now: time.Now}
}

// WithNow overrides the clock for testing.
func (m *Manager) WithNow(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// CreatePeriod stores an ACTIVE period that overlaps no existing one.
func (m *Manager) CreatePeriod(ctx context.Context, in CreatePeriodInput) (accounting.FinancialPeriod, error) {
	if err := in.Validate(); err != nil {
		return accounting.FinancialPeriod{}, err
	}
	now := m.now()
	period := accounting.FinancialPeriod{
		ID:            uuid.New(),
		Name:          in.Name,
		FinancialYear: in.FinancialYear,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Status:        accounting.PeriodStatusActive,
		IsCurrent:     in.IsCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := m.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		existing, err := tx.ListPeriods(ctx, 0)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.Overlaps(period) {
				return &shared.LedgerError{Kind: shared.ErrPeriodOverlap, PeriodName: p.Name}
			}
		}
		if period.IsCurrent {
			if err := clearCurrent(ctx, tx, existing, now); err != nil {
				return err
			}
		}
		return tx.InsertPeriod(ctx, period)
	})
	if err != nil {
		return accounting.FinancialPeriod{}, err
	}
	m.recorder.Record(ctx, audit.Event{
		Actor:    in.CreatedBy,
		Action:   "period.create",
		Entity:   "financial_period",
		EntityID: period.ID.String(),
		At:       now,
		After:    period,
	})
	return period, nil
}

func clearCurrent(ctx context.Context, tx accounting.Tx, periods []accounting.FinancialPeriod, now time.Time) error {
	for _, p := range periods {
		if !p.IsCurrent {
			continue
		}
		p.IsCurrent = false
		p.UpdatedAt = now
		if err := tx.UpdatePeriod(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// SetCurrent marks the period as the single current one.
func (m *Manager) SetCurrent(ctx context.Context, id uuid.UUID, actor string) (accounting.FinancialPeriod, error) {
	var period accounting.FinancialPeriod
	err := m.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		var err error
		period, err = tx.LockPeriod(ctx, id)
		if err != nil {
			return err
		}
		if period.IsCurrent {
			return nil
		}
		existing, err := tx.ListPeriods(ctx, 0)
		if err != nil {
			return err
		}
		now := m.now()
		if err := clearCurrent(ctx, tx, existing, now); err != nil {
			return err
		}
		period.IsCurrent = true
		period.UpdatedAt = now
		return tx.UpdatePeriod(ctx, period)
	})
	if err != nil {
		return accounting.FinancialPeriod{}, err
	}
	m.recorder.Record(ctx, audit.Event{
		Actor:    actor,
		Action:   "period.set_current",
		Entity:   "financial_period",
		EntityID: id.String(),
		At:       m.now(),
		After:    period,
	})
	return period, nil
}

// PeriodFor returns the period covering day.
func (m *Manager) PeriodFor(ctx context.Context, day time.Time) (accounting.FinancialPeriod, error) {
	return m.store.PeriodForDate(ctx, day)
}

// Current returns the period flagged current.
func (m *Manager) Current(ctx context.Context) (accounting.FinancialPeriod, error) {
	return m.store.CurrentPeriod(ctx)
}

// List returns periods ordered by start date; a nil year lists all.
func (m *Manager) List(ctx context.Context, year *int) ([]accounting.FinancialPeriod, error) {
	y := 0
	if year != nil {
		y = *year
	}
	return m.store.ListPeriods(ctx, y)
}

// IsPostable reports whether a period covers day and is ACTIVE.
func (m *Manager) IsPostable(ctx context.Context, day time.Time) (bool, error) {
	err := m.EnsurePostable(ctx, m.store, day)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, shared.ErrClosedPeriod) {
		return false, nil
	}
	return false, err
}

// EnsurePostable is the posting guard evaluated inside the caller's transaction.
func (m *Manager) EnsurePostable(ctx context.Context, r accounting.Reader, day time.Time) error {
	period, err := r.PeriodForDate(ctx, day)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			return shared.ClosedPeriod("", "", "no financial period covers "+day.Format("2006-01-02"))
		}
		return err
	}
	if period.Status != accounting.PeriodStatusActive {
		return shared.ClosedPeriod("", period.Name, fmt.Sprintf("period is %s", period.Status))
	}
	return nil
}

// ClosePeriod transitions an ACTIVE period to CLOSED. CLOSED is terminal.
func (m *Manager) ClosePeriod(ctx context.Context, id uuid.UUID, closedBy string) (accounting.FinancialPeriod, error) {
	var before, after accounting.FinancialPeriod
	err := m.store.WithTx(ctx, func(ctx context.Context, tx accounting.Tx) error {
		period, err := tx.LockPeriod(ctx, id)
		if err != nil {
			return err
		}
		if period.Status == accounting.PeriodStatusClosed {
			return &shared.LedgerError{Kind: shared.ErrPeriodAlreadyClosed, PeriodName: period.Name}
		}
		before = period
		now := m.now()
		period.Status = accounting.PeriodStatusClosed
		period.CloseDate = &now
		period.ClosedBy = closedBy
		period.UpdatedAt = now
		after = period
		return tx.UpdatePeriod(ctx, period)
	})
	if err != nil {
		return accounting.FinancialPeriod{}, err
	}
	m.recorder.Record(ctx, audit.Event{
		Actor:    closedBy,
		Action:   "period.close",
		Entity:   "financial_period",
		EntityID: id.String(),
		At:       *after.CloseDate,
		Before:   before,
		After:    after,
	})
	return after, nil
}
