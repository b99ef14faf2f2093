package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnbalanced indicates debit != credit beyond tolerance.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrClosedPeriod indicates the posting date falls outside an active period.
	ErrClosedPeriod = errors.New("accounting: period is not open for posting")
	// ErrInvalidAccount indicates an account that cannot accept postings or is malformed.
	ErrInvalidAccount = errors.New("accounting: invalid account")
	// ErrAlreadyReversed indicates the entry already has a reversal linked.
	ErrAlreadyReversed = errors.New("accounting: journal entry already reversed")
	// ErrNotPosted indicates the entry has not been posted yet.
	ErrNotPosted = errors.New("accounting: journal entry not posted")
	// ErrConcurrentModification indicates an optimistic lock conflict.
	ErrConcurrentModification = errors.New("accounting: concurrent modification")

	ErrAccountNotFound     = errors.New("accounting: account not found")
	ErrEntryNotFound       = errors.New("accounting: journal entry not found")
	ErrPeriodNotFound      = errors.New("accounting: financial period not found")
	ErrBudgetNotFound      = errors.New("accounting: budget not found")
	ErrPeriodAlreadyClosed = errors.New("accounting: period already closed")
	ErrPeriodOverlap       = errors.New("accounting: period overlaps an existing period")
	ErrInvalidStatus       = errors.New("accounting: invalid status transition")
	ErrDuplicate           = errors.New("accounting: duplicate record")
	ErrValidation          = errors.New("accounting: validation failed")
	ErrReversalOfReversal  = errors.New("accounting: reversal entries cannot be reversed")
	ErrTooFewLines         = errors.New("accounting: journal requires at least two lines")
)

// LedgerError attaches ledger context to one of the sentinel kinds above.
type LedgerError struct {
	Kind        error
	EntryNumber string
	AccountCode string
	PeriodName  string
	Detail      string
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.EntryNumber != "" {
		b.WriteString(" entry=")
		b.WriteString(e.EntryNumber)
	}
	if e.AccountCode != "" {
		b.WriteString(" account=")
		b.WriteString(e.AccountCode)
	}
	if e.PeriodName != "" {
		b.WriteString(" period=")
		b.WriteString(e.PeriodName)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *LedgerError) Unwrap() error { return e.Kind }

// Unbalanced builds an ErrUnbalanced LedgerError.
func Unbalanced(entry, detail string) error {
	return &LedgerError{Kind: ErrUnbalanced, EntryNumber: entry, Detail: detail}
}

func ClosedPeriod(entry, period, detail string) error {
	return &LedgerError{Kind: ErrClosedPeriod, EntryNumber: entry, PeriodName: period, Detail: detail}
}

func InvalidAccount(entry, account, detail string) error {
	return &LedgerError{Kind: ErrInvalidAccount, EntryNumber: entry, AccountCode: account, Detail: detail}
}

func AlreadyReversed(entry string) error {
	return &LedgerError{Kind: ErrAlreadyReversed, EntryNumber: entry}
}

func NotPosted(entry string) error {
	return &LedgerError{Kind: ErrNotPosted, EntryNumber: entry}
}

func ConcurrentModification(account, detail string) error {
	return &LedgerError{Kind: ErrConcurrentModification, AccountCode: account, Detail: detail}
}

// TooFewLines builds an ErrTooFewLines LedgerError carrying the line count.
func TooFewLines(entry string, got int) error {
	return &LedgerError{Kind: ErrTooFewLines, EntryNumber: entry, Detail: fmt.Sprintf("got %d", got)}
}

func Invalid(detail string) error {
	return &LedgerError{Kind: ErrValidation, Detail: detail}
}

func InvalidStatus(entry, detail string) error {
	return &LedgerError{Kind: ErrInvalidStatus, EntryNumber: entry, Detail: detail}
}
