package journals

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

func TestDraftInputValidate(t *testing.T) {
	cash, sales := uuid.New(), uuid.New()
	now := date(2024, 6, 20)
	pair := func(debit, credit string) []LineInput {
		return []LineInput{
			{AccountID: cash, Debit: decimal.RequireFromString(debit)},
			{AccountID: sales, Credit: decimal.RequireFromString(credit)},
		}
	}

	cases := []struct {
		name  string
		lines []LineInput
		kind  error
	}{
		{name: "balanced whole amounts", lines: pair("100", "100")},
		{name: "four decimal places", lines: pair("0.0001", "0.0001")},
		{name: "trailing zeros beyond scale", lines: pair("1.500000", "1.5")},
		{name: "five decimal places on debit", lines: pair("0.00005", "0.00005"), kind: shared.ErrValidation},
		{name: "five decimal places on credit", lines: pair("12.3456", "12.34561"), kind: shared.ErrValidation},
		{name: "single line", lines: pair("1", "1")[:1], kind: shared.ErrTooFewLines},
		{name: "no lines", kind: shared.ErrTooFewLines},
		{name: "missing account", lines: []LineInput{{Debit: amount(1)}, {AccountID: sales, Credit: amount(1)}}, kind: shared.ErrValidation},
		{name: "both sides on one line", lines: []LineInput{{AccountID: cash, Debit: amount(1), Credit: amount(1)}, {AccountID: sales, Credit: amount(1)}}, kind: shared.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := DraftInput{Lines: tc.lines}
			err := in.Validate(now)
			if tc.kind == nil {
				require.NoError(t, err)
				require.Equal(t, now, in.PostingDate)
				return
			}
			require.ErrorIs(t, err, tc.kind)
			var le *shared.LedgerError
			require.True(t, errors.As(err, &le))
		})
	}
}

func TestTooFewLinesCarriesCount(t *testing.T) {
	in := DraftInput{Lines: []LineInput{{AccountID: uuid.New(), Debit: amount(5)}}}
	err := in.Validate(date(2024, 6, 20))
	var le *shared.LedgerError
	require.True(t, errors.As(err, &le))
	require.Equal(t, shared.ErrTooFewLines, le.Kind)
	require.Contains(t, err.Error(), "got 1")
	require.Equal(t, "invalid", Outcome(err))
}
