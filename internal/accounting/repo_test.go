package accounting

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/ines-erp/ledger/internal/accounting/shared"
)

func TestTranslatePgError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, kind: shared.ErrConcurrentModification},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, kind: shared.ErrConcurrentModification},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "accounts_code_key"}, kind: shared.ErrDuplicate},
		{
			name: "overlapping period range",
			err: fmt.Errorf("insert period: %w", &pgconn.PgError{
				Code:           "23P01",
				ConstraintName: periodRangeConstraint,
				Detail:         "Key (daterange(start_date, end_date, '[]'::text))=([2024-04-01,2024-07-01)) conflicts",
			}),
			kind: shared.ErrPeriodOverlap,
		},
		{name: "other exclusion", err: &pgconn.PgError{Code: "23P01", ConstraintName: "ex_other"}, kind: shared.ErrDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, translatePgError(tc.err), tc.kind)
		})
	}

	require.NoError(t, translatePgError(nil))
	plain := errors.New("connection reset")
	require.Same(t, plain, translatePgError(plain))
}
