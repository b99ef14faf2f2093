package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ines-erp/ledger/internal/accounting/shared"
	"github.com/ines-erp/ledger/internal/platform/db"
)

// Repository persists accounting entities in PostgreSQL.
type Repository struct {
	pgReader
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pgReader: pgReader{q: pool}, pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type pgReader struct {
	q querier
}

type txRepository struct {
	pgReader
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r == nil || r.pool == nil {
		return errors.New("accounting repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{pgReader: pgReader{q: tx}, tx: tx})
	})
	return translatePgError(err)
}

// Snapshot runs fn inside a read-only repeatable-read transaction.
func (r *Repository) Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	if r == nil || r.pool == nil {
		return errors.New("accounting repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(ctx, pgReader{q: tx})
	})
	return translatePgError(err)
}

// periodRangeConstraint keeps financial period ranges disjoint under concurrent inserts.
const periodRangeConstraint = "ex_financial_periods_range"

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return shared.ConcurrentModification("", pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		case "23P01":
			if pgErr.ConstraintName == periodRangeConstraint {
				return &shared.LedgerError{Kind: shared.ErrPeriodOverlap, Detail: pgErr.Detail}
			}
			return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		}
	}
	return err
}

const accountColumns = `id, code, name, description, type, normal_side, category, parent_id, level,
opening_balance, current_balance, is_active, allow_direct_posting, is_control, version, created_by, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Type, &a.NormalSide, &a.Category, &a.ParentID, &a.Level,
		&a.OpeningBalance, &a.CurrentBalance, &a.IsActive, &a.AllowDirectPosting, &a.IsControl, &a.Version, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r pgReader) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r pgReader) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (r pgReader) ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE ($1 OR is_active) AND ($2 = '' OR type = $2) AND ($3::uuid IS NULL OR parent_id = $3)
ORDER BY code`, filter.IncludeInactive, string(filter.Type), filter.ParentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

const entryColumns = `id, number, entry_date, posting_date, description, reference, source_document_type, source_document_id,
total_debit, total_credit, status, posted_by, posted_at, reversal_of_id, reversed_by_id, reversal_reason, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Number, &e.EntryDate, &e.PostingDate, &e.Description, &e.Reference, &e.SourceDocumentType, &e.SourceDocumentID,
		&e.TotalDebit, &e.TotalCredit, &e.Status, &e.PostedBy, &e.PostedAt, &e.ReversalOfID, &e.ReversedByID, &e.ReversalReason, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r pgReader) loadLines(ctx context.Context, entryIDs []uuid.UUID) (map[uuid.UUID][]JournalLine, error) {
	out := make(map[uuid.UUID][]JournalLine, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT id, entry_id, account_id, line_number, description, debit, credit, cost_center, project_code, category
FROM journal_lines WHERE entry_id = ANY($1) ORDER BY entry_id, line_number`, entryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.LineNumber, &l.Description, &l.Debit, &l.Credit, &l.CostCenter, &l.ProjectCode, &l.Category); err != nil {
			return nil, err
		}
		out[l.EntryID] = append(out[l.EntryID], l)
	}
	return out, rows.Err()
}

func (r pgReader) GetEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
}

func (r pgReader) getEntry(ctx context.Context, query string, id uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := r.loadLines(ctx, []uuid.UUID{entry.ID})
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines[entry.ID]
	return entry, nil
}

func (r pgReader) ListEntries(ctx context.Context, filter EntryFilter) ([]JournalEntry, int, error) {
	filter = filter.Normalize()
	where := `WHERE ($1 = '' OR status = $1) AND ($2::date IS NULL OR posting_date >= $2) AND ($3::date IS NULL OR posting_date <= $3)`
	args := []any{string(filter.Status), nullDate(filter.From), nullDate(filter.To)}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries `+where+`
ORDER BY posting_date DESC, number DESC LIMIT $4 OFFSET $5`, append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	var ids []uuid.UUID
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range entries {
		entries[i].Lines = lines[entries[i].ID]
	}
	return entries, total, nil
}

const periodColumns = `id, name, financial_year, start_date, end_date, status, is_current, close_date, closed_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (FinancialPeriod, error) {
	var p FinancialPeriod
	err := row.Scan(&p.ID, &p.Name, &p.FinancialYear, &p.StartDate, &p.EndDate, &p.Status, &p.IsCurrent, &p.CloseDate, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialPeriod{}, shared.ErrPeriodNotFound
		}
		return FinancialPeriod{}, err
	}
	return p, nil
}

func (r pgReader) GetPeriod(ctx context.Context, id uuid.UUID) (FinancialPeriod, error) {
	return scanPeriod(r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM financial_periods WHERE id=$1`, id))
}

func (r pgReader) PeriodForDate(ctx context.Context, day time.Time) (FinancialPeriod, error) {
	return scanPeriod(r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM financial_periods
WHERE $1::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, shared.DateOnly(day)))
}

// PeriodForDate share-locks the covering period so a concurrent close waits for the posting to finish.
func (r *txRepository) PeriodForDate(ctx context.Context, day time.Time) (FinancialPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM financial_periods
WHERE $1::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR SHARE`, shared.DateOnly(day)))
}

func (r pgReader) CurrentPeriod(ctx context.Context) (FinancialPeriod, error) {
	return scanPeriod(r.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM financial_periods WHERE is_current LIMIT 1`))
}

func (r pgReader) ListPeriods(ctx context.Context, year int) ([]FinancialPeriod, error) {
	rows, err := r.q.Query(ctx, `SELECT `+periodColumns+` FROM financial_periods
WHERE ($1 = 0 OR financial_year = $1) ORDER BY start_date`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []FinancialPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

const budgetColumns = `id, name, description, financial_year, category, start_date, end_date, status, approved_by, approved_at, created_by, created_at`

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.FinancialYear, &b.Category, &b.StartDate, &b.EndDate, &b.Status, &b.ApprovedBy, &b.ApprovedAt, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.ErrBudgetNotFound
		}
		return Budget{}, err
	}
	return b, nil
}

func (r pgReader) budgetLines(ctx context.Context, budgetID uuid.UUID) ([]BudgetLine, error) {
	rows, err := r.q.Query(ctx, `SELECT id, budget_id, account_id, amount, notes FROM budget_lines WHERE budget_id=$1 ORDER BY id`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []BudgetLine
	for rows.Next() {
		var l BudgetLine
		if err := rows.Scan(&l.ID, &l.BudgetID, &l.AccountID, &l.Amount, &l.Notes); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r pgReader) GetBudget(ctx context.Context, id uuid.UUID) (Budget, error) {
	b, err := scanBudget(r.q.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id=$1`, id))
	if err != nil {
		return Budget{}, err
	}
	b.Lines, err = r.budgetLines(ctx, b.ID)
	return b, err
}

func (r pgReader) GetBudgetByLine(ctx context.Context, lineID uuid.UUID) (Budget, error) {
	var budgetID uuid.UUID
	if err := r.q.QueryRow(ctx, `SELECT budget_id FROM budget_lines WHERE id=$1`, lineID).Scan(&budgetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, shared.ErrBudgetNotFound
		}
		return Budget{}, err
	}
	return r.GetBudget(ctx, budgetID)
}

func (r pgReader) ListBudgets(ctx context.Context, year int) ([]Budget, error) {
	rows, err := r.q.Query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE ($1 = 0 OR financial_year = $1) ORDER BY financial_year, category`, year)
	if err != nil {
		return nil, err
	}
	var budgets []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		budgets = append(budgets, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range budgets {
		if budgets[i].Lines, err = r.budgetLines(ctx, budgets[i].ID); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

func (r pgReader) Activity(ctx context.Context, q ActivityQuery) ([]AccountActivity, error) {
	ids := q.AccountIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	rows, err := r.q.Query(ctx, `SELECT l.account_id, CASE WHEN $4::boolean THEN l.category ELSE '' END AS bucket,
COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE e.status IN ('POSTED', 'REVERSED')
  AND ($1::date IS NULL OR e.posting_date >= $1)
  AND ($2::date IS NULL OR e.posting_date <= $2)
  AND (cardinality($3::uuid[]) = 0 OR l.account_id = ANY($3))
GROUP BY l.account_id, bucket`, nullDate(q.From), nullDate(q.To), ids, q.ByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var a AccountActivity
		if err := rows.Scan(&a.AccountID, &a.Category, &a.Debit, &a.Credit); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *txRepository) LockAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) InsertAccount(ctx context.Context, a Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (id, code, name, description, type, normal_side, category, parent_id, level,
opening_balance, current_balance, is_active, allow_direct_posting, is_control, version, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.Code, a.Name, a.Description, a.Type, a.NormalSide, a.Category, a.ParentID, a.Level,
		a.OpeningBalance, a.CurrentBalance, a.IsActive, a.AllowDirectPosting, a.IsControl, a.Version, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	return translatePgError(err)
}

func (r *txRepository) UpdateAccount(ctx context.Context, a Account) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET name=$3, description=$4, category=$5, parent_id=$6, level=$7,
is_active=$8, allow_direct_posting=$9, is_control=$10, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2`,
		a.ID, a.Version, a.Name, a.Description, a.Category, a.ParentID, a.Level, a.IsActive, a.AllowDirectPosting, a.IsControl)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missingOrStale(ctx, a.ID)
	}
	return nil
}

func (r *txRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET current_balance = current_balance + $3, version = version + 1, updated_at = NOW()
WHERE id=$1 AND version=$2`, id, expectedVersion, delta)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id)
	}
	return nil
}

func (r *txRepository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var code string
	if err := r.tx.QueryRow(ctx, `SELECT code FROM accounts WHERE id=$1`, id).Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrAccountNotFound
		}
		return err
	}
	return shared.ConcurrentModification(code, "stale account version")
}

func (r *txRepository) LockEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (id, number, entry_date, posting_date, description, reference, source_document_type,
source_document_id, total_debit, total_credit, status, posted_by, posted_at, reversal_of_id, reversed_by_id, reversal_reason, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		e.ID, e.Number, e.EntryDate, e.PostingDate, e.Description, e.Reference, e.SourceDocumentType,
		e.SourceDocumentID, e.TotalDebit, e.TotalCredit, e.Status, e.PostedBy, e.PostedAt, e.ReversalOfID, e.ReversedByID, e.ReversalReason, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return translatePgError(err)
	}
	return r.insertLines(ctx, e.ID, e.Lines)
}

func (r *txRepository) insertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`INSERT INTO journal_lines (id, entry_id, account_id, line_number, description, debit, credit, cost_center, project_code, category)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, l.ID, entryID, l.AccountID, l.LineNumber, l.Description, l.Debit, l.Credit, l.CostCenter, l.ProjectCode, l.Category)
	}
	br := r.tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return translatePgError(err)
		}
	}
	return br.Close()
}

func (r *txRepository) UpdateEntry(ctx context.Context, e JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_date=$2, posting_date=$3, description=$4, reference=$5,
source_document_type=$6, source_document_id=$7, total_debit=$8, total_credit=$9, status=$10, posted_by=$11, posted_at=$12,
reversal_of_id=$13, reversed_by_id=$14, reversal_reason=$15, updated_at=$16 WHERE id=$1`,
		e.ID, e.EntryDate, e.PostingDate, e.Description, e.Reference, e.SourceDocumentType, e.SourceDocumentID,
		e.TotalDebit, e.TotalCredit, e.Status, e.PostedBy, e.PostedAt, e.ReversalOfID, e.ReversedByID, e.ReversalReason, e.UpdatedAt)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	return r.insertLines(ctx, entryID, lines)
}

func (r *txRepository) NextEntryNumber(ctx context.Context, year int) (string, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (year, last_value) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET last_value = journal_sequences.last_value + 1 RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return "", translatePgError(err)
	}
	return EntryNumber(year, seq), nil
}

func (r *txRepository) LockPeriod(ctx context.Context, id uuid.UUID) (FinancialPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM financial_periods WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) InsertPeriod(ctx context.Context, p FinancialPeriod) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO financial_periods (id, name, financial_year, start_date, end_date, status, is_current, close_date, closed_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Name, p.FinancialYear, p.StartDate, p.EndDate, p.Status, p.IsCurrent, p.CloseDate, p.ClosedBy, p.CreatedAt, p.UpdatedAt)
	return translatePgError(err)
}

func (r *txRepository) UpdatePeriod(ctx context.Context, p FinancialPeriod) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE financial_periods SET name=$2, status=$3, is_current=$4, close_date=$5, closed_by=$6, updated_at=$7 WHERE id=$1`,
		p.ID, p.Name, p.Status, p.IsCurrent, p.CloseDate, p.ClosedBy, p.UpdatedAt)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotFound
	}
	return nil
}

func (r *txRepository) InsertBudget(ctx context.Context, b Budget) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO budgets (id, name, description, financial_year, category, start_date, end_date, status, approved_by, approved_at, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		b.ID, b.Name, b.Description, b.FinancialYear, b.Category, b.StartDate, b.EndDate, b.Status, b.ApprovedBy, b.ApprovedAt, b.CreatedBy, b.CreatedAt)
	if err != nil {
		return translatePgError(err)
	}
	for _, l := range b.Lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO budget_lines (id, budget_id, account_id, amount, notes) VALUES ($1,$2,$3,$4,$5)`,
			l.ID, b.ID, l.AccountID, l.Amount, l.Notes); err != nil {
			return translatePgError(err)
		}
	}
	return nil
}

func (r *txRepository) UpdateBudget(ctx context.Context, b Budget) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE budgets SET name=$2, description=$3, status=$4, approved_by=$5, approved_at=$6 WHERE id=$1`,
		b.ID, b.Name, b.Description, b.Status, b.ApprovedBy, b.ApprovedAt)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrBudgetNotFound
	}
	return nil
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return shared.DateOnly(t)
}

var (
	_ Gateway = (*Repository)(nil)
	_ Gateway = (*MemoryStore)(nil)
	_ Tx      = (*txRepository)(nil)
	_ Tx      = (*memTx)(nil)
)
