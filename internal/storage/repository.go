package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"bilancio/internal/core"
)

// SQLiteRepository is the record store for persons, budgets, periods,
// exceptions and transactions. Lifecycle and reconciliation invariants are
// enforced twice: derived in the engines, and guarded at commit time here so
// a concurrent second writer is rejected instead of overwriting the first.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the underlying database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- persons and budgets ---

func (r *SQLiteRepository) CreatePerson(ctx context.Context, p core.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO persons (id, name, budget_start_day) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.BudgetStartDay)
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPerson(ctx context.Context, id string) (core.Person, error) {
	var p core.Person
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, budget_start_day FROM persons WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.BudgetStartDay)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Person{}, &core.NotFoundError{Entity: "person", ID: id}
	}
	if err != nil {
		return core.Person{}, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (person_id, amount) VALUES (?, ?)
		 ON CONFLICT (person_id) DO UPDATE SET amount = excluded.amount`,
		b.PersonID, b.Amount.String())
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// GetBudget returns the person's budget. A person without a configured budget
// gets a zero amount, which the aggregate layer reports as undefined rather
// than dividing by.
func (r *SQLiteRepository) GetBudget(ctx context.Context, personID string) (core.Budget, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budgets WHERE person_id = ?`, personID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{PersonID: personID, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse budget amount %q: %w", raw, err)
	}
	return core.Budget{PersonID: personID, Amount: amount}, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, person_id, name) VALUES (?, ?, ?)`,
		a.ID, a.PersonID, a.Name)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// --- budget periods ---

func (r *SQLiteRepository) ListPeriods(ctx context.Context, personID string) ([]core.BudgetPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, person_id, start_date, end_date, is_completed
		 FROM budget_periods WHERE person_id = ? ORDER BY start_date`, personID)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var periods []core.BudgetPeriod
	for rows.Next() {
		bp, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// InsertOpenPeriod commits a new open period. The insert is conditional on no
// other open period existing for the person; a concurrent writer that lost
// the race gets a ConflictError.
func (r *SQLiteRepository) InsertOpenPeriod(ctx context.Context, bp core.BudgetPeriod) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_periods (id, person_id, start_date, is_completed)
		 SELECT ?, ?, ?, 0
		 WHERE NOT EXISTS (
		     SELECT 1 FROM budget_periods WHERE person_id = ? AND is_completed = 0
		 )`,
		bp.ID, bp.PersonID, bp.StartDate.ISO(), bp.PersonID)
	if err != nil {
		return fmt.Errorf("insert open period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert open period: %w", err)
	}
	if n == 0 {
		return &core.ConflictError{
			Invariant: "single open period",
			Reason:    "person " + bp.PersonID + " already has an open period",
		}
	}
	slog.InfoContext(ctx, "Budget period opened",
		"period_id", bp.ID, "person_id", bp.PersonID, "start_date", bp.StartDate.ISO())
	return nil
}

// ClosePeriod marks the period completed, guarded on it still being open, and
// consumes the person's active exception in the same transaction.
func (r *SQLiteRepository) ClosePeriod(ctx context.Context, bp core.BudgetPeriod) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("close period: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE budget_periods SET end_date = ?, is_completed = 1
		 WHERE id = ? AND is_completed = 0`,
		bp.EndDate.ISO(), bp.ID)
	if err != nil {
		return fmt.Errorf("close period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close period: %w", err)
	}
	if n == 0 {
		return &core.ConflictError{
			Invariant: "single open period",
			Reason:    "period " + bp.ID + " is not open",
		}
	}

	// The exception that governed this window is now history.
	if _, err := tx.ExecContext(ctx,
		`UPDATE budget_exceptions SET consumed = 1
		 WHERE person_id = ? AND consumed = 0`, bp.PersonID); err != nil {
		return fmt.Errorf("consume exception: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("close period: %w", err)
	}
	slog.InfoContext(ctx, "Budget period closed",
		"period_id", bp.ID, "person_id", bp.PersonID, "end_date", bp.EndDate.ISO())
	return nil
}

// ApplyExceptionUpdate commits an added exception and the reshaped period
// records atomically. The partial unique index rejects a second unconsumed
// exception for the person.
func (r *SQLiteRepository) ApplyExceptionUpdate(ctx context.Context, exc core.BudgetException, current core.BudgetPeriod, previous *core.BudgetPeriod) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply exception: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO budget_exceptions (id, person_id, exception_date, reason, consumed)
		 SELECT ?, ?, ?, ?, 0
		 WHERE NOT EXISTS (
		     SELECT 1 FROM budget_exceptions WHERE person_id = ? AND consumed = 0
		 )`,
		exc.ID, exc.PersonID, exc.ExceptionDate.ISO(), exc.Reason, exc.PersonID)
	if err != nil {
		return fmt.Errorf("insert exception: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("insert exception: %w", err)
	} else if n == 0 {
		return &core.ConflictError{
			Invariant: "single active exception",
			Reason:    "person " + exc.PersonID + " already has an active exception",
		}
	}

	if err := updatePeriodBounds(ctx, tx, current); err != nil {
		return err
	}
	if previous != nil {
		if err := updatePeriodBounds(ctx, tx, *previous); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply exception: %w", err)
	}
	slog.InfoContext(ctx, "Budget exception applied",
		"exception_id", exc.ID, "person_id", exc.PersonID, "exception_date", exc.ExceptionDate.ISO())
	return nil
}

// RevertExceptionUpdate deletes an unconsumed exception and restores the
// anchor-derived period records atomically.
func (r *SQLiteRepository) RevertExceptionUpdate(ctx context.Context, excID string, current core.BudgetPeriod, previous *core.BudgetPeriod) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("revert exception: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM budget_exceptions WHERE id = ? AND consumed = 0`, excID)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete exception: %w", err)
	} else if n == 0 {
		return &core.ConflictError{
			Invariant: "exception immutability",
			Reason:    "exception " + excID + " is consumed or missing",
		}
	}

	if err := updatePeriodBounds(ctx, tx, current); err != nil {
		return err
	}
	if previous != nil {
		if err := updatePeriodBounds(ctx, tx, *previous); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("revert exception: %w", err)
	}
	slog.InfoContext(ctx, "Budget exception removed", "exception_id", excID)
	return nil
}

func updatePeriodBounds(ctx context.Context, tx *sql.Tx, bp core.BudgetPeriod) error {
	var end any
	if !bp.EndDate.IsZero() {
		end = bp.EndDate.ISO()
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE budget_periods SET start_date = ?, end_date = ? WHERE id = ?`,
		bp.StartDate.ISO(), end, bp.ID)
	if err != nil {
		return fmt.Errorf("update period %s bounds: %w", bp.ID, err)
	}
	return nil
}

// --- budget exceptions ---

// GetActiveException returns the person's unconsumed exception, or nil.
func (r *SQLiteRepository) GetActiveException(ctx context.Context, personID string) (*core.BudgetException, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, person_id, exception_date, reason, consumed
		 FROM budget_exceptions WHERE person_id = ? AND consumed = 0`, personID)
	exc, err := scanException(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exc, nil
}

func (r *SQLiteRepository) GetException(ctx context.Context, id string) (core.BudgetException, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, person_id, exception_date, reason, consumed
		 FROM budget_exceptions WHERE id = ?`, id)
	exc, err := scanException(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetException{}, &core.NotFoundError{Entity: "exception", ID: id}
	}
	return exc, err
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	var toAccount any
	if t.ToAccountID != "" {
		toAccount = t.ToAccountID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (id, person_id, account_id, to_account_id, description, amount, tx_date, tx_type, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PersonID, t.AccountID, toAccount, t.Description,
		t.Amount.String(), t.Date.ISO(), string(t.Type), t.Category)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return t, err
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, personID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE person_id = ? ORDER BY tx_date, id`, personID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ListLinkedTransactions(ctx context.Context, parentID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE parent_transaction_id = ? ORDER BY tx_date, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list linked transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// LinkTransaction sets the child's back-reference, guarded on the child not
// already having a parent so concurrent links cannot both win.
func (r *SQLiteRepository) LinkTransaction(ctx context.Context, childID, parentID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET parent_transaction_id = ?, is_reconciled = 1
		 WHERE id = ? AND parent_transaction_id IS NULL`,
		parentID, childID)
	if err != nil {
		return fmt.Errorf("link transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link transaction: %w", err)
	}
	if n == 0 {
		return &core.ConflictError{
			Invariant: "single parent per child",
			Reason:    "transaction " + childID + " is missing or already linked",
		}
	}
	return nil
}

func (r *SQLiteRepository) UnlinkTransaction(ctx context.Context, childID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET parent_transaction_id = NULL, is_reconciled = 0
		 WHERE id = ? AND parent_transaction_id IS NOT NULL`, childID)
	if err != nil {
		return fmt.Errorf("unlink transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlink transaction: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "linked transaction", ID: childID}
	}
	return nil
}

func (r *SQLiteRepository) SetTransactionReconciled(ctx context.Context, id string, reconciled bool) error {
	v := 0
	if reconciled {
		v = 1
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET is_reconciled = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("set transaction reconciled: %w", err)
	}
	return nil
}

// ListOverduePeriods returns open periods whose start date lies before the
// cutoff; the reminder worker uses this to nudge people whose natural window
// has elapsed without an explicit end.
func (r *SQLiteRepository) ListOverduePeriods(ctx context.Context, cutoff core.Date, limit int) ([]core.BudgetPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, person_id, start_date, end_date, is_completed
		 FROM budget_periods
		 WHERE is_completed = 0 AND start_date < ?
		 ORDER BY start_date LIMIT ?`,
		cutoff.ISO(), limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue periods: %w", err)
	}
	defer rows.Close()

	var periods []core.BudgetPeriod
	for rows.Next() {
		bp, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list overdue periods: %w", err)
	}
	return periods, nil
}

// --- row scanning ---

const selectTransaction = `SELECT id, person_id, account_id, to_account_id, description,
	amount, tx_date, tx_type, category, is_reconciled, parent_transaction_id
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (core.BudgetPeriod, error) {
	var (
		bp        core.BudgetPeriod
		start     string
		end       sql.NullString
		completed int
	)
	if err := row.Scan(&bp.ID, &bp.PersonID, &start, &end, &completed); err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("scan period: %w", err)
	}
	startDate, err := core.ParseDate(start)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("scan period start %q: %w", start, err)
	}
	bp.StartDate = startDate
	if end.Valid {
		endDate, err := core.ParseDate(end.String)
		if err != nil {
			return core.BudgetPeriod{}, fmt.Errorf("scan period end %q: %w", end.String, err)
		}
		bp.EndDate = endDate
	}
	bp.IsCompleted = completed == 1
	return bp, nil
}

func scanException(row rowScanner) (core.BudgetException, error) {
	var (
		exc      core.BudgetException
		date     string
		consumed int
	)
	if err := row.Scan(&exc.ID, &exc.PersonID, &date, &exc.Reason, &consumed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BudgetException{}, err
		}
		return core.BudgetException{}, fmt.Errorf("scan exception: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.BudgetException{}, fmt.Errorf("scan exception date %q: %w", date, err)
	}
	exc.ExceptionDate = d
	exc.Consumed = consumed == 1
	return exc, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		toAccount  sql.NullString
		rawAmount  string
		rawDate    string
		rawType    string
		reconciled int
		parentID   sql.NullString
	)
	err := row.Scan(&t.ID, &t.PersonID, &t.AccountID, &toAccount, &t.Description,
		&rawAmount, &rawDate, &rawType, &t.Category, &reconciled, &parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction amount %q: %w", rawAmount, err)
	}
	date, err := core.ParseDate(rawDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction date %q: %w", rawDate, err)
	}
	t.Amount = amount
	t.Date = date
	t.Type = core.TransactionType(rawType)
	t.ToAccountID = toAccount.String
	t.IsReconciled = reconciled == 1
	t.ParentTransactionID = parentID.String
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect transactions: %w", err)
	}
	return out, nil
}
