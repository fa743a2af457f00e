package expense

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
	database "github.com/FACorreiaa/go-expensefund/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository persists expenses and keeps the spendable balance row in step
// with them. Every balance-affecting method runs inside a single transaction
// with a conditional update on fund_balance; the database serializes
// concurrent submissions, so no in-process locking exists anywhere.
type Repository interface {
	// Create inserts a PENDING expense and atomically reserves its amount.
	// Returns the balance after the reservation, or *models.BalanceError
	// when the fund cannot cover the amount.
	Create(ctx context.Context, expense *models.Expense) (float64, error)
	// Update rewrites a PENDING expense owned by ownerEmail, revalidating the
	// amount delta against the balance in the same transaction.
	Update(ctx context.Context, ownerEmail string, expense *models.Expense) (float64, error)
	// Delete removes a PENDING expense owned by ownerEmail and releases its
	// reserved amount. Returns the balance after the release.
	Delete(ctx context.Context, ownerEmail string, id uuid.UUID) (float64, error)
	// Approve flips PENDING to DISBURSED exactly once. A second attempt is a
	// conflict; the balance is never touched here.
	Approve(ctx context.Context, id uuid.UUID) error
	ListByEmail(ctx context.Context, email string) ([]models.Expense, error)
	// ListAll returns every expense with the employee's display name joined.
	ListAll(ctx context.Context) ([]models.Expense, error)
}

type PostgresRepository struct {
	logger *zap.Logger
	pgpool database.PGXPool
}

func NewPostgresRepository(pgpool database.PGXPool, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

// reserveBalance performs the conditional decrement that makes submissions
// atomic: the WHERE clause is the insufficiency check and the UPDATE is the
// reservation, in one statement. No matching row means the fund cannot cover
// the amount, in which case the current balance is read back for the error.
func (r *PostgresRepository) reserveBalance(ctx context.Context, tx pgx.Tx, amount float64) (float64, error) {
	start := time.Now()
	var balance float64
	err := tx.QueryRow(ctx,
		`UPDATE fund_balance SET balance = balance - $1 WHERE id = 1 AND balance >= $1 RETURNING balance`,
		amount,
	).Scan(&balance)
	metrics.Get().DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())

	if errors.Is(err, pgx.ErrNoRows) {
		var available float64
		if err := tx.QueryRow(ctx, `SELECT balance FROM fund_balance WHERE id = 1`).Scan(&available); err != nil {
			return 0, fmt.Errorf("database error reading balance: %w", err)
		}
		return 0, &models.BalanceError{Available: available}
	}
	if err != nil {
		metrics.Get().DBQueryErrorsTotal.Add(ctx, 1)
		return 0, fmt.Errorf("database error reserving balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) releaseBalance(ctx context.Context, tx pgx.Tx, amount float64) (float64, error) {
	var balance float64
	err := tx.QueryRow(ctx,
		`UPDATE fund_balance SET balance = balance + $1 WHERE id = 1 RETURNING balance`,
		amount,
	).Scan(&balance)
	if err != nil {
		metrics.Get().DBQueryErrorsTotal.Add(ctx, 1)
		return 0, fmt.Errorf("database error releasing balance: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) Create(ctx context.Context, expense *models.Expense) (float64, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance, err := r.reserveBalance(ctx, tx, expense.Amount)
	if err != nil {
		return 0, err
	}

	expense.Status = models.StatusPending
	err = tx.QueryRow(ctx,
		`INSERT INTO expenses (email, date, description, amount, bill_image, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $7) RETURNING id`,
		expense.Email, expense.Date, expense.Description, expense.Amount,
		expense.BillImage, string(expense.Status), time.Now(),
	).Scan(&expense.ID)
	if err != nil {
		r.logger.Error("Error inserting expense", zap.Error(err), zap.String("email", expense.Email))
		return 0, fmt.Errorf("database error inserting expense: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("database error committing expense: %w", err)
	}
	return balance, nil
}

// lockRow reads the fields the mutation guards depend on, holding a row lock
// for the rest of the transaction.
func (r *PostgresRepository) lockRow(ctx context.Context, tx pgx.Tx, id uuid.UUID, ownerEmail string) (amount float64, err error) {
	var email, status string
	err = tx.QueryRow(ctx,
		`SELECT email, amount, status FROM expenses WHERE id = $1 FOR UPDATE`, id,
	).Scan(&email, &amount, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("expense %s not found: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("database error locking expense: %w", err)
	}
	if email != ownerEmail {
		return 0, fmt.Errorf("expense %s belongs to another user: %w", id, models.ErrForbidden)
	}
	if status != string(models.StatusPending) {
		return 0, fmt.Errorf("expense %s is already disbursed: %w", id, models.ErrConflict)
	}
	return amount, nil
}

func (r *PostgresRepository) Update(ctx context.Context, ownerEmail string, expense *models.Expense) (float64, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	oldAmount, err := r.lockRow(ctx, tx, expense.ID, ownerEmail)
	if err != nil {
		return 0, err
	}

	// Only the delta moves the balance; an unchanged amount touches nothing.
	var balance float64
	switch delta := expense.Amount - oldAmount; {
	case delta > 0:
		balance, err = r.reserveBalance(ctx, tx, delta)
	case delta < 0:
		balance, err = r.releaseBalance(ctx, tx, -delta)
	default:
		err = tx.QueryRow(ctx, `SELECT balance FROM fund_balance WHERE id = 1`).Scan(&balance)
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE expenses SET date = $2, description = $3, amount = $4,
		 bill_image = COALESCE(NULLIF($5, ''), bill_image), updated_at = $6
		 WHERE id = $1`,
		expense.ID, expense.Date, expense.Description, expense.Amount, expense.BillImage, time.Now(),
	)
	if err != nil {
		r.logger.Error("Error updating expense", zap.Error(err), zap.String("expense_id", expense.ID.String()))
		return 0, fmt.Errorf("database error updating expense: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("database error committing expense update: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerEmail string, id uuid.UUID) (float64, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	amount, err := r.lockRow(ctx, tx, id, ownerEmail)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		r.logger.Error("Error deleting expense", zap.Error(err), zap.String("expense_id", id.String()))
		return 0, fmt.Errorf("database error deleting expense: %w", err)
	}

	balance, err := r.releaseBalance(ctx, tx, amount)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("database error committing expense deletion: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) Approve(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE expenses SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		id, string(models.StatusDisbursed), time.Now(), string(models.StatusPending),
	)
	if err != nil {
		r.logger.Error("Error approving expense", zap.Error(err), zap.String("expense_id", id.String()))
		return fmt.Errorf("database error approving expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the record is gone or someone approved it first.
		var status string
		err := r.pgpool.QueryRow(ctx, `SELECT status FROM expenses WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("expense %s not found: %w", id, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("database error checking expense status: %w", err)
		}
		return fmt.Errorf("expense %s already disbursed: %w", id, models.ErrConflict)
	}
	return nil
}

func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]models.Expense, error) {
	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("id", "email", "date", "description", "amount", "bill_image", "status").
		From("expenses").
		Where(squirrel.Eq{"email": email}).
		OrderBy("date ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building expenses query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing expenses", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("database error listing expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows, false)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Expense, error) {
	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"e.id",
			"e.email",
			"e.date",
			"e.description",
			"e.amount",
			"e.bill_image",
			"e.status",
			"COALESCE(u.name, 'Unknown') AS employee_name",
		).
		From("expenses e").
		LeftJoin("users u ON u.email = e.email").
		OrderBy("e.date ASC", "e.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building expenses query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing all expenses", zap.Error(err))
		return nil, fmt.Errorf("database error listing expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows, true)
}

func scanExpenses(rows pgx.Rows, withEmployeeName bool) ([]models.Expense, error) {
	expenses := make([]models.Expense, 0)
	for rows.Next() {
		var e models.Expense
		var date time.Time
		var billImage *string
		var status string

		dest := []any{&e.ID, &e.Email, &date, &e.Description, &e.Amount, &billImage, &status}
		if withEmployeeName {
			dest = append(dest, &e.EmployeeName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning expense row: %w", err)
		}

		e.Date = date.Format("2006-01-02")
		if billImage != nil {
			e.BillImage = *billImage
		}
		e.Status = models.ExpenseStatus(status)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return expenses, nil
}
