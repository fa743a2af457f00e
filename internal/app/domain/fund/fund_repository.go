package fund

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	database "github.com/FACorreiaa/go-expensefund/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository persists the append-only fund ledger. Fund records are never
// mutated after insertion; the spendable balance row moves with them.
type Repository interface {
	Create(ctx context.Context, fund *models.Fund) error
	List(ctx context.Context) ([]models.Fund, error)
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

// Create inserts the fund record and increments the spendable balance in the
// same transaction, so the ledger and the balance row can never drift apart.
func (r *PostgresRepository) Create(ctx context.Context, fund *models.Fund) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO funds (date, amount, description, admin_email, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		fund.Date, fund.Amount, fund.Description, fund.AdminEmail, time.Now(),
	).Scan(&fund.ID)
	if err != nil {
		r.logger.Error("Error inserting fund", zap.Error(err), zap.String("admin_email", fund.AdminEmail))
		return fmt.Errorf("database error inserting fund: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE fund_balance SET balance = balance + $1 WHERE id = 1`, fund.Amount)
	if err != nil {
		r.logger.Error("Error incrementing balance", zap.Error(err))
		return fmt.Errorf("database error updating balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database error committing fund: %w", err)
	}
	return nil
}

// List returns the full ledger with the contributing admin's display name
// resolved. Admins whose account has since been removed show as "Unknown".
func (r *PostgresRepository) List(ctx context.Context) ([]models.Fund, error) {
	query, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			"f.id",
			"f.date",
			"f.amount",
			"f.description",
			"f.admin_email",
			"COALESCE(u.name, 'Unknown') AS admin_name",
		).
		From("funds f").
		LeftJoin("users u ON u.email = f.admin_email").
		OrderBy("f.date ASC", "f.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building funds query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing funds", zap.Error(err))
		return nil, fmt.Errorf("database error listing funds: %w", err)
	}
	defer rows.Close()

	funds := make([]models.Fund, 0)
	for rows.Next() {
		var f models.Fund
		var date time.Time
		if err := rows.Scan(&f.ID, &date, &f.Amount, &f.Description, &f.AdminEmail, &f.AdminName); err != nil {
			return nil, fmt.Errorf("error scanning fund row: %w", err)
		}
		f.Date = date.Format("2006-01-02")
		funds = append(funds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund rows: %w", err)
	}
	return funds, nil
}
