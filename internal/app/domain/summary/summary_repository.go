package summary

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	database "github.com/FACorreiaa/go-expensefund/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository exposes the two aggregate sums the summary derives from. Both
// sums run over every record: a PENDING expense already holds its reservation,
// so it counts the same as a disbursed one.
type Repository interface {
	TotalFund(ctx context.Context) (float64, error)
	TotalExpenses(ctx context.Context) (float64, error)
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

func (r *PostgresRepository) TotalFund(ctx context.Context) (float64, error) {
	var total float64
	err := r.pgpool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM funds`).Scan(&total)
	if err != nil {
		r.logger.Error("Error summing funds", zap.Error(err))
		return 0, fmt.Errorf("database error summing funds: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) TotalExpenses(ctx context.Context) (float64, error) {
	var total float64
	err := r.pgpool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses`).Scan(&total)
	if err != nil {
		r.logger.Error("Error summing expenses", zap.Error(err))
		return 0, fmt.Errorf("database error summing expenses: %w", err)
	}
	return total, nil
}
