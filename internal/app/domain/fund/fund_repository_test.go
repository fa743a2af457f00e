package fund

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
)

func TestCreate_AppendsAndIncrementsBalance(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	repo := NewPostgresRepository(pool, zap.NewNop())

	id := uuid.New()
	pool.ExpectBegin()
	pool.ExpectQuery(`INSERT INTO funds`).
		WithArgs("2024-05-01", 1000.0, "Quarterly top-up", "admin@corp.test", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	pool.ExpectExec(`UPDATE fund_balance SET balance = balance \+ \$1 WHERE id = 1`).
		WithArgs(1000.0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectCommit()
	pool.ExpectRollback().Maybe()

	fund := &models.Fund{
		Date:        "2024-05-01",
		Amount:      1000,
		Description: "Quarterly top-up",
		AdminEmail:  "admin@corp.test",
	}
	require.NoError(t, repo.Create(context.Background(), fund))
	assert.Equal(t, id, fund.ID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestList_ResolvesAdminNames(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	repo := NewPostgresRepository(pool, zap.NewNop())

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	pool.ExpectQuery(`SELECT f.id, f.date, f.amount, f.description, f.admin_email, COALESCE\(u.name, 'Unknown'\) AS admin_name`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date", "amount", "description", "admin_email", "admin_name"}).
			AddRow(uuid.New(), date, 1000.0, "Top-up", "admin@corp.test", "Admin").
			AddRow(uuid.New(), date, 500.0, "Extra", "gone@corp.test", "Unknown"))

	funds, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Equal(t, "2024-05-01", funds[0].Date)
	assert.Equal(t, "Admin", funds[0].AdminName)
	assert.Equal(t, "Unknown", funds[1].AdminName)
	assert.NoError(t, pool.ExpectationsWereMet())
}
