package expense

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/config"
)

func TestMain(m *testing.M) {
	// Instruments bind to the global (noop) meter provider in tests.
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, expense *models.Expense) (float64, error) {
	args := m.Called(ctx, expense)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, ownerEmail string, expense *models.Expense) (float64, error) {
	args := m.Called(ctx, ownerEmail, expense)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, ownerEmail string, id uuid.UUID) (float64, error) {
	args := m.Called(ctx, ownerEmail, id)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRepository) Approve(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListByEmail(ctx context.Context, email string) ([]models.Expense, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Expense), args.Error(1)
}

func (m *MockRepository) ListAll(ctx context.Context) ([]models.Expense, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Expense), args.Error(1)
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate() { s.calls++ }

func testConfig() *config.Config {
	return &config.Config{
		BillImage: config.BillImageConfig{
			MaxSizeKB:      20,
			MaxDimensionPX: 800,
			MaxUploadBytes: 512 << 10,
		},
	}
}

func employeeSession(email string) *models.Session {
	return &models.Session{Token: uuid.New(), Email: email, Role: models.RoleEmployee}
}

func adminSession() *models.Session {
	return &models.Session{Token: uuid.New(), Email: "admin@corp.test", Role: models.RoleAdmin}
}

func TestAddExpense(t *testing.T) {
	t.Run("submits pending expense for the session owner", func(t *testing.T) {
		repo := new(MockRepository)
		inv := &stubInvalidator{}
		svc := NewService(repo, testConfig(), inv, zap.NewNop())

		repo.On("Create", mock.Anything, mock.MatchedBy(func(e *models.Expense) bool {
			return e.Email == "alice@corp.test" && e.Amount == 300
		})).Return(700.0, nil)

		balance, err := svc.AddExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
			Date:        "2024-05-01",
			Description: "Team lunch",
			Amount:      300,
		})

		require.NoError(t, err)
		assert.Equal(t, 700.0, balance)
		assert.Equal(t, 1, inv.calls, "summary cache must be invalidated")
		repo.AssertExpectations(t)
	})

	t.Run("insufficient balance surfaces the available figure", func(t *testing.T) {
		repo := new(MockRepository)
		inv := &stubInvalidator{}
		svc := NewService(repo, testConfig(), inv, zap.NewNop())

		repo.On("Create", mock.Anything, mock.Anything).
			Return(0.0, &models.BalanceError{Available: 700})

		_, err := svc.AddExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
			Date:        "2024-05-01",
			Description: "Office chairs",
			Amount:      800,
		})

		var balErr *models.BalanceError
		require.ErrorAs(t, err, &balErr)
		assert.Equal(t, 700.0, balErr.Available)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
		assert.Zero(t, inv.calls, "a rejected submission must not touch the cache")
	})

	t.Run("rejects non-positive amounts before hitting the repository", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testConfig(), nil, zap.NewNop())

		for _, amount := range []float64{0, -50} {
			_, err := svc.AddExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
				Date:        "2024-05-01",
				Description: "Nothing",
				Amount:      amount,
			})
			assert.ErrorIs(t, err, models.ErrValidation)
		}
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects missing date or description", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testConfig(), nil, zap.NewNop())

		_, err := svc.AddExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
			Amount: 10,
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("rejects oversized bill images", func(t *testing.T) {
		repo := new(MockRepository)
		cfg := testConfig()
		cfg.BillImage.MaxUploadBytes = 16
		svc := NewService(repo, cfg, nil, zap.NewNop())

		image := base64.StdEncoding.EncodeToString(make([]byte, 64))
		_, err := svc.AddExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
			Date:        "2024-05-01",
			Description: "Receipt",
			Amount:      10,
			BillImage:   image,
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("accepts data-url prefixed bill images", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testConfig(), nil, zap.NewNop())

		payload := base64.StdEncoding.EncodeToString([]byte("tiny-jpeg"))
		repo.On("Create", mock.Anything, mock.Anything).Return(90.0, nil)

		_, err := svc.AddExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
			Date:        "2024-05-01",
			Description: "Receipt",
			Amount:      10,
			BillImage:   "data:image/jpeg;base64," + payload,
		})
		assert.NoError(t, err)
	})
}

func TestGetExpenses_Ownership(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, testConfig(), nil, zap.NewNop())

	t.Run("employee cannot read another user's expenses", func(t *testing.T) {
		_, err := svc.GetExpenses(context.Background(), employeeSession("alice@corp.test"), "bob@corp.test")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("employee reads own expenses", func(t *testing.T) {
		repo.On("ListByEmail", mock.Anything, "alice@corp.test").Return([]models.Expense{}, nil).Once()
		_, err := svc.GetExpenses(context.Background(), employeeSession("alice@corp.test"), "alice@corp.test")
		assert.NoError(t, err)
	})

	t.Run("admin reads anyone's expenses", func(t *testing.T) {
		repo.On("ListByEmail", mock.Anything, "bob@corp.test").Return([]models.Expense{}, nil).Once()
		_, err := svc.GetExpenses(context.Background(), adminSession(), "bob@corp.test")
		assert.NoError(t, err)
	})
}

func TestUpdateExpense_DisbursedConflict(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, testConfig(), &stubInvalidator{}, zap.NewNop())

	id := uuid.New()
	repo.On("Update", mock.Anything, "alice@corp.test", mock.Anything).
		Return(0.0, fmt.Errorf("expense %s is already disbursed: %w", id, models.ErrConflict))

	_, err := svc.UpdateExpense(context.Background(), employeeSession("alice@corp.test"), &models.Expense{
		ID:          id,
		Date:        "2024-05-01",
		Description: "Edited",
		Amount:      20,
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestDeleteExpense_ReleasesReservation(t *testing.T) {
	repo := new(MockRepository)
	inv := &stubInvalidator{}
	svc := NewService(repo, testConfig(), inv, zap.NewNop())

	id := uuid.New()
	repo.On("Delete", mock.Anything, "alice@corp.test", id).Return(1000.0, nil)

	balance, err := svc.DeleteExpense(context.Background(), employeeSession("alice@corp.test"), id)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, balance)
	assert.Equal(t, 1, inv.calls)
}

func TestApproveExpense_DoubleApproval(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, testConfig(), nil, zap.NewNop())

	id := uuid.New()
	repo.On("Approve", mock.Anything, id).
		Return(nil).Once()
	repo.On("Approve", mock.Anything, id).
		Return(fmt.Errorf("expense %s already disbursed: %w", id, models.ErrConflict)).Once()

	require.NoError(t, svc.ApproveExpense(context.Background(), id))
	assert.ErrorIs(t, svc.ApproveExpense(context.Background(), id), models.ErrConflict)
}

func TestGetAllExpenses_FilterAndSort(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, testConfig(), nil, zap.NewNop())

	repo.On("ListAll", mock.Anything).Return([]models.Expense{
		{EmployeeName: "Kamal", Description: "Taxi", Date: "2024-03-01"},
		{EmployeeName: "Alice", Description: "Stationery", Date: "2024-01-15"},
		{EmployeeName: "Bob", Description: "Snacks", Date: "2024-02-01"},
	}, nil)

	got, err := svc.GetAllExpenses(context.Background(), "ali")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].EmployeeName, "results are date-sorted after filtering")
	assert.Equal(t, "Kamal", got[1].EmployeeName)
}
