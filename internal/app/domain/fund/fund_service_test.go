package fund

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, fund *models.Fund) error {
	args := m.Called(ctx, fund)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context) ([]models.Fund, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Fund), args.Error(1)
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate() { s.calls++ }

func TestAddFund(t *testing.T) {
	t.Run("attributes the fund to the acting admin", func(t *testing.T) {
		repo := new(MockRepository)
		inv := &stubInvalidator{}
		svc := NewService(repo, inv, zap.NewNop())

		repo.On("Create", mock.Anything, mock.MatchedBy(func(f *models.Fund) bool {
			return f.AdminEmail == "admin@corp.test" && f.Amount == 1000
		})).Return(nil)

		err := svc.AddFund(context.Background(), "admin@corp.test", &models.Fund{
			Date:        "2024-05-01",
			Amount:      1000,
			Description: "Quarterly top-up",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, inv.calls, "summary cache must be invalidated")
		repo.AssertExpectations(t)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		for _, amount := range []float64{0, -100} {
			err := svc.AddFund(context.Background(), "admin@corp.test", &models.Fund{
				Date:        "2024-05-01",
				Amount:      amount,
				Description: "Bad",
			})
			assert.ErrorIs(t, err, models.ErrValidation)
		}
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects missing date or description", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		err := svc.AddFund(context.Background(), "admin@corp.test", &models.Fund{Amount: 100})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestGetAllFunds(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, zap.NewNop())

	repo.On("List", mock.Anything).Return([]models.Fund{
		{Amount: 1000, AdminName: "Admin"},
	}, nil)

	funds, err := svc.GetAllFunds(context.Background())
	require.NoError(t, err)
	assert.Len(t, funds, 1)
	assert.Equal(t, "Admin", funds[0].AdminName)
}
