package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/config"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRepository) GetSession(ctx context.Context, token uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockRepository) DeleteSession(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestSignup(t *testing.T) {
	t.Run("hashes the password and defaults the role to employee", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			if u.Role != models.RoleEmployee || u.PasswordHash == "secret" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret")) == nil
		})).Return(nil)

		err := svc.Signup(context.Background(), "Alice", "alice@corp.test", "secret", "")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("requires all fields", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		err := svc.Signup(context.Background(), "", "alice@corp.test", "secret", models.RoleEmployee)
		assert.ErrorIs(t, err, models.ErrValidation)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		err := svc.Signup(context.Background(), "Alice", "alice@corp.test", "secret", "superuser")
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("duplicate email surfaces as conflict", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		repo.On("CreateUser", mock.Anything, mock.Anything).
			Return(fmt.Errorf("user exists: %w", models.ErrConflict))

		err := svc.Signup(context.Background(), "Alice", "alice@corp.test", "secret", models.RoleEmployee)
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestLogin(t *testing.T) {
	t.Run("mints and stores an opaque session", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		repo.On("GetUserByEmail", mock.Anything, "alice@corp.test").Return(&models.User{
			Email:        "alice@corp.test",
			Name:         "Alice",
			Role:         models.RoleEmployee,
			PasswordHash: hashFor(t, "secret"),
		}, nil)
		repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *models.Session) bool {
			return s.Email == "alice@corp.test" && s.Token != uuid.Nil && s.ExpiresAt == nil
		})).Return(nil)

		session, user, err := svc.Login(context.Background(), "alice@corp.test", "secret")
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.Name)
		assert.Equal(t, models.RoleEmployee, session.Role)
		repo.AssertExpectations(t)
	})

	t.Run("unknown user is not found, not unauthorized", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		repo.On("GetUserByEmail", mock.Anything, "ghost@corp.test").
			Return(nil, fmt.Errorf("not found: %w", models.ErrNotFound))

		_, _, err := svc.Login(context.Background(), "ghost@corp.test", "secret")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("wrong password is unauthenticated", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		repo.On("GetUserByEmail", mock.Anything, "alice@corp.test").Return(&models.User{
			Email:        "alice@corp.test",
			PasswordHash: hashFor(t, "secret"),
		}, nil)

		_, _, err := svc.Login(context.Background(), "alice@corp.test", "wrong")
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("configured TTL stamps an expiry on the session", func(t *testing.T) {
		repo := new(MockRepository)
		cfg := &config.Config{Session: config.SessionConfig{TTL: time.Hour}}
		svc := NewService(repo, cfg, zap.NewNop())

		repo.On("GetUserByEmail", mock.Anything, "alice@corp.test").Return(&models.User{
			Email:        "alice@corp.test",
			PasswordHash: hashFor(t, "secret"),
		}, nil)
		repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *models.Session) bool {
			return s.ExpiresAt != nil && s.ExpiresAt.After(time.Now())
		})).Return(nil)

		_, _, err := svc.Login(context.Background(), "alice@corp.test", "secret")
		require.NoError(t, err)
	})
}

func TestValidateSession(t *testing.T) {
	t.Run("live session resolves", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		token := uuid.New()
		repo.On("GetSession", mock.Anything, token).Return(&models.Session{
			Token: token,
			Email: "alice@corp.test",
			Role:  models.RoleEmployee,
		}, nil)

		session, err := svc.ValidateSession(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice@corp.test", session.Email)
	})

	t.Run("expired session fails on next use and is revoked", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		token := uuid.New()
		expired := time.Now().Add(-time.Minute)
		repo.On("GetSession", mock.Anything, token).Return(&models.Session{
			Token:     token,
			Email:     "alice@corp.test",
			ExpiresAt: &expired,
		}, nil)
		repo.On("DeleteSession", mock.Anything, token).Return(nil)

		_, err := svc.ValidateSession(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		repo.AssertCalled(t, "DeleteSession", mock.Anything, token)
	})

	t.Run("unknown token is unauthenticated", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil, zap.NewNop())

		token := uuid.New()
		repo.On("GetSession", mock.Anything, token).
			Return(nil, fmt.Errorf("session not found: %w", models.ErrUnauthenticated))

		_, err := svc.ValidateSession(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func TestLogout(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, zap.NewNop())

	token := uuid.New()
	repo.On("DeleteSession", mock.Anything, token).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), token))
	repo.AssertExpectations(t)
}
