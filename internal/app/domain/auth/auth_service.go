package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/config"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for authentication.
type Service interface {
	Signup(ctx context.Context, name, email, password string, role models.Role) error
	// Login validates credentials and mints an opaque session token.
	Login(ctx context.Context, email, password string) (*models.Session, *models.User, error)
	Logout(ctx context.Context, token uuid.UUID) error
	// ValidateSession resolves a token against the server-side store; an
	// expired session is revoked on the spot ("fail on next use").
	ValidateSession(ctx context.Context, token uuid.UUID) (*models.Session, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cfg    *config.Config
}

func NewService(repo Repository, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, cfg: cfg}
}

func (s *ServiceImpl) Signup(ctx context.Context, name, email, password string, role models.Role) error {
	l := s.logger.With(zap.String("method", "Signup"), zap.String("email", email))

	tracer := otel.Tracer("ExpenseFund")
	ctx, span := tracer.Start(ctx, "AuthService.Signup", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return fmt.Errorf("name, email and password are required: %w", models.ErrValidation)
	}

	if role == "" {
		role = models.RoleEmployee
	}
	if role != models.RoleAdmin && role != models.RoleEmployee {
		return fmt.Errorf("unknown role %q: %w", role, models.ErrValidation)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return fmt.Errorf("could not process password")
	}

	err = s.repo.CreateUser(ctx, &models.User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hashedPasswordBytes),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository registration failed")
		return err
	}

	l.Info("Signup successful")
	span.SetStatus(codes.Ok, "User registered")
	return nil
}

// Login validates credentials and stores a new session.
func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	l := s.logger.With(zap.String("method", "Login"), zap.String("email", email))
	l.Debug("Attempting login")

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		l.Warn("GetUserByEmail failed")
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.Warn("Password comparison failed")
		return nil, nil, fmt.Errorf("incorrect password: %w", models.ErrUnauthenticated)
	}

	session := &models.Session{
		Token:     uuid.New(),
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: time.Now(),
	}
	if ttl := s.getSessionTTL(); ttl > 0 {
		expiresAt := session.CreatedAt.Add(ttl)
		session.ExpiresAt = &expiresAt
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		l.Error("Failed to store session", zap.Error(err))
		return nil, nil, fmt.Errorf("app error storing session: %w", err)
	}

	l.Info("Login successful")
	return session, user, nil
}

// Logout revokes the session server-side. The client clears its own state.
func (s *ServiceImpl) Logout(ctx context.Context, token uuid.UUID) error {
	l := s.logger.With(zap.String("method", "Logout"))
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		l.Error("Failed to revoke session", zap.Error(err))
		return fmt.Errorf("logout failed: %w", err)
	}
	l.Info("Logout successful (session revoked)")
	return nil
}

func (s *ServiceImpl) ValidateSession(ctx context.Context, token uuid.UUID) (*models.Session, error) {
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.ExpiresAt != nil && time.Now().After(*session.ExpiresAt) {
		// Best-effort cleanup; the 401 is what matters.
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("Failed to delete expired session", zap.Error(err))
		}
		return nil, fmt.Errorf("session expired: %w", models.ErrUnauthenticated)
	}

	return session, nil
}

func (s *ServiceImpl) getSessionTTL() time.Duration {
	if s.cfg != nil {
		return s.cfg.Session.TTL
	}
	return 0
}
