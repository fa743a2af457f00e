package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	database "github.com/FACorreiaa/go-expensefund/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository persists users and the server-side session store.
type Repository interface {
	// CreateUser stores a new user with a HASHED password.
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail fetches user details needed for login validation.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// --- Session handling ---
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token uuid.UUID) (*models.Session, error)
	DeleteSession(ctx context.Context, token uuid.UUID) error
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

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, name, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pgpool.Exec(ctx, query, user.Email, user.Name, user.PasswordHash, string(user.Role), time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user %s already exists: %w", user.Email, models.ErrConflict)
		}
		r.logger.Error("Error inserting user", zap.Error(err), zap.String("email", user.Email))
		return fmt.Errorf("database error registering user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	var role string
	query := `SELECT email, name, password_hash, role, created_at FROM users WHERE email = $1`
	err := r.pgpool.QueryRow(ctx, query, email).Scan(&user.Email, &user.Name, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (token, email, role, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pgpool.Exec(ctx, query, session.Token, session.Email, string(session.Role), session.CreatedAt, session.ExpiresAt)
	if err != nil {
		r.logger.Error("Error storing session", zap.Error(err), zap.String("email", session.Email))
		return fmt.Errorf("database error storing session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, token uuid.UUID) (*models.Session, error) {
	var session models.Session
	var role string
	query := `SELECT token, email, role, created_at, expires_at FROM sessions WHERE token = $1`
	err := r.pgpool.QueryRow(ctx, query, token).Scan(&session.Token, &session.Email, &role, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", models.ErrUnauthenticated)
		}
		r.logger.Error("Error fetching session", zap.Error(err))
		return nil, fmt.Errorf("database error fetching session: %w", err)
	}
	session.Role = models.Role(role)
	return &session, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, token uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		r.logger.Error("Error deleting session", zap.Error(err))
		return fmt.Errorf("database error deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already gone; logout still succeeds from the client's point of view.
		r.logger.Debug("Session already deleted")
	}
	return nil
}
