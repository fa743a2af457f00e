package expense

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/config"
)

var _ Service = (*ServiceImpl)(nil)

// Bill-image failures are validation errors, but the handler reports them
// with their own messages instead of the generic field-validation one.
var (
	errBillImageTooLarge  = fmt.Errorf("bill image too large: %w", models.ErrValidation)
	errBillImageMalformed = fmt.Errorf("bill image malformed: %w", models.ErrValidation)
)

// SummaryInvalidator is the slice of the summary service this service needs:
// every balance-affecting mutation stales the cached summary.
type SummaryInvalidator interface {
	Invalidate()
}

type Service interface {
	// AddExpense submits a PENDING expense for the session owner and returns
	// the balance after the reservation.
	AddExpense(ctx context.Context, session *models.Session, expense *models.Expense) (float64, error)
	// GetExpenses lists expenses for email. Employees may only read their own;
	// admins may read anyone's.
	GetExpenses(ctx context.Context, session *models.Session, email string) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, session *models.Session, expense *models.Expense) (float64, error)
	DeleteExpense(ctx context.Context, session *models.Session, id uuid.UUID) (float64, error)
	// GetAllExpenses returns every expense, optionally narrowed by an
	// in-memory substring search, sorted by date ascending.
	GetAllExpenses(ctx context.Context, search string) ([]models.Expense, error)
	ApproveExpense(ctx context.Context, id uuid.UUID) error
	// ExportExcel renders all expenses into an xlsx workbook.
	ExportExcel(ctx context.Context) ([]byte, error)
}

type ServiceImpl struct {
	logger  *zap.Logger
	repo    Repository
	cfg     *config.Config
	summary SummaryInvalidator
}

func NewService(repo Repository, cfg *config.Config, summary SummaryInvalidator, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, cfg: cfg, summary: summary}
}

func (s *ServiceImpl) validate(expense *models.Expense) error {
	if strings.TrimSpace(expense.Date) == "" || strings.TrimSpace(expense.Description) == "" {
		return fmt.Errorf("date and description are required: %w", models.ErrValidation)
	}
	if expense.Amount <= 0 {
		return fmt.Errorf("expense amount must be positive: %w", models.ErrValidation)
	}
	return s.validateBillImage(expense.BillImage)
}

// validateBillImage enforces the server-side decoded-size ceiling on the
// optional base64 bill image. The client compresses images down to the
// advertised policy, but the server never trusts that happened.
func (s *ServiceImpl) validateBillImage(image string) error {
	if image == "" {
		return nil
	}

	payload := image
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}

	maxBytes := s.cfg.BillImage.MaxUploadBytes
	if base64.StdEncoding.DecodedLen(len(payload)) > maxBytes {
		return fmt.Errorf("bill image exceeds %d bytes: %w", maxBytes, errBillImageTooLarge)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("bill image is not valid base64: %w", errBillImageMalformed)
	}
	return nil
}

func (s *ServiceImpl) AddExpense(ctx context.Context, session *models.Session, expense *models.Expense) (float64, error) {
	l := s.logger.With(zap.String("method", "AddExpense"), zap.String("email", session.Email))

	tracer := otel.Tracer("ExpenseFund")
	ctx, span := tracer.Start(ctx, "ExpenseService.AddExpense", trace.WithAttributes(
		attribute.Float64("amount", expense.Amount),
	))
	defer span.End()

	if err := s.validate(expense); err != nil {
		return 0, err
	}

	expense.Email = session.Email
	balance, err := s.repo.Create(ctx, expense)
	if err != nil {
		var balErr *models.BalanceError
		if errors.As(err, &balErr) {
			metrics.Get().InsufficientBalanceTotal.Add(ctx, 1)
			l.Info("Expense rejected for insufficient balance",
				zap.Float64("amount", expense.Amount),
				zap.Float64("available", balErr.Available))
			span.SetStatus(codes.Error, "Insufficient balance")
			return 0, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Expense insert failed")
		return 0, err
	}

	metrics.Get().BalanceOperationsTotal.Add(ctx, 1)
	if s.summary != nil {
		s.summary.Invalidate()
	}

	l.Info("Expense submitted", zap.Float64("amount", expense.Amount), zap.Float64("new_balance", balance))
	span.SetStatus(codes.Ok, "Expense submitted")
	return balance, nil
}

func (s *ServiceImpl) GetExpenses(ctx context.Context, session *models.Session, email string) ([]models.Expense, error) {
	if session.Role != models.RoleAdmin && session.Email != email {
		return nil, fmt.Errorf("cannot read another user's expenses: %w", models.ErrForbidden)
	}
	return s.repo.ListByEmail(ctx, email)
}

func (s *ServiceImpl) UpdateExpense(ctx context.Context, session *models.Session, expense *models.Expense) (float64, error) {
	l := s.logger.With(zap.String("method", "UpdateExpense"), zap.String("email", session.Email))

	if err := s.validate(expense); err != nil {
		return 0, err
	}

	balance, err := s.repo.Update(ctx, session.Email, expense)
	if err != nil {
		var balErr *models.BalanceError
		if errors.As(err, &balErr) {
			metrics.Get().InsufficientBalanceTotal.Add(ctx, 1)
		}
		return 0, err
	}

	metrics.Get().BalanceOperationsTotal.Add(ctx, 1)
	if s.summary != nil {
		s.summary.Invalidate()
	}
	l.Info("Expense updated", zap.String("expense_id", expense.ID.String()))
	return balance, nil
}

func (s *ServiceImpl) DeleteExpense(ctx context.Context, session *models.Session, id uuid.UUID) (float64, error) {
	l := s.logger.With(zap.String("method", "DeleteExpense"), zap.String("email", session.Email))

	balance, err := s.repo.Delete(ctx, session.Email, id)
	if err != nil {
		return 0, err
	}

	metrics.Get().BalanceOperationsTotal.Add(ctx, 1)
	if s.summary != nil {
		s.summary.Invalidate()
	}
	l.Info("Expense deleted", zap.String("expense_id", id.String()), zap.Float64("new_balance", balance))
	return balance, nil
}

func (s *ServiceImpl) GetAllExpenses(ctx context.Context, search string) ([]models.Expense, error) {
	expenses, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	expenses = FilterBySearch(expenses, search)
	SortByDate(expenses)
	return expenses, nil
}

func (s *ServiceImpl) ApproveExpense(ctx context.Context, id uuid.UUID) error {
	l := s.logger.With(zap.String("method", "ApproveExpense"), zap.String("expense_id", id.String()))

	tracer := otel.Tracer("ExpenseFund")
	ctx, span := tracer.Start(ctx, "ExpenseService.ApproveExpense")
	defer span.End()

	if err := s.repo.Approve(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Approval failed")
		return err
	}

	metrics.Get().ExpenseApprovalsTotal.Add(ctx, 1)
	l.Info("Expense approved")
	span.SetStatus(codes.Ok, "Expense approved")
	return nil
}
