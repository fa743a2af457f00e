package fund

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// SummaryInvalidator is the slice of the summary service the fund service
// needs: every fund addition stales the cached summary.
type SummaryInvalidator interface {
	Invalidate()
}

type Service interface {
	AddFund(ctx context.Context, adminEmail string, fund *models.Fund) error
	GetAllFunds(ctx context.Context) ([]models.Fund, error)
}

type ServiceImpl struct {
	logger  *zap.Logger
	repo    Repository
	summary SummaryInvalidator
}

func NewService(repo Repository, summary SummaryInvalidator, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, summary: summary}
}

// AddFund validates and appends a fund record on behalf of adminEmail.
func (s *ServiceImpl) AddFund(ctx context.Context, adminEmail string, fund *models.Fund) error {
	l := s.logger.With(zap.String("method", "AddFund"), zap.String("admin_email", adminEmail))

	tracer := otel.Tracer("ExpenseFund")
	ctx, span := tracer.Start(ctx, "FundService.AddFund", trace.WithAttributes(
		attribute.Float64("amount", fund.Amount),
	))
	defer span.End()

	if strings.TrimSpace(fund.Date) == "" || strings.TrimSpace(fund.Description) == "" {
		return fmt.Errorf("date and description are required: %w", models.ErrValidation)
	}
	if fund.Amount <= 0 {
		return fmt.Errorf("fund amount must be positive: %w", models.ErrValidation)
	}

	fund.AdminEmail = adminEmail
	if err := s.repo.Create(ctx, fund); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Fund insert failed")
		return err
	}

	metrics.Get().BalanceOperationsTotal.Add(ctx, 1)
	if s.summary != nil {
		s.summary.Invalidate()
	}

	l.Info("Fund added", zap.Float64("amount", fund.Amount))
	span.SetStatus(codes.Ok, "Fund added")
	return nil
}

func (s *ServiceImpl) GetAllFunds(ctx context.Context) ([]models.Fund, error) {
	return s.repo.List(ctx)
}
