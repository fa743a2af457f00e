package summary

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
)

var _ Service = (*ServiceImpl)(nil)

const summaryCacheKey = "fund-summary"

type Service interface {
	// GetSummary returns {total_fund, total_expenses, balance}, served from a
	// short-lived cache that every balance-affecting write invalidates.
	GetSummary(ctx context.Context) (*models.Summary, error)
	Invalidate()
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cache  *cache.Cache
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(30*time.Second, time.Minute),
	}
}

func (s *ServiceImpl) GetSummary(ctx context.Context) (*models.Summary, error) {
	if cached, found := s.cache.Get(summaryCacheKey); found {
		if summary, ok := cached.(*models.Summary); ok {
			return summary, nil
		}
	}

	var totalFund, totalExpenses float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totalFund, err = s.repo.TotalFund(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totalExpenses, err = s.repo.TotalExpenses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &models.Summary{
		TotalFund:     totalFund,
		TotalExpenses: totalExpenses,
		Balance:       totalFund - totalExpenses,
	}
	s.cache.SetDefault(summaryCacheKey, summary)
	return summary, nil
}

// Invalidate drops the cached summary. Called by the fund and expense
// services after every write that moves the balance.
func (s *ServiceImpl) Invalidate() {
	s.cache.Delete(summaryCacheKey)
}
