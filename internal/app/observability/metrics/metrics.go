package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal         metric.Int64Counter
	HTTPRequestDuration       metric.Float64Histogram
	AuthRequestsTotal         metric.Int64Counter
	BalanceOperationsTotal    metric.Int64Counter
	InsufficientBalanceTotal  metric.Int64Counter
	ExpenseApprovalsTotal     metric.Int64Counter
	DBQueryDurationSeconds    metric.Float64Histogram
	DBQueryErrorsTotal        metric.Int64Counter
	ExportDurationSeconds     metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once,
// against the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("expensefund")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.AuthRequestsTotal, err = meter.Int64Counter(
			"auth_requests_total",
			metric.WithDescription("Total number of authentication requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_requests_total: %v", err)
		}

		m.BalanceOperationsTotal, err = meter.Int64Counter(
			"balance_operations_total",
			metric.WithDescription("Total number of balance-affecting operations (fund additions, expense submissions, deletions)"),
			metric.WithUnit("{operation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create balance_operations_total: %v", err)
		}

		m.InsufficientBalanceTotal, err = meter.Int64Counter(
			"insufficient_balance_rejections_total",
			metric.WithDescription("Total number of expense submissions rejected for insufficient balance"),
			metric.WithUnit("{rejection}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create insufficient_balance_rejections_total: %v", err)
		}

		m.ExpenseApprovalsTotal, err = meter.Int64Counter(
			"expense_approvals_total",
			metric.WithDescription("Total number of expense approvals (PENDING to DISBURSED transitions)"),
			metric.WithUnit("{approval}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create expense_approvals_total: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.ExportDurationSeconds, err = meter.Float64Histogram(
			"export_duration_seconds",
			metric.WithDescription("Duration of Excel export generation in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create export_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance. Panics if
// InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
