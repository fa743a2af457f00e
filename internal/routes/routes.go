// Package routes wires the domain handlers onto the gin engine.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/domain/auth"
	"github.com/FACorreiaa/go-expensefund/internal/app/domain/expense"
	"github.com/FACorreiaa/go-expensefund/internal/app/domain/fund"
	"github.com/FACorreiaa/go-expensefund/internal/app/domain/summary"
	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/config"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/middleware"
)

type AppHandlers struct {
	Auth    *auth.Handler
	Fund    *fund.Handler
	Expense *expense.Handler
	Summary *summary.Handler

	Sessions middleware.SessionValidator
}

func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	handlers := setupDependencies(dbPool, cfg, log)
	setupRouter(r, handlers, cfg, log)
}

func setupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) *AppHandlers {
	// Repositories
	authRepo := auth.NewPostgresRepository(dbPool, log)
	fundRepo := fund.NewPostgresRepository(dbPool, log)
	expenseRepo := expense.NewPostgresRepository(dbPool, log)
	summaryRepo := summary.NewPostgresRepository(dbPool, log)

	// Services. The summary service doubles as the cache invalidator for the
	// two balance-affecting domains.
	authService := auth.NewService(authRepo, cfg, log)
	summaryService := summary.NewService(summaryRepo, log)
	fundService := fund.NewService(fundRepo, summaryService, log)
	expenseService := expense.NewService(expenseRepo, cfg, summaryService, log)

	return &AppHandlers{
		Auth:     auth.NewHandler(authService, log),
		Fund:     fund.NewHandler(fundService, log),
		Expense:  expense.NewHandler(expenseService, log),
		Summary:  summary.NewHandler(summaryService, log),
		Sessions: authService,
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, cfg *config.Config, log *zap.Logger) {
	// Public routes
	r.POST("/signup", h.Auth.Signup)
	r.POST("/login", h.Auth.Login)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/image-policy", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"max_size_kb":      cfg.BillImage.MaxSizeKB,
			"max_dimension_px": cfg.BillImage.MaxDimensionPX,
		})
	})

	// Session-gated routes. The middleware reads the token from the query
	// string on GETs and from the body on writes.
	authed := r.Group("/")
	authed.Use(middleware.SessionAuthMiddleware(h.Sessions, log))
	{
		authed.POST("/logout", h.Auth.Logout)
		authed.GET("/get-summary", h.Summary.GetSummary)
		authed.GET("/get-all-funds", h.Fund.GetAllFunds)
		authed.POST("/add-expense", h.Expense.AddExpense)
		authed.GET("/get-expenses/:email", h.Expense.GetExpenses)
		authed.PUT("/update-expense", h.Expense.UpdateExpense)
		authed.DELETE("/delete-expense", h.Expense.DeleteExpense)
	}

	// Admin-only routes
	admin := r.Group("/")
	admin.Use(middleware.SessionAuthMiddleware(h.Sessions, log), middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/add-fund", h.Fund.AddFund)
		admin.GET("/admin/get-all-expenses", h.Expense.GetAllExpenses)
		admin.POST("/admin/approve-expense", h.Expense.ApproveExpense)
		admin.GET("/admin/export-expenses-excel", h.Expense.ExportExcel)
	}
}
