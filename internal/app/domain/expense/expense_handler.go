package expense

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/middleware"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type addExpenseRequest struct {
	SessionToken string  `json:"session_token"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	BillImage    string  `json:"bill_image"`
}

type updateExpenseRequest struct {
	SessionToken string  `json:"session_token"`
	ExpenseID    string  `json:"expense_id"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Amount       float64 `json:"amount"`
	BillImage    string  `json:"bill_image"`
}

type expenseIDRequest struct {
	SessionToken string `json:"session_token"`
	ExpenseID    string `json:"expense_id"`
}

// respondError translates domain errors onto the wire contract. The
// insufficient-balance shape carries the available figure so the client can
// show it without a second round trip.
func (h *Handler) respondError(c *gin.Context, err error) {
	var balErr *models.BalanceError
	switch {
	case errors.As(err, &balErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "Insufficient balance",
			"available_balance": balErr.Available,
		})
	case errors.Is(err, errBillImageTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bill image is too large"})
	case errors.Is(err, errBillImageMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bill image must be valid base64"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid date, amount and description are required"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Expense is already disbursed"})
	default:
		h.logger.Error("Expense operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}

func (h *Handler) AddExpense(c *gin.Context) {
	var req addExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := middleware.GetSessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return
	}

	expense := &models.Expense{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
		BillImage:   req.BillImage,
	}
	balance, err := h.service.AddExpense(c.Request.Context(), session, expense)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Expense added successfully",
		"new_balance": balance,
	})
}

func (h *Handler) GetExpenses(c *gin.Context) {
	session := middleware.GetSessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return
	}

	expenses, err := h.service.GetExpenses(c.Request.Context(), session, c.Param("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (h *Handler) UpdateExpense(c *gin.Context) {
	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := middleware.GetSessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return
	}

	id, err := uuid.Parse(req.ExpenseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	expense := &models.Expense{
		ID:          id,
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
		BillImage:   req.BillImage,
	}
	balance, err := h.service.UpdateExpense(c.Request.Context(), session, expense)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Expense updated successfully",
		"new_balance": balance,
	})
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	var req expenseIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := middleware.GetSessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return
	}

	id, err := uuid.Parse(req.ExpenseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	balance, err := h.service.DeleteExpense(c.Request.Context(), session, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Expense deleted successfully",
		"new_balance": balance,
	})
}

// GetAllExpenses is the admin view: every expense with employee names, with
// the optional ?q= substring filter applied in memory.
func (h *Handler) GetAllExpenses(c *gin.Context) {
	expenses, err := h.service.GetAllExpenses(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

func (h *Handler) ApproveExpense(c *gin.Context) {
	var req expenseIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id, err := uuid.Parse(req.ExpenseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	if err := h.service.ApproveExpense(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense approved successfully"})
}

func (h *Handler) ExportExcel(c *gin.Context) {
	data, err := h.service.ExportExcel(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	c.Header("Content-Length", fmt.Sprintf("%d", len(data)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
