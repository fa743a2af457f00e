package fund

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
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

type addFundRequest struct {
	SessionToken string  `json:"session_token"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
}

// AddFund appends a fund record. Admin-only; the route group enforces that,
// the attribution below just records who did it.
func (h *Handler) AddFund(c *gin.Context) {
	var req addFundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := middleware.GetSessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		return
	}

	fund := &models.Fund{
		Date:        req.Date,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if err := h.service.AddFund(c.Request.Context(), session.Email, fund); err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Valid date, amount and description are required"})
			return
		}
		h.logger.Error("AddFund failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add fund"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Fund added successfully"})
}

// GetAllFunds returns the full ledger, oldest first.
func (h *Handler) GetAllFunds(c *gin.Context) {
	funds, err := h.service.GetAllFunds(c.Request.Context())
	if err != nil {
		h.logger.Error("GetAllFunds failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch funds"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"funds": funds})
}
