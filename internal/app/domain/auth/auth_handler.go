package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/middleware"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	SessionToken string `json:"session_token"`
}

// Signup registers a new account. The first admin is created the same way,
// with "role": "admin" in the payload.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.service.Signup(c.Request.Context(), req.Name, req.Email, req.Password, models.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		case errors.Is(err, models.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		default:
			h.logger.Error("Signup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Signup failed"})
		}
		metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1)
		return
	}

	metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1)
	c.JSON(http.StatusCreated, gin.H{"message": "Signup successful"})
}

// Login exchanges credentials for an opaque session token. Unknown email and
// wrong password are distinct failures on purpose; the frontend shows
// different messages for each.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, models.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect password"})
		default:
			h.logger.Error("Login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1)
		return
	}

	metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"session": session.Token.String(),
		"user": gin.H{
			"name":  user.Name,
			"email": user.Email,
			"role":  string(user.Role),
		},
	})
}

// Logout revokes the token server-side. Idempotent: logging out twice with
// the same token still returns 204.
func (h *Handler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.SessionToken == "" {
		req.SessionToken = middleware.ExtractSessionToken(c)
	}

	token, err := uuid.Parse(req.SessionToken)
	if err != nil {
		// Nothing to revoke; the client forgets its state either way.
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
