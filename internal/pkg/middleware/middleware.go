package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
)

// Typed context keys for values set by the session middleware.
const (
	SessionContextKey = "session"
	UserEmailKey      = "userEmail"
	UserRoleKey       = "userRole"
)

// SessionValidator is the slice of the auth service the middleware needs.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token uuid.UUID) (*models.Session, error)
}

// CORSMiddleware handles CORS headers.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// SecurityMiddleware adds security headers.
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// ExtractSessionToken pulls the opaque session token off the request using
// the transport the client actually uses: query parameter on reads, body
// field on writes. The body is re-buffered so handlers can still bind it.
func ExtractSessionToken(c *gin.Context) string {
	if token := c.Query("session_token"); token != "" {
		return token
	}

	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.SessionToken
}

// SessionAuthMiddleware validates the session token on every request and
// stores the resolved session in the gin context. No proactive expiry check
// happens anywhere else; a dead token fails here, on next use.
func SessionAuthMiddleware(sessions SessionValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractSessionToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session token missing"})
			return
		}

		token, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		session, err := sessions.ValidateSession(c.Request.Context(), token)
		if err != nil {
			logger.Debug("Session validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set(SessionContextKey, session)
		c.Set(UserEmailKey, session.Email)
		c.Set(UserRoleKey, string(session.Role))
		c.Next()
	}
}

// RequireRole gates a route group on the session role. Wrong role is a 403,
// not a 401: the session stays valid and the client keeps its local state.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSessionFromContext(c)
		if session == nil || session.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// GetSessionFromContext returns the session stored by SessionAuthMiddleware,
// or nil when the request was not authenticated.
func GetSessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(SessionContextKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}
