package expense

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-expensefund/internal/app/models"
	"github.com/FACorreiaa/go-expensefund/internal/pkg/middleware"
)

func postAddExpense(t *testing.T, svc Service, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/add-expense", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.SessionContextKey, &models.Session{
		Token: uuid.New(),
		Email: "alice@corp.test",
		Role:  models.RoleEmployee,
	})

	NewHandler(svc, zap.NewNop()).AddExpense(c)
	return w
}

func TestAddExpenseHandler_BillImageMessages(t *testing.T) {
	t.Run("oversized image gets its own message", func(t *testing.T) {
		cfg := testConfig()
		cfg.BillImage.MaxUploadBytes = 16
		svc := NewService(new(MockRepository), cfg, nil, zap.NewNop())

		w := postAddExpense(t, svc, map[string]any{
			"date":        "2024-05-01",
			"description": "Receipt",
			"amount":      10,
			"bill_image":  base64.StdEncoding.EncodeToString(make([]byte, 64)),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Bill image is too large")
		assert.NotContains(t, w.Body.String(), "date, amount and description")
	})

	t.Run("malformed image gets its own message", func(t *testing.T) {
		svc := NewService(new(MockRepository), testConfig(), nil, zap.NewNop())

		w := postAddExpense(t, svc, map[string]any{
			"date":        "2024-05-01",
			"description": "Receipt",
			"amount":      10,
			"bill_image":  "%%%not-base64%%%",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Bill image must be valid base64")
	})

	t.Run("field validation keeps the generic message", func(t *testing.T) {
		svc := NewService(new(MockRepository), testConfig(), nil, zap.NewNop())

		w := postAddExpense(t, svc, map[string]any{
			"date":        "2024-05-01",
			"description": "Nothing",
			"amount":      -5,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Valid date, amount and description are required")
	})
}
