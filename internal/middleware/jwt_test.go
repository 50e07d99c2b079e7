package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wave_back_end/internal/models"
	"wave_back_end/internal/utils"
)

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("role"),
		})
	})
	r.GET("/admin", AuthRequired(), RequireAdmin, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func requestWithToken(t *testing.T, r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	r := protectedRouter()

	token, err := utils.GenerateJWT(models.User{ID: "u-123", Email: "bat@example.mn", Role: models.RoleUser})
	require.NoError(t, err)

	w := requestWithToken(t, r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-123")
}

func TestAuthRequiredRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := protectedRouter()

	w := requestWithToken(t, r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = requestWithToken(t, r, "/me", "pas.un.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredRejectsWrongSignature(t *testing.T) {
	r := protectedRouter()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-123",
		"email":   "bat@example.mn",
		"role":    models.RoleAdmin,
	})
	signed, err := token.SignedString([]byte("autre_secret"))
	require.NoError(t, err)

	w := requestWithToken(t, r, "/me", signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdminBlocksRegularUsers(t *testing.T) {
	r := protectedRouter()

	userToken, err := utils.GenerateJWT(models.User{ID: "u-123", Email: "bat@example.mn", Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, err := utils.GenerateJWT(models.User{ID: "a-1", Email: "admin@wavefashion.mn", Role: models.RoleAdmin})
	require.NoError(t, err)

	w := requestWithToken(t, r, "/admin", userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = requestWithToken(t, r, "/admin", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}
