package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/vintagehub/market-api/internal/auth"
)

type stubVerifier struct{}

func (stubVerifier) VerifyAccess(token string) (string, error) {
	switch token {
	case "good-token":
		return "USR_test", nil
	case "refresh-token":
		return "", auth.ErrWrongTokenKind
	default:
		return "", auth.ErrInvalidToken
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAuth(stubVerifier{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return router
}

func doRequest(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, "Bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "USR_test")

	// Scheme matching is case insensitive
	w = doRequest(router, "bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthRejections(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Not authenticated")

	w = doRequest(router, "Token good-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Not authenticated")

	w = doRequest(router, "Bearer refresh-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token type")

	w = doRequest(router, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}
