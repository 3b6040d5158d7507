package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func testContext(method string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)
	return c, w
}

func TestSuccessStatusByMethod(t *testing.T) {
	c, w := testContext(http.MethodGet)
	Success(c, gin.H{"ok": true})
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = testContext(http.MethodPost)
	Success(c, gin.H{"ok": true})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestOKIgnoresMethod(t *testing.T) {
	c, w := testContext(http.MethodPost)
	OK(c, gin.H{"received": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestHandleMapsErrors(t *testing.T) {
	c, w := testContext(http.MethodGet)
	Handle(c, nil, gorm.ErrRecordNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeNotFound)

	c, w = testContext(http.MethodGet)
	Handle(c, nil, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeInternalError)

	c, w = testContext(http.MethodGet)
	Handle(c, gin.H{"fine": true}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
