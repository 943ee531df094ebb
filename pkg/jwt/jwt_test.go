package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"animeshelf/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(expire time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "animeshelf", ExpireTime: expire})
}

func TestGenerateAndValidate(t *testing.T) {
	s := testService(time.Hour)

	token, err := s.GenerateToken(42, map[string]interface{}{"email": "a@b.c"})
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "a@b.c", claims.Data["email"])
}

func TestValidateRejectsExpiredAndForeign(t *testing.T) {
	expired, err := testService(-time.Minute).GenerateToken(1, nil)
	require.NoError(t, err)
	_, err = testService(time.Hour).ValidateToken(expired)
	assert.Error(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "other", Issuer: "animeshelf", ExpireTime: time.Hour})
	foreign, err := other.GenerateToken(1, nil)
	require.NoError(t, err)
	_, err = testService(time.Hour).ValidateToken(foreign)
	assert.Error(t, err)

	_, err = testService(time.Hour).GenerateToken(0, nil)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testService(time.Hour)
	r := gin.New()
	r.GET("/private", s.AuthMiddleware(), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	r.GET("/public", s.OptionalAuthMiddleware(), func(c *gin.Context) {
		_, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Contains(t, w.Body.String(), `"code":401`)

	token, err := s.GenerateToken(7, nil)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}
