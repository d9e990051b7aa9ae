package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupProtectedRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/protected", InternalToken(token), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestInternalTokenAccepted(t *testing.T) {
	router := setupProtectedRouter("secret")

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestInternalTokenRejected(t *testing.T) {
	router := setupProtectedRouter("secret")

	for _, header := range []string{"", "Bearer wrong", "Basic secret"} {
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestInternalTokenDisabledWhenEmpty(t *testing.T) {
	router := setupProtectedRouter("")

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}
