package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/limited", RateLimit(1, 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(remoteAddr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = remoteAddr
		router.ServeHTTP(w, req)
		return w.Code
	}

	// The burst admits two requests, the third is rejected.
	assert.Equal(t, http.StatusOK, do("10.1.1.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.1.1.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.1.1.1:1000"))

	// Buckets are per client IP.
	assert.Equal(t, http.StatusOK, do("10.1.1.2:1000"))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.1.1.1", clientIP("10.1.1.1:1234"))
	assert.Equal(t, "bare-host", clientIP("bare-host"))
}
