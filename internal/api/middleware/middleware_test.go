package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticValidator map[string]int64

func (v staticValidator) ValidateAccessToken(token string) (int64, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return 0, errors.New("invalid token")
}

func perform(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(Auth(staticValidator{"good": 42}))
	r.GET("/me", func(c *gin.Context) {
		id, ok := UserID(c)
		assert.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	w := perform(r, "GET", "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = perform(r, "GET", "/me", "", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, "GET", "/me", "", map[string]string{"Authorization": "bearer good"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), Logger())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := perform(r, "GET", "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(2, time.Hour))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, perform(r, "GET", "/", "", nil).Code)
	assert.Equal(t, http.StatusNoContent, perform(r, "GET", "/", "", nil).Code)
	w := perform(r, "GET", "/", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestRateLimiter_Refills(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, time.Second)
	rl.now = func() time.Time { return now }
	rl.lastTime = now

	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
	now = now.Add(time.Second)
	assert.True(t, rl.Allow())
}

func TestDeduplication(t *testing.T) {
	r := gin.New()
	r.Use(Deduplication(time.Hour))
	r.POST("/jobs", func(c *gin.Context) { c.Status(http.StatusCreated) })

	json := map[string]string{"Content-Type": "application/json", "Authorization": "Bearer a"}
	assert.Equal(t, http.StatusCreated, perform(r, "POST", "/jobs", `{"x":1}`, json).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, "POST", "/jobs", `{"x":1}`, json).Code)
	assert.Equal(t, http.StatusCreated, perform(r, "POST", "/jobs", `{"x":2}`, json).Code)

	other := map[string]string{"Content-Type": "application/json", "Authorization": "Bearer b"}
	assert.Equal(t, http.StatusCreated, perform(r, "POST", "/jobs", `{"x":1}`, other).Code)
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(4))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, "POST", "/", "too long", nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request body too large")
}
