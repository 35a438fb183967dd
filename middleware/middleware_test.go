package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestContext())
	r.GET("/ping", func(c *gin.Context) {
		client := service.ClientFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"requestId": client.RequestID,
			"sessionId": client.SessionID,
			"ip":        client.IPAddress,
			"path":      client.Path,
		})
	})

	t.Run("generated id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(SessionIDHeader, "sess-1")
		req.Header.Set("X-Real-IP", "203.0.113.7")
		w := serve(r, req)

		require.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Contains(t, w.Body.String(), `"requestId":"`+id+`"`)
		assert.Contains(t, w.Body.String(), `"sessionId":"sess-1"`)
		assert.Contains(t, w.Body.String(), `"ip":"203.0.113.7"`)
		assert.Contains(t, w.Body.String(), `"path":"/ping"`)
	})

	t.Run("caller id kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := serve(r, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(utils.CreateNotFoundError("Lead"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
		_ = c.Error(errors.New("late"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://site.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://site.example")
	w := serve(r, req)
	assert.Equal(t, "https://site.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	open := gin.New()
	open.Use(CORS([]string{"*"}))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://any.example")
	w = serve(open, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthMiddleware(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	r := gin.New()
	r.Use(AuthMiddleware(issuer))
	r.GET("/read", RequireCapability(utils.CapabilityLeadsRead), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/write", RequireCapability(utils.CapabilityLeadsWrite), func(c *gin.Context) { c.Status(http.StatusOK) })

	withToken := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return serve(r, req)
	}

	readOnly, _, err := issuer.GenerateToken("reporter", []string{utils.CapabilityLeadsRead})
	require.NoError(t, err)
	admin, _, err := issuer.GenerateToken("admin", utils.AdminCapabilities)
	require.NoError(t, err)
	foreign, _, err := utils.NewTokenIssuer("other", time.Hour).GenerateToken("admin", utils.AdminCapabilities)
	require.NoError(t, err)

	w := withToken("/read", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")

	w = withToken("/read", foreign)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")

	assert.Equal(t, http.StatusOK, withToken("/read", readOnly).Code)

	w = withToken("/write", readOnly)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Insufficient permissions","code":"INSUFFICIENT_PERMISSION"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, withToken("/write", admin).Code)
}

func TestRequireCapabilityWithoutAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireCapability(utils.CapabilityLeadsRead), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/api/leads", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusCreated) })

	post := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
		req.Header.Set("X-Real-IP", ip)
		return serve(r, req)
	}

	assert.Equal(t, http.StatusCreated, post("198.51.100.1").Code)
	assert.Equal(t, http.StatusCreated, post("198.51.100.1").Code)

	w := post("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests. Please try again later.")

	// 其他IP不受影响
	assert.Equal(t, http.StatusCreated, post("198.51.100.2").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusCreated, post("198.51.100.1").Code)
	assert.Len(t, limiter.visitors, 1)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.POST("/x", RateLimit(brokenLimiter{}), func(c *gin.Context) { c.Status(http.StatusCreated) })
	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRedisLimiter(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opt)
	defer client.Close()

	ctx := context.Background()
	prefix := "test:ratelimit:" + time.Now().Format("150405.000000") + ":"
	limiter := NewRedisLimiter(client, prefix, 2, time.Minute)

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestToInt64(t *testing.T) {
	n, err := toInt64(int64(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = toInt64("0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = toInt64(1.5)
	assert.Error(t, err)
}

type recorder struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func (r *recorder) LogAdminOperation(_ context.Context, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func TestOperationLoggerMiddleware(t *testing.T) {
	rec := &recorder{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(utils.ClaimsKey, &utils.Claims{})
		c.Next()
	})
	r.Use(OperationLoggerMiddleware(rec))
	r.GET("/api/leads/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PATCH("/api/leads/:id/status", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid lead status"})
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/api/leads/abc", nil))
	assert.Empty(t, rec.payloads)

	req := httptest.NewRequest(http.MethodPatch, "/api/leads/abc/status?x=1",
		strings.NewReader(`{"status":"vip","apiKey":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	serve(r, req)

	require.Len(t, rec.payloads, 1)
	got := rec.payloads[0]
	assert.Equal(t, http.MethodPatch, got["method"])
	assert.Equal(t, "/api/leads/:id/status", got["path"])
	assert.Equal(t, "abc", got["resourceId"])
	assert.Equal(t, "x=1", got["query"])
	assert.Equal(t, http.StatusBadRequest, got["statusCode"])
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "Invalid lead status", got["error"])

	body := got["requestBody"].(map[string]interface{})
	assert.Equal(t, "vip", body["status"])
	assert.Equal(t, "******", body["apiKey"])
}

func TestSanitizeData(t *testing.T) {
	in := map[string]interface{}{
		"password": "p",
		"nested":   map[string]interface{}{"token": "t", "keep": "k"},
		"list":     []interface{}{map[string]interface{}{"secret": "s"}},
	}
	out := sanitizeData(in).(map[string]interface{})
	assert.Equal(t, "******", out["password"])
	assert.Equal(t, "******", out["nested"].(map[string]interface{})["token"])
	assert.Equal(t, "k", out["nested"].(map[string]interface{})["keep"])
	assert.Equal(t, "******", out["list"].([]interface{})[0].(map[string]interface{})["secret"])
	assert.Nil(t, sanitizeData(nil))
	assert.Equal(t, "plain", sanitizeData("plain"))
}

func TestLoggerMasksPersonalData(t *testing.T) {
	var buf bytes.Buffer
	saved := utils.Logger
	utils.Logger = zerolog.New(&buf)
	defer func() { utils.Logger = saved }()

	r := gin.New()
	r.Use(Logger())
	r.POST("/api/leads", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"success": true, "id": "lead-1", "email": "ada@example.com"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/leads",
		strings.NewReader(`{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","phone":"+44 20 7946 0000","fuelTypes":["diesel"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "ada@example.com")

	logged := buf.String()
	assert.NotContains(t, logged, "ada@example.com")
	assert.NotContains(t, logged, "Lovelace")
	assert.NotContains(t, logged, "7946")
	assert.Contains(t, logged, "diesel")
	assert.Contains(t, logged, "lead-1")
}

func TestLoggableBody(t *testing.T) {
	assert.Nil(t, loggableBody(nil))
	assert.Equal(t, "[9 bytes]", loggableBody([]byte("not json!")))

	got := loggableBody([]byte(`{"apiKey":"k","items":[{"email":"a@b.c","status":"new"}]}`)).(map[string]interface{})
	assert.Equal(t, "******", got["apiKey"])
	item := got["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "******", item["email"])
	assert.Equal(t, "new", item["status"])
}
