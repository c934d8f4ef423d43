package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestManager() *jwt.Manager {
	return jwt.NewManager(&jwt.Config{
		Secret:            "middleware-test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 2 * time.Hour,
		Issuer:            "test",
	})
}

func token(t *testing.T, m *jwt.Manager, userType, role string) string {
	pair, err := m.GenerateTokenPair(jwt.Identity{UserID: 9, UserType: userType, Username: "u9", Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_PropagatesToContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var fromCtx string
	r.GET("/x", func(c *gin.Context) {
		fromCtx = logger.RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := serve(r, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-123", fromCtx)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), fromCtx)

	// 含非法字符时重新生成
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "bad id\ninjected")
	w = serve(r, req)
	assert.NotEqual(t, "bad id\ninjected", w.Header().Get("X-Request-ID"))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := newTestManager()
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/rooms/:id", StaffAuth(m), func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, logs.Len())

	serve(r, httptest.NewRequest(http.MethodGet, "/rooms/1", nil))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)

	req := httptest.NewRequest(http.MethodGet, "/rooms/1?full=1", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, m, jwt.UserTypeStaff, models.StaffRoleManager))
	serve(r, req)
	require.Equal(t, 2, logs.Len())
	fields := logs.All()[1].ContextMap()
	assert.Equal(t, "/rooms/:id", fields["route"])
	assert.Equal(t, "full=1", fields["query"])
	assert.Equal(t, int64(9), fields["staff_id"])
	assert.Equal(t, models.StaffRoleManager, fields["role"])
}

func TestAuth(t *testing.T) {
	m := newTestManager()
	r := gin.New()
	r.GET("/staff", StaffAuth(m), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetRole(c), "type": GetUserType(c)})
	})

	t.Run("缺少令牌", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/staff", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("无效令牌", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	})

	t.Run("宾客令牌", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, m, jwt.UserTypeGuest, ""))
		assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
	})

	t.Run("查询参数令牌", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/staff?token="+token(t, m, jwt.UserTypeStaff, models.StaffRoleManager), nil)
		w := serve(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), models.StaffRoleManager)
	})
}

func TestRequireRoles(t *testing.T) {
	m := newTestManager()
	r := gin.New()
	r.POST("/staff", StaffAuth(m), RequireRoles(models.StaffRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, m, jwt.UserTypeStaff, models.StaffRoleReceptionist))
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, m, jwt.UserTypeStaff, models.StaffRoleAdmin))
	assert.Equal(t, http.StatusCreated, serve(r, req).Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "服务器内部错误")
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var remote string
	r.GET("/ip", func(c *gin.Context) {
		remote = c.Request.RemoteAddr
	})

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.8, 172.16.0.1")
	serve(r, req)
	assert.Equal(t, "10.0.0.8", remote)

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	req.Header.Set("X-Forwarded-For", "10.0.0.8")
	serve(r, req)
	assert.Equal(t, "10.0.0.9", remote)
}

func TestIPRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	r := gin.New()
	r.Use(IPRateLimit(c, 2, time.Minute))
	r.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/rooms", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// 窗口过期后恢复
	mr.FastForward(time.Minute + time.Second)
	w = serve(r, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_DisabledCachePassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(IPRateLimit(cache.New(nil), 1, time.Minute))
	r.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/rooms", nil)).Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(&config.CORSConfig{
		AllowedOrigins:   []string{"https://pms.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.GET("/rooms", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/rooms", nil)
	req.Header.Set("Origin", "https://pms.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, "https://pms.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
