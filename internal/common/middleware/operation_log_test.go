package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

func setupOperationLogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&models.OperationLog{}))
	return db
}

func waitForOperationLog(t *testing.T, db *gorm.DB, where string, args ...interface{}) *models.OperationLog {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var log models.OperationLog
		err := db.Where(where, args...).Order("id DESC").First(&log).Error
		if err == nil {
			return &log
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("operation log not created: %s", where)
	return nil
}

func setupOperationLogRouter(db *gorm.DB, userType string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	op := NewOperationLogger(repository.NewOperationLogRepository(db))

	r := gin.New()
	admin := r.Group("/api/admin")
	admin.Use(func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, int64(7))
		c.Set(middleware.ContextKeyUserType, userType)
		c.Next()
	})
	admin.Use(op.Log())

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"code": 0}) }
	admin.POST("/reservations", ok)
	admin.POST("/reservations/:id/check-in", ok)
	admin.POST("/guests", ok)
	admin.POST("/housekeeping/tasks", ok)
	admin.GET("/rooms", ok)
	admin.PUT("/rooms/:id", func(c *gin.Context) { c.JSON(http.StatusConflict, gin.H{"code": 8008}) })
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOperationLogger_LogsStaffWriteOperations(t *testing.T) {
	db := setupOperationLogTestDB(t)
	r := setupOperationLogRouter(db, jwt.UserTypeStaff)

	w := doJSON(r, http.MethodPost, "/api/admin/reservations", map[string]interface{}{"guest_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	log := waitForOperationLog(t, db, "module = ? AND action = ?", "reservation", "create")
	require.NotNil(t, log.OperatorID)
	assert.Equal(t, int64(7), *log.OperatorID)
	assert.Equal(t, models.OperatorTypeStaff, log.OperatorType)
	require.NotNil(t, log.TargetType)
	assert.Equal(t, "reservation", *log.TargetType)
	assert.Nil(t, log.TargetID)

	w = doJSON(r, http.MethodPost, "/api/admin/reservations/42/check-in", map[string]interface{}{"collect_amount": 50})
	require.Equal(t, http.StatusOK, w.Code)
	log = waitForOperationLog(t, db, "action = ? AND target_id = ?", "check_in", 42)
	assert.Equal(t, "reservation", log.Module)
}

func TestOperationLogger_FiltersSensitiveFields(t *testing.T) {
	db := setupOperationLogTestDB(t)
	r := setupOperationLogRouter(db, jwt.UserTypeStaff)

	w := doJSON(r, http.MethodPost, "/api/admin/guests", map[string]interface{}{
		"full_name":      "张三",
		"id_card_number": "110101199001011234",
	})
	require.Equal(t, http.StatusOK, w.Code)

	log := waitForOperationLog(t, db, "module = ? AND action = ?", "guest", "create")
	assert.Equal(t, "张三", log.Detail["full_name"])
	assert.Equal(t, "***", log.Detail["id_card_number"])
}

func TestOperationLogger_DefaultConfig(t *testing.T) {
	db := setupOperationLogTestDB(t)
	r := setupOperationLogRouter(db, jwt.UserTypeStaff)

	w := doJSON(r, http.MethodPost, "/api/admin/housekeeping/tasks", map[string]interface{}{})
	require.Equal(t, http.StatusOK, w.Code)
	waitForOperationLog(t, db, "module = ? AND action = ?", "housekeeping", "create")
}

func TestOperationLogger_Skips(t *testing.T) {
	t.Run("读操作和失败的请求", func(t *testing.T) {
		db := setupOperationLogTestDB(t)
		r := setupOperationLogRouter(db, jwt.UserTypeStaff)

		doJSON(r, http.MethodGet, "/api/admin/rooms", nil)
		w := doJSON(r, http.MethodPut, "/api/admin/rooms/1", map[string]interface{}{"price": 1})
		require.Equal(t, http.StatusConflict, w.Code)

		time.Sleep(100 * time.Millisecond)
		var count int64
		require.NoError(t, db.Model(&models.OperationLog{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("非员工", func(t *testing.T) {
		db := setupOperationLogTestDB(t)
		r := setupOperationLogRouter(db, jwt.UserTypeGuest)

		w := doJSON(r, http.MethodPost, "/api/admin/reservations", map[string]interface{}{})
		require.Equal(t, http.StatusOK, w.Code)

		time.Sleep(100 * time.Millisecond)
		var count int64
		require.NoError(t, db.Model(&models.OperationLog{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, OperationConfig{Module: "room", Action: "delete"}, defaultConfig(http.MethodDelete, "/rooms/:id/images"))
	assert.Equal(t, OperationConfig{Module: "unknown", Action: "update"}, defaultConfig(http.MethodPatch, ""))
}
