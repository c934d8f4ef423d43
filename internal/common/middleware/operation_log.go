package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// OperationLogger 员工写操作日志
type OperationLogger struct {
	repo *repository.OperationLogRepository
}

// NewOperationLogger 创建操作日志中间件
func NewOperationLogger(repo *repository.OperationLogRepository) *OperationLogger {
	return &OperationLogger{repo: repo}
}

// OperationConfig 操作配置
type OperationConfig struct {
	Module     string
	Action     string
	TargetType string
}

// 路由到模块/操作的映射，路径不含 /api/admin 前缀
var moduleActionMap = map[string]OperationConfig{
	"POST /rooms":                           {Module: "room", Action: "create", TargetType: "room"},
	"PUT /rooms/:id":                        {Module: "room", Action: "update", TargetType: "room"},
	"PUT /rooms/:id/status":                 {Module: "room", Action: "update_status", TargetType: "room"},
	"DELETE /rooms/:id":                     {Module: "room", Action: "delete", TargetType: "room"},
	"POST /rooms/:id/images":                {Module: "room", Action: "upload_image", TargetType: "room"},
	"POST /guests":                          {Module: "guest", Action: "create", TargetType: "guest"},
	"PUT /guests/:id":                       {Module: "guest", Action: "update", TargetType: "guest"},
	"DELETE /guests/:id":                    {Module: "guest", Action: "delete", TargetType: "guest"},
	"POST /reservations":                    {Module: "reservation", Action: "create", TargetType: "reservation"},
	"PUT /reservations/:id":                 {Module: "reservation", Action: "update", TargetType: "reservation"},
	"DELETE /reservations/:id":              {Module: "reservation", Action: "delete", TargetType: "reservation"},
	"POST /reservations/:id/cancel":         {Module: "reservation", Action: "cancel", TargetType: "reservation"},
	"POST /reservations/:id/check-in":       {Module: "reservation", Action: "check_in", TargetType: "reservation"},
	"POST /reservations/:id/check-out":      {Module: "reservation", Action: "check_out", TargetType: "reservation"},
	"POST /reservations/:id/payments":       {Module: "payment", Action: "create_payment", TargetType: "reservation"},
	"POST /reservations/:id/refunds":        {Module: "payment", Action: "create_refund", TargetType: "reservation"},
	"POST /transactions/:id/outcome":        {Module: "payment", Action: "report_outcome", TargetType: "transaction"},
	"POST /transactions/:id/gateway-order":  {Module: "payment", Action: "gateway_order", TargetType: "transaction"},
	"POST /transactions/:id/gateway-refund": {Module: "payment", Action: "gateway_refund", TargetType: "transaction"},
	"POST /staff":                           {Module: "staff", Action: "create", TargetType: "staff"},
	"PUT /auth/password":                    {Module: "auth", Action: "change_password"},
}

// Log 操作日志中间件处理函数
func (l *OperationLogger) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只记录写操作
		if !l.shouldLog(c) {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		// 只记录成功的操作
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		log := l.buildLog(c, requestBody)
		if log == nil {
			return
		}
		// gin.Context 会被复用，异步写入前已取完所需数据
		go l.save(log)
	}
}

// shouldLog 判断是否需要记录日志
func (l *OperationLogger) shouldLog(c *gin.Context) bool {
	switch c.Request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return l.repo != nil
	}
	return false
}

func (l *OperationLogger) buildLog(c *gin.Context, requestBody []byte) *models.OperationLog {
	if middleware.GetUserType(c) != jwt.UserTypeStaff {
		return nil
	}
	staffID := middleware.GetUserID(c)
	if staffID == 0 {
		return nil
	}

	path := strings.TrimPrefix(c.FullPath(), "/api/admin")
	config, ok := moduleActionMap[c.Request.Method+" "+path]
	if !ok {
		config = defaultConfig(c.Request.Method, path)
	}

	ip := c.ClientIP()
	log := &models.OperationLog{
		OperatorID:   &staffID,
		OperatorType: models.OperatorTypeStaff,
		Module:       config.Module,
		Action:       config.Action,
		IP:           &ip,
	}
	if ua := c.Request.UserAgent(); ua != "" {
		log.UserAgent = &ua
	}
	if config.TargetType != "" {
		log.TargetType = &config.TargetType
		if id, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil {
			log.TargetID = &id
		}
	}

	if len(requestBody) > 0 {
		var data interface{}
		if err := json.Unmarshal(requestBody, &data); err == nil {
			if m, ok := filterSensitiveData(data).(map[string]interface{}); ok {
				log.Detail = m
			}
		}
	}
	return log
}

func (l *OperationLogger) save(log *models.OperationLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.repo.Create(ctx, log); err != nil {
		logger.Warn("operation log write failed",
			logger.Module(log.Module),
			logger.Action(log.Action),
			logger.Err(err),
		)
	}
}

// defaultConfig 未登记的路由按路径首段和方法推断
func defaultConfig(method, path string) OperationConfig {
	module := "unknown"
	if segs := strings.Split(strings.Trim(path, "/"), "/"); len(segs) > 0 && segs[0] != "" {
		module = strings.TrimSuffix(segs[0], "s")
	}

	action := "unknown"
	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	}
	return OperationConfig{Module: module, Action: action}
}

var sensitiveFields = []string{
	"password", "token", "secret", "api_key", "id_card",
}

// filterSensitiveData 过滤敏感字段
func filterSensitiveData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			lowerKey := strings.ToLower(key)
			sensitive := false
			for _, sf := range sensitiveFields {
				if strings.Contains(lowerKey, sf) {
					sensitive = true
					break
				}
			}
			if sensitive {
				result[key] = "***"
			} else {
				result[key] = filterSensitiveData(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = filterSensitiveData(item)
		}
		return result
	default:
		return data
	}
}
