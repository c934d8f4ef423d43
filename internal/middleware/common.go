// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
)

// ContextKeyRequestID 请求 ID 上下文键
const ContextKeyRequestID = "request_id"

const (
	headerRequestID = "X-Request-ID"
	maxRequestIDLen = 64
)

// RequestID 沿用上游传入的请求 ID，缺失或不合法时生成新的
// 请求 ID 同时写入 gin 上下文、响应头和 request context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(headerRequestID, requestID)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), requestID))
		c.Next()
	}
}

// validRequestID 只接受字母、数字、'-'、'_'、'.'，避免污染日志
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// GetRequestID 获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// Recovery 捕获 panic，返回 500 并记录堆栈
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					logger.RequestID(GetRequestID(c)),
					logger.Method(c.Request.Method),
					logger.Path(c.Request.URL.Path),
					logger.String("route", c.FullPath()),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
					Code:    http.StatusInternalServerError,
					Message: "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// RealIP 使用代理头中的客户端地址，X-Real-IP 优先
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
			c.Request.RemoteAddr = ip
		} else if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			// 第一个地址是客户端
			first, _, _ := strings.Cut(xff, ",")
			c.Request.RemoteAddr = strings.TrimSpace(first)
		}
		c.Next()
	}
}
