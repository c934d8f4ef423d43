// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
)

// RateLimit 固定窗口限流，keyFunc 决定计数维度；缓存不可用或出错时放行
func RateLimit(c *cache.Cache, scope string, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !c.Enabled() || limit <= 0 {
			ctx.Next()
			return
		}

		key := cache.BuildKey(cache.KeyPrefixRateLimit, scope, keyFunc(ctx))
		count, err := c.IncrWindow(ctx.Request.Context(), key, window)
		if err != nil {
			logger.Warn("限流计数失败", logger.String("key", key), logger.Err(err))
			ctx.Next()
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if int(count) > limit {
			ctx.Header("X-RateLimit-Remaining", "0")
			ctx.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.TooManyRequests(ctx, "请求过于频繁，请稍后再试")
			ctx.Abort()
			return
		}
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		ctx.Next()
	}
}

// IPRateLimit 按客户端 IP 限流
func IPRateLimit(c *cache.Cache, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(c, "ip", limit, window, func(ctx *gin.Context) string {
		return ctx.ClientIP()
	})
}

// LoginRateLimit 登录接口按 IP + 路径限流
func LoginRateLimit(c *cache.Cache, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(c, "login", limit, window, func(ctx *gin.Context) string {
		return ctx.ClientIP() + ":" + ctx.FullPath()
	})
}
