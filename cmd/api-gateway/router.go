// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	commonMiddleware "github.com/dumeirei/hotel-pms-backend/internal/common/middleware"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
)

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	app *application,
) {
	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.CORS(&cfg.CORS))
	if cfg.Tracing.Enabled {
		r.Use(commonMiddleware.Tracing(cfg.Tracing.ServiceName, "/health", "/ping", "/ready", cfg.Metrics.Path))
	}
	if app.metrics != nil {
		r.Use(app.metrics.Middleware(cfg.Metrics.Path))
	}
	r.Use(middleware.AccessLog(logger, "/health", "/ping", "/ready", cfg.Metrics.Path))

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(readinessProbes(db, redisClient, app.mqttClient)))
	if app.metrics != nil {
		r.GET(cfg.Metrics.Path, app.metrics.Handler())
	}

	// Swagger 文档
	if !cfg.IsRelease() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	limit := func(n int) gin.HandlerFunc {
		if !cfg.RateLimit.Enabled || n <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.LoginRateLimit(app.cache, n, time.Minute)
	}

	// 宾客端 API
	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.IPRateLimit(app.cache, cfg.RateLimit.RequestsPerMinute, time.Minute))
	}
	{
		public := v1.Group("")
		public.Use(limit(cfg.RateLimit.LoginPerMinute))
		app.authH.RegisterRoutes(public)

		app.bookingH.RegisterPublicRoutes(v1)

		// 支付回调（需要验签，不需要认证）
		app.paymentH.RegisterCallbackRoutes(v1)

		guest := v1.Group("")
		guest.Use(middleware.GuestAuth(app.jwtManager))
		{
			app.authH.RegisterProtectedRoutes(guest)
			app.bookingH.RegisterRoutes(guest)
		}
	}

	// 员工后台 API
	admin := r.Group("/api/admin")
	{
		login := admin.Group("")
		login.Use(limit(cfg.RateLimit.LoginPerMinute))
		app.adminAuthH.RegisterRoutes(login)

		staff := admin.Group("")
		staff.Use(middleware.StaffAuth(app.jwtManager))
		staff.Use(app.opLogger.Log())
		{
			app.adminAuthH.RegisterProtectedRoutes(staff)
			app.roomH.RegisterRoutes(staff)
			app.guestH.RegisterRoutes(staff)
			app.reservationH.RegisterRoutes(staff)
			app.paymentH.RegisterRoutes(staff)
			app.uploadH.RegisterRoutes(staff)
			app.statisticsH.RegisterRoutes(staff)
			app.externalH.RegisterRoutes(staff)
			app.opLogH.RegisterRoutes(staff)
		}
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "接口不存在",
		})
	})
}
