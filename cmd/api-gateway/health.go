package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/pkg/mqtt"
)

const probeTimeout = 3 * time.Second

var errDisconnected = errors.New("disconnected")

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// probe 依赖探测，required 为 false 时失败只体现在 checks 中，不影响就绪
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().Unix()})
}

func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// readinessProbes 数据库必须可用；Redis 启用后必须可用；MQTT 只做展示
func readinessProbes(db *gorm.DB, redisClient *redis.Client, mqttClient *mqtt.Client) []probe {
	probes := []probe{{
		name:     "database",
		required: true,
		check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		probes = append(probes, probe{
			name:     "redis",
			required: true,
			check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	if mqttClient != nil {
		probes = append(probes, probe{
			name: "mqtt",
			check: func(context.Context) error {
				if !mqttClient.IsConnected() {
					return errDisconnected
				}
				return nil
			},
		})
	}
	return probes
}

// readyHandler 就绪检查
func readyHandler(probes []probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			if err := p.check(ctx); err != nil {
				checks[p.name] = "error: " + err.Error()
				if p.required {
					ready = false
				}
				continue
			}
			checks[p.name] = "ok"
		}

		resp := HealthResponse{Status: "ready", Timestamp: time.Now().Unix(), Checks: checks}
		if !ready {
			resp.Status = "not ready"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
