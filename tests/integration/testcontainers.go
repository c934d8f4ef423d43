//go:build integration

// Package integration 基于 testcontainers-go 的 Postgres + Redis 集成测试环境
package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

const (
	postgresImage = "postgres:15-alpine"
	redisImage    = "redis:7-alpine"
	dbName        = "hotel_pms_test"
	dbUser        = "hotel"
	dbPassword    = "hotel_password"
)

// Env 已迁移的数据库和可用的 Redis
type Env struct {
	DB    *gorm.DB
	Redis *redis.Client

	containers []testcontainers.Container
}

// StartEnv 启动容器并迁移酒店表结构，失败时已启动的容器会被回收
func StartEnv(ctx context.Context) (env *Env, err error) {
	env = &Env{}
	defer func() {
		if err != nil {
			_ = env.Terminate(ctx)
		}
	}()

	pg, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage(postgresImage),
		tcPostgres.WithDatabase(dbName),
		tcPostgres.WithUsername(dbUser),
		tcPostgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	env.containers = append(env.containers, pg)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable", "TimeZone=Asia/Shanghai")
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	env.DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err = env.DB.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	rc, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage(redisImage),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start redis: %w", err)
	}
	env.containers = append(env.containers, rc)

	uri, err := rc.ConnectionString(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis uri: %w", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	env.Redis = redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = env.Redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return env, nil
}

// Terminate 关闭连接并回收容器
func (e *Env) Terminate(ctx context.Context) error {
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.DB != nil {
		if sqlDB, err := e.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	var errs []error
	for i := len(e.containers) - 1; i >= 0; i-- {
		if err := e.containers[i].Terminate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("terminate containers: %v", errs)
	}
	return nil
}
