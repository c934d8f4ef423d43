// Package logger 日志模块单元测试
package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
)

func TestInit_Stdout(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			err := Init(&config.LoggerConfig{Level: "debug", Format: format, Output: "stdout", Caller: true})
			require.NoError(t, err)
			assert.NotNil(t, GetLogger())
		})
	}
}

func TestInit_FileJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init(&config.LoggerConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
		MaxSize:  1,
	}))

	Info("预订已确认", ReservationNo("R20261015000001"), RoomID(12))
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "预订已确认", entry["msg"])
	assert.Equal(t, "R20261015000001", entry["reservation_no"])
	assert.Equal(t, float64(12), entry["room_id"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogLevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "level.log")
	require.NoError(t, Init(&config.LoggerConfig{Level: "warn", Format: "json", Output: "file", FilePath: logFile}))

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "debug message")
	assert.NotContains(t, string(content), "info message")
	assert.Contains(t, string(content), "warn message")
	assert.Contains(t, string(content), "error message")
}

func TestBuild_Level(t *testing.T) {
	l, err := Build(&config.LoggerConfig{Format: "json"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = Build(&config.LoggerConfig{Level: "error"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = Build(&config.LoggerConfig{Level: "verbose"})
	assert.Error(t, err)
}

func TestInit_BothOutputs(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "both.log")
	require.NoError(t, Init(&config.LoggerConfig{Level: "info", Format: "json", Output: "both", FilePath: logFile}))

	Info("双写", Module("scheduler"))
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "scheduler")
}

func TestSetLogger_Observer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))

	Info("ignored")
	Warn("补录收款记录失败", ReservationID(7), Err(assert.AnError))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "补录收款记录失败", entry.Message)
	assert.Equal(t, int64(7), entry.ContextMap()["reservation_id"])
}

func TestFieldConstructorValues(t *testing.T) {
	assert.Equal(t, "request_id", RequestID("x").Key)
	assert.Equal(t, "staff_id", StaffID(1).Key)
	assert.Equal(t, "guest_id", GuestID(1).Key)
	assert.Equal(t, "transaction_id", TransactionID(3).Key)
	assert.Equal(t, int64(3), TransactionID(3).Integer)
	assert.Equal(t, "module", Module("reservation").Key)
	assert.Equal(t, "action", Action("check_in").Key)
	assert.Equal(t, "latency", Latency(time.Second).Key)
	assert.Equal(t, int64(404), StatusCode(404).Integer)
	assert.Equal(t, zap.String("k", "v"), String("k", "v"))
}

func TestCtx_AttachesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))

	ctx := NewContext(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFrom(ctx))
	Ctx(ctx).Info("房态已修改", RoomID(3))
	Ctx(context.Background()).Info("无请求")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
	assert.NotContains(t, logs.All()[1].ContextMap(), "request_id")

	assert.Equal(t, context.Background(), NewContext(context.Background(), ""))
	assert.Equal(t, "amount", Amount(1.5).Key)
	assert.Equal(t, "outcome", Outcome("SUCCESS").Key)
}
