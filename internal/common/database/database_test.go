// Package database 数据库模块单元测试
package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return testDB
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, getLogLevel(true))
	assert.Equal(t, gormlogger.Warn, getLogLevel(false))
}

func TestMigrate(t *testing.T) {
	testDB := openTestDB(t)
	require.NoError(t, Migrate(testDB))

	for _, table := range []string{"rooms", "guests", "reservations", "payment_transactions", "staff", "operation_logs"} {
		assert.True(t, testDB.Migrator().HasTable(table), table)
	}
}

func TestPaginate(t *testing.T) {
	testDB := openTestDB(t)
	require.NoError(t, Migrate(testDB))

	for i := 0; i < 25; i++ {
		require.NoError(t, testDB.Create(&models.Room{
			RoomNumber: fmt.Sprintf("%d", 100+i),
			RoomType:   "标准间",
			Price:      200,
			IsActive:   true,
		}).Error)
	}

	tests := []struct {
		name   string
		offset int
		limit  int
		want   int
	}{
		{"第一页", 0, 10, 10},
		{"最后一页", 20, 10, 5},
		{"负偏移量按 0 处理", -5, 10, 10},
		{"非法 limit 使用默认值", 0, 0, 10},
		{"超过上限截断为 100", 0, 1000, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rooms []models.Room
			require.NoError(t, testDB.Scopes(Paginate(tt.offset, tt.limit)).Find(&rooms).Error)
			assert.Len(t, rooms, tt.want)
		})
	}
}

func TestOrderByCreatedDesc(t *testing.T) {
	testDB := openTestDB(t)
	require.NoError(t, Migrate(testDB))

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, no := range []string{"101", "102", "103"} {
		require.NoError(t, testDB.Create(&models.Room{
			RoomNumber: no, RoomType: "大床房", Price: 300, IsActive: true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	var rooms []models.Room
	require.NoError(t, testDB.Scopes(OrderByCreatedDesc).Find(&rooms).Error)
	require.Len(t, rooms, 3)
	assert.Equal(t, "103", rooms[0].RoomNumber)
	assert.Equal(t, "101", rooms[2].RoomNumber)
}

func TestClose(t *testing.T) {
	old := db
	t.Cleanup(func() { db = old })

	db = nil
	assert.NoError(t, Close())

	db = openTestDB(t)
	assert.NoError(t, Close())
}
