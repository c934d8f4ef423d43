package repository

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func TestRoomRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := createTestRoom(t, db, "101", "DELUXE", 300)

	t.Run("按 ID 获取", func(t *testing.T) {
		found, err := repo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, "101", found.RoomNumber)
		assert.Equal(t, 300.0, found.Price)
	})

	t.Run("按房间号获取", func(t *testing.T) {
		found, err := repo.GetByRoomNumber(ctx, "101")
		require.NoError(t, err)
		assert.Equal(t, room.ID, found.ID)

		_, err = repo.GetByRoomNumber(ctx, "999")
		assert.Error(t, err)
	})

	t.Run("房间号唯一性检查排除自身", func(t *testing.T) {
		exists, err := repo.ExistsByRoomNumber(ctx, "101", 0)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByRoomNumber(ctx, "101", room.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestRoomRepository_UpdateWithVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := createTestRoom(t, db, "201", "STANDARD", 200)
	stale := *room

	t.Run("版本一致时更新成功并递增版本号", func(t *testing.T) {
		err := repo.UpdateWithVersion(ctx, room, map[string]interface{}{"status": models.RoomStatusReserved})
		require.NoError(t, err)
		assert.Equal(t, 1, room.Version)
		assert.Equal(t, models.RoomStatusReserved, room.Status)

		found, err := repo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.Version)
		assert.Equal(t, models.RoomStatusReserved, found.Status)
	})

	t.Run("旧快照写入返回版本冲突", func(t *testing.T) {
		err := repo.UpdateWithVersion(ctx, &stale, map[string]interface{}{"status": models.RoomStatusOccupied})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrVersionConflict))

		found, err := repo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusReserved, found.Status)
	})
}

func TestRoomRepository_ListAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	createTestRoom(t, db, "102", "DELUXE", 300)
	createTestRoom(t, db, "101", "DELUXE", 300)
	occupied := createTestRoom(t, db, "201", "STANDARD", 200)
	require.NoError(t, db.Model(occupied).Update("status", models.RoomStatusOccupied).Error)
	inactive := createTestRoom(t, db, "301", "DELUXE", 300)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	t.Run("按房型筛选", func(t *testing.T) {
		rooms, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"room_type": "DELUXE"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, rooms, 3)
		assert.Equal(t, "101", rooms[0].RoomNumber)
	})

	t.Run("按启用状态筛选", func(t *testing.T) {
		_, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"is_active": false})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("同房型空闲房间按房间号排序且排除停用", func(t *testing.T) {
		rooms, err := repo.ListAvailableByType(ctx, "DELUXE")
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "101", rooms[0].RoomNumber)
		assert.Equal(t, "102", rooms[1].RoomNumber)
	})

	t.Run("按房态统计", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts[models.RoomStatusAvailable])
		assert.Equal(t, int64(1), counts[models.RoomStatusOccupied])
	})

	t.Run("按房型统计", func(t *testing.T) {
		counts, err := repo.CountByType(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts["DELUXE"])
		assert.Equal(t, int64(1), counts["STANDARD"])
	})

	t.Run("启用房间", func(t *testing.T) {
		rooms, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, rooms, 3)
	})
}

func TestRoomRepository_AppendImage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	room := createTestRoom(t, db, "501", "SUITE", 800)
	require.NoError(t, repo.AppendImage(ctx, room, "https://cdn.example.com/rooms/501/a.jpg"))
	require.NoError(t, repo.AppendImage(ctx, room, "https://cdn.example.com/rooms/501/b.jpg"))

	found, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, found.Images, 2)
	assert.Equal(t, 2, found.Version)
}
