package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/pkg/oss"
)

var pngData = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func setupUploadService(t *testing.T) (*UploadService, *oss.MockUploader, *models.Room) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Room{}))

	room := &models.Room{RoomNumber: "101", RoomType: "DELUXE", Price: 100, Capacity: 2, Status: models.RoomStatusAvailable, IsActive: true}
	require.NoError(t, db.Create(room).Error)

	uploader := oss.NewMockUploader()
	return NewUploadService(uploader, repository.NewRoomRepository(db)), uploader, room
}

func TestUploadRoomImage(t *testing.T) {
	ctx := context.Background()

	t.Run("上传并追加到房间", func(t *testing.T) {
		svc, uploader, room := setupUploadService(t)

		first, err := svc.UploadRoomImage(ctx, room.ID, "a.png", int64(len(pngData)), bytes.NewReader(pngData))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(first.URL, "https://mock-oss.example.com/rooms/101/"))
		assert.Len(t, uploader.Files, 1)

		second, err := svc.UploadRoomImage(ctx, room.ID, "b.png", int64(len(pngData)), bytes.NewReader(pngData))
		require.NoError(t, err)
		assert.Equal(t, []string{first.URL, second.URL}, second.Images)
	})

	t.Run("房间不存在", func(t *testing.T) {
		svc, _, _ := setupUploadService(t)
		_, err := svc.UploadRoomImage(ctx, 999, "a.png", 10, bytes.NewReader(pngData))
		assert.True(t, stderrors.Is(err, errors.ErrRoomNotFound))
	})

	t.Run("非图片文件", func(t *testing.T) {
		svc, uploader, room := setupUploadService(t)
		_, err := svc.UploadRoomImage(ctx, room.ID, "a.png", 5, strings.NewReader("hello"))
		assert.True(t, stderrors.Is(err, errors.ErrInvalidParams))
		assert.Empty(t, uploader.Files)
	})

	t.Run("超过大小限制", func(t *testing.T) {
		svc, _, room := setupUploadService(t)
		_, err := svc.UploadRoomImage(ctx, room.ID, "a.png", MaxImageSize+1, bytes.NewReader(pngData))
		assert.True(t, stderrors.Is(err, errors.ErrInvalidParams))
	})

	t.Run("存储不可用", func(t *testing.T) {
		svc, uploader, room := setupUploadService(t)
		uploader.Err = stderrors.New("bucket unavailable")
		_, err := svc.UploadRoomImage(ctx, room.ID, "a.png", int64(len(pngData)), bytes.NewReader(pngData))
		assert.True(t, stderrors.Is(err, errors.ErrExternalService))
	})
}
