// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/database"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// RoomRepository 房间仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// WithTx 绑定到事务
func (r *RoomRepository) WithTx(tx *gorm.DB) *RoomRepository {
	return &RoomRepository{db: tx}
}

// Create 创建房间
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// GetByID 根据 ID 获取房间
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetByRoomNumber 根据房间号获取房间
func (r *RoomRepository) GetByRoomNumber(ctx context.Context, roomNumber string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("room_number = ?", roomNumber).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// ExistsByRoomNumber 房间号是否已存在
func (r *RoomRepository) ExistsByRoomNumber(ctx context.Context, roomNumber string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("room_number = ? AND id <> ?", roomNumber, excludeID).
		Count(&count).Error
	return count > 0, err
}

// UpdateWithVersion 按版本号更新指定字段，版本不一致时返回 ErrVersionConflict
// 成功后同步 room 的版本号和字段
func (r *RoomRepository) UpdateWithVersion(ctx context.Context, room *models.Room, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND version = ?", room.ID, room.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrVersionConflict.WithMessage("房间已被其他操作修改")
	}
	room.Version++
	if status, ok := fields["status"].(string); ok {
		room.Status = status
	}
	return nil
}

// Delete 删除房间
func (r *RoomRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Room{}, id).Error
}

// List 获取房间列表
func (r *RoomRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Room, int64, error) {
	var rooms []*models.Room
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Room{})

	if roomType, ok := filters["room_type"].(string); ok && roomType != "" {
		query = query.Where("room_type = ?", roomType)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if isActive, ok := filters["is_active"].(bool); ok {
		query = query.Where("is_active = ?", isActive)
	}
	if floor, ok := filters["floor"].(int); ok {
		query = query.Where("floor = ?", floor)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Scopes(database.Paginate(offset, limit)).Order("room_number ASC").Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// ListActive 获取启用的房间
func (r *RoomRepository) ListActive(ctx context.Context) ([]*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("room_number ASC").Find(&rooms).Error
	return rooms, err
}

// ListByType 获取指定房型的房间
func (r *RoomRepository) ListByType(ctx context.Context, roomType string) ([]*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).Where("room_type = ?", roomType).Order("room_number ASC").Find(&rooms).Error
	return rooms, err
}

// ListAvailableByType 获取指定房型下启用且房态为空闲的房间，按房间号排序
func (r *RoomRepository) ListAvailableByType(ctx context.Context, roomType string) ([]*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).
		Where("room_type = ? AND status = ? AND is_active = ?", roomType, models.RoomStatusAvailable, true).
		Order("room_number ASC, id ASC").
		Find(&rooms).Error
	return rooms, err
}

// CountByStatus 按房态统计房间数
func (r *RoomRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountByType 按房型统计房间数
func (r *RoomRepository) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		RoomType string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Select("room_type, count(*) as count").
		Group("room_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.RoomType] = row.Count
	}
	return counts, nil
}

// AppendImage 追加房间图片
func (r *RoomRepository) AppendImage(ctx context.Context, room *models.Room, url string) error {
	images := append(models.StringList{}, room.Images...)
	images = append(images, url)
	if err := r.UpdateWithVersion(ctx, room, map[string]interface{}{"images": images}); err != nil {
		return err
	}
	room.Images = images
	return nil
}
