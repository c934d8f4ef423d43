package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/database"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// GuestRepository 宾客仓储
type GuestRepository struct {
	db *gorm.DB
}

// NewGuestRepository 创建宾客仓储
func NewGuestRepository(db *gorm.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// Create 创建宾客
func (r *GuestRepository) Create(ctx context.Context, guest *models.Guest) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

// GetByID 根据 ID 获取宾客
func (r *GuestRepository) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	var guest models.Guest
	if err := r.db.WithContext(ctx).First(&guest, id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// GetByIDCard 根据证件号获取宾客
func (r *GuestRepository) GetByIDCard(ctx context.Context, idCard string) (*models.Guest, error) {
	var guest models.Guest
	if err := r.db.WithContext(ctx).Where("id_card_number = ?", idCard).First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// GetByUsername 根据登录名获取宾客
func (r *GuestRepository) GetByUsername(ctx context.Context, username string) (*models.Guest, error) {
	var guest models.Guest
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&guest).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// ExistsByIDCard 证件号是否已登记
func (r *GuestRepository) ExistsByIDCard(ctx context.Context, idCard string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Guest{}).
		Where("id_card_number = ? AND id <> ?", idCard, excludeID).
		Count(&count).Error
	return count > 0, err
}

// ExistsByUsername 登录名是否已被占用
func (r *GuestRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Guest{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// Update 更新宾客
func (r *GuestRepository) Update(ctx context.Context, guest *models.Guest) error {
	return r.db.WithContext(ctx).Save(guest).Error
}

// Delete 删除宾客
func (r *GuestRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Guest{}, id).Error
}

// List 获取宾客列表
func (r *GuestRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Guest, int64, error) {
	var guests []*models.Guest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Guest{})

	if name, ok := filters["name"].(string); ok && name != "" {
		query = query.Where("full_name LIKE ?", "%"+name+"%")
	}
	if phone, ok := filters["phone"].(string); ok && phone != "" {
		query = query.Where("phone = ?", phone)
	}
	if idCard, ok := filters["id_card_number"].(string); ok && idCard != "" {
		query = query.Where("id_card_number = ?", idCard)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Scopes(database.Paginate(offset, limit), database.OrderByCreatedDesc).Find(&guests).Error; err != nil {
		return nil, 0, err
	}
	return guests, total, nil
}

// SearchByName 按姓名模糊搜索
func (r *GuestRepository) SearchByName(ctx context.Context, name string) ([]*models.Guest, error) {
	var guests []*models.Guest
	err := r.db.WithContext(ctx).Where("full_name LIKE ?", "%"+name+"%").Order("id ASC").Find(&guests).Error
	return guests, err
}

// ListByPhone 按手机号查找
func (r *GuestRepository) ListByPhone(ctx context.Context, phone string) ([]*models.Guest, error) {
	var guests []*models.Guest
	err := r.db.WithContext(ctx).Where("phone = ?", phone).Order("id ASC").Find(&guests).Error
	return guests, err
}
