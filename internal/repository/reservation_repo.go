package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-pms-backend/internal/common/database"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// ReservationRepository 预订仓储
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预订仓储
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx 绑定到事务
func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// Create 创建预订，不级联写入宾客和房间
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(reservation).Error
}

// GetByID 根据 ID 获取预订
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetByIDWithDetails 根据 ID 获取预订（包含宾客和房间）
func (r *ReservationRepository) GetByIDWithDetails(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Guest").
		Preload("Room").
		First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetByReservationNo 根据预订号获取预订
func (r *ReservationRepository) GetByReservationNo(ctx context.Context, reservationNo string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Guest").
		Preload("Room").
		Where("reservation_no = ?", reservationNo).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindConflicting 查找与 [checkIn, checkOut) 冲突的有效预订
// 入住日或离店日恰好相同也视为冲突，不允许同日翻台
func (r *ReservationRepository) FindConflicting(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("status IN ?", models.ActiveReservationStatuses).
		Where("((check_in_date < ? AND check_out_date > ?) OR check_in_date = ? OR check_out_date = ?)",
			checkOut, checkIn, checkIn, checkOut).
		Where("id <> ?", excludeID).
		Order("check_in_date ASC").
		Find(&reservations).Error
	return reservations, err
}

// UpdateWithVersion 按版本号更新指定字段，版本不一致时返回 ErrVersionConflict
func (r *ReservationRepository) UpdateWithVersion(ctx context.Context, reservation *models.Reservation, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ? AND version = ?", reservation.ID, reservation.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrVersionConflict.WithMessage("预订已被其他操作修改")
	}
	reservation.Version++
	return nil
}

// Delete 删除预订
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Reservation{}, id).Error
}

// List 获取预订列表
func (r *ReservationRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Reservation, int64, error) {
	var reservations []*models.Reservation
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Reservation{})

	if guestID, ok := filters["guest_id"].(int64); ok && guestID > 0 {
		query = query.Where("guest_id = ?", guestID)
	}
	if roomID, ok := filters["room_id"].(int64); ok && roomID > 0 {
		query = query.Where("room_id = ?", roomID)
	}
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if statuses, ok := filters["statuses"].([]string); ok && len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if reservationNo, ok := filters["reservation_no"].(string); ok && reservationNo != "" {
		query = query.Where("reservation_no LIKE ?", "%"+reservationNo+"%")
	}
	if startDate, ok := filters["start_date"].(time.Time); ok {
		query = query.Where("check_in_date >= ?", startDate)
	}
	if endDate, ok := filters["end_date"].(time.Time); ok {
		query = query.Where("check_in_date <= ?", endDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Room").
		Scopes(database.Paginate(offset, limit), database.OrderByCreatedDesc).
		Find(&reservations).Error; err != nil {
		return nil, 0, err
	}

	return reservations, total, nil
}

// ListByGuest 获取宾客的预订列表
func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID int64, offset, limit int, status *string) ([]*models.Reservation, int64, error) {
	filters := map[string]interface{}{
		"guest_id": guestID,
	}
	if status != nil {
		filters["status"] = *status
	}
	return r.List(ctx, offset, limit, filters)
}

// ListByRoom 获取房间的预订列表
func (r *ReservationRepository) ListByRoom(ctx context.Context, roomID int64, offset, limit int) ([]*models.Reservation, int64, error) {
	return r.List(ctx, offset, limit, map[string]interface{}{"room_id": roomID})
}

// ListByStatus 按状态获取预订列表
func (r *ReservationRepository) ListByStatus(ctx context.Context, status string, offset, limit int) ([]*models.Reservation, int64, error) {
	return r.List(ctx, offset, limit, map[string]interface{}{"status": status})
}

// ListByCheckInRange 入住日期落在 [start, end] 的预订
func (r *ReservationRepository) ListByCheckInRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("check_in_date >= ? AND check_in_date <= ?", start, end).
		Order("check_in_date ASC, id ASC").
		Find(&reservations).Error
	return reservations, err
}

// ListExpired 入住日早于 today 仍未入住的待支付/已确认预订
func (r *ReservationRepository) ListExpired(ctx context.Context, today time.Time, limit int) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	query := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.ReservationStatusPending, models.ReservationStatusConfirmed}).
		Where("check_in_date < ?", today).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reservations).Error
	return reservations, err
}

// ExistsByGuest 宾客是否有预订
func (r *ReservationRepository) ExistsByGuest(ctx context.Context, guestID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("guest_id = ?", guestID).Count(&count).Error
	return count > 0, err
}

// ExistsByRoom 房间是否有预订
func (r *ReservationRepository) ExistsByRoom(ctx context.Context, roomID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("room_id = ?", roomID).Count(&count).Error
	return count > 0, err
}

// CountActiveByRoom 房间上除 excludeID 外仍占用房间的预订数
func (r *ReservationRepository) CountActiveByRoom(ctx context.Context, roomID int64, excludeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("room_id = ? AND id <> ?", roomID, excludeID).
		Where("status IN ?", models.ActiveReservationStatuses).
		Count(&count).Error
	return count, err
}

// CountByStatusAndCheckIn 指定入住日、指定状态的预订数
func (r *ReservationRepository) CountByStatusAndCheckIn(ctx context.Context, status string, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("status = ? AND check_in_date = ?", status, date).
		Count(&count).Error
	return count, err
}

// CountByStatusAndCheckOut 指定离店日、指定状态的预订数
func (r *ReservationRepository) CountByStatusAndCheckOut(ctx context.Context, status string, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("status = ? AND check_out_date = ?", status, date).
		Count(&count).Error
	return count, err
}

// CountCreatedBetween 创建时间落在 [start, end) 的预订数
func (r *ReservationRepository) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}

// SumPaidCreatedBetween 创建时间落在 [start, end) 的预订已付金额合计
func (r *ReservationRepository) SumPaidCreatedBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Select("COALESCE(SUM(paid_amount), 0)").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&sum).Error
	return sum, err
}
