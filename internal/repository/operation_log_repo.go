package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/database"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// OperationLogRepository 审计日志仓储
type OperationLogRepository struct {
	db *gorm.DB
}

// NewOperationLogRepository 创建审计日志仓储
func NewOperationLogRepository(db *gorm.DB) *OperationLogRepository {
	return &OperationLogRepository{db: db}
}

// OperationLogFilter 审计日志筛选条件，零值字段不参与筛选
type OperationLogFilter struct {
	OperatorID   int64
	OperatorType string
	Module       string
	Action       string
	TargetType   string
	TargetID     int64
	Since        time.Time // 含
	Until        time.Time // 不含
}

func (f OperationLogFilter) apply(db *gorm.DB) *gorm.DB {
	if f.OperatorID > 0 {
		db = db.Where("operator_id = ?", f.OperatorID)
	}
	if f.OperatorType != "" {
		db = db.Where("operator_type = ?", f.OperatorType)
	}
	if f.Module != "" {
		db = db.Where("module = ?", f.Module)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	if f.TargetType != "" {
		db = db.Where("target_type = ?", f.TargetType)
	}
	if f.TargetID > 0 {
		db = db.Where("target_id = ?", f.TargetID)
	}
	if !f.Since.IsZero() {
		db = db.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		db = db.Where("created_at < ?", f.Until)
	}
	return db
}

// Create 写入审计日志
func (r *OperationLogRepository) Create(ctx context.Context, log *models.OperationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List 审计日志列表，新的在前
func (r *OperationLogRepository) List(ctx context.Context, filter OperationLogFilter, offset, limit int) ([]*models.OperationLog, int64, error) {
	var (
		logs  []*models.OperationLog
		total int64
	)
	query := filter.apply(r.db.WithContext(ctx).Model(&models.OperationLog{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id DESC").Scopes(database.Paginate(offset, limit)).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListByTarget 某个对象的审计轨迹，按发生顺序
func (r *OperationLogRepository) ListByTarget(ctx context.Context, targetType string, targetID int64) ([]*models.OperationLog, error) {
	var logs []*models.OperationLog
	err := OperationLogFilter{TargetType: targetType, TargetID: targetID}.
		apply(r.db.WithContext(ctx)).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

// CountByAction 按动作计数
func (r *OperationLogRepository) CountByAction(ctx context.Context, filter OperationLogFilter) (map[string]int64, error) {
	var rows []struct {
		Action string
		Count  int64
	}
	err := filter.apply(r.db.WithContext(ctx).Model(&models.OperationLog{})).
		Select("action, count(*) AS count").
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Count
	}
	return counts, nil
}

// PurgeBefore 分批删除 before 之前的日志，返回删除总数
func (r *OperationLogRepository) PurgeBefore(ctx context.Context, before time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 1000
	}
	var purged int64
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		ids := r.db.WithContext(ctx).Model(&models.OperationLog{}).
			Select("id").
			Where("created_at < ?", before).
			Order("id ASC").
			Limit(batch)
		result := r.db.WithContext(ctx).Where("id IN (?)", ids).Delete(&models.OperationLog{})
		if result.Error != nil {
			return purged, result.Error
		}
		purged += result.RowsAffected
		if result.RowsAffected < int64(batch) {
			return purged, nil
		}
	}
}
