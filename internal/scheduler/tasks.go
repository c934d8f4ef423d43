package scheduler

import (
	"context"
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
)

// 任务名
const (
	TaskReservationExpiry = "reservation_expiry"
	TaskOperationLogPurge = "operation_log_purge"
)

const purgeBatch = 500

// Expirer 过期预订清理
type Expirer interface {
	ExpireReservations(ctx context.Context) (int, error)
}

// LogPurger 审计日志清理
type LogPurger interface {
	PurgeBefore(ctx context.Context, before time.Time, batch int) (int64, error)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	expirer Expirer

	purger    LogPurger
	retention time.Duration
	now       func() time.Time
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(expirer Expirer) *TaskHandler {
	return &TaskHandler{expirer: expirer, now: time.Now}
}

// WithLogRetention 审计日志保留时长，超出的由 PurgeOperationLogs 清理
func (h *TaskHandler) WithLogRetention(purger LogPurger, retention time.Duration) *TaskHandler {
	h.purger = purger
	h.retention = retention
	return h
}

// ExpireReservations 取消入住日已过仍未入住的预订
func (h *TaskHandler) ExpireReservations(ctx context.Context) error {
	n, err := h.expirer.ExpireReservations(ctx)
	if n > 0 {
		logger.Ctx(ctx).Info("expired reservations cancelled", logger.Module("scheduler"), logger.Int("count", n))
	}
	return err
}

// PurgeOperationLogs 删除超过保留期的审计日志
func (h *TaskHandler) PurgeOperationLogs(ctx context.Context) error {
	if h.purger == nil || h.retention <= 0 {
		return nil
	}
	before := h.now().Add(-h.retention)
	n, err := h.purger.PurgeBefore(ctx, before, purgeBatch)
	if n > 0 {
		logger.Ctx(ctx).Info("operation logs purged",
			logger.Module("scheduler"),
			logger.Int64("count", n),
			logger.String("before", before.Format(time.RFC3339)),
		)
	}
	return err
}
