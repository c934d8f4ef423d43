// Package retry 乐观锁冲突重试
package retry

import (
	"context"
	stderrors "errors"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
)

// DefaultAttempts 默认重试次数
const DefaultAttempts = 3

// IsConflict 是否为版本冲突
func IsConflict(err error) bool {
	return stderrors.Is(err, errors.ErrVersionConflict)
}

// OnConflict 执行 fn，遇到版本冲突时重新执行整个读-改-写单元
// fn 每次都必须重新读取最新数据；非冲突错误立即返回
// 重试耗尽后返回 ErrBookingConflict，由调用方决定是否稍后重试
func OnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil || !IsConflict(lastErr) {
			return lastErr
		}
		logger.Debug("版本冲突，重试", logger.Int("attempt", i+1), logger.Err(lastErr))
	}
	return errors.ErrBookingConflict.WithMessage("房间分配冲突，请稍后重试").WithError(lastErr)
}
