package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/dumeirei/hotel-pms-backend/internal/common/errors"
)

func TestOnConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("首次成功只执行一次", func(t *testing.T) {
		calls := 0
		err := OnConflict(ctx, 3, func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("冲突后重试成功", func(t *testing.T) {
		calls := 0
		err := OnConflict(ctx, 3, func(context.Context) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("update room: %w", appErrors.ErrVersionConflict)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("重试耗尽返回预订冲突", func(t *testing.T) {
		calls := 0
		err := OnConflict(ctx, 3, func(context.Context) error {
			calls++
			return appErrors.ErrVersionConflict
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.True(t, stderrors.Is(err, appErrors.ErrBookingConflict))
		assert.True(t, stderrors.Is(err, appErrors.ErrVersionConflict))
	})

	t.Run("业务错误不重试", func(t *testing.T) {
		calls := 0
		err := OnConflict(ctx, 3, func(context.Context) error {
			calls++
			return appErrors.ErrNoAvailability
		})
		assert.Equal(t, 1, calls)
		assert.True(t, stderrors.Is(err, appErrors.ErrNoAvailability))
	})

	t.Run("非正次数使用默认值", func(t *testing.T) {
		calls := 0
		_ = OnConflict(ctx, 0, func(context.Context) error {
			calls++
			return appErrors.ErrVersionConflict
		})
		assert.Equal(t, DefaultAttempts, calls)
	})

	t.Run("上下文已取消", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := OnConflict(cancelled, 3, func(context.Context) error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}
