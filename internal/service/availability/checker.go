// Package availability 房间日期冲突检测与按房型分配
package availability

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// Checker 可用性检查
type Checker struct {
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
}

// NewChecker 创建可用性检查
func NewChecker(reservationRepo *repository.ReservationRepository, roomRepo *repository.RoomRepository) *Checker {
	return &Checker{
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
	}
}

// WithTx 绑定到事务
func (c *Checker) WithTx(tx *gorm.DB) *Checker {
	return &Checker{
		reservationRepo: c.reservationRepo.WithTx(tx),
		roomRepo:        c.roomRepo.WithTx(tx),
	}
}

// Conflicts 返回房间在 [checkIn, checkOut) 内冲突的已确认/在住预订
// excludeID 为 0 表示不排除
func (c *Checker) Conflicts(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) ([]*models.Reservation, error) {
	if !checkOut.After(checkIn) {
		return nil, errors.ErrInvalidDateRange
	}
	reservations, err := c.reservationRepo.FindConflicting(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return reservations, nil
}

// Available 房间在区间内是否无冲突
func (c *Checker) Available(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	conflicts, err := c.Conflicts(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// FirstFit 在指定房型的空闲房间中按房间号顺序取第一间无冲突的
// 没有可用房间时返回 ErrNoAvailability
func (c *Checker) FirstFit(ctx context.Context, roomType string, checkIn, checkOut time.Time, excludeID int64) (*models.Room, error) {
	rooms, err := c.roomRepo.ListAvailableByType(ctx, roomType)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	for _, room := range rooms {
		ok, err := c.Available(ctx, room.ID, checkIn, checkOut, excludeID)
		if err != nil {
			return nil, err
		}
		if ok {
			return room, nil
		}
	}
	return nil, errors.ErrNoAvailability.WithMessage("房型 " + roomType + " 在所选日期无可用房间")
}

// AvailableRooms 启用且在区间内无冲突的全部房间
func (c *Checker) AvailableRooms(ctx context.Context, checkIn, checkOut time.Time) ([]*models.Room, error) {
	if !checkOut.After(checkIn) {
		return nil, errors.ErrInvalidDateRange
	}
	rooms, err := c.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	result := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.Status == models.RoomStatusMaintenance {
			continue
		}
		ok, err := c.Available(ctx, room.ID, checkIn, checkOut, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, room)
		}
	}
	return result, nil
}
