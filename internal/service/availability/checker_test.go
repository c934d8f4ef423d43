package availability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

type fixture struct {
	db      *gorm.DB
	checker *Checker
	guest   *models.Guest
}

func setup(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	guest := &models.Guest{FullName: "张三", IDCardNumber: "110101199001011234"}
	require.NoError(t, db.Create(guest).Error)

	return &fixture{
		db:      db,
		checker: NewChecker(repository.NewReservationRepository(db), repository.NewRoomRepository(db)),
		guest:   guest,
	}
}

func (f *fixture) room(t *testing.T, number, roomType, status string) *models.Room {
	room := &models.Room{RoomNumber: number, RoomType: roomType, Price: 200, Capacity: 2, Status: status, IsActive: true}
	require.NoError(t, f.db.Create(room).Error)
	return room
}

func (f *fixture) book(t *testing.T, roomID int64, in, out, status string) *models.Reservation {
	reservation := &models.Reservation{
		ReservationNo: utils.GenerateNo("R"),
		GuestID:       f.guest.ID,
		RoomID:        &roomID,
		CheckInDate:   d(in),
		CheckOutDate:  d(out),
		Status:        status,
		Source:        models.ReservationSourceDirect,
	}
	require.NoError(t, f.db.Omit("Guest", "Room").Create(reservation).Error)
	return reservation
}

func d(s string) time.Time {
	t, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestChecker_Conflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	room := f.room(t, "101", "DELUXE", models.RoomStatusReserved)
	existing := f.book(t, room.ID, "2026-11-10", "2026-11-13", models.ReservationStatusConfirmed)

	t.Run("重叠", func(t *testing.T) {
		conflicts, err := f.checker.Conflicts(ctx, room.ID, d("2026-11-12"), d("2026-11-14"), 0)
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, existing.ID, conflicts[0].ID)
	})

	t.Run("首尾相接视为冲突", func(t *testing.T) {
		ok, err := f.checker.Available(ctx, room.ID, d("2026-11-10"), d("2026-11-11"), 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("排除自身后可用", func(t *testing.T) {
		ok, err := f.checker.Available(ctx, room.ID, d("2026-11-10"), d("2026-11-13"), existing.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("无效区间", func(t *testing.T) {
		_, err := f.checker.Conflicts(ctx, room.ID, d("2026-11-13"), d("2026-11-13"), 0)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidDateRange))
	})
}

func TestChecker_FirstFit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r101 := f.room(t, "101", "DELUXE", models.RoomStatusAvailable)
	r102 := f.room(t, "102", "DELUXE", models.RoomStatusAvailable)
	f.room(t, "103", "DELUXE", models.RoomStatusMaintenance)
	f.room(t, "201", "STANDARD", models.RoomStatusAvailable)

	t.Run("按房间号顺序取第一间", func(t *testing.T) {
		room, err := f.checker.FirstFit(ctx, "DELUXE", d("2026-11-01"), d("2026-11-03"), 0)
		require.NoError(t, err)
		assert.Equal(t, r101.ID, room.ID)
	})

	t.Run("跳过有冲突的房间", func(t *testing.T) {
		f.book(t, r101.ID, "2026-11-02", "2026-11-04", models.ReservationStatusConfirmed)
		room, err := f.checker.FirstFit(ctx, "DELUXE", d("2026-11-01"), d("2026-11-03"), 0)
		require.NoError(t, err)
		assert.Equal(t, r102.ID, room.ID)
	})

	t.Run("全部冲突返回无可用房间", func(t *testing.T) {
		f.book(t, r102.ID, "2026-11-01", "2026-11-05", models.ReservationStatusCheckedIn)
		_, err := f.checker.FirstFit(ctx, "DELUXE", d("2026-11-01"), d("2026-11-03"), 0)
		assert.True(t, stderrors.Is(err, errors.ErrNoAvailability))
	})

	t.Run("未知房型", func(t *testing.T) {
		_, err := f.checker.FirstFit(ctx, "PRESIDENTIAL", d("2026-11-01"), d("2026-11-03"), 0)
		assert.True(t, stderrors.Is(err, errors.ErrNoAvailability))
	})
}

func TestChecker_AvailableRooms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	free := f.room(t, "101", "DELUXE", models.RoomStatusAvailable)
	busy := f.room(t, "102", "DELUXE", models.RoomStatusReserved)
	f.room(t, "103", "DELUXE", models.RoomStatusMaintenance)
	f.book(t, busy.ID, "2026-11-01", "2026-11-03", models.ReservationStatusConfirmed)

	rooms, err := f.checker.AvailableRooms(ctx, d("2026-11-02"), d("2026-11-04"))
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, free.ID, rooms[0].ID)

	rooms, err = f.checker.AvailableRooms(ctx, d("2026-11-05"), d("2026-11-06"))
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}
