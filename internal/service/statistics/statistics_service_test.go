package statistics

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	svc   *StatisticsService
	guest *models.Guest
}

func setup(t *testing.T, withCache bool) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Room{}, &models.Guest{}, &models.Reservation{}))

	guest := &models.Guest{FullName: "李四", IDCardNumber: "110101199202021234"}
	require.NoError(t, db.Create(guest).Error)

	f := &fixture{db: db, guest: guest}
	c := cache.New(nil)
	if withCache {
		f.mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		c = cache.New(client)
	}

	f.svc = NewStatisticsService(
		repository.NewReservationRepository(db),
		repository.NewRoomRepository(db),
		c,
		metrics.New("test", prometheus.NewRegistry()),
		Config{CacheTTL: time.Minute, Now: func() time.Time { return testNow }},
	)
	return f
}

func (f *fixture) room(t *testing.T, number, roomType, status string) {
	room := &models.Room{RoomNumber: number, RoomType: roomType, Price: 100, Capacity: 2, Status: status, IsActive: true}
	require.NoError(t, f.db.Create(room).Error)
}

func (f *fixture) reservation(t *testing.T, status, checkIn string, nights int, paid float64, createdAt time.Time) {
	in, err := utils.ParseDate(checkIn)
	require.NoError(t, err)
	reservation := &models.Reservation{
		ReservationNo:  utils.GenerateNo("R"),
		GuestID:        f.guest.ID,
		CheckInDate:    in,
		CheckOutDate:   in.AddDate(0, 0, nights),
		NumberOfGuests: 1,
		PaidAmount:     paid,
		Status:         status,
		Source:         models.ReservationSourceDirect,
		CreatedAt:      createdAt,
	}
	require.NoError(t, f.db.Create(reservation).Error)
}

func (f *fixture) seed(t *testing.T) {
	f.room(t, "101", "STANDARD", models.RoomStatusOccupied)
	f.room(t, "102", "STANDARD", models.RoomStatusReserved)
	f.room(t, "201", "DELUXE", models.RoomStatusAvailable)
	f.room(t, "202", "DELUXE", models.RoomStatusCleaning)

	yesterday := testNow.AddDate(0, 0, -1)
	f.reservation(t, models.ReservationStatusCheckedIn, "2026-10-15", 2, 200, yesterday)
	f.reservation(t, models.ReservationStatusCheckedOut, "2026-10-13", 2, 180, yesterday)
	f.reservation(t, models.ReservationStatusConfirmed, "2026-10-20", 1, 150.5, testNow.Add(-2*time.Hour))
	f.reservation(t, models.ReservationStatusPending, "2026-10-21", 1, 0, testNow.Add(-time.Hour))
}

func TestStatisticsService_Today(t *testing.T) {
	f := setup(t, false)
	f.seed(t)

	stats, err := f.svc.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", stats.Date)
	assert.Equal(t, int64(1), stats.CheckIns)
	assert.Equal(t, int64(1), stats.CheckOuts)
	assert.Equal(t, int64(2), stats.NewReservations)
	assert.Equal(t, 150.5, stats.Revenue)
	assert.Equal(t, int64(4), stats.TotalRooms)
	assert.Equal(t, int64(1), stats.RoomsByStatus[models.RoomStatusOccupied])
	assert.Equal(t, 50.0, stats.OccupancyRate)
}

func TestStatisticsService_TodayEmpty(t *testing.T) {
	f := setup(t, false)

	stats, err := f.svc.Today(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRooms)
	assert.Zero(t, stats.OccupancyRate)
}

func TestStatisticsService_Range(t *testing.T) {
	f := setup(t, false)
	f.seed(t)
	ctx := context.Background()

	stats, err := f.svc.Range(ctx, "2026-10-13", "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalReservations)
	assert.Equal(t, 530.5, stats.Revenue)
	assert.Equal(t, int64(1), stats.ByStatus[models.ReservationStatusConfirmed])
	assert.Equal(t, int64(0), stats.ByStatus[models.ReservationStatusPending])
	assert.Len(t, stats.ByStatus, len(models.ReservationStatuses))

	_, err = f.svc.Range(ctx, "2026-10-20", "2026-10-13")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidDateRange))

	_, err = f.svc.Range(ctx, "10/13", "2026-10-20")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidParams))
}

func TestStatisticsService_RoomTypes(t *testing.T) {
	f := setup(t, false)
	f.seed(t)

	stats, err := f.svc.RoomTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalRooms)
	assert.Equal(t, map[string]int64{"STANDARD": 2, "DELUXE": 2}, stats.ByType)
}

func TestStatisticsService_Cache(t *testing.T) {
	f := setup(t, true)
	f.seed(t)
	ctx := context.Background()
	key := cache.BuildKey(cache.KeyPrefixStatistics, "room_types")

	first, err := f.svc.RoomTypes(ctx)
	require.NoError(t, err)
	assert.True(t, f.mr.Exists(key))

	// TTL 内读缓存
	f.room(t, "301", "SUITE", models.RoomStatusAvailable)
	second, err := f.svc.RoomTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f.mr.FastForward(time.Minute + time.Second)
	third, err := f.svc.RoomTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), third.TotalRooms)

	_, err = f.svc.Today(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.Invalidate(ctx))
	assert.False(t, f.mr.Exists(key))
	assert.False(t, f.mr.Exists(cache.BuildKey(cache.KeyPrefixStatistics, "today", "2026-10-15")))
}

func TestStatisticsService_CacheUnavailable(t *testing.T) {
	f := setup(t, true)
	f.seed(t)
	f.mr.Close()

	stats, err := f.svc.RoomTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalRooms)
}
