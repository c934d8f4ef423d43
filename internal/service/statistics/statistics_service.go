// Package statistics 经营统计（看板），结果按 TTL 缓存在 redis
package statistics

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// DefaultCacheTTL 默认缓存时间
const DefaultCacheTTL = 60 * time.Second

// Config 统计服务配置
type Config struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

// StatisticsService 统计服务
type StatisticsService struct {
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
	cache           *cache.Cache
	metrics         *metrics.Metrics
	ttl             time.Duration
	now             func() time.Time
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(
	reservationRepo *repository.ReservationRepository,
	roomRepo *repository.RoomRepository,
	c *cache.Cache,
	m *metrics.Metrics,
	cfg Config,
) *StatisticsService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &StatisticsService{
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
		cache:           c,
		metrics:         m,
		ttl:             cfg.CacheTTL,
		now:             cfg.Now,
	}
}

// TodayStatistics 今日概览
type TodayStatistics struct {
	Date            string           `json:"date"`
	CheckIns        int64            `json:"check_ins"`
	CheckOuts       int64            `json:"check_outs"`
	NewReservations int64            `json:"new_reservations"`
	Revenue         float64          `json:"revenue"`
	TotalRooms      int64            `json:"total_rooms"`
	RoomsByStatus   map[string]int64 `json:"rooms_by_status"`
	OccupancyRate   float64          `json:"occupancy_rate"`
}

// RangeStatistics 区间统计（按入住日期）
type RangeStatistics struct {
	StartDate         string           `json:"start_date"`
	EndDate           string           `json:"end_date"`
	TotalReservations int64            `json:"total_reservations"`
	Revenue           float64          `json:"revenue"`
	ByStatus          map[string]int64 `json:"by_status"`
}

// RoomTypeStatistics 房型统计
type RoomTypeStatistics struct {
	TotalRooms int64            `json:"total_rooms"`
	ByType     map[string]int64 `json:"by_type"`
}

// Today 今日统计
func (s *StatisticsService) Today(ctx context.Context) (*TodayStatistics, error) {
	now := s.now()
	day := utils.DateOf(now)
	key := cache.BuildKey(cache.KeyPrefixStatistics, "today", utils.FormatDate(day))

	return cached(ctx, s, key, func(ctx context.Context) (*TodayStatistics, error) {
		stats := &TodayStatistics{Date: utils.FormatDate(day)}
		var err error

		if stats.CheckIns, err = s.reservationRepo.CountByStatusAndCheckIn(ctx, models.ReservationStatusCheckedIn, day); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if stats.CheckOuts, err = s.reservationRepo.CountByStatusAndCheckOut(ctx, models.ReservationStatusCheckedOut, day); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}

		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 0, 1)
		if stats.NewReservations, err = s.reservationRepo.CountCreatedBetween(ctx, start, end); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		revenue, err := s.reservationRepo.SumPaidCreatedBetween(ctx, start, end)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		stats.Revenue = utils.RoundMoney(revenue)

		if stats.RoomsByStatus, err = s.roomRepo.CountByStatus(ctx); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		for _, n := range stats.RoomsByStatus {
			stats.TotalRooms += n
		}
		busy := stats.RoomsByStatus[models.RoomStatusOccupied] + stats.RoomsByStatus[models.RoomStatusReserved]
		stats.OccupancyRate = percent(busy, stats.TotalRooms)
		return stats, nil
	})
}

// Range 区间统计，入住日期落在 [start, end]
func (s *StatisticsService) Range(ctx context.Context, start, end string) (*RangeStatistics, error) {
	startDate, err := utils.ParseDate(start)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("开始日期格式错误")
	}
	endDate, err := utils.ParseDate(end)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("结束日期格式错误")
	}
	if endDate.Before(startDate) {
		return nil, errors.ErrInvalidDateRange
	}
	key := cache.BuildKey(cache.KeyPrefixStatistics, "range", utils.FormatDate(startDate), utils.FormatDate(endDate))

	return cached(ctx, s, key, func(ctx context.Context) (*RangeStatistics, error) {
		reservations, err := s.reservationRepo.ListByCheckInRange(ctx, startDate, endDate)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}

		stats := &RangeStatistics{
			StartDate:         utils.FormatDate(startDate),
			EndDate:           utils.FormatDate(endDate),
			TotalReservations: int64(len(reservations)),
			ByStatus:          make(map[string]int64, len(models.ReservationStatuses)),
		}
		for _, status := range models.ReservationStatuses {
			stats.ByStatus[status] = 0
		}
		paid := make([]float64, 0, len(reservations))
		for _, r := range reservations {
			stats.ByStatus[r.Status]++
			paid = append(paid, r.PaidAmount)
		}
		stats.Revenue = utils.SumMoney(paid...)
		return stats, nil
	})
}

// RoomTypes 房型统计
func (s *StatisticsService) RoomTypes(ctx context.Context) (*RoomTypeStatistics, error) {
	key := cache.BuildKey(cache.KeyPrefixStatistics, "room_types")

	return cached(ctx, s, key, func(ctx context.Context) (*RoomTypeStatistics, error) {
		byType, err := s.roomRepo.CountByType(ctx)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		stats := &RoomTypeStatistics{ByType: byType}
		for _, n := range byType {
			stats.TotalRooms += n
		}
		return stats, nil
	})
}

// Invalidate 清除统计缓存
func (s *StatisticsService) Invalidate(ctx context.Context) error {
	if err := s.cache.DeletePrefix(ctx, cache.KeyPrefixStatistics); err != nil {
		return errors.ErrCacheError.WithError(err)
	}
	return nil
}

// cached 先读缓存，未命中时加载并回写；缓存故障只记日志
func cached[T any](ctx context.Context, s *StatisticsService, key string, load func(context.Context) (*T, error)) (*T, error) {
	var hit T
	err := s.cache.GetJSON(ctx, key, &hit)
	if err == nil {
		s.metrics.RecordCache("statistics", true)
		return &hit, nil
	}
	if !stderrors.Is(err, cache.ErrMiss) {
		logger.Warn("statistics cache read failed", logger.String("key", key), logger.Err(err))
	}
	s.metrics.RecordCache("statistics", false)

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
		logger.Warn("statistics cache write failed", logger.String("key", key), logger.Err(err))
	}
	return value, nil
}

// percent 百分比，保留两位小数
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2).
		InexactFloat64()
}
