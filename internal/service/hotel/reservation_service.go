// Package hotel 预订引擎，以及房间、宾客目录
package hotel

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/qrcode"
	"github.com/dumeirei/hotel-pms-backend/internal/common/retry"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/audit"
	"github.com/dumeirei/hotel-pms-backend/internal/service/availability"
	"github.com/dumeirei/hotel-pms-backend/internal/service/payment"
)

// EngineConfig 预订引擎配置
type EngineConfig struct {
	MaxRetries int
	Refund     RefundPolicy
	Now        func() time.Time
}

// ReservationService 预订服务
type ReservationService struct {
	db              *gorm.DB
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
	guestRepo       *repository.GuestRepository
	checker         *availability.Checker
	ledger          *payment.Ledger
	sink            audit.Sink
	metrics         *metrics.Metrics
	qr              *qrcode.Generator
	refund          RefundPolicy
	maxRetries      int
	now             func() time.Time
}

// NewReservationService 创建预订服务
func NewReservationService(
	db *gorm.DB,
	reservationRepo *repository.ReservationRepository,
	roomRepo *repository.RoomRepository,
	guestRepo *repository.GuestRepository,
	checker *availability.Checker,
	ledger *payment.Ledger,
	sink audit.Sink,
	m *metrics.Metrics,
	cfg EngineConfig,
) *ReservationService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = retry.DefaultAttempts
	}
	if cfg.Refund == (RefundPolicy{}) {
		cfg.Refund = DefaultRefundPolicy
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &ReservationService{
		db:              db,
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
		guestRepo:       guestRepo,
		checker:         checker,
		ledger:          ledger,
		sink:            sink,
		metrics:         m,
		qr:              qrcode.NewGenerator(),
		refund:          cfg.Refund,
		maxRetries:      cfg.MaxRetries,
		now:             cfg.Now,
	}
}

// CreateReservationRequest 创建预订请求
type CreateReservationRequest struct {
	GuestID           int64    `json:"guest_id" binding:"required"`
	RoomID            *int64   `json:"room_id"`
	PreferredRoomType *string  `json:"preferred_room_type"`
	CheckInDate       string   `json:"check_in_date" binding:"required"`
	CheckOutDate      string   `json:"check_out_date" binding:"required"`
	NumberOfGuests    int      `json:"number_of_guests" binding:"omitempty,min=1"`
	TotalAmount       *float64 `json:"total_amount" binding:"omitempty,min=0"`
	SpecialRequests   *string  `json:"special_requests"`
	Source            string   `json:"source" binding:"omitempty,oneof=DIRECT OTA"`
	OtaOrderID        *string  `json:"ota_order_id"`
	CreatedBy         string   `json:"-"`
}

// Create 创建预订
// 预订始终为 PENDING，不改变房态，确认只由收款成功触发
func (s *ReservationService) Create(ctx context.Context, req *CreateReservationRequest) (*models.Reservation, error) {
	checkIn, checkOut, err := parseStay(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadGuest(ctx, req.GuestID); err != nil {
		return nil, err
	}

	var reservation *models.Reservation
	// 只插入新行，当前不会出现版本冲突，重试策略与修改、收款保持一致
	err = retry.OnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			room, err := s.resolveRoom(ctx, tx, req.RoomID, req.PreferredRoomType, checkIn, checkOut, 0)
			if err != nil {
				return err
			}

			reservation = &models.Reservation{
				ReservationNo:     utils.GenerateNo("R"),
				GuestID:           req.GuestID,
				PreferredRoomType: nonEmpty(req.PreferredRoomType),
				CheckInDate:       checkIn,
				CheckOutDate:      checkOut,
				NumberOfGuests:    req.NumberOfGuests,
				TotalAmount:       req.TotalAmount,
				Status:            models.ReservationStatusPending,
				Source:            req.Source,
				OtaOrderID:        req.OtaOrderID,
				SpecialRequests:   req.SpecialRequests,
			}
			if reservation.NumberOfGuests <= 0 {
				reservation.NumberOfGuests = 1
			}
			if reservation.Source == "" {
				reservation.Source = models.ReservationSourceDirect
			}
			if req.CreatedBy != "" {
				reservation.CreatedBy = &req.CreatedBy
			}
			if room != nil {
				reservation.RoomID = &room.ID
				if reservation.TotalAmount == nil {
					total := utils.MulMoney(room.Price, float64(utils.NightsBetween(checkIn, checkOut)))
					reservation.TotalAmount = &total
				}
			}

			if err := s.reservationRepo.WithTx(tx).Create(ctx, reservation); err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, appError(err)
	}

	s.metrics.RecordReservation(audit.ActionCreate, reservation.Status)
	audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionCreate, reservation))
	return reservation, nil
}

// UpdateReservationRequest 修改预订请求，状态和已付金额由收款流程驱动，不能直接修改
type UpdateReservationRequest struct {
	GuestID           *int64   `json:"guest_id"`
	RoomID            *int64   `json:"room_id"`
	PreferredRoomType *string  `json:"preferred_room_type"`
	CheckInDate       *string  `json:"check_in_date"`
	CheckOutDate      *string  `json:"check_out_date"`
	NumberOfGuests    *int     `json:"number_of_guests" binding:"omitempty,min=1"`
	TotalAmount       *float64 `json:"total_amount" binding:"omitempty,min=0"`
	SpecialRequests   *string  `json:"special_requests"`
}

// Update 修改预订
// 未分配房间时按偏好房型分配，且立即将分配到的房间置为 RESERVED（与创建时不同）
func (s *ReservationService) Update(ctx context.Context, id int64, req *UpdateReservationRequest) (*models.Reservation, error) {
	if req.GuestID != nil {
		if _, err := s.loadGuest(ctx, *req.GuestID); err != nil {
			return nil, err
		}
	}

	var (
		updated *models.Reservation
		room    *models.Room
	)
	err := retry.OnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		room = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			reservationRepo := s.reservationRepo.WithTx(tx)
			roomRepo := s.roomRepo.WithTx(tx)
			checker := s.checker.WithTx(tx)

			reservation, err := loadReservation(ctx, reservationRepo, id)
			if err != nil {
				return err
			}
			if reservation.IsTerminal() {
				return errors.ErrReservationStatus.WithMessage("已取消或已离店的预订不能修改")
			}

			checkIn, checkOut := utils.DateOf(reservation.CheckInDate), utils.DateOf(reservation.CheckOutDate)
			if req.CheckInDate != nil || req.CheckOutDate != nil {
				in, out := utils.FormatDate(checkIn), utils.FormatDate(checkOut)
				if req.CheckInDate != nil {
					in = *req.CheckInDate
				}
				if req.CheckOutDate != nil {
					out = *req.CheckOutDate
				}
				if checkIn, checkOut, err = parseStay(in, out); err != nil {
					return err
				}
			}
			datesChanged := !checkIn.Equal(utils.DateOf(reservation.CheckInDate)) ||
				!checkOut.Equal(utils.DateOf(reservation.CheckOutDate))

			fields := make(map[string]interface{})
			roomChanged := false

			switch {
			case req.RoomID != nil && (reservation.RoomID == nil || *req.RoomID != *reservation.RoomID):
				if reservation.Status == models.ReservationStatusCheckedIn {
					return errors.ErrReservationStatus.WithMessage("在住预订不能更换房间")
				}
				room, err = s.resolveRoom(ctx, tx, req.RoomID, nil, checkIn, checkOut, reservation.ID)
				if err != nil {
					return err
				}
				// 原房间可能由确认或修改时分配而预留，Release 只处理 RESERVED 且无其他占用的房间
				if reservation.RoomID != nil {
					if _, err := payment.Release(ctx, tx, *reservation.RoomID, reservation.ID); err != nil {
						return err
					}
				}
				if reservation.Status == models.ReservationStatusConfirmed {
					if err := payment.Reserve(ctx, roomRepo, room); err != nil {
						return err
					}
				}
				fields["room_id"] = room.ID
				roomChanged = true

			case reservation.RoomID != nil && datesChanged:
				room, err = roomRepo.GetByID(ctx, *reservation.RoomID)
				if err != nil {
					return notFound(err, errors.ErrRoomNotFound)
				}
				ok, err := checker.Available(ctx, room.ID, checkIn, checkOut, reservation.ID)
				if err != nil {
					return err
				}
				if !ok {
					return errors.ErrBookingConflict.WithMessage(fmt.Sprintf("房间 %s 在所选日期不可用", room.RoomNumber))
				}
				// 递增房间版本号，与并发确认同一房间的事务互斥
				if reservation.Status == models.ReservationStatusConfirmed || reservation.Status == models.ReservationStatusCheckedIn {
					if err := payment.Reserve(ctx, roomRepo, room); err != nil {
						return err
					}
				}

			case reservation.RoomID == nil:
				roomType := utils.Deref(reservation.PreferredRoomType)
				if req.PreferredRoomType != nil {
					roomType = *req.PreferredRoomType
				}
				if roomType == "" {
					break
				}
				candidate, err := checker.FirstFit(ctx, roomType, checkIn, checkOut, reservation.ID)
				if stderrors.Is(err, errors.ErrNoAvailability) {
					break
				}
				if err != nil {
					return err
				}
				if err := payment.Reserve(ctx, roomRepo, candidate); err != nil {
					return err
				}
				room = candidate
				fields["room_id"] = room.ID
				roomChanged = true
			}

			if req.PreferredRoomType != nil {
				fields["preferred_room_type"] = nonEmpty(req.PreferredRoomType)
			}
			if datesChanged {
				fields["check_in_date"] = checkIn
				fields["check_out_date"] = checkOut
			}
			if req.GuestID != nil {
				fields["guest_id"] = *req.GuestID
			}
			if req.NumberOfGuests != nil {
				fields["number_of_guests"] = *req.NumberOfGuests
			}
			if req.SpecialRequests != nil {
				fields["special_requests"] = *req.SpecialRequests
			}
			switch {
			case req.TotalAmount != nil:
				fields["total_amount"] = utils.RoundMoney(*req.TotalAmount)
			case room != nil && (datesChanged || roomChanged):
				fields["total_amount"] = utils.MulMoney(room.Price, float64(utils.NightsBetween(checkIn, checkOut)))
			}

			if len(fields) > 0 {
				if err := reservationRepo.UpdateWithVersion(ctx, reservation, fields); err != nil {
					return writeError(err)
				}
			}
			updated, err = loadReservation(ctx, reservationRepo, id)
			return err
		})
	})
	if err != nil {
		return nil, appError(err)
	}

	s.metrics.RecordReservation(audit.ActionUpdate, updated.Status)
	audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionUpdate, updated).WithRoom(room))
	return updated, nil
}

// resolveRoom 确定预订房间：指定房间时校验可用，否则按偏好房型分配，两者都没有时返回 nil
func (s *ReservationService) resolveRoom(ctx context.Context, tx *gorm.DB, roomID *int64, roomType *string, checkIn, checkOut time.Time, excludeID int64) (*models.Room, error) {
	checker := s.checker.WithTx(tx)

	if roomID != nil {
		room, err := s.roomRepo.WithTx(tx).GetByID(ctx, *roomID)
		if err != nil {
			return nil, notFound(err, errors.ErrRoomNotFound)
		}
		if !room.IsActive {
			return nil, errors.ErrRoomStatus.WithMessage(fmt.Sprintf("房间 %s 已停用", room.RoomNumber))
		}
		ok, err := checker.Available(ctx, room.ID, checkIn, checkOut, excludeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ErrBookingConflict.WithMessage(fmt.Sprintf("房间 %s 在所选日期不可用", room.RoomNumber))
		}
		return room, nil
	}

	if roomType != nil && *roomType != "" {
		return checker.FirstFit(ctx, *roomType, checkIn, checkOut, excludeID)
	}
	return nil, nil
}

// ==================== 查询 ====================

// Get 获取预订详情
func (s *ReservationService) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrReservationNotFound)
	}
	return reservation, nil
}

// GetByReservationNo 按预订号获取
func (s *ReservationService) GetByReservationNo(ctx context.Context, reservationNo string) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByReservationNo(ctx, reservationNo)
	if err != nil {
		return nil, notFound(err, errors.ErrReservationNotFound)
	}
	return reservation, nil
}

// ListReservationsRequest 预订列表请求
type ListReservationsRequest struct {
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	Status        string `form:"status"`
	GuestID       int64  `form:"guest_id"`
	RoomID        int64  `form:"room_id"`
	ReservationNo string `form:"reservation_no"`
	StartDate     string `form:"start_date"`
	EndDate       string `form:"end_date"`
}

// List 预订列表
func (s *ReservationService) List(ctx context.Context, req *ListReservationsRequest) ([]*models.Reservation, int64, error) {
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()

	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.GuestID > 0 {
		filters["guest_id"] = req.GuestID
	}
	if req.RoomID > 0 {
		filters["room_id"] = req.RoomID
	}
	if req.ReservationNo != "" {
		filters["reservation_no"] = req.ReservationNo
	}
	if req.StartDate != "" {
		start, err := utils.ParseDate(req.StartDate)
		if err != nil {
			return nil, 0, errors.ErrInvalidParams.WithMessage("start_date 格式应为 YYYY-MM-DD")
		}
		filters["start_date"] = start
	}
	if req.EndDate != "" {
		end, err := utils.ParseDate(req.EndDate)
		if err != nil {
			return nil, 0, errors.ErrInvalidParams.WithMessage("end_date 格式应为 YYYY-MM-DD")
		}
		filters["end_date"] = end
	}

	reservations, total, err := s.reservationRepo.List(ctx, p.GetOffset(), p.GetLimit(), filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return reservations, total, nil
}

// ListByGuest 宾客的预订
func (s *ReservationService) ListByGuest(ctx context.Context, guestID int64, page, pageSize int, status *string) ([]*models.Reservation, int64, error) {
	p := utils.Pagination{Page: page, PageSize: pageSize}
	p.Normalize()
	reservations, total, err := s.reservationRepo.ListByGuest(ctx, guestID, p.GetOffset(), p.GetLimit(), status)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return reservations, total, nil
}

// ListByRoom 房间的预订
func (s *ReservationService) ListByRoom(ctx context.Context, roomID int64, page, pageSize int) ([]*models.Reservation, int64, error) {
	p := utils.Pagination{Page: page, PageSize: pageSize}
	p.Normalize()
	reservations, total, err := s.reservationRepo.ListByRoom(ctx, roomID, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return reservations, total, nil
}

// ListByStatus 指定状态的预订
func (s *ReservationService) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*models.Reservation, int64, error) {
	if !utils.Contains(models.ReservationStatuses, status) {
		return nil, 0, errors.ErrInvalidParams.WithMessage("无效的预订状态: " + status)
	}
	p := utils.Pagination{Page: page, PageSize: pageSize}
	p.Normalize()
	reservations, total, err := s.reservationRepo.ListByStatus(ctx, status, p.GetOffset(), p.GetLimit())
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return reservations, total, nil
}

// ListByCheckInRange 入住日期在区间内的预订（含两端）
func (s *ReservationService) ListByCheckInRange(ctx context.Context, start, end string) ([]*models.Reservation, error) {
	from, err := utils.ParseDate(start)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("start 格式应为 YYYY-MM-DD")
	}
	to, err := utils.ParseDate(end)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("end 格式应为 YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, errors.ErrInvalidDateRange.WithMessage("结束日期不能早于开始日期")
	}
	reservations, err := s.reservationRepo.ListByCheckInRange(ctx, from, to)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return reservations, nil
}

// Transactions 预订的收退款流水
func (s *ReservationService) Transactions(ctx context.Context, id int64) ([]*models.PaymentTransaction, error) {
	if _, err := loadReservation(ctx, s.reservationRepo, id); err != nil {
		return nil, err
	}
	return s.ledger.ListByReservation(ctx, id)
}

// Voucher 预订凭证
type Voucher struct {
	ReservationNo string `json:"reservation_no"`
	QRCode        string `json:"qr_code"`
}

// Voucher 生成预订凭证二维码（Data URL）
func (s *ReservationService) Voucher(ctx context.Context, id int64) (*Voucher, error) {
	reservation, err := loadReservation(ctx, s.reservationRepo, id)
	if err != nil {
		return nil, err
	}
	dataURL, err := s.qr.GenerateDataURL(reservation.ReservationNo)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return &Voucher{ReservationNo: reservation.ReservationNo, QRCode: dataURL}, nil
}

// Delete 删除预订，只允许删除待支付或已取消的预订
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservationRepo := s.reservationRepo.WithTx(tx)
		reservation, err := loadReservation(ctx, reservationRepo, id)
		if err != nil {
			return err
		}
		if reservation.Status != models.ReservationStatusPending && reservation.Status != models.ReservationStatusCancelled {
			return errors.ErrReservationStatus.WithMessage("只能删除待支付或已取消的预订")
		}
		// 修改预订时分配的房间已被预留
		if reservation.Status == models.ReservationStatusPending && reservation.RoomID != nil {
			if _, err := payment.Release(ctx, tx, *reservation.RoomID, reservation.ID); err != nil {
				return err
			}
		}
		if err := reservationRepo.Delete(ctx, id); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
	if err != nil {
		return appError(err)
	}
	logger.Ctx(ctx).Info("预订已删除", logger.ReservationID(id))
	return nil
}

// ==================== helpers ====================

func (s *ReservationService) loadGuest(ctx context.Context, id int64) (*models.Guest, error) {
	guest, err := s.guestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrGuestNotFound)
	}
	return guest, nil
}

func loadReservation(ctx context.Context, repo *repository.ReservationRepository, id int64) (*models.Reservation, error) {
	reservation, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrReservationNotFound)
	}
	return reservation, nil
}

// parseStay 解析入住、离店日期，离店必须晚于入住
func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := utils.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ErrInvalidParams.WithMessage("入住日期格式应为 YYYY-MM-DD")
	}
	out, err := utils.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ErrInvalidParams.WithMessage("离店日期格式应为 YYYY-MM-DD")
	}
	if utils.NightsBetween(in, out) <= 0 {
		return time.Time{}, time.Time{}, errors.ErrInvalidDateRange
	}
	return in, out, nil
}

func notFound(err error, notFoundErr *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return errors.ErrDatabaseError.WithError(err)
}

// writeError 版本冲突原样返回交给重试
func writeError(err error) error {
	if err == nil || errors.IsAppError(err) {
		return err
	}
	return errors.ErrDatabaseError.WithError(err)
}

func appError(err error) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.ErrDatabaseError.WithError(err)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
