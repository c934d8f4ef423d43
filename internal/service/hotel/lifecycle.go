package hotel

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/retry"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/service/audit"
	"github.com/dumeirei/hotel-pms-backend/internal/service/payment"
)

// 前台/系统生成流水的备注
const (
	noteCheckInCollect  = "Check-in collect"
	noteCheckOutCollect = "Check-out collect"
	noteAutoRefund      = "Auto refund for missed check-in"
)

// CancelResult 取消预订结果
type CancelResult struct {
	TransactionID int64   `json:"transaction_id"`
	RefundAmount  float64 `json:"refund_amount"`
	ReservationID int64   `json:"reservation_id"`
	Message       string  `json:"message"`
}

// Cancel 取消预订：按退款规则生成待处理退款流水
// 预订在退款成功回调后才变为 CANCELLED
func (s *ReservationService) Cancel(ctx context.Context, id int64) (*CancelResult, error) {
	reservation, err := loadReservation(ctx, s.reservationRepo, id)
	if err != nil {
		return nil, err
	}

	switch reservation.Status {
	case models.ReservationStatusCancelled:
		return nil, errors.ErrReservationStatus.WithMessage("预订已被取消")
	case models.ReservationStatusCheckedIn, models.ReservationStatusCheckedOut:
		return nil, errors.ErrReservationStatus.WithMessage("已入住或已离店的预订不能取消")
	}

	refund := s.refund.Quote(reservation.PaidAmount, reservation.CheckInDate, s.now())
	txn, err := s.ledger.CreatePendingRefund(ctx, reservation.ID, refund, "取消预订 "+reservation.ReservationNo)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReservation(audit.ActionCancelQuote, reservation.Status)
	audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionCancelQuote, reservation).
		WithTransaction(txn).
		WithDetail("refund_amount", refund))

	return &CancelResult{
		TransactionID: txn.ID,
		RefundAmount:  refund,
		ReservationID: reservation.ID,
		Message:       "已生成退款流水，退款成功后预订取消",
	}, nil
}

// CheckInRequest 办理入住请求
type CheckInRequest struct {
	CollectAmount *float64 `json:"collect_amount" binding:"omitempty,min=0"`
}

// CheckInResult 办理入住结果
type CheckInResult struct {
	ReservationID int64   `json:"reservation_id"`
	RoomNumber    string  `json:"room_number"`
	Status        string  `json:"status"`
	PaidAmount    float64 `json:"paid_amount"`
}

// CheckIn 办理入住：预订置为 CHECKED_IN，房间置为 OCCUPIED
// 前台收取的金额直接计入已付金额，收款流水为附带记录，失败不影响入住
func (s *ReservationService) CheckIn(ctx context.Context, id int64, req *CheckInRequest) (*CheckInResult, error) {
	ctx, span := tracing.Start(ctx, "reservation.CheckIn", tracing.WithReservationID(id))
	collect := positive(req.CollectAmount)

	var (
		reservation *models.Reservation
		room        *models.Room
	)
	err := retry.OnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			reservationRepo := s.reservationRepo.WithTx(tx)
			roomRepo := s.roomRepo.WithTx(tx)

			var err error
			reservation, err = loadReservation(ctx, reservationRepo, id)
			if err != nil {
				return err
			}
			switch reservation.Status {
			case models.ReservationStatusCheckedIn:
				return errors.ErrReservationStatus.WithMessage("该预订已入住")
			case models.ReservationStatusCancelled:
				return errors.ErrReservationStatus.WithMessage("该预订已被取消，无法办理入住")
			case models.ReservationStatusCheckedOut:
				return errors.ErrReservationStatus.WithMessage("该预订已离店")
			}
			if reservation.RoomID == nil {
				return errors.ErrRoomNotAssigned.WithMessage("该预订未指定房间，无法办理入住")
			}

			room, err = roomRepo.GetByID(ctx, *reservation.RoomID)
			if err != nil {
				return notFound(err, errors.ErrRoomNotFound)
			}
			if room.Status == models.RoomStatusOccupied || room.Status == models.RoomStatusMaintenance {
				return errors.ErrRoomStatus.WithMessage("房间当前不可入住")
			}

			paid := reservation.PaidAmount
			if collect > 0 {
				paid = utils.AddMoney(paid, collect)
			}
			if err := reservationRepo.UpdateWithVersion(ctx, reservation, map[string]interface{}{
				"status":      models.ReservationStatusCheckedIn,
				"paid_amount": paid,
			}); err != nil {
				return writeError(err)
			}
			reservation.Status = models.ReservationStatusCheckedIn
			reservation.PaidAmount = paid

			if err := roomRepo.UpdateWithVersion(ctx, room, map[string]interface{}{
				"status": models.RoomStatusOccupied,
			}); err != nil {
				return writeError(err)
			}
			room.Status = models.RoomStatusOccupied
			return nil
		})
	})
	tracing.End(span, err)
	if err != nil {
		return nil, appError(err)
	}

	if collect > 0 {
		s.recordFrontDesk(ctx, reservation, models.TransactionTypePayment, collect, noteCheckInCollect)
	}
	s.metrics.RecordReservation(audit.ActionCheckIn, reservation.Status)
	audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionCheckIn, reservation).WithRoom(room))

	return &CheckInResult{
		ReservationID: reservation.ID,
		RoomNumber:    room.RoomNumber,
		Status:        reservation.Status,
		PaidAmount:    reservation.PaidAmount,
	}, nil
}

// CheckOutRequest 办理退房请求
type CheckOutRequest struct {
	ExtraCharges  *float64 `json:"extra_charges" binding:"omitempty,min=0"`
	CollectAmount *float64 `json:"collect_amount" binding:"omitempty,min=0"`
}

// CheckOutResult 退房结算结果
type CheckOutResult struct {
	ReservationID int64   `json:"reservation_id"`
	TotalAmount   float64 `json:"total_amount"`
	Extras        float64 `json:"extras"`
	PaidAmount    float64 `json:"paid_amount"`
	AmountDue     float64 `json:"amount_due"`
	RefundAmount  float64 `json:"refund_amount"`
	RoomNumber    string  `json:"room_number"`
	Status        string  `json:"status"`
}

// CheckOut 办理退房：结算应收/应退，预订置为 CHECKED_OUT，房间置为 CLEANING
// 应退金额只做报价，不生成退款流水
func (s *ReservationService) CheckOut(ctx context.Context, id int64, req *CheckOutRequest) (*CheckOutResult, error) {
	ctx, span := tracing.Start(ctx, "reservation.CheckOut", tracing.WithReservationID(id))
	collect := positive(req.CollectAmount)
	extras := positive(req.ExtraCharges)

	var (
		reservation *models.Reservation
		room        *models.Room
		result      *CheckOutResult
	)
	err := retry.OnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			reservationRepo := s.reservationRepo.WithTx(tx)
			roomRepo := s.roomRepo.WithTx(tx)

			var err error
			reservation, err = loadReservation(ctx, reservationRepo, id)
			if err != nil {
				return err
			}
			if reservation.Status != models.ReservationStatusCheckedIn {
				return errors.ErrReservationStatus.WithMessage("只有已入住的预订才能办理退房")
			}
			if reservation.RoomID == nil {
				return errors.ErrRoomNotAssigned.WithMessage("该预订未绑定房间")
			}
			room, err = roomRepo.GetByID(ctx, *reservation.RoomID)
			if err != nil {
				return notFound(err, errors.ErrRoomNotFound)
			}

			fields := map[string]interface{}{"status": models.ReservationStatusCheckedOut}

			var total float64
			if reservation.TotalAmount != nil {
				total = *reservation.TotalAmount
			} else {
				nights := utils.NightsBetween(reservation.CheckInDate, reservation.CheckOutDate)
				if nights <= 0 {
					nights = 1
				}
				total = utils.MulMoney(room.Price, float64(nights))
				fields["total_amount"] = total
			}

			paid := reservation.PaidAmount
			if collect > 0 {
				paid = utils.AddMoney(paid, collect)
				fields["paid_amount"] = paid
			}

			due := utils.SubMoney(utils.AddMoney(total, extras), paid)
			var refund float64
			if due < 0 {
				refund = -due
				due = 0
			}

			if err := reservationRepo.UpdateWithVersion(ctx, reservation, fields); err != nil {
				return writeError(err)
			}
			reservation.Status = models.ReservationStatusCheckedOut
			reservation.PaidAmount = paid
			reservation.TotalAmount = &total

			if err := roomRepo.UpdateWithVersion(ctx, room, map[string]interface{}{
				"status": models.RoomStatusCleaning,
			}); err != nil {
				return writeError(err)
			}
			room.Status = models.RoomStatusCleaning

			result = &CheckOutResult{
				ReservationID: reservation.ID,
				TotalAmount:   total,
				Extras:        extras,
				PaidAmount:    paid,
				AmountDue:     due,
				RefundAmount:  refund,
				RoomNumber:    room.RoomNumber,
				Status:        reservation.Status,
			}
			return nil
		})
	})
	tracing.End(span, err)
	if err != nil {
		return nil, appError(err)
	}

	if collect > 0 {
		s.recordFrontDesk(ctx, reservation, models.TransactionTypePayment, collect, noteCheckOutCollect)
	}
	s.metrics.RecordReservation(audit.ActionCheckOut, reservation.Status)
	audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionCheckOut, reservation).
		WithRoom(room).
		WithDetail("amount_due", result.AmountDue).
		WithDetail("refund_amount", result.RefundAmount))
	return result, nil
}

// ExpireReservations 回收已过入住日仍未入住的预订
// 预订置为 CANCELLED 并释放预留房间，已付金额大于0时生成待处理退款流水
// 单条失败只记录告警，不影响其余预订
func (s *ReservationService) ExpireReservations(ctx context.Context) (int, error) {
	ctx, span := tracing.Start(ctx, "reservation.ExpireReservations")
	day := today(s.now())

	expired, err := s.reservationRepo.ListExpired(ctx, day, 0)
	if err != nil {
		tracing.End(span, err)
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	count := 0
	for _, item := range expired {
		if err := ctx.Err(); err != nil {
			tracing.End(span, err)
			s.metrics.AddExpired(count)
			return count, err
		}

		reservation, room, err := s.expire(ctx, item.ID, day)
		if err != nil {
			logger.Warn("回收过期预订失败",
				logger.ReservationID(item.ID),
				logger.ReservationNo(item.ReservationNo),
				logger.Err(err),
			)
			continue
		}
		if reservation == nil {
			continue
		}
		count++

		if reservation.PaidAmount > 0 {
			_, err := s.ledger.CreatePending(ctx, payment.PendingRequest{
				ReservationID: reservation.ID,
				Type:          models.TransactionTypeRefund,
				Amount:        reservation.PaidAmount,
				Note:          noteAutoRefund,
				Channel:       models.TransactionChannelSystem,
			})
			if err != nil {
				s.sideEffectFailed(ctx, reservation, models.TransactionTypeRefund, reservation.PaidAmount, err)
			}
		}
		s.metrics.RecordReservation(audit.ActionExpire, reservation.Status)
		audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionExpire, reservation).WithRoom(room))
	}

	s.metrics.AddExpired(count)
	tracing.End(span, nil)
	if count > 0 {
		logger.Info("过期预订已回收", logger.Int("count", count), logger.Int("scanned", len(expired)))
	}
	return count, nil
}

// expire 取消单个过期预订，已被并发处理（入住、离店、取消）的返回 nil
func (s *ReservationService) expire(ctx context.Context, id int64, day time.Time) (*models.Reservation, *models.Room, error) {
	var (
		reservation *models.Reservation
		room        *models.Room
	)
	err := retry.OnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		reservation, room = nil, nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			reservationRepo := s.reservationRepo.WithTx(tx)
			current, err := loadReservation(ctx, reservationRepo, id)
			if err != nil {
				return err
			}
			if current.Status != models.ReservationStatusPending && current.Status != models.ReservationStatusConfirmed {
				return nil
			}
			if !utils.DateOf(current.CheckInDate).Before(day) {
				return nil
			}

			if err := reservationRepo.UpdateWithVersion(ctx, current, map[string]interface{}{
				"status": models.ReservationStatusCancelled,
			}); err != nil {
				return writeError(err)
			}
			current.Status = models.ReservationStatusCancelled

			if current.RoomID != nil {
				if room, err = payment.Release(ctx, tx, *current.RoomID, current.ID); err != nil {
					return err
				}
			}
			reservation = current
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return reservation, room, nil
}

// recordFrontDesk 补录前台收款流水，失败只告警
func (s *ReservationService) recordFrontDesk(ctx context.Context, reservation *models.Reservation, txnType string, amount float64, note string) {
	_, err := s.ledger.CreatePending(ctx, payment.PendingRequest{
		ReservationID: reservation.ID,
		Type:          txnType,
		Amount:        amount,
		Note:          note,
		Channel:       models.TransactionChannelFrontDesk,
	})
	if err != nil {
		s.sideEffectFailed(ctx, reservation, txnType, amount, err)
	}
}

func (s *ReservationService) sideEffectFailed(ctx context.Context, reservation *models.Reservation, txnType string, amount float64, err error) {
	logger.Ctx(ctx).Warn("附带流水记录失败",
		logger.ReservationID(reservation.ID),
		logger.String("type", txnType),
		logger.Amount(amount),
		logger.Err(err),
	)
	audit.Emit(ctx, s.sink, audit.NewEvent(ctx, audit.ActionSideEffectFailed, reservation).
		WithDetail("type", txnType).
		WithDetail("amount", amount).
		WithDetail("error", err.Error()))
}

func positive(v *float64) float64 {
	if v == nil || *v <= 0 {
		return 0
	}
	return utils.RoundMoney(*v)
}
