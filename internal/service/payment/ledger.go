// Package payment 支付/退款流水，以及流水成功后对预订和房态的联动
package payment

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/retry"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/audit"
	"github.com/dumeirei/hotel-pms-backend/internal/service/availability"
)

// 回调结果
const (
	OutcomeSuccess = models.TransactionStatusSuccess
	OutcomeFailed  = models.TransactionStatusFailed
)

// LedgerConfig 账本配置
type LedgerConfig struct {
	MaxRetries int
	Now        func() time.Time
}

// Ledger 支付账本
type Ledger struct {
	db              *gorm.DB
	txnRepo         *repository.TransactionRepository
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
	checker         *availability.Checker
	sink            audit.Sink
	metrics         *metrics.Metrics
	maxRetries      int
	now             func() time.Time
}

// NewLedger 创建支付账本
func NewLedger(
	db *gorm.DB,
	txnRepo *repository.TransactionRepository,
	reservationRepo *repository.ReservationRepository,
	roomRepo *repository.RoomRepository,
	checker *availability.Checker,
	sink audit.Sink,
	m *metrics.Metrics,
	cfg LedgerConfig,
) *Ledger {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = retry.DefaultAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ledger{
		db:              db,
		txnRepo:         txnRepo,
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
		checker:         checker,
		sink:            sink,
		metrics:         m,
		maxRetries:      cfg.MaxRetries,
		now:             cfg.Now,
	}
}

// PendingRequest 新建待处理流水
type PendingRequest struct {
	ReservationID int64
	Type          string
	Amount        float64
	Note          string
	Channel       string
}

// CreatePendingPayment 新建待支付收款流水
func (l *Ledger) CreatePendingPayment(ctx context.Context, reservationID int64, amount float64, note string) (*models.PaymentTransaction, error) {
	return l.CreatePending(ctx, PendingRequest{
		ReservationID: reservationID,
		Type:          models.TransactionTypePayment,
		Amount:        amount,
		Note:          note,
	})
}

// CreatePendingRefund 新建待处理退款流水
func (l *Ledger) CreatePendingRefund(ctx context.Context, reservationID int64, amount float64, note string) (*models.PaymentTransaction, error) {
	return l.CreatePending(ctx, PendingRequest{
		ReservationID: reservationID,
		Type:          models.TransactionTypeRefund,
		Amount:        amount,
		Note:          note,
	})
}

// CreatePending 新建 PENDING 流水，不影响预订和房态
func (l *Ledger) CreatePending(ctx context.Context, req PendingRequest) (*models.PaymentTransaction, error) {
	return l.createPending(ctx, l.txnRepo, l.reservationRepo, req)
}

// CreatePendingTx 在调用方事务内新建 PENDING 流水
func (l *Ledger) CreatePendingTx(ctx context.Context, tx *gorm.DB, req PendingRequest) (*models.PaymentTransaction, error) {
	return l.createPending(ctx, l.txnRepo.WithTx(tx), l.reservationRepo.WithTx(tx), req)
}

func (l *Ledger) createPending(ctx context.Context, txnRepo *repository.TransactionRepository, reservationRepo *repository.ReservationRepository, req PendingRequest) (*models.PaymentTransaction, error) {
	switch req.Type {
	case models.TransactionTypePayment:
		if req.Amount <= 0 {
			return nil, errors.ErrInvalidAmount.WithMessage("收款金额必须大于0")
		}
	case models.TransactionTypeRefund:
		if req.Amount < 0 {
			return nil, errors.ErrInvalidAmount.WithMessage("退款金额不能为负")
		}
	default:
		return nil, errors.ErrInvalidParams.WithMessage("无效的交易类型")
	}
	if req.Channel == "" {
		req.Channel = models.TransactionChannelGateway
	}

	if _, err := reservationRepo.GetByID(ctx, req.ReservationID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrReservationNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	txn := &models.PaymentTransaction{
		TransactionNo: utils.GenerateNo("T"),
		ReservationID: req.ReservationID,
		Amount:        utils.RoundMoney(req.Amount),
		Type:          req.Type,
		Status:        models.TransactionStatusPending,
		Channel:       req.Channel,
	}
	if req.Note != "" {
		txn.Note = &req.Note
	}
	if err := txnRepo.Create(ctx, txn); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	l.metrics.RecordTransaction(txn.Type, txn.Status)
	return txn, nil
}

// GetByID 获取流水
func (l *Ledger) GetByID(ctx context.Context, id int64) (*models.PaymentTransaction, error) {
	txn, err := l.txnRepo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return txn, nil
}

// GetByTransactionNo 按流水号获取流水
func (l *Ledger) GetByTransactionNo(ctx context.Context, transactionNo string) (*models.PaymentTransaction, error) {
	txn, err := l.txnRepo.GetByTransactionNo(ctx, transactionNo)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return txn, nil
}

// ListByReservation 预订的全部流水
func (l *Ledger) ListByReservation(ctx context.Context, reservationID int64) ([]*models.PaymentTransaction, error) {
	txns, err := l.txnRepo.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return txns, nil
}

// ReportOutcome 支付渠道回调入口
func (l *Ledger) ReportOutcome(ctx context.Context, transactionID int64, outcome string, providerRef *string) (*models.PaymentTransaction, error) {
	switch outcome {
	case OutcomeSuccess:
		return l.MarkSuccess(ctx, transactionID, providerRef)
	case OutcomeFailed:
		return l.markFailed(ctx, transactionID, providerRef, "渠道回调失败")
	default:
		return nil, errors.ErrInvalidParams.WithMessage("无效的回调结果: " + outcome)
	}
}

// MarkFailed 流水置为失败，不影响预订和房态
func (l *Ledger) MarkFailed(ctx context.Context, transactionID int64, note string) (*models.PaymentTransaction, error) {
	return l.markFailed(ctx, transactionID, nil, note)
}

func (l *Ledger) markFailed(ctx context.Context, transactionID int64, providerRef *string, note string) (*models.PaymentTransaction, error) {
	txn, err := l.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.IsPending() {
		return nil, errors.ErrTransactionStatus.WithMessage("交易已处理，不能重复回调")
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	if err := l.txnRepo.Complete(ctx, txn, models.TransactionStatusFailed, providerRef, notePtr, l.now()); err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	l.metrics.RecordTransaction(txn.Type, txn.Status)

	if reservation, err := l.reservationRepo.GetByID(ctx, txn.ReservationID); err == nil {
		action := audit.ActionPaymentFailed
		if txn.Type == models.TransactionTypeRefund {
			action = audit.ActionRefundFailed
		}
		audit.Emit(ctx, l.sink, audit.NewEvent(ctx, action, reservation).WithTransaction(txn))
	}
	return txn, nil
}

// MarkSuccess 流水置为成功，并在同一事务内联动预订和房态
// 收款成功：累加已付金额，待支付预订确认并预留房间
// 退款成功：扣减已付金额（不低于0），预订取消并释放预留房间
// 并发写冲突时整体重试，流水已是终态时返回 ErrTransactionStatus
func (l *Ledger) MarkSuccess(ctx context.Context, transactionID int64, providerRef *string) (*models.PaymentTransaction, error) {
	ctx, span := tracing.Start(ctx, "payment.MarkSuccess", tracing.WithTransactionID(transactionID))
	var (
		result *models.PaymentTransaction
		events []audit.Event
	)

	err := retry.OnConflict(ctx, l.maxRetries, func(ctx context.Context) error {
		events = nil
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txnRepo := l.txnRepo.WithTx(tx)
			txn, err := txnRepo.GetByID(ctx, transactionID)
			if err != nil {
				if stderrors.Is(err, gorm.ErrRecordNotFound) {
					return errors.ErrTransactionNotFound
				}
				return errors.ErrDatabaseError.WithError(err)
			}
			if !txn.IsPending() {
				return errors.ErrTransactionStatus.WithMessage("交易已处理，不能重复回调")
			}
			if err := txnRepo.Complete(ctx, txn, models.TransactionStatusSuccess, providerRef, nil, l.now()); err != nil {
				return err
			}

			switch txn.Type {
			case models.TransactionTypePayment:
				events, err = l.applyPayment(ctx, tx, txn)
			case models.TransactionTypeRefund:
				events, err = l.applyRefund(ctx, tx, txn)
			}
			if err != nil {
				return err
			}
			result = txn
			return nil
		})
		if retry.IsConflict(err) {
			l.metrics.RecordVersionConflict("payment_success")
		}
		return err
	})
	tracing.End(span, err)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	l.metrics.RecordTransaction(result.Type, result.Status)
	for _, evt := range events {
		audit.Emit(ctx, l.sink, evt)
	}
	return result, nil
}

// applyPayment 收款成功的联动
func (l *Ledger) applyPayment(ctx context.Context, tx *gorm.DB, txn *models.PaymentTransaction) ([]audit.Event, error) {
	reservationRepo := l.reservationRepo.WithTx(tx)
	reservation, err := loadReservation(ctx, reservationRepo, txn.ReservationID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	paid := reservation.PaidAmount
	if txn.Channel != models.TransactionChannelFrontDesk {
		paid = utils.AddMoney(paid, txn.Amount)
		fields["paid_amount"] = paid
	}

	var (
		room   *models.Room
		action string
	)
	if reservation.Status == models.ReservationStatusPending {
		room, err = l.allocate(ctx, tx, reservation)
		switch {
		case err == nil:
			fields["status"] = models.ReservationStatusConfirmed
			if room != nil {
				fields["room_id"] = room.ID
			}
			action = audit.ActionConfirm
		case stderrors.Is(err, errors.ErrNoAvailability):
			action = audit.ActionConfirmUnallocated
			logger.Ctx(ctx).Warn("已收款但无可分配房间，预订保持待确认",
				logger.ReservationID(reservation.ID),
				logger.TransactionID(txn.ID),
				logger.Err(err),
			)
		default:
			return nil, err
		}
	}

	if len(fields) > 0 {
		if err := reservationRepo.UpdateWithVersion(ctx, reservation, fields); err != nil {
			return nil, mapWriteError(err)
		}
		reservation.PaidAmount = paid
		if status, ok := fields["status"].(string); ok {
			reservation.Status = status
			if room != nil {
				reservation.RoomID = &room.ID
			}
		}
	}

	if action == "" {
		return nil, nil
	}
	return []audit.Event{
		audit.NewEvent(ctx, action, reservation).WithRoom(room).WithTransaction(txn),
	}, nil
}

// allocate 为待确认预订锁定房间
// 已指定房间且无冲突时沿用；有冲突时在同房型内重新分配
// 未指定房间时按偏好房型分配，房间和房型都未指定时直接确认，入住前再排房
func (l *Ledger) allocate(ctx context.Context, tx *gorm.DB, reservation *models.Reservation) (*models.Room, error) {
	roomRepo := l.roomRepo.WithTx(tx)
	checker := l.checker.WithTx(tx)

	var roomType string
	if reservation.RoomID != nil {
		room, err := roomRepo.GetByID(ctx, *reservation.RoomID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.ErrRoomNotFound
			}
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		ok, err := checker.Available(ctx, room.ID, reservation.CheckInDate, reservation.CheckOutDate, reservation.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return room, Reserve(ctx, roomRepo, room)
		}
		roomType = room.RoomType
	} else if reservation.PreferredRoomType != nil && *reservation.PreferredRoomType != "" {
		roomType = *reservation.PreferredRoomType
	} else {
		return nil, nil
	}

	room, err := checker.FirstFit(ctx, roomType, reservation.CheckInDate, reservation.CheckOutDate, reservation.ID)
	if err != nil {
		return nil, err
	}
	return room, Reserve(ctx, roomRepo, room)
}

// applyRefund 退款成功的联动
func (l *Ledger) applyRefund(ctx context.Context, tx *gorm.DB, txn *models.PaymentTransaction) ([]audit.Event, error) {
	reservationRepo := l.reservationRepo.WithTx(tx)
	reservation, err := loadReservation(ctx, reservationRepo, txn.ReservationID)
	if err != nil {
		return nil, err
	}
	alreadyCancelled := reservation.Status == models.ReservationStatusCancelled

	paid := utils.SubMoney(reservation.PaidAmount, txn.Amount)
	if paid < 0 {
		paid = 0
	}
	fields := map[string]interface{}{
		"paid_amount": paid,
		"status":      models.ReservationStatusCancelled,
	}
	if err := reservationRepo.UpdateWithVersion(ctx, reservation, fields); err != nil {
		return nil, mapWriteError(err)
	}
	reservation.PaidAmount = paid
	reservation.Status = models.ReservationStatusCancelled

	// 定时任务取消的预订在取消时已释放房间
	var room *models.Room
	if !alreadyCancelled && reservation.RoomID != nil {
		room, err = Release(ctx, tx, *reservation.RoomID, reservation.ID)
		if err != nil {
			return nil, err
		}
	}

	if alreadyCancelled {
		return nil, nil
	}
	return []audit.Event{
		audit.NewEvent(ctx, audit.ActionCancel, reservation).WithRoom(room).WithTransaction(txn),
	}, nil
}

// Reserve 预留房间：空闲房间置为 RESERVED，其余状态只递增版本号
// 递增版本号使并发确认同一房间的请求互相可见
func Reserve(ctx context.Context, roomRepo *repository.RoomRepository, room *models.Room) error {
	fields := map[string]interface{}{}
	if room.Status == models.RoomStatusAvailable {
		fields["status"] = models.RoomStatusReserved
	}
	return mapWriteError(roomRepo.UpdateWithVersion(ctx, room, fields))
}

// Release 释放预留房间，房间上仍有其他有效预订时保持 RESERVED
func Release(ctx context.Context, tx *gorm.DB, roomID, reservationID int64) (*models.Room, error) {
	roomRepo := repository.NewRoomRepository(tx)
	room, err := roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if room.Status != models.RoomStatusReserved {
		return room, nil
	}

	others, err := repository.NewReservationRepository(tx).CountActiveByRoom(ctx, roomID, reservationID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if others > 0 {
		return room, nil
	}
	if err := roomRepo.UpdateWithVersion(ctx, room, map[string]interface{}{"status": models.RoomStatusAvailable}); err != nil {
		return nil, mapWriteError(err)
	}
	return room, nil
}

func loadReservation(ctx context.Context, repo *repository.ReservationRepository, id int64) (*models.Reservation, error) {
	reservation, err := repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrReservationNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return reservation, nil
}

// mapWriteError 版本冲突原样返回交给重试，其余包装为数据库错误
func mapWriteError(err error) error {
	if err == nil || errors.IsAppError(err) {
		return err
	}
	return errors.ErrDatabaseError.WithError(err)
}
