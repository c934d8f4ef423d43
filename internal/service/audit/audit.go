// Package audit 预订状态变更的审计事件与投递
package audit

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// 事件动作
const (
	ActionCreate             = "create"
	ActionUpdate             = "update"
	ActionConfirm            = "confirm"
	ActionConfirmUnallocated = "confirm_unallocated" // 已收款但无可分配房间
	ActionCancelQuote        = "cancel_quote"
	ActionCancel             = "cancel"
	ActionCheckIn            = "check_in"
	ActionCheckOut           = "check_out"
	ActionExpire             = "expire"
	ActionPaymentFailed      = "payment_failed"
	ActionRefundFailed       = "refund_failed"
	ActionSideEffectFailed   = "side_effect_failed" // 附带流水记录失败
)

// Event 审计事件
type Event struct {
	Action        string                 `json:"action"`
	ReservationID int64                  `json:"reservation_id"`
	ReservationNo string                 `json:"reservation_no"`
	GuestID       int64                  `json:"guest_id,omitempty"`
	Status        string                 `json:"status,omitempty"`
	RoomID        *int64                 `json:"room_id,omitempty"`
	RoomNumber    string                 `json:"room_number,omitempty"`
	RoomStatus    string                 `json:"room_status,omitempty"`
	TransactionID *int64                 `json:"transaction_id,omitempty"`
	Amount        float64                `json:"amount,omitempty"`
	OperatorID    *int64                 `json:"operator_id,omitempty"`
	OperatorType  string                 `json:"operator_type"`
	Detail        map[string]interface{} `json:"detail,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// NewEvent 以预订当前状态构造事件
func NewEvent(ctx context.Context, action string, reservation *models.Reservation) Event {
	evt := Event{
		Action:        action,
		ReservationID: reservation.ID,
		ReservationNo: reservation.ReservationNo,
		GuestID:       reservation.GuestID,
		Status:        reservation.Status,
		RoomID:        reservation.RoomID,
		OccurredAt:    time.Now(),
	}
	evt.OperatorID, evt.OperatorType = OperatorFrom(ctx)
	return evt
}

// WithRoom 附带房间信息
func (e Event) WithRoom(room *models.Room) Event {
	if room != nil {
		e.RoomID = &room.ID
		e.RoomNumber = room.RoomNumber
		e.RoomStatus = room.Status
	}
	return e
}

// WithTransaction 附带流水信息
func (e Event) WithTransaction(txn *models.PaymentTransaction) Event {
	if txn != nil {
		e.TransactionID = &txn.ID
		e.Amount = txn.Amount
	}
	return e
}

// WithDetail 附带明细
func (e Event) WithDetail(key string, value interface{}) Event {
	detail := make(map[string]interface{}, len(e.Detail)+1)
	for k, v := range e.Detail {
		detail[k] = v
	}
	detail[key] = value
	e.Detail = detail
	return e
}

// Sink 审计事件接收者
type Sink interface {
	Record(ctx context.Context, evt Event) error
}

// MultiSink 依次投递给多个 Sink，单个失败不影响其余
type MultiSink []Sink

// Record 投递事件
func (m MultiSink) Record(ctx context.Context, evt Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// NopSink 丢弃所有事件
type NopSink struct{}

// Record 不做任何事
func (NopSink) Record(context.Context, Event) error { return nil }

// Emit 投递事件，失败只记录告警，不影响主流程
func Emit(ctx context.Context, sink Sink, evt Event) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, evt); err != nil {
		logger.Ctx(ctx).Warn("审计事件投递失败",
			logger.Action(evt.Action),
			logger.ReservationID(evt.ReservationID),
			logger.Err(err),
		)
	}
}

type operatorKey struct{}

type operator struct {
	id  *int64
	typ string
}

// WithOperator 在上下文中记录操作者
func WithOperator(ctx context.Context, id int64, operatorType string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator{id: &id, typ: operatorType})
}

// OperatorFrom 取出操作者，未设置时视为系统
func OperatorFrom(ctx context.Context) (*int64, string) {
	if op, ok := ctx.Value(operatorKey{}).(operator); ok {
		return op.id, op.typ
	}
	return nil, models.OperatorTypeSystem
}
