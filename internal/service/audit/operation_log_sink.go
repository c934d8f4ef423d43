package audit

import (
	"context"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

const targetTypeReservation = "reservation"

// OperationLogSink 写入 operation_logs 表
type OperationLogSink struct {
	repo *repository.OperationLogRepository
}

// NewOperationLogSink 创建审计日志表 Sink
func NewOperationLogSink(repo *repository.OperationLogRepository) *OperationLogSink {
	return &OperationLogSink{repo: repo}
}

// Record 写入一条审计日志
func (s *OperationLogSink) Record(ctx context.Context, evt Event) error {
	detail := models.JSON{
		"reservation_no": evt.ReservationNo,
		"status":         evt.Status,
	}
	if evt.RoomID != nil {
		detail["room_id"] = *evt.RoomID
	}
	if evt.RoomNumber != "" {
		detail["room_number"] = evt.RoomNumber
		detail["room_status"] = evt.RoomStatus
	}
	if evt.TransactionID != nil {
		detail["transaction_id"] = *evt.TransactionID
		detail["amount"] = evt.Amount
	}
	for k, v := range evt.Detail {
		detail[k] = v
	}

	targetType := targetTypeReservation
	targetID := evt.ReservationID
	return s.repo.Create(ctx, &models.OperationLog{
		OperatorID:   evt.OperatorID,
		OperatorType: evt.OperatorType,
		Module:       "reservation",
		Action:       evt.Action,
		TargetType:   &targetType,
		TargetID:     &targetID,
		Detail:       detail,
	})
}
