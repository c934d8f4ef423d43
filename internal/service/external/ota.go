package external

import (
	"context"
	"fmt"
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// OTAService OTA 渠道对接（未接入真实渠道，只记录日志）
type OTAService struct {
	now func() time.Time
}

// NewOTAService 创建 OTA 服务
func NewOTAService(now func() time.Time) *OTAService {
	if now == nil {
		now = time.Now
	}
	return &OTAService{now: now}
}

// OTASyncResult 同步结果
type OTASyncResult struct {
	Success    bool   `json:"success"`
	OTAOrderID string `json:"ota_order_id,omitempty"`
	Message    string `json:"message"`
}

// SyncReservation 推送预订到 OTA
func (s *OTAService) SyncReservation(ctx context.Context, reservation *models.Reservation) (*OTASyncResult, error) {
	if reservation == nil {
		return nil, errors.ErrInvalidParams
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orderID := fmt.Sprintf("OTA_%d", s.now().UnixMilli())
	logger.Info("ota reservation synced",
		logger.Module("ota"),
		logger.ReservationNo(reservation.ReservationNo),
		logger.String("ota_order_id", orderID),
	)
	return &OTASyncResult{Success: true, OTAOrderID: orderID, Message: "同步成功"}, nil
}

// InventoryRequest 库存更新
type InventoryRequest struct {
	RoomType string `json:"room_type" binding:"required"`
	Count    int    `json:"count" binding:"min=0"`
}

// UpdateInventory 推送房型库存
func (s *OTAService) UpdateInventory(ctx context.Context, req *InventoryRequest) (*OTASyncResult, error) {
	if req.RoomType == "" || req.Count < 0 {
		return nil, errors.ErrInvalidParams
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info("ota inventory updated",
		logger.Module("ota"),
		logger.String("room_type", req.RoomType),
		logger.Int("count", req.Count),
	)
	return &OTASyncResult{Success: true, Message: "库存已更新"}, nil
}

// CancelOrder 取消 OTA 订单
func (s *OTAService) CancelOrder(ctx context.Context, otaOrderID string) (*OTASyncResult, error) {
	if otaOrderID == "" {
		return nil, errors.ErrInvalidParams
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info("ota order cancelled", logger.Module("ota"), logger.String("ota_order_id", otaOrderID))
	return &OTASyncResult{Success: true, OTAOrderID: otaOrderID, Message: "取消成功"}, nil
}

// OTAOrder OTA 订单
type OTAOrder struct {
	OTAOrderID    string `json:"ota_order_id"`
	ReservationNo string `json:"reservation_no"`
	Status        string `json:"status"`
}

// ListOrders 拉取 OTA 订单
func (s *OTAService) ListOrders(ctx context.Context) ([]*OTAOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []*OTAOrder{}, nil
}
