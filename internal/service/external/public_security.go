package external

import (
	"context"
	"fmt"
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// PublicSecurityService 公安旅馆业系统对接（核验只校验证件号长度）
type PublicSecurityService struct {
	now func() time.Time
}

// NewPublicSecurityService 创建服务
func NewPublicSecurityService(now func() time.Time) *PublicSecurityService {
	if now == nil {
		now = time.Now
	}
	return &PublicSecurityService{now: now}
}

// IDVerifyResult 证件核验结果
type IDVerifyResult struct {
	Success      bool   `json:"success"`
	Valid        bool   `json:"valid"`
	Name         string `json:"name"`
	IDCardNumber string `json:"id_card_number"`
	Message      string `json:"message"`
}

// Verify 核验身份证
func (s *PublicSecurityService) Verify(ctx context.Context, idCardNumber, name string) (*IDVerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	valid := len(idCardNumber) == 15 || len(idCardNumber) == 18
	result := &IDVerifyResult{
		Success:      true,
		Valid:        valid,
		Name:         name,
		IDCardNumber: utils.MaskIDCard(idCardNumber),
		Message:      "核验通过",
	}
	if !valid {
		result.Message = "证件号码无效"
	}
	return result, nil
}

// VerifyIDCard 供宾客登记时调用
func (s *PublicSecurityService) VerifyIDCard(ctx context.Context, idCardNumber, name string) (bool, error) {
	result, err := s.Verify(ctx, idCardNumber, name)
	if err != nil {
		return false, err
	}
	return result.Valid, nil
}

// ReportResult 上报结果
type ReportResult struct {
	Success  bool   `json:"success"`
	ReportID string `json:"report_id"`
	Message  string `json:"message"`
}

// ReportRegistration 上报入住登记
func (s *PublicSecurityService) ReportRegistration(ctx context.Context, guest *models.Guest, reservation *models.Reservation) (*ReportResult, error) {
	if guest == nil || reservation == nil {
		return nil, errors.ErrInvalidParams
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reportID := fmt.Sprintf("PS_%d", s.now().UnixMilli())
	logger.Info("guest registration reported",
		logger.Module("public_security"),
		logger.GuestID(guest.ID),
		logger.ReservationNo(reservation.ReservationNo),
		logger.String("report_id", reportID),
	)
	return &ReportResult{Success: true, ReportID: reportID, Message: "上报成功"}, nil
}

// ReportCheckout 上报退房
func (s *PublicSecurityService) ReportCheckout(ctx context.Context, reservation *models.Reservation) (*ReportResult, error) {
	if reservation == nil {
		return nil, errors.ErrInvalidParams
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reportID := fmt.Sprintf("PS_%d", s.now().UnixMilli())
	logger.Info("guest checkout reported",
		logger.Module("public_security"),
		logger.ReservationNo(reservation.ReservationNo),
		logger.String("report_id", reportID),
	)
	return &ReportResult{Success: true, ReportID: reportID, Message: "上报成功"}, nil
}
