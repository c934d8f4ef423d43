package audit

import (
	"context"
	"strconv"

	"github.com/dumeirei/hotel-pms-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/pkg/sms"
)

// SMSTemplates 各动作对应的短信模板
type SMSTemplates struct {
	Confirm  string
	Cancel   string
	Checkout string
}

// SMSNotifier 预订确认/取消/离店时短信通知宾客
type SMSNotifier struct {
	sender    sms.Sender
	guestRepo *repository.GuestRepository
	templates map[string]string
	metrics   *metrics.Metrics
}

// NewSMSNotifier 创建短信通知 Sink
func NewSMSNotifier(sender sms.Sender, guestRepo *repository.GuestRepository, templates SMSTemplates, m *metrics.Metrics) *SMSNotifier {
	return &SMSNotifier{
		sender:    sender,
		guestRepo: guestRepo,
		templates: map[string]string{
			ActionConfirm:  templates.Confirm,
			ActionCancel:   templates.Cancel,
			ActionExpire:   templates.Cancel,
			ActionCheckOut: templates.Checkout,
		},
		metrics: m,
	}
}

// Record 发送通知，无模板或宾客未留手机号时跳过
func (n *SMSNotifier) Record(ctx context.Context, evt Event) error {
	template := n.templates[evt.Action]
	if template == "" || evt.GuestID == 0 {
		return nil
	}

	guest, err := n.guestRepo.GetByID(ctx, evt.GuestID)
	if err != nil {
		return err
	}
	phone := utils.Deref(guest.Phone)
	if phone == "" {
		return nil
	}

	params := map[string]string{
		"name":           guest.FullName,
		"reservation_no": evt.ReservationNo,
	}
	if evt.RoomNumber != "" {
		params["room_number"] = evt.RoomNumber
	}
	if evt.Amount > 0 {
		params["amount"] = strconv.FormatFloat(evt.Amount, 'f', 2, 64)
	}

	err = n.sender.Send(ctx, phone, template, params)
	n.metrics.RecordEvent("sms", err)
	if err != nil {
		logger.Ctx(ctx).Warn("短信发送失败",
			logger.String("phone", crypto.MaskPhone(phone)),
			logger.Action(evt.Action),
			logger.ReservationNo(evt.ReservationNo),
		)
	}
	return err
}
