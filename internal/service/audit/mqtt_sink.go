package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/pkg/mqtt"
)

// MQTTSink 把事件发布到 MQTT
//
//	{prefix}/reservations/{reservation_no}/events  每个事件一条
//	{prefix}/rooms/{room_number}/status            房态（保留消息）
type MQTTSink struct {
	publisher mqtt.Publisher
	prefix    string
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// NewMQTTSink 创建 MQTT Sink
func NewMQTTSink(publisher mqtt.Publisher, prefix string, m *metrics.Metrics) *MQTTSink {
	if prefix == "" {
		prefix = "hotel"
	}
	return &MQTTSink{
		publisher: publisher,
		prefix:    prefix,
		timeout:   3 * time.Second,
		metrics:   m,
	}
}

// ReservationTopic 预订事件主题
func (s *MQTTSink) ReservationTopic(reservationNo string) string {
	return fmt.Sprintf("%s/reservations/%s/events", s.prefix, reservationNo)
}

// RoomStatusTopic 房态主题
func (s *MQTTSink) RoomStatusTopic(roomNumber string) string {
	return fmt.Sprintf("%s/rooms/%s/status", s.prefix, roomNumber)
}

// Record 发布事件
func (s *MQTTSink) Record(ctx context.Context, evt Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.publisher.Publish(ctx, s.ReservationTopic(evt.ReservationNo), evt, false)
	s.metrics.RecordEvent("mqtt", err)
	if err != nil {
		return err
	}

	if evt.RoomNumber == "" || evt.RoomStatus == "" {
		return nil
	}
	err = s.publisher.Publish(ctx, s.RoomStatusTopic(evt.RoomNumber), map[string]interface{}{
		"room_number": evt.RoomNumber,
		"status":      evt.RoomStatus,
		"updated_at":  evt.OccurredAt,
	}, true)
	s.metrics.RecordEvent("mqtt", err)
	return err
}
