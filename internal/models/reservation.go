package models

import "time"

// Reservation 预订
type Reservation struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationNo     string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"reservation_no"`
	GuestID           int64     `gorm:"index;not null" json:"guest_id"`
	RoomID            *int64    `gorm:"index" json:"room_id,omitempty"`
	PreferredRoomType *string   `gorm:"type:varchar(50)" json:"preferred_room_type,omitempty"`
	CheckInDate       time.Time `gorm:"type:date;index;not null" json:"check_in_date"`
	CheckOutDate      time.Time `gorm:"type:date;index;not null" json:"check_out_date"`
	NumberOfGuests    int       `gorm:"not null;default:1" json:"number_of_guests"`
	TotalAmount       *float64  `gorm:"type:decimal(10,2)" json:"total_amount,omitempty"`
	PaidAmount        float64   `gorm:"type:decimal(10,2);not null;default:0" json:"paid_amount"`
	Status            string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	Source            string    `gorm:"type:varchar(20);not null;default:DIRECT" json:"source"`
	OtaOrderID        *string   `gorm:"type:varchar(64)" json:"ota_order_id,omitempty"`
	CreatedBy         *string   `gorm:"type:varchar(50)" json:"created_by,omitempty"`
	SpecialRequests   *string   `gorm:"type:text" json:"special_requests,omitempty"`
	Version           int       `gorm:"not null;default:0" json:"version"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Guest *Guest `gorm:"foreignKey:GuestID" json:"guest,omitempty"`
	Room  *Room  `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

// TableName 表名
func (Reservation) TableName() string {
	return "reservations"
}

// ReservationStatus 预订状态
const (
	ReservationStatusPending    = "PENDING"     // 待支付
	ReservationStatusConfirmed  = "CONFIRMED"   // 已确认
	ReservationStatusCheckedIn  = "CHECKED_IN"  // 已入住
	ReservationStatusCheckedOut = "CHECKED_OUT" // 已离店
	ReservationStatusCancelled  = "CANCELLED"   // 已取消
)

// ReservationStatuses 全部预订状态
var ReservationStatuses = []string{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusCheckedIn,
	ReservationStatusCheckedOut,
	ReservationStatusCancelled,
}

// ActiveReservationStatuses 占用房间日期的状态，参与冲突检测
var ActiveReservationStatuses = []string{
	ReservationStatusConfirmed,
	ReservationStatusCheckedIn,
}

// ReservationSource 预订来源
const (
	ReservationSourceDirect = "DIRECT" // 前台 / 官网
	ReservationSourceOTA    = "OTA"    // 第三方渠道
)

// Nights 入住晚数
func (r *Reservation) Nights() int {
	return int(r.CheckOutDate.Sub(r.CheckInDate).Hours() / 24)
}

// IsTerminal 是否为终态
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusCheckedOut || r.Status == ReservationStatusCancelled
}
