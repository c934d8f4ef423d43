package models

import "time"

// Room 房间
type Room struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomNumber  string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"room_number"`
	RoomType    string     `gorm:"type:varchar(50);index;not null" json:"room_type"`
	Floor       *int       `json:"floor,omitempty"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Price       float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	Capacity    int        `gorm:"not null;default:2" json:"capacity"`
	Amenities   StringList `gorm:"type:jsonb" json:"amenities,omitempty"`
	Images      StringList `gorm:"type:jsonb" json:"images,omitempty"`
	Status      string     `gorm:"type:varchar(20);index;not null;default:AVAILABLE" json:"status"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	Version     int        `gorm:"not null;default:0" json:"version"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}

// RoomStatus 房态
const (
	RoomStatusAvailable   = "AVAILABLE"   // 空闲
	RoomStatusReserved    = "RESERVED"    // 已预留
	RoomStatusOccupied    = "OCCUPIED"    // 在住
	RoomStatusCleaning    = "CLEANING"    // 清扫中
	RoomStatusMaintenance = "MAINTENANCE" // 维修
)

// RoomStatuses 全部房态
var RoomStatuses = []string{
	RoomStatusAvailable,
	RoomStatusReserved,
	RoomStatusOccupied,
	RoomStatusCleaning,
	RoomStatusMaintenance,
}

// IsCheckInAllowed 房间能否办理入住
func (r *Room) IsCheckInAllowed() bool {
	return r.Status != RoomStatusOccupied && r.Status != RoomStatusMaintenance
}
