package models

import "time"

// Guest 宾客
type Guest struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName        string     `gorm:"type:varchar(100);index;not null" json:"full_name"`
	IDCardNumber    string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"id_card_number"`
	Phone           *string    `gorm:"type:varchar(20);index" json:"phone,omitempty"`
	Email           *string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	Gender          int8       `gorm:"type:smallint;not null;default:0" json:"gender"`
	DateOfBirth     *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Nationality     *string    `gorm:"type:varchar(50)" json:"nationality,omitempty"`
	Address         *string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	Preferences     *string    `gorm:"type:text" json:"preferences,omitempty"`
	SpecialRequests *string    `gorm:"type:text" json:"special_requests,omitempty"`
	Username        *string    `gorm:"type:varchar(50);uniqueIndex" json:"username,omitempty"`
	PasswordHash    *string    `gorm:"type:varchar(255)" json:"-"`
	IsVerified      bool       `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Guest) TableName() string {
	return "guests"
}

// Gender 性别
const (
	GenderUnknown = 0 // 未知
	GenderMale    = 1 // 男
	GenderFemale  = 2 // 女
)
