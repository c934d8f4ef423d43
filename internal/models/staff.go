package models

import "time"

// Staff 酒店员工账号
type Staff struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string     `gorm:"type:varchar(50);not null" json:"full_name"`
	Email        *string    `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	Phone        *string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Role         string     `gorm:"type:varchar(20);not null;default:MANAGER" json:"role"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP  *string    `gorm:"type:varchar(45)" json:"last_login_ip,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Staff) TableName() string {
	return "staff"
}

// StaffRole 员工角色
const (
	StaffRoleAdmin        = "ADMIN"        // 系统管理员
	StaffRoleManager      = "MANAGER"      // 值班经理
	StaffRoleReceptionist = "RECEPTIONIST" // 前台
	StaffRoleHousekeeping = "HOUSEKEEPING" // 客房
)

// StaffRoles 全部角色
var StaffRoles = []string{
	StaffRoleAdmin,
	StaffRoleManager,
	StaffRoleReceptionist,
	StaffRoleHousekeeping,
}
