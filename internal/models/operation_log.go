package models

import "time"

// OperationLog 操作审计日志
type OperationLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OperatorID   *int64    `gorm:"index" json:"operator_id,omitempty"`
	OperatorType string    `gorm:"type:varchar(20);not null" json:"operator_type"`
	Module       string    `gorm:"type:varchar(50);not null" json:"module"`
	Action       string    `gorm:"type:varchar(50);index;not null" json:"action"`
	TargetType   *string   `gorm:"type:varchar(50)" json:"target_type,omitempty"`
	TargetID     *int64    `gorm:"index" json:"target_id,omitempty"`
	Detail       JSON      `gorm:"type:jsonb" json:"detail,omitempty"`
	IP           *string   `gorm:"type:varchar(45)" json:"ip,omitempty"`
	UserAgent    *string   `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (OperationLog) TableName() string {
	return "operation_logs"
}

// OperatorType 操作者类型
const (
	OperatorTypeStaff  = "staff"  // 员工
	OperatorTypeGuest  = "guest"  // 宾客
	OperatorTypeSystem = "system" // 系统（定时任务、支付回调）
)

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Room{},
		&Guest{},
		&Reservation{},
		&PaymentTransaction{},
		&Staff{},
		&OperationLog{},
	}
}
