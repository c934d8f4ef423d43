package models

import "time"

// PaymentTransaction 支付/退款流水
type PaymentTransaction struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo         string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"transaction_no"`
	ReservationID         int64      `gorm:"index;not null" json:"reservation_id"`
	Amount                float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Type                  string     `gorm:"type:varchar(20);not null" json:"type"`
	Status                string     `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	Channel               string     `gorm:"type:varchar(20);not null;default:GATEWAY" json:"channel"`
	ProviderTransactionID *string    `gorm:"type:varchar(64)" json:"provider_transaction_id,omitempty"`
	Note                  *string    `gorm:"type:varchar(255)" json:"note,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// TransactionType 交易类型
const (
	TransactionTypePayment = "PAYMENT" // 收款
	TransactionTypeRefund  = "REFUND"  // 退款
)

// TransactionStatus 交易状态
const (
	TransactionStatusPending = "PENDING" // 处理中
	TransactionStatusSuccess = "SUCCESS" // 成功
	TransactionStatusFailed  = "FAILED"  // 失败
)

// TransactionChannel 流水来源
const (
	TransactionChannelGateway   = "GATEWAY"    // 支付渠道，成功回调时计入已付金额
	TransactionChannelFrontDesk = "FRONT_DESK" // 前台收款，办理时已计入已付金额
	TransactionChannelSystem    = "SYSTEM"     // 定时任务生成的退款
)

// IsPending 是否仍待回调
func (t *PaymentTransaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}
