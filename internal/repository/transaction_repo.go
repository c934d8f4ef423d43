package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// TransactionRepository 支付/退款流水仓储
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository 创建流水仓储
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx 绑定到事务
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create 创建流水
func (r *TransactionRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// GetByID 根据 ID 获取流水
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&txn, id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetByTransactionNo 根据流水号获取流水
func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListByReservation 获取预订的全部流水
func (r *TransactionRepository) ListByReservation(ctx context.Context, reservationID int64) ([]*models.PaymentTransaction, error) {
	var txns []*models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC, id ASC").
		Find(&txns).Error
	return txns, err
}

// CountByReservationAndType 统计预订指定类型的流水数
func (r *TransactionRepository) CountByReservationAndType(ctx context.Context, reservationID int64, txnType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("reservation_id = ? AND type = ?", reservationID, txnType).
		Count(&count).Error
	return count, err
}

// Complete 将 PENDING 流水置为终态，流水已是终态时返回 ErrTransactionStatus
func (r *TransactionRepository) Complete(ctx context.Context, txn *models.PaymentTransaction, status string, providerRef, note *string, completedAt time.Time) error {
	fields := map[string]interface{}{
		"status":       status,
		"completed_at": completedAt,
	}
	if providerRef != nil {
		fields["provider_transaction_id"] = *providerRef
	}
	if note != nil {
		fields["note"] = *note
	}

	result := r.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionStatusPending).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.ErrTransactionStatus.WithMessage("交易已处理，不能重复回调")
	}

	txn.Status = status
	txn.CompletedAt = &completedAt
	if providerRef != nil {
		txn.ProviderTransactionID = providerRef
	}
	if note != nil {
		txn.Note = note
	}
	return nil
}
