package repository

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRoomRepository_UpdateWithVersion_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomRepository(db)
	room := &models.Room{ID: 7, Version: 3, Status: models.RoomStatusAvailable}

	t.Run("带版本条件并自增版本号", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "rooms" SET .*"version"=version \+ 1.* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateWithVersion(context.Background(), room, map[string]interface{}{"status": models.RoomStatusReserved})
		require.NoError(t, err)
		assert.Equal(t, 4, room.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("未命中行返回版本冲突", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "rooms" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateWithVersion(context.Background(), room, map[string]interface{}{"status": models.RoomStatusOccupied})
		assert.True(t, stderrors.Is(err, errors.ErrVersionConflict))
		assert.Equal(t, 4, room.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_UpdateWithVersion_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReservationRepository(db)
	reservation := &models.Reservation{ID: 11, Version: 0}

	mock.ExpectExec(`UPDATE "reservations" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateWithVersion(context.Background(), reservation, map[string]interface{}{"paid_amount": 50.0})
	require.NoError(t, err)
	assert.Equal(t, 1, reservation.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Complete_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTransactionRepository(db)
	txn := &models.PaymentTransaction{ID: 5, Status: models.TransactionStatusPending}

	mock.ExpectExec(`UPDATE "payment_transactions" SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), txn, models.TransactionStatusSuccess, nil, nil, txn.CreatedAt)
	assert.True(t, stderrors.Is(err, errors.ErrTransactionStatus))
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
