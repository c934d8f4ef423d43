package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func createTestRoom(t *testing.T, db *gorm.DB, number, roomType string, price float64) *models.Room {
	room := &models.Room{
		RoomNumber: number,
		RoomType:   roomType,
		Price:      price,
		Capacity:   2,
		Status:     models.RoomStatusAvailable,
		IsActive:   true,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

var guestSeq int

func createTestGuest(t *testing.T, db *gorm.DB, name string) *models.Guest {
	guestSeq++
	guest := &models.Guest{
		FullName:     name,
		IDCardNumber: fmt.Sprintf("1101011990010%05d", guestSeq),
	}
	require.NoError(t, db.Create(guest).Error)
	return guest
}

func date(s string) time.Time {
	d, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func createTestReservation(t *testing.T, db *gorm.DB, guestID int64, roomID *int64, in, out, status string) *models.Reservation {
	reservation := &models.Reservation{
		ReservationNo:  utils.GenerateNo("R"),
		GuestID:        guestID,
		RoomID:         roomID,
		CheckInDate:    date(in),
		CheckOutDate:   date(out),
		NumberOfGuests: 1,
		Status:         status,
		Source:         models.ReservationSourceDirect,
	}
	require.NoError(t, NewReservationRepository(db).Create(context.Background(), reservation))
	return reservation
}
