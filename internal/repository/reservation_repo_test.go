package repository

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func TestReservationRepository_FindConflicting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	room := createTestRoom(t, db, "101", "DELUXE", 300)
	guest := createTestGuest(t, db, "张三")

	existing := createTestReservation(t, db, guest.ID, &room.ID, "2026-11-10", "2026-11-13", models.ReservationStatusConfirmed)
	// 待支付和已取消的预订不占用房间
	createTestReservation(t, db, guest.ID, &room.ID, "2026-11-20", "2026-11-22", models.ReservationStatusPending)
	createTestReservation(t, db, guest.ID, &room.ID, "2026-11-25", "2026-11-27", models.ReservationStatusCancelled)

	tests := []struct {
		name     string
		in, out  string
		conflict bool
	}{
		{"完全包含", "2026-11-11", "2026-11-12", true},
		{"部分重叠", "2026-11-12", "2026-11-15", true},
		{"同日入住", "2026-11-10", "2026-11-11", true},
		{"同日离店", "2026-11-08", "2026-11-13", true},
		{"前一段离店日等于入住日", "2026-11-13", "2026-11-15", false},
		{"后一段入住日等于离店日", "2026-11-07", "2026-11-10", false},
		{"完全不相交", "2026-11-01", "2026-11-03", false},
		{"待支付预订不冲突", "2026-11-20", "2026-11-22", false},
		{"已取消预订不冲突", "2026-11-25", "2026-11-27", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindConflicting(ctx, room.ID, date(tt.in), date(tt.out), 0)
			require.NoError(t, err)
			if tt.conflict {
				require.Len(t, found, 1)
				assert.Equal(t, existing.ID, found[0].ID)
			} else {
				assert.Empty(t, found)
			}
		})
	}

	t.Run("排除自身", func(t *testing.T) {
		found, err := repo.FindConflicting(ctx, room.ID, date("2026-11-10"), date("2026-11-13"), existing.ID)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("已入住预订同样占用", func(t *testing.T) {
		other := createTestRoom(t, db, "102", "DELUXE", 300)
		createTestReservation(t, db, guest.ID, &other.ID, "2026-11-10", "2026-11-12", models.ReservationStatusCheckedIn)
		found, err := repo.FindConflicting(ctx, other.ID, date("2026-11-11"), date("2026-11-14"), 0)
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}

func TestReservationRepository_UpdateWithVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	guest := createTestGuest(t, db, "李四")
	reservation := createTestReservation(t, db, guest.ID, nil, "2026-11-01", "2026-11-02", models.ReservationStatusPending)
	stale := *reservation

	err := repo.UpdateWithVersion(ctx, reservation, map[string]interface{}{
		"status":      models.ReservationStatusConfirmed,
		"paid_amount": 120.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, reservation.Version)

	err = repo.UpdateWithVersion(ctx, &stale, map[string]interface{}{"status": models.ReservationStatusCancelled})
	assert.True(t, stderrors.Is(err, errors.ErrVersionConflict))

	found, err := repo.GetByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, found.Status)
	assert.Equal(t, 120.5, found.PaidAmount)
}

func TestReservationRepository_ListExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	guest := createTestGuest(t, db, "王五")
	pending := createTestReservation(t, db, guest.ID, nil, "2026-10-14", "2026-10-16", models.ReservationStatusPending)
	confirmed := createTestReservation(t, db, guest.ID, nil, "2026-10-10", "2026-10-12", models.ReservationStatusConfirmed)
	createTestReservation(t, db, guest.ID, nil, "2026-10-15", "2026-10-16", models.ReservationStatusPending)
	createTestReservation(t, db, guest.ID, nil, "2026-10-10", "2026-10-12", models.ReservationStatusCheckedIn)
	createTestReservation(t, db, guest.ID, nil, "2026-10-10", "2026-10-12", models.ReservationStatusCancelled)

	expired, err := repo.ListExpired(ctx, date("2026-10-15"), 0)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, pending.ID, expired[0].ID)
	assert.Equal(t, confirmed.ID, expired[1].ID)

	limited, err := repo.ListExpired(ctx, date("2026-10-15"), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReservationRepository_Queries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	room := createTestRoom(t, db, "101", "DELUXE", 300)
	alice := createTestGuest(t, db, "Alice")
	bob := createTestGuest(t, db, "Bob")

	r1 := createTestReservation(t, db, alice.ID, &room.ID, "2026-11-01", "2026-11-03", models.ReservationStatusConfirmed)
	createTestReservation(t, db, alice.ID, nil, "2026-11-05", "2026-11-06", models.ReservationStatusPending)
	createTestReservation(t, db, bob.ID, nil, "2026-12-01", "2026-12-02", models.ReservationStatusPending)

	t.Run("按预订号获取并预加载", func(t *testing.T) {
		found, err := repo.GetByReservationNo(ctx, r1.ReservationNo)
		require.NoError(t, err)
		require.NotNil(t, found.Room)
		require.NotNil(t, found.Guest)
		assert.Equal(t, "101", found.Room.RoomNumber)
		assert.Equal(t, "Alice", found.Guest.FullName)
	})

	t.Run("按宾客", func(t *testing.T) {
		list, total, err := repo.ListByGuest(ctx, alice.ID, 0, 10, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 2)

		status := models.ReservationStatusPending
		_, total, err = repo.ListByGuest(ctx, alice.ID, 0, 10, &status)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("按房间", func(t *testing.T) {
		_, total, err := repo.ListByRoom(ctx, room.ID, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("按状态", func(t *testing.T) {
		_, total, err := repo.ListByStatus(ctx, models.ReservationStatusPending, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("按入住日期区间", func(t *testing.T) {
		list, err := repo.ListByCheckInRange(ctx, date("2026-11-01"), date("2026-11-30"))
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("存在性", func(t *testing.T) {
		exists, err := repo.ExistsByGuest(ctx, bob.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestReservationRepository_Statistics(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	guest := createTestGuest(t, db, "赵六")
	checkedIn := createTestReservation(t, db, guest.ID, nil, "2026-10-15", "2026-10-17", models.ReservationStatusCheckedIn)
	createTestReservation(t, db, guest.ID, nil, "2026-10-13", "2026-10-15", models.ReservationStatusCheckedOut)
	require.NoError(t, db.Model(checkedIn).Update("paid_amount", 88.8).Error)

	count, err := repo.CountByStatusAndCheckIn(ctx, models.ReservationStatusCheckedIn, date("2026-10-15"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountByStatusAndCheckOut(ctx, models.ReservationStatusCheckedOut, date("2026-10-15"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	count, err = repo.CountCreatedBetween(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sum, err := repo.SumPaidCreatedBetween(ctx, start, end)
	require.NoError(t, err)
	assert.InDelta(t, 88.8, sum, 0.001)
}

func TestReservationRepository_CountActiveByRoom(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	room := createTestRoom(t, db, "101", "DELUXE", 300)
	guest := createTestGuest(t, db, "孙七")
	a := createTestReservation(t, db, guest.ID, &room.ID, "2026-11-01", "2026-11-03", models.ReservationStatusConfirmed)
	createTestReservation(t, db, guest.ID, &room.ID, "2026-11-10", "2026-11-12", models.ReservationStatusConfirmed)
	createTestReservation(t, db, guest.ID, &room.ID, "2026-11-20", "2026-11-22", models.ReservationStatusCancelled)

	count, err := repo.CountActiveByRoom(ctx, room.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
