package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func TestGuestRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGuestRepository(db)
	ctx := context.Background()

	zhang := &models.Guest{FullName: "张三丰", IDCardNumber: "110101199001011234", Phone: utils.Ptr("13800138000")}
	require.NoError(t, repo.Create(ctx, zhang))
	li := &models.Guest{FullName: "李四", IDCardNumber: "110101199001015678", Username: utils.Ptr("lisi")}
	require.NoError(t, repo.Create(ctx, li))

	t.Run("按证件号获取", func(t *testing.T) {
		found, err := repo.GetByIDCard(ctx, "110101199001011234")
		require.NoError(t, err)
		assert.Equal(t, zhang.ID, found.ID)
	})

	t.Run("证件号唯一性", func(t *testing.T) {
		exists, err := repo.ExistsByIDCard(ctx, "110101199001011234", 0)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByIDCard(ctx, "110101199001011234", zhang.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("按登录名获取", func(t *testing.T) {
		found, err := repo.GetByUsername(ctx, "lisi")
		require.NoError(t, err)
		assert.Equal(t, li.ID, found.ID)

		exists, err := repo.ExistsByUsername(ctx, "lisi")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("姓名模糊搜索", func(t *testing.T) {
		guests, err := repo.SearchByName(ctx, "三")
		require.NoError(t, err)
		require.Len(t, guests, 1)
		assert.Equal(t, "张三丰", guests[0].FullName)
	})

	t.Run("按手机号", func(t *testing.T) {
		guests, err := repo.ListByPhone(ctx, "13800138000")
		require.NoError(t, err)
		assert.Len(t, guests, 1)
	})

	t.Run("列表筛选", func(t *testing.T) {
		_, total, err := repo.List(ctx, 0, 10, map[string]interface{}{"name": "李"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("更新和删除", func(t *testing.T) {
		li.Email = utils.Ptr("lisi@example.com")
		require.NoError(t, repo.Update(ctx, li))

		found, err := repo.GetByID(ctx, li.ID)
		require.NoError(t, err)
		assert.Equal(t, "lisi@example.com", utils.Deref(found.Email))

		require.NoError(t, repo.Delete(ctx, li.ID))
		_, err = repo.GetByID(ctx, li.ID)
		assert.Error(t, err)
	})
}

func TestStaffRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStaffRepository(db)
	ctx := context.Background()

	staff := &models.Staff{
		Username:     "frontdesk",
		PasswordHash: "hash",
		FullName:     "前台",
		Role:         models.StaffRoleReceptionist,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(ctx, staff))

	found, err := repo.GetByUsername(ctx, "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, found.ID)

	exists, err := repo.ExistsByUsername(ctx, "frontdesk")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.UpdateLoginInfo(ctx, staff.ID, "10.0.0.8"))
	require.NoError(t, repo.UpdatePassword(ctx, staff.ID, "hash2"))

	found, err = repo.GetByID(ctx, staff.ID)
	require.NoError(t, err)
	assert.NotNil(t, found.LastLoginAt)
	assert.Equal(t, "10.0.0.8", utils.Deref(found.LastLoginIP))
	assert.Equal(t, "hash2", found.PasswordHash)
}
