package auth

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

type testAuth struct {
	*AuthService
	db  *gorm.DB
	mr  *miniredis.Miniredis
	jwt *jwt.Manager
}

func setupTestAuth(t *testing.T) *testAuth {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Staff{}, &models.Guest{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := jwt.NewManager(&jwt.Config{
		Secret:            "test-secret",
		AccessExpireTime:  time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "test",
	})
	svc := NewAuthService(
		repository.NewStaffRepository(db),
		repository.NewGuestRepository(db),
		crypto.NewPasswordHasher(4),
		manager,
		cache.New(client),
	)
	return &testAuth{AuthService: svc, db: db, mr: mr, jwt: manager}
}

func (a *testAuth) staff(t *testing.T, username, password string, active bool) *models.Staff {
	hash, err := a.hasher.Hash(password)
	require.NoError(t, err)
	staff := &models.Staff{Username: username, PasswordHash: hash, FullName: "前台小王", Role: models.StaffRoleReceptionist, IsActive: true}
	require.NoError(t, a.db.Create(staff).Error)
	if !active {
		require.NoError(t, a.db.Model(staff).Update("is_active", false).Error)
	}
	return staff
}

func TestAuthService_StaffLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("登录成功签发员工令牌", func(t *testing.T) {
		a := setupTestAuth(t)
		staff := a.staff(t, "frontdesk", "secret123", true)

		resp, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123", IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, staff.ID, resp.User.ID)
		assert.Equal(t, models.StaffRoleReceptionist, resp.User.Role)

		claims, err := a.jwt.ParseToken(resp.TokenPair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, jwt.UserTypeStaff, claims.UserType)
		assert.Equal(t, staff.ID, claims.UserID)

		var fresh models.Staff
		require.NoError(t, a.db.First(&fresh, staff.ID).Error)
		assert.Equal(t, "10.0.0.1", utils.Deref(fresh.LastLoginIP))
	})

	t.Run("密码错误", func(t *testing.T) {
		a := setupTestAuth(t)
		a.staff(t, "frontdesk", "secret123", true)
		_, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "wrong"})
		assert.True(t, stderrors.Is(err, errors.ErrPasswordError))

		_, err = a.StaffLogin(ctx, &LoginRequest{Username: "nobody", Password: "wrong"})
		assert.True(t, stderrors.Is(err, errors.ErrPasswordError))
	})

	t.Run("账号已禁用", func(t *testing.T) {
		a := setupTestAuth(t)
		a.staff(t, "frontdesk", "secret123", false)
		_, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123"})
		assert.True(t, stderrors.Is(err, errors.ErrAccountDisabled))
	})

	t.Run("连续失败后锁定", func(t *testing.T) {
		a := setupTestAuth(t)
		a.staff(t, "frontdesk", "secret123", true)
		for i := 0; i < MaxLoginFailures; i++ {
			_, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "wrong"})
			require.True(t, stderrors.Is(err, errors.ErrPasswordError))
		}

		_, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123"})
		assert.True(t, stderrors.Is(err, errors.ErrRateLimitExceed))

		a.mr.FastForward(LoginFailWindow + time.Second)
		_, err = a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123"})
		assert.NoError(t, err)
	})

	t.Run("登录成功清除失败次数", func(t *testing.T) {
		a := setupTestAuth(t)
		a.staff(t, "frontdesk", "secret123", true)
		_, _ = a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "wrong"})
		assert.True(t, a.mr.Exists(failKey(jwt.UserTypeStaff, "frontdesk")))

		_, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123"})
		require.NoError(t, err)
		assert.False(t, a.mr.Exists(failKey(jwt.UserTypeStaff, "frontdesk")))
	})
}

func TestAuthService_CreateStaff(t *testing.T) {
	a := setupTestAuth(t)
	ctx := context.Background()

	info, err := a.CreateStaff(ctx, &CreateStaffRequest{Username: "manager", Password: "secret123", FullName: "值班经理", Role: models.StaffRoleManager})
	require.NoError(t, err)
	assert.NotZero(t, info.ID)

	_, err = a.CreateStaff(ctx, &CreateStaffRequest{Username: "manager", Password: "secret123", FullName: "重复", Role: models.StaffRoleManager})
	assert.True(t, stderrors.Is(err, errors.ErrUsernameExists))

	_, err = a.CreateStaff(ctx, &CreateStaffRequest{Username: "boss", Password: "secret123", FullName: "老板", Role: "OWNER"})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidParams))

	_, err = a.StaffLogin(ctx, &LoginRequest{Username: "manager", Password: "secret123"})
	assert.NoError(t, err)
}

func TestAuthService_ChangeStaffPassword(t *testing.T) {
	a := setupTestAuth(t)
	ctx := context.Background()
	staff := a.staff(t, "frontdesk", "secret123", true)

	err := a.ChangeStaffPassword(ctx, staff.ID, &ChangePasswordRequest{OldPassword: "bad", NewPassword: "newsecret"})
	assert.True(t, stderrors.Is(err, errors.ErrPasswordError))

	require.NoError(t, a.ChangeStaffPassword(ctx, staff.ID, &ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret"}))
	_, err = a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "newsecret"})
	assert.NoError(t, err)

	err = a.ChangeStaffPassword(ctx, 999, &ChangePasswordRequest{OldPassword: "x", NewPassword: "newsecret"})
	assert.True(t, stderrors.Is(err, errors.ErrStaffNotFound))
}

func TestAuthService_Guest(t *testing.T) {
	a := setupTestAuth(t)
	ctx := context.Background()

	resp, err := a.GuestRegister(ctx, &GuestRegisterRequest{
		Username:     "zhangsan",
		Password:     "secret123",
		FullName:     "张三",
		IDCardNumber: "110101199001011234",
	})
	require.NoError(t, err)
	assert.Equal(t, jwt.UserTypeGuest, resp.User.UserType)

	claims, err := a.jwt.ParseToken(resp.TokenPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, jwt.UserTypeGuest, claims.UserType)

	_, err = a.GuestRegister(ctx, &GuestRegisterRequest{Username: "zhangsan", Password: "secret123", FullName: "张三", IDCardNumber: "110101199001015678"})
	assert.True(t, stderrors.Is(err, errors.ErrUsernameExists))

	_, err = a.GuestRegister(ctx, &GuestRegisterRequest{Username: "lisi", Password: "secret123", FullName: "李四", IDCardNumber: "110101199001011234"})
	assert.True(t, stderrors.Is(err, errors.ErrIDCardExists))

	_, err = a.GuestRegister(ctx, &GuestRegisterRequest{Username: "wangwu", Password: "secret123", FullName: "王五", IDCardNumber: "abc"})
	assert.True(t, stderrors.Is(err, errors.ErrIDCardInvalid))

	login, err := a.GuestLogin(ctx, &LoginRequest{Username: "zhangsan", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = a.GuestLogin(ctx, &LoginRequest{Username: "zhangsan", Password: "wrong"})
	assert.True(t, stderrors.Is(err, errors.ErrPasswordError))
}

func TestAuthService_RefreshToken(t *testing.T) {
	a := setupTestAuth(t)
	ctx := context.Background()
	a.staff(t, "frontdesk", "secret123", true)

	resp, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123"})
	require.NoError(t, err)

	pair, err := a.RefreshToken(ctx, resp.TokenPair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// 访问令牌不能用于刷新
	_, err = a.RefreshToken(ctx, resp.TokenPair.AccessToken)
	assert.True(t, stderrors.Is(err, errors.ErrTokenRefreshFail))
}

func TestAuthService_WithoutCache(t *testing.T) {
	a := setupTestAuth(t)
	a.cache = cache.New(nil)
	ctx := context.Background()
	a.staff(t, "frontdesk", "secret123", true)

	for i := 0; i < MaxLoginFailures+1; i++ {
		_, _ = a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "wrong"})
	}
	_, err := a.StaffLogin(ctx, &LoginRequest{Username: "frontdesk", Password: "secret123"})
	assert.NoError(t, err)
}
