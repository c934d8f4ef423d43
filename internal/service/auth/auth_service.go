// Package auth 提供员工与宾客的认证服务
package auth

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// 登录失败锁定
const (
	MaxLoginFailures = 5
	LoginFailWindow  = 15 * time.Minute
)

// AuthService 认证服务
type AuthService struct {
	staffRepo  *repository.StaffRepository
	guestRepo  *repository.GuestRepository
	hasher     *crypto.PasswordHasher
	jwtManager *jwt.Manager
	cache      *cache.Cache
}

// NewAuthService 创建认证服务，cache 未启用时不做登录失败锁定
func NewAuthService(
	staffRepo *repository.StaffRepository,
	guestRepo *repository.GuestRepository,
	hasher *crypto.PasswordHasher,
	jwtManager *jwt.Manager,
	c *cache.Cache,
) *AuthService {
	return &AuthService{
		staffRepo:  staffRepo,
		guestRepo:  guestRepo,
		hasher:     hasher,
		jwtManager: jwtManager,
		cache:      c,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User      *UserInfo      `json:"user"`
	TokenPair *jwt.TokenPair `json:"token"`
}

// UserInfo 登录用户信息（不含敏感字段）
type UserInfo struct {
	ID       int64   `json:"id"`
	UserType string  `json:"user_type"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// StaffLogin 员工登录
func (s *AuthService) StaffLogin(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.checkLocked(ctx, jwt.UserTypeStaff, req.Username); err != nil {
		return nil, err
	}

	staff, err := s.staffRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(ctx, jwt.UserTypeStaff, req.Username)
			return nil, errors.ErrPasswordError.WithMessage("用户名或密码错误")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !s.hasher.Verify(req.Password, staff.PasswordHash) {
		s.recordFailure(ctx, jwt.UserTypeStaff, req.Username)
		return nil, errors.ErrPasswordError.WithMessage("用户名或密码错误")
	}
	if !staff.IsActive {
		return nil, errors.ErrAccountDisabled
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(jwt.Identity{
		UserID:   staff.ID,
		UserType: jwt.UserTypeStaff,
		Username: staff.Username,
		Role:     staff.Role,
	})
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	s.clearFailures(ctx, jwt.UserTypeStaff, req.Username)
	if err := s.staffRepo.UpdateLoginInfo(ctx, staff.ID, req.IP); err != nil {
		logger.Ctx(ctx).Warn("更新登录信息失败", logger.StaffID(staff.ID), logger.Err(err))
	}

	return &LoginResponse{User: staffInfo(staff), TokenPair: tokenPair}, nil
}

// CreateStaffRequest 创建员工请求
type CreateStaffRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Password string  `json:"password" binding:"required,min=6,max=32"`
	FullName string  `json:"full_name" binding:"required,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role" binding:"required,staff_role"`
}

// CreateStaff 创建员工账号
func (s *AuthService) CreateStaff(ctx context.Context, req *CreateStaffRequest) (*UserInfo, error) {
	if !utils.Contains(models.StaffRoles, req.Role) {
		return nil, errors.ErrInvalidParams.WithMessage("无效的角色: " + req.Role)
	}
	exists, err := s.staffRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrUsernameExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	staff := &models.Staff{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return staffInfo(staff), nil
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=32"`
}

// ChangeStaffPassword 员工修改密码
func (s *AuthService) ChangeStaffPassword(ctx context.Context, staffID int64, req *ChangePasswordRequest) error {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrStaffNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if !s.hasher.Verify(req.OldPassword, staff.PasswordHash) {
		return errors.ErrPasswordError.WithMessage("原密码错误")
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return errors.ErrInternalError.WithError(err)
	}
	if err := s.staffRepo.UpdatePassword(ctx, staffID, hash); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// GetStaff 当前员工信息
func (s *AuthService) GetStaff(ctx context.Context, staffID int64) (*UserInfo, error) {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrStaffNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return staffInfo(staff), nil
}

// GuestRegisterRequest 宾客注册请求
type GuestRegisterRequest struct {
	Username     string  `json:"username" binding:"required,min=3,max=50"`
	Password     string  `json:"password" binding:"required,min=6,max=32"`
	FullName     string  `json:"full_name" binding:"required,max=100"`
	IDCardNumber string  `json:"id_card_number" binding:"required"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email" binding:"omitempty,email"`
}

// GuestRegister 宾客自助注册，注册后直接登录
func (s *AuthService) GuestRegister(ctx context.Context, req *GuestRegisterRequest) (*LoginResponse, error) {
	if !utils.ValidateIDCard(req.IDCardNumber) {
		return nil, errors.ErrIDCardInvalid
	}
	exists, err := s.guestRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrUsernameExists
	}
	exists, err = s.guestRepo.ExistsByIDCard(ctx, req.IDCardNumber, 0)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrIDCardExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	guest := &models.Guest{
		FullName:     req.FullName,
		IDCardNumber: req.IDCardNumber,
		Phone:        req.Phone,
		Email:        req.Email,
		Username:     &req.Username,
		PasswordHash: &hash,
	}
	if err := s.guestRepo.Create(ctx, guest); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.guestToken(guest)
}

// GuestLogin 宾客登录
func (s *AuthService) GuestLogin(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.checkLocked(ctx, jwt.UserTypeGuest, req.Username); err != nil {
		return nil, err
	}

	guest, err := s.guestRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(ctx, jwt.UserTypeGuest, req.Username)
			return nil, errors.ErrPasswordError.WithMessage("用户名或密码错误")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if guest.PasswordHash == nil || !s.hasher.Verify(req.Password, *guest.PasswordHash) {
		s.recordFailure(ctx, jwt.UserTypeGuest, req.Username)
		return nil, errors.ErrPasswordError.WithMessage("用户名或密码错误")
	}

	s.clearFailures(ctx, jwt.UserTypeGuest, req.Username)
	return s.guestToken(guest)
}

func (s *AuthService) guestToken(guest *models.Guest) (*LoginResponse, error) {
	tokenPair, err := s.jwtManager.GenerateTokenPair(jwt.Identity{
		UserID:   guest.ID,
		UserType: jwt.UserTypeGuest,
		Username: utils.Deref(guest.Username),
	})
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return &LoginResponse{
		User: &UserInfo{
			ID:       guest.ID,
			UserType: jwt.UserTypeGuest,
			Username: utils.Deref(guest.Username),
			FullName: guest.FullName,
			Phone:    guest.Phone,
			Email:    guest.Email,
		},
		TokenPair: tokenPair,
	}, nil
}

// RefreshToken 刷新令牌
func (s *AuthService) RefreshToken(_ context.Context, refreshToken string) (*jwt.TokenPair, error) {
	tokenPair, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenRefreshFail
	}
	return tokenPair, nil
}

// ==================== 登录失败锁定 ====================

func failKey(userType, username string) string {
	return cache.BuildKey(cache.KeyPrefixLoginFail, userType, username)
}

func (s *AuthService) checkLocked(ctx context.Context, userType, username string) error {
	if !s.cache.Enabled() {
		return nil
	}
	var failures int64
	err := s.cache.GetJSON(ctx, failKey(userType, username), &failures)
	if err != nil {
		if !stderrors.Is(err, cache.ErrMiss) {
			logger.Warn("读取登录失败次数失败", logger.String("username", username), logger.Err(err))
		}
		return nil
	}
	if failures >= MaxLoginFailures {
		return errors.ErrRateLimitExceed.WithMessage("登录失败次数过多，请稍后再试")
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, userType, username string) {
	if _, err := s.cache.IncrWindow(ctx, failKey(userType, username), LoginFailWindow); err != nil {
		logger.Warn("记录登录失败次数失败", logger.String("username", username), logger.Err(err))
	}
}

func (s *AuthService) clearFailures(ctx context.Context, userType, username string) {
	if err := s.cache.Delete(ctx, failKey(userType, username)); err != nil {
		logger.Warn("清除登录失败次数失败", logger.String("username", username), logger.Err(err))
	}
}

func staffInfo(staff *models.Staff) *UserInfo {
	return &UserInfo{
		ID:       staff.ID,
		UserType: jwt.UserTypeStaff,
		Username: staff.Username,
		FullName: staff.FullName,
		Role:     staff.Role,
		Phone:    staff.Phone,
		Email:    staff.Email,
	}
}
