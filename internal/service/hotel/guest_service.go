package hotel

import (
	"context"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// IDVerifier 证件核验
type IDVerifier interface {
	VerifyIDCard(ctx context.Context, idCardNumber, fullName string) (bool, error)
}

// GuestService 宾客服务
type GuestService struct {
	guestRepo       *repository.GuestRepository
	reservationRepo *repository.ReservationRepository
	verifier        IDVerifier
}

// NewGuestService 创建宾客服务，verifier 为 nil 时不做证件核验
func NewGuestService(guestRepo *repository.GuestRepository, reservationRepo *repository.ReservationRepository, verifier IDVerifier) *GuestService {
	return &GuestService{
		guestRepo:       guestRepo,
		reservationRepo: reservationRepo,
		verifier:        verifier,
	}
}

// GuestRequest 创建/修改宾客请求
type GuestRequest struct {
	FullName        string  `json:"full_name" binding:"required,max=100"`
	IDCardNumber    string  `json:"id_card_number" binding:"required"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Gender          int8    `json:"gender" binding:"omitempty,oneof=0 1 2"`
	DateOfBirth     *string `json:"date_of_birth"`
	Nationality     *string `json:"nationality"`
	Address         *string `json:"address"`
	Preferences     *string `json:"preferences"`
	SpecialRequests *string `json:"special_requests"`
}

// Create 登记宾客
func (s *GuestService) Create(ctx context.Context, req *GuestRequest) (*models.Guest, error) {
	guest := &models.Guest{}
	if err := s.apply(ctx, guest, req, 0); err != nil {
		return nil, err
	}

	if s.verifier != nil {
		valid, err := s.verifier.VerifyIDCard(ctx, guest.IDCardNumber, guest.FullName)
		if err != nil {
			return nil, errors.ErrExternalService.WithMessage("证件核验服务不可用").WithError(err)
		}
		if !valid {
			return nil, errors.ErrIDCardInvalid.WithMessage("证件核验未通过")
		}
		guest.IsVerified = true
	}

	if err := s.guestRepo.Create(ctx, guest); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return guest, nil
}

// Update 修改宾客信息
func (s *GuestService) Update(ctx context.Context, id int64, req *GuestRequest) (*models.Guest, error) {
	guest, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousIDCard := guest.IDCardNumber
	if err := s.apply(ctx, guest, req, id); err != nil {
		return nil, err
	}
	// 换证后需要重新核验
	if guest.IDCardNumber != previousIDCard {
		guest.IsVerified = false
	}
	if err := s.guestRepo.Update(ctx, guest); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return guest, nil
}

func (s *GuestService) apply(ctx context.Context, guest *models.Guest, req *GuestRequest, excludeID int64) error {
	if !utils.ValidateIDCard(req.IDCardNumber) {
		return errors.ErrIDCardInvalid
	}
	if req.Phone != nil && *req.Phone != "" && !utils.ValidatePhone(*req.Phone) {
		return errors.ErrInvalidParams.WithMessage("手机号格式不正确")
	}
	exists, err := s.guestRepo.ExistsByIDCard(ctx, req.IDCardNumber, excludeID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return errors.ErrIDCardExists
	}

	guest.FullName = req.FullName
	guest.IDCardNumber = req.IDCardNumber
	guest.Phone = nonEmpty(req.Phone)
	guest.Email = nonEmpty(req.Email)
	guest.Gender = req.Gender
	guest.Nationality = req.Nationality
	guest.Address = req.Address
	guest.Preferences = req.Preferences
	guest.SpecialRequests = req.SpecialRequests
	guest.DateOfBirth = nil
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := utils.ParseDate(*req.DateOfBirth)
		if err != nil {
			return errors.ErrInvalidParams.WithMessage("出生日期格式应为 YYYY-MM-DD")
		}
		guest.DateOfBirth = &dob
	}
	return nil
}

// Delete 删除宾客，有预订记录的宾客不能删除
func (s *GuestService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	exists, err := s.reservationRepo.ExistsByGuest(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return errors.ErrGuestHasBookings
	}
	if err := s.guestRepo.Delete(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	logger.Ctx(ctx).Info("宾客已删除", logger.GuestID(id))
	return nil
}

// Get 获取宾客
func (s *GuestService) Get(ctx context.Context, id int64) (*models.Guest, error) {
	guest, err := s.guestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrGuestNotFound)
	}
	return guest, nil
}

// GetByIDCard 按证件号查询
func (s *GuestService) GetByIDCard(ctx context.Context, idCard string) (*models.Guest, error) {
	guest, err := s.guestRepo.GetByIDCard(ctx, idCard)
	if err != nil {
		return nil, notFound(err, errors.ErrGuestNotFound)
	}
	return guest, nil
}

// SearchByName 按姓名模糊搜索
func (s *GuestService) SearchByName(ctx context.Context, name string) ([]*models.Guest, error) {
	guests, err := s.guestRepo.SearchByName(ctx, name)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return guests, nil
}

// ListByPhone 按手机号查询
func (s *GuestService) ListByPhone(ctx context.Context, phone string) ([]*models.Guest, error) {
	guests, err := s.guestRepo.ListByPhone(ctx, phone)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return guests, nil
}

// ListGuestsRequest 宾客列表请求
type ListGuestsRequest struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	Name         string `form:"name"`
	Phone        string `form:"phone"`
	IDCardNumber string `form:"id_card_number"`
}

// List 宾客列表
func (s *GuestService) List(ctx context.Context, req *ListGuestsRequest) ([]*models.Guest, int64, error) {
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()
	guests, total, err := s.guestRepo.List(ctx, p.GetOffset(), p.GetLimit(), map[string]interface{}{
		"name":           req.Name,
		"phone":          req.Phone,
		"id_card_number": req.IDCardNumber,
	})
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return guests, total, nil
}
