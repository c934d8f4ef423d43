package hotel

import (
	"context"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/retry"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/availability"
)

// RoomService 房间服务
type RoomService struct {
	roomRepo        *repository.RoomRepository
	reservationRepo *repository.ReservationRepository
	checker         *availability.Checker
}

// NewRoomService 创建房间服务
func NewRoomService(roomRepo *repository.RoomRepository, reservationRepo *repository.ReservationRepository, checker *availability.Checker) *RoomService {
	return &RoomService{
		roomRepo:        roomRepo,
		reservationRepo: reservationRepo,
		checker:         checker,
	}
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	RoomNumber  string   `json:"room_number" binding:"required,max=20"`
	RoomType    string   `json:"room_type" binding:"required,max=50"`
	Floor       *int     `json:"floor"`
	Description *string  `json:"description"`
	Price       float64  `json:"price" binding:"min=0"`
	Capacity    int      `json:"capacity" binding:"omitempty,min=1"`
	Amenities   []string `json:"amenities"`
	Status      string   `json:"status" binding:"omitempty,room_status"`
	IsActive    *bool    `json:"is_active"`
}

// Create 创建房间
func (s *RoomService) Create(ctx context.Context, req *CreateRoomRequest) (*models.Room, error) {
	exists, err := s.roomRepo.ExistsByRoomNumber(ctx, req.RoomNumber, 0)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrRoomNumberExists
	}

	room := &models.Room{
		RoomNumber:  req.RoomNumber,
		RoomType:    req.RoomType,
		Floor:       req.Floor,
		Description: req.Description,
		Price:       utils.RoundMoney(req.Price),
		Capacity:    req.Capacity,
		Amenities:   req.Amenities,
		Status:      req.Status,
		IsActive:    true,
	}
	if room.Capacity <= 0 {
		room.Capacity = 2
	}
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return room, nil
}

// UpdateRoomRequest 修改房间请求，房态通过 UpdateStatus 修改
type UpdateRoomRequest struct {
	RoomNumber  *string   `json:"room_number" binding:"omitempty,max=20"`
	RoomType    *string   `json:"room_type" binding:"omitempty,max=50"`
	Floor       *int      `json:"floor"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price" binding:"omitempty,min=0"`
	Capacity    *int      `json:"capacity" binding:"omitempty,min=1"`
	Amenities   *[]string `json:"amenities"`
	IsActive    *bool     `json:"is_active"`
}

// Update 修改房间
func (s *RoomService) Update(ctx context.Context, id int64, req *UpdateRoomRequest) (*models.Room, error) {
	if req.RoomNumber != nil {
		exists, err := s.roomRepo.ExistsByRoomNumber(ctx, *req.RoomNumber, id)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return nil, errors.ErrRoomNumberExists.WithMessage("房间号已被其他房间使用")
		}
	}

	fields := make(map[string]interface{})
	if req.RoomNumber != nil {
		fields["room_number"] = *req.RoomNumber
	}
	if req.RoomType != nil {
		fields["room_type"] = *req.RoomType
	}
	if req.Floor != nil {
		fields["floor"] = *req.Floor
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = utils.RoundMoney(*req.Price)
	}
	if req.Capacity != nil {
		fields["capacity"] = *req.Capacity
	}
	if req.Amenities != nil {
		fields["amenities"] = models.StringList(*req.Amenities)
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	return s.update(ctx, id, fields)
}

// UpdateStatus 管理员直接修改房态（如维修、清扫完成）
func (s *RoomService) UpdateStatus(ctx context.Context, id int64, status string) (*models.Room, error) {
	if !utils.Contains(models.RoomStatuses, status) {
		return nil, errors.ErrInvalidParams.WithMessage("无效的房态: " + status)
	}
	room, err := s.update(ctx, id, map[string]interface{}{"status": status})
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info("房态已修改", logger.RoomID(room.ID), logger.String("status", status))
	return room, nil
}

func (s *RoomService) update(ctx context.Context, id int64, fields map[string]interface{}) (*models.Room, error) {
	var room *models.Room
	err := retry.OnConflict(ctx, retry.DefaultAttempts, func(ctx context.Context) error {
		var err error
		room, err = s.roomRepo.GetByID(ctx, id)
		if err != nil {
			return notFound(err, errors.ErrRoomNotFound)
		}
		if len(fields) == 0 {
			return nil
		}
		return writeError(s.roomRepo.UpdateWithVersion(ctx, room, fields))
	})
	if err != nil {
		return nil, appError(err)
	}
	return s.Get(ctx, id)
}

// Delete 删除房间，存在预订记录的房间不能删除
func (s *RoomService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	exists, err := s.reservationRepo.ExistsByRoom(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return errors.ErrRoomStatus.WithMessage("房间存在预订记录，不能删除")
	}
	if err := s.roomRepo.Delete(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// Get 获取房间
func (s *RoomService) Get(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrRoomNotFound)
	}
	return room, nil
}

// ListRoomsRequest 房间列表请求
type ListRoomsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	RoomType string `form:"room_type"`
	Status   string `form:"status"`
	IsActive *bool  `form:"is_active"`
	Floor    *int   `form:"floor"`
}

// List 房间列表
func (s *RoomService) List(ctx context.Context, req *ListRoomsRequest) ([]*models.Room, int64, error) {
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()

	filters := map[string]interface{}{
		"room_type": req.RoomType,
		"status":    req.Status,
	}
	if req.IsActive != nil {
		filters["is_active"] = *req.IsActive
	}
	if req.Floor != nil {
		filters["floor"] = *req.Floor
	}

	rooms, total, err := s.roomRepo.List(ctx, p.GetOffset(), p.GetLimit(), filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return rooms, total, nil
}

// ListActive 启用的房间
func (s *RoomService) ListActive(ctx context.Context) ([]*models.Room, error) {
	rooms, err := s.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return rooms, nil
}

// ListByType 指定房型的房间
func (s *RoomService) ListByType(ctx context.Context, roomType string) ([]*models.Room, error) {
	rooms, err := s.roomRepo.ListByType(ctx, roomType)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return rooms, nil
}

// Available 区间内可预订的房间
func (s *RoomService) Available(ctx context.Context, checkIn, checkOut string) ([]*models.Room, error) {
	in, out, err := parseStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return s.checker.AvailableRooms(ctx, in, out)
}
