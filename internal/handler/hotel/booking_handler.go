package hotel

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/service/external"
	hotelService "github.com/dumeirei/hotel-pms-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-pms-backend/internal/service/payment"
)

// BookingHandler 宾客自助预订处理器
type BookingHandler struct {
	reservationService *hotelService.ReservationService
	roomService        *hotelService.RoomService
	ledger             *payment.Ledger
	gateway            *external.PaymentGateway
}

// NewBookingHandler 创建宾客预订处理器，gateway 为 nil 时不支持在线支付
func NewBookingHandler(
	reservationSvc *hotelService.ReservationService,
	roomSvc *hotelService.RoomService,
	ledger *payment.Ledger,
	gateway *external.PaymentGateway,
) *BookingHandler {
	return &BookingHandler{
		reservationService: reservationSvc,
		roomService:        roomSvc,
		ledger:             ledger,
		gateway:            gateway,
	}
}

// Available 可订房间
// @Summary 查询可订房间
// @Tags 宾客预订
// @Produce json
// @Param check_in_date query string true "入住日期 YYYY-MM-DD"
// @Param check_out_date query string true "离店日期 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=[]models.Room}
// @Router /api/v1/rooms/available [get]
func (h *BookingHandler) Available(c *gin.Context) {
	checkIn, checkOut := c.Query("check_in_date"), c.Query("check_out_date")
	if checkIn == "" || checkOut == "" {
		response.BadRequest(c, "请提供入住和离店日期")
		return
	}
	rooms, err := h.roomService.Available(c.Request.Context(), checkIn, checkOut)
	handler.MustSucceed(c, err, rooms)
}

// BookingRequest 宾客预订请求
type BookingRequest struct {
	RoomID            *int64  `json:"room_id"`
	PreferredRoomType *string `json:"preferred_room_type"`
	CheckInDate       string  `json:"check_in_date" binding:"required,date"`
	CheckOutDate      string  `json:"check_out_date" binding:"required,date"`
	NumberOfGuests    int     `json:"number_of_guests" binding:"omitempty,min=1"`
	SpecialRequests   *string `json:"special_requests"`
}

// Create 宾客下单
// @Summary 宾客创建预订
// @Tags 宾客预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body BookingRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/v1/reservations [post]
func (h *BookingHandler) Create(c *gin.Context) {
	guestID, ok := handler.RequireGuestID(c)
	if !ok {
		return
	}
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	reservation, err := h.reservationService.Create(handler.OperatorContext(c), &hotelService.CreateReservationRequest{
		GuestID:           guestID,
		RoomID:            req.RoomID,
		PreferredRoomType: req.PreferredRoomType,
		CheckInDate:       req.CheckInDate,
		CheckOutDate:      req.CheckOutDate,
		NumberOfGuests:    req.NumberOfGuests,
		SpecialRequests:   req.SpecialRequests,
		Source:            models.ReservationSourceDirect,
	})
	handler.MustSucceedWithMessage(c, err, "预订已创建，请完成支付", reservation)
}

// List 我的预订
// @Summary 我的预订
// @Tags 宾客预订
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "状态"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Reservation}}
// @Router /api/v1/reservations [get]
func (h *BookingHandler) List(c *gin.Context) {
	guestID, ok := handler.RequireGuestID(c)
	if !ok {
		return
	}
	p := handler.BindPagination(c)
	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}
	reservations, total, err := h.reservationService.ListByGuest(c.Request.Context(), guestID, p.Page, p.PageSize, status)
	handler.MustSucceedPage(c, err, reservations, total, p)
}

// Get 我的预订详情
// @Summary 我的预订详情
// @Tags 宾客预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/v1/reservations/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	reservation, ok := h.ownReservation(c)
	if !ok {
		return
	}
	response.Success(c, reservation)
}

// Cancel 取消我的预订
// @Summary 取消我的预订
// @Tags 宾客预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.CancelResult}
// @Router /api/v1/reservations/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	reservation, ok := h.ownReservation(c)
	if !ok {
		return
	}
	result, err := h.reservationService.Cancel(handler.OperatorContext(c), reservation.ID)
	handler.MustSucceed(c, err, result)
}

// Voucher 我的预订凭证
// @Summary 预订凭证二维码
// @Tags 宾客预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.Voucher}
// @Router /api/v1/reservations/{id}/voucher [get]
func (h *BookingHandler) Voucher(c *gin.Context) {
	reservation, ok := h.ownReservation(c)
	if !ok {
		return
	}
	voucher, err := h.reservationService.Voucher(c.Request.Context(), reservation.ID)
	handler.MustSucceed(c, err, voucher)
}

// Pay 在线支付未付金额
// @Summary 发起微信支付
// @Tags 宾客预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=external.PaymentOrder}
// @Router /api/v1/reservations/{id}/pay [post]
func (h *BookingHandler) Pay(c *gin.Context) {
	reservation, ok := h.ownReservation(c)
	if !ok {
		return
	}
	if h.gateway == nil {
		response.AppError(c, errors.ErrExternalService.WithMessage("在线支付未开通"))
		return
	}
	if reservation.Status != models.ReservationStatusPending {
		response.AppError(c, errors.ErrReservationStatus)
		return
	}
	amount := utils.SubMoney(utils.Deref(reservation.TotalAmount), reservation.PaidAmount)
	if amount <= 0 {
		response.AppError(c, errors.ErrInvalidAmount.WithMessage("无待支付金额"))
		return
	}

	order, err := h.pay(handler.OperatorContext(c), reservation.ID, amount)
	handler.MustSucceed(c, err, order)
}

func (h *BookingHandler) pay(ctx context.Context, reservationID int64, amount float64) (*external.PaymentOrder, error) {
	txn, err := h.ledger.CreatePending(ctx, payment.PendingRequest{
		ReservationID: reservationID,
		Type:          models.TransactionTypePayment,
		Amount:        amount,
		Note:          "宾客在线支付",
		Channel:       models.TransactionChannelGateway,
	})
	if err != nil {
		return nil, err
	}
	return h.gateway.CreatePaymentOrder(ctx, txn.ID)
}

// ownReservation 读取当前宾客名下的预订，他人预订按不存在处理
func (h *BookingHandler) ownReservation(c *gin.Context) (*models.Reservation, bool) {
	guestID, ok := handler.RequireGuestID(c)
	if !ok {
		return nil, false
	}
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return nil, false
	}
	reservation, err := h.reservationService.Get(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return nil, false
	}
	if reservation.GuestID != guestID {
		response.AppError(c, errors.ErrReservationNotFound)
		return nil, false
	}
	return reservation, true
}

// RegisterPublicRoutes 注册无需登录的路由
func (h *BookingHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/rooms/available", h.Available)
}

// RegisterRoutes 注册宾客预订路由
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	reservations := r.Group("/reservations")
	{
		reservations.GET("", h.List)
		reservations.POST("", h.Create)
		reservations.GET("/:id", h.Get)
		reservations.GET("/:id/voucher", h.Voucher)
		reservations.POST("/:id/cancel", h.Cancel)
		reservations.POST("/:id/pay", h.Pay)
	}
}
