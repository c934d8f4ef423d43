package hotel

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
	hotelService "github.com/dumeirei/hotel-pms-backend/internal/service/hotel"
)

// ReservationHandler 前台预订处理器
type ReservationHandler struct {
	reservationService *hotelService.ReservationService
}

// NewReservationHandler 创建预订处理器
func NewReservationHandler(reservationSvc *hotelService.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationSvc}
}

// List 预订列表
// @Summary 预订列表
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "状态"
// @Param guest_id query int false "宾客ID"
// @Param room_id query int false "房间ID"
// @Param reservation_no query string false "预订号"
// @Param start_date query string false "入住日期起"
// @Param end_date query string false "入住日期止"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Reservation}}
// @Router /api/admin/reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	var req hotelService.ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()
	req.Page, req.PageSize = p.Page, p.PageSize

	reservations, total, err := h.reservationService.List(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, reservations, total, p)
}

// ListByCheckInRange 入住日期区间内的预订
// @Summary 按入住日期区间查询预订
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param start_date query string true "开始日期"
// @Param end_date query string true "结束日期"
// @Success 200 {object} response.Response{data=[]models.Reservation}
// @Router /api/admin/reservations/check-in-range [get]
func (h *ReservationHandler) ListByCheckInRange(c *gin.Context) {
	start, end, ok := handler.ParseRequiredQueryDateRange(c)
	if !ok {
		return
	}
	reservations, err := h.reservationService.ListByCheckInRange(c.Request.Context(), utils.FormatDate(start), utils.FormatDate(end))
	handler.MustSucceed(c, err, reservations)
}

// ListByRoom 房间的预订
// @Summary 房间的预订记录
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Reservation}}
// @Router /api/admin/rooms/{id}/reservations [get]
func (h *ReservationHandler) ListByRoom(c *gin.Context) {
	roomID, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	p := handler.BindPagination(c)
	reservations, total, err := h.reservationService.ListByRoom(c.Request.Context(), roomID, p.Page, p.PageSize)
	handler.MustSucceedPage(c, err, reservations, total, p)
}

// ListByGuest 宾客的预订
// @Summary 宾客的预订记录
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "宾客ID"
// @Param status query string false "状态"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Reservation}}
// @Router /api/admin/guests/{id}/reservations [get]
func (h *ReservationHandler) ListByGuest(c *gin.Context) {
	guestID, ok := handler.ParseID(c, "宾客")
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

// Get 预订详情
// @Summary 预订详情
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/admin/reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	reservation, err := h.reservationService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, reservation)
}

// GetByNo 按预订号查询
// @Summary 按预订号查询
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param reservation_no path string true "预订号"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/admin/reservations/no/{reservation_no} [get]
func (h *ReservationHandler) GetByNo(c *gin.Context) {
	reservation, err := h.reservationService.GetByReservationNo(c.Request.Context(), c.Param("reservation_no"))
	handler.MustSucceed(c, err, reservation)
}

// Create 新建预订
// @Summary 新建预订（待支付）
// @Tags 预订管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body hotelService.CreateReservationRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/admin/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req hotelService.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.CreatedBy = middleware.GetUsername(c)

	reservation, err := h.reservationService.Create(handler.OperatorContext(c), &req)
	handler.MustSucceedWithMessage(c, err, "预订已创建，待支付", reservation)
}

// Update 修改预订
// @Summary 修改预订
// @Tags 预订管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body hotelService.UpdateReservationRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/admin/reservations/{id} [put]
func (h *ReservationHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	var req hotelService.UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	reservation, err := h.reservationService.Update(handler.OperatorContext(c), id, &req)
	handler.MustSucceed(c, err, reservation)
}

// Cancel 取消预订
// @Summary 取消预订，按退款规则生成待处理退款
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.CancelResult}
// @Router /api/admin/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	result, err := h.reservationService.Cancel(handler.OperatorContext(c), id)
	handler.MustSucceed(c, err, result)
}

// CheckIn 办理入住
// @Summary 办理入住
// @Tags 预订管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body hotelService.CheckInRequest false "请求参数"
// @Success 200 {object} response.Response{data=hotelService.CheckInResult}
// @Router /api/admin/reservations/{id}/check-in [post]
func (h *ReservationHandler) CheckIn(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	var req hotelService.CheckInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}
	result, err := h.reservationService.CheckIn(handler.OperatorContext(c), id, &req)
	handler.MustSucceedWithMessage(c, err, "入住成功", result)
}

// CheckOut 办理退房
// @Summary 办理退房
// @Tags 预订管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body hotelService.CheckOutRequest false "请求参数"
// @Success 200 {object} response.Response{data=hotelService.CheckOutResult}
// @Router /api/admin/reservations/{id}/check-out [post]
func (h *ReservationHandler) CheckOut(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	var req hotelService.CheckOutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}
	result, err := h.reservationService.CheckOut(handler.OperatorContext(c), id, &req)
	handler.MustSucceedWithMessage(c, err, "退房成功", result)
}

// Delete 删除预订
// @Summary 删除预订（仅待支付或已取消）
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/admin/reservations/{id} [delete]
func (h *ReservationHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	err := h.reservationService.Delete(handler.OperatorContext(c), id)
	handler.MustSucceedWithMessage(c, err, "删除成功", nil)
}

// Voucher 预订凭证
// @Summary 预订凭证二维码
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.Voucher}
// @Router /api/admin/reservations/{id}/voucher [get]
func (h *ReservationHandler) Voucher(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	voucher, err := h.reservationService.Voucher(c.Request.Context(), id)
	handler.MustSucceed(c, err, voucher)
}

// Transactions 预订流水
// @Summary 预订的收退款流水
// @Tags 预订管理
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=[]models.PaymentTransaction}
// @Router /api/admin/reservations/{id}/transactions [get]
func (h *ReservationHandler) Transactions(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	txns, err := h.reservationService.Transactions(c.Request.Context(), id)
	handler.MustSucceed(c, err, txns)
}

// RegisterRoutes 注册前台预订路由
func (h *ReservationHandler) RegisterRoutes(r *gin.RouterGroup) {
	reservations := r.Group("/reservations")
	{
		reservations.GET("", h.List)
		reservations.GET("/check-in-range", h.ListByCheckInRange)
		reservations.GET("/no/:reservation_no", h.GetByNo)
		reservations.GET("/:id", h.Get)
		reservations.GET("/:id/voucher", h.Voucher)
		reservations.GET("/:id/transactions", h.Transactions)
		reservations.POST("", h.Create)
		reservations.PUT("/:id", h.Update)
		reservations.DELETE("/:id", h.Delete)
		reservations.POST("/:id/cancel", h.Cancel)
		reservations.POST("/:id/check-in", h.CheckIn)
		reservations.POST("/:id/check-out", h.CheckOut)
	}
	r.GET("/rooms/:id/reservations", h.ListByRoom)
	r.GET("/guests/:id/reservations", h.ListByGuest)
}
