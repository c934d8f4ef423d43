package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/service/external"
	hotelService "github.com/dumeirei/hotel-pms-backend/internal/service/hotel"
)

// ExternalHandler OTA 与公安系统对接处理器
type ExternalHandler struct {
	ota                *external.OTAService
	publicSecurity     *external.PublicSecurityService
	reservationService *hotelService.ReservationService
	guestService       *hotelService.GuestService
}

// NewExternalHandler 创建对接处理器
func NewExternalHandler(
	ota *external.OTAService,
	publicSecurity *external.PublicSecurityService,
	reservationSvc *hotelService.ReservationService,
	guestSvc *hotelService.GuestService,
) *ExternalHandler {
	return &ExternalHandler{
		ota:                ota,
		publicSecurity:     publicSecurity,
		reservationService: reservationSvc,
		guestService:       guestSvc,
	}
}

// SyncReservation 推送预订到 OTA
// @Summary 推送预订到 OTA
// @Tags 外部对接
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=external.OTASyncResult}
// @Router /api/admin/external/ota/reservations/{id}/sync [post]
func (h *ExternalHandler) SyncReservation(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	reservation, err := h.reservationService.Get(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	result, err := h.ota.SyncReservation(c.Request.Context(), reservation)
	handler.MustSucceed(c, err, result)
}

// UpdateInventory 推送房型库存
// @Summary 推送房型库存到 OTA
// @Tags 外部对接
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body external.InventoryRequest true "请求参数"
// @Success 200 {object} response.Response{data=external.OTASyncResult}
// @Router /api/admin/external/ota/inventory [post]
func (h *ExternalHandler) UpdateInventory(c *gin.Context) {
	var req external.InventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	result, err := h.ota.UpdateInventory(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// CancelOTAOrder 取消 OTA 订单
// @Summary 取消 OTA 订单
// @Tags 外部对接
// @Produce json
// @Security Bearer
// @Param ota_order_id path string true "OTA 订单号"
// @Success 200 {object} response.Response{data=external.OTASyncResult}
// @Router /api/admin/external/ota/orders/{ota_order_id}/cancel [post]
func (h *ExternalHandler) CancelOTAOrder(c *gin.Context) {
	result, err := h.ota.CancelOrder(c.Request.Context(), c.Param("ota_order_id"))
	handler.MustSucceed(c, err, result)
}

// ListOTAOrders 拉取 OTA 订单
// @Summary 拉取 OTA 订单
// @Tags 外部对接
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]external.OTAOrder}
// @Router /api/admin/external/ota/orders [get]
func (h *ExternalHandler) ListOTAOrders(c *gin.Context) {
	orders, err := h.ota.ListOrders(c.Request.Context())
	handler.MustSucceed(c, err, orders)
}

// VerifyIDRequest 证件核验请求
type VerifyIDRequest struct {
	IDCardNumber string `json:"id_card_number" binding:"required"`
	Name         string `json:"name" binding:"required"`
}

// VerifyID 核验身份证
// @Summary 公安系统证件核验
// @Tags 外部对接
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body VerifyIDRequest true "请求参数"
// @Success 200 {object} response.Response{data=external.IDVerifyResult}
// @Router /api/admin/external/public-security/verify [post]
func (h *ExternalHandler) VerifyID(c *gin.Context) {
	var req VerifyIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	result, err := h.publicSecurity.Verify(c.Request.Context(), req.IDCardNumber, req.Name)
	handler.MustSucceed(c, err, result)
}

// ReportRegistration 上报入住登记
// @Summary 向公安系统上报入住
// @Tags 外部对接
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=external.ReportResult}
// @Router /api/admin/external/public-security/reservations/{id}/registration [post]
func (h *ExternalHandler) ReportRegistration(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	reservation, err := h.reservationService.Get(ctx, id)
	if handler.HandleError(c, err) {
		return
	}
	guest, err := h.guestService.Get(ctx, reservation.GuestID)
	if handler.HandleError(c, err) {
		return
	}
	result, err := h.publicSecurity.ReportRegistration(ctx, guest, reservation)
	handler.MustSucceed(c, err, result)
}

// ReportCheckout 上报退房
// @Summary 向公安系统上报退房
// @Tags 外部对接
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=external.ReportResult}
// @Router /api/admin/external/public-security/reservations/{id}/checkout [post]
func (h *ExternalHandler) ReportCheckout(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	reservation, err := h.reservationService.Get(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	result, err := h.publicSecurity.ReportCheckout(c.Request.Context(), reservation)
	handler.MustSucceed(c, err, result)
}

// RegisterRoutes 注册对接路由
func (h *ExternalHandler) RegisterRoutes(r *gin.RouterGroup) {
	ext := r.Group("/external")
	{
		ext.POST("/ota/reservations/:id/sync", h.SyncReservation)
		ext.POST("/ota/inventory", h.UpdateInventory)
		ext.GET("/ota/orders", h.ListOTAOrders)
		ext.POST("/ota/orders/:ota_order_id/cancel", h.CancelOTAOrder)

		ext.POST("/public-security/verify", h.VerifyID)
		ext.POST("/public-security/reservations/:id/registration", h.ReportRegistration)
		ext.POST("/public-security/reservations/:id/checkout", h.ReportCheckout)
	}
}
