// Package hotel 提供房间、宾客、预订相关的 HTTP Handler
package hotel

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	hotelService "github.com/dumeirei/hotel-pms-backend/internal/service/hotel"
)

// RoomHandler 房间处理器
type RoomHandler struct {
	roomService *hotelService.RoomService
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(roomSvc *hotelService.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomSvc}
}

// List 房间列表
// @Summary 房间列表
// @Tags 房间管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param room_type query string false "房型"
// @Param status query string false "房态"
// @Param is_active query bool false "是否启用"
// @Param floor query int false "楼层"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Room}}
// @Router /api/admin/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	var req hotelService.ListRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()
	req.Page, req.PageSize = p.Page, p.PageSize

	rooms, total, err := h.roomService.List(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, rooms, total, p)
}

// Get 房间详情
// @Summary 房间详情
// @Tags 房间管理
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	room, err := h.roomService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, room)
}

// Create 新建房间
// @Summary 新建房间
// @Tags 房间管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body hotelService.CreateRoomRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req hotelService.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	room, err := h.roomService.Create(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "创建成功", room)
}

// Update 更新房间
// @Summary 更新房间
// @Tags 房间管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Param request body hotelService.UpdateRoomRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	var req hotelService.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	room, err := h.roomService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, room)
}

// UpdateStatusRequest 修改房态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,room_status"`
}

// UpdateStatus 修改房态
// @Summary 修改房态
// @Tags 房间管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Param request body UpdateStatusRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/admin/rooms/{id}/status [put]
func (h *RoomHandler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "无效的房态")
		return
	}
	room, err := h.roomService.UpdateStatus(c.Request.Context(), id, req.Status)
	handler.MustSucceed(c, err, room)
}

// Delete 删除房间
// @Summary 删除房间
// @Tags 房间管理
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response
// @Router /api/admin/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}
	err := h.roomService.Delete(c.Request.Context(), id)
	handler.MustSucceedWithMessage(c, err, "删除成功", nil)
}

// ListActive 全部启用房间
// @Summary 启用房间
// @Tags 房间管理
// @Produce json
// @Security Bearer
// @Param room_type query string false "房型"
// @Success 200 {object} response.Response{data=[]models.Room}
// @Router /api/admin/rooms/active [get]
func (h *RoomHandler) ListActive(c *gin.Context) {
	if roomType := c.Query("room_type"); roomType != "" {
		rooms, err := h.roomService.ListByType(c.Request.Context(), roomType)
		handler.MustSucceed(c, err, rooms)
		return
	}
	rooms, err := h.roomService.ListActive(c.Request.Context())
	handler.MustSucceed(c, err, rooms)
}

// Available 可订房间
// @Summary 查询日期区间内可订房间
// @Tags 房间管理
// @Produce json
// @Param check_in_date query string true "入住日期 YYYY-MM-DD"
// @Param check_out_date query string true "离店日期 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=[]models.Room}
// @Router /api/admin/rooms/available [get]
func (h *RoomHandler) Available(c *gin.Context) {
	checkIn, checkOut := c.Query("check_in_date"), c.Query("check_out_date")
	if checkIn == "" || checkOut == "" {
		response.BadRequest(c, "请提供入住和离店日期")
		return
	}
	rooms, err := h.roomService.Available(c.Request.Context(), checkIn, checkOut)
	handler.MustSucceed(c, err, rooms)
}

// RegisterRoutes 注册房间管理路由
func (h *RoomHandler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.GET("", h.List)
		rooms.GET("/active", h.ListActive)
		rooms.GET("/available", h.Available)
		rooms.GET("/:id", h.Get)
		rooms.POST("", h.Create)
		rooms.PUT("/:id", h.Update)
		rooms.PUT("/:id/status", h.UpdateStatus)
		rooms.DELETE("/:id", h.Delete)
	}
}
