package hotel

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	hotelService "github.com/dumeirei/hotel-pms-backend/internal/service/hotel"
)

// GuestHandler 宾客处理器
type GuestHandler struct {
	guestService *hotelService.GuestService
}

// NewGuestHandler 创建宾客处理器
func NewGuestHandler(guestSvc *hotelService.GuestService) *GuestHandler {
	return &GuestHandler{guestService: guestSvc}
}

// List 宾客列表
// @Summary 宾客列表
// @Tags 宾客管理
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param name query string false "姓名"
// @Param phone query string false "手机号"
// @Param id_card_number query string false "证件号"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.Guest}}
// @Router /api/admin/guests [get]
func (h *GuestHandler) List(c *gin.Context) {
	var req hotelService.ListGuestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()
	req.Page, req.PageSize = p.Page, p.PageSize

	guests, total, err := h.guestService.List(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, guests, total, p)
}

// Get 宾客详情
// @Summary 宾客详情
// @Tags 宾客管理
// @Produce json
// @Security Bearer
// @Param id path int true "宾客ID"
// @Success 200 {object} response.Response{data=models.Guest}
// @Router /api/admin/guests/{id} [get]
func (h *GuestHandler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "宾客")
	if !ok {
		return
	}
	guest, err := h.guestService.Get(c.Request.Context(), id)
	handler.MustSucceed(c, err, guest)
}

// GetByIDCard 按证件号查询
// @Summary 按证件号查询宾客
// @Tags 宾客管理
// @Produce json
// @Security Bearer
// @Param id_card path string true "证件号"
// @Success 200 {object} response.Response{data=models.Guest}
// @Router /api/admin/guests/id-card/{id_card} [get]
func (h *GuestHandler) GetByIDCard(c *gin.Context) {
	guest, err := h.guestService.GetByIDCard(c.Request.Context(), c.Param("id_card"))
	handler.MustSucceed(c, err, guest)
}

// Search 按姓名或手机号搜索
// @Summary 搜索宾客
// @Tags 宾客管理
// @Produce json
// @Security Bearer
// @Param name query string false "姓名（模糊）"
// @Param phone query string false "手机号"
// @Success 200 {object} response.Response{data=[]models.Guest}
// @Router /api/admin/guests/search [get]
func (h *GuestHandler) Search(c *gin.Context) {
	if phone := c.Query("phone"); phone != "" {
		guests, err := h.guestService.ListByPhone(c.Request.Context(), phone)
		handler.MustSucceed(c, err, guests)
		return
	}
	name := c.Query("name")
	if name == "" {
		response.BadRequest(c, "请提供姓名或手机号")
		return
	}
	guests, err := h.guestService.SearchByName(c.Request.Context(), name)
	handler.MustSucceed(c, err, guests)
}

// Create 登记宾客
// @Summary 登记宾客
// @Tags 宾客管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body hotelService.GuestRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Guest}
// @Router /api/admin/guests [post]
func (h *GuestHandler) Create(c *gin.Context) {
	var req hotelService.GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	guest, err := h.guestService.Create(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "登记成功", guest)
}

// Update 更新宾客
// @Summary 更新宾客
// @Tags 宾客管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "宾客ID"
// @Param request body hotelService.GuestRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.Guest}
// @Router /api/admin/guests/{id} [put]
func (h *GuestHandler) Update(c *gin.Context) {
	id, ok := handler.ParseID(c, "宾客")
	if !ok {
		return
	}
	var req hotelService.GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	guest, err := h.guestService.Update(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, guest)
}

// Delete 删除宾客
// @Summary 删除宾客
// @Tags 宾客管理
// @Produce json
// @Security Bearer
// @Param id path int true "宾客ID"
// @Success 200 {object} response.Response
// @Router /api/admin/guests/{id} [delete]
func (h *GuestHandler) Delete(c *gin.Context) {
	id, ok := handler.ParseID(c, "宾客")
	if !ok {
		return
	}
	err := h.guestService.Delete(c.Request.Context(), id)
	handler.MustSucceedWithMessage(c, err, "删除成功", nil)
}

// RegisterRoutes 注册宾客管理路由
func (h *GuestHandler) RegisterRoutes(r *gin.RouterGroup) {
	guests := r.Group("/guests")
	{
		guests.GET("", h.List)
		guests.GET("/search", h.Search)
		guests.GET("/id-card/:id_card", h.GetByIDCard)
		guests.GET("/:id", h.Get)
		guests.POST("", h.Create)
		guests.PUT("/:id", h.Update)
		guests.DELETE("/:id", h.Delete)
	}
}
