package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// OperationLogHandler 审计日志处理器
type OperationLogHandler struct {
	repo *repository.OperationLogRepository
}

// NewOperationLogHandler 创建审计日志处理器
func NewOperationLogHandler(repo *repository.OperationLogRepository) *OperationLogHandler {
	return &OperationLogHandler{repo: repo}
}

// ListOperationLogsRequest 审计日志查询
type ListOperationLogsRequest struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	OperatorID   int64  `form:"operator_id"`
	OperatorType string `form:"operator_type"`
	Module       string `form:"module"`
	Action       string `form:"action"`
	TargetType   string `form:"target_type"`
	TargetID     int64  `form:"target_id"`
	StartDate    string `form:"start_date" binding:"omitempty,date"`
	EndDate      string `form:"end_date" binding:"omitempty,date"`
}

func (r ListOperationLogsRequest) filter() repository.OperationLogFilter {
	f := repository.OperationLogFilter{
		OperatorID:   r.OperatorID,
		OperatorType: r.OperatorType,
		Module:       r.Module,
		Action:       r.Action,
		TargetType:   r.TargetType,
		TargetID:     r.TargetID,
	}
	// 日期已由 binding 校验
	if start, err := utils.ParseDate(r.StartDate); err == nil {
		f.Since = start
	}
	if end, err := utils.ParseDate(r.EndDate); err == nil {
		f.Until = end.AddDate(0, 0, 1)
	}
	return f
}

// List 审计日志列表
// @Summary 审计日志列表
// @Tags 审计日志
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param operator_id query int false "操作人ID"
// @Param operator_type query string false "操作人类型"
// @Param module query string false "模块"
// @Param action query string false "动作"
// @Param target_type query string false "对象类型"
// @Param target_id query int false "对象ID"
// @Param start_date query string false "开始日期"
// @Param end_date query string false "结束日期"
// @Success 200 {object} response.Response{data=response.PageData{list=[]models.OperationLog}}
// @Router /api/admin/operation-logs [get]
func (h *OperationLogHandler) List(c *gin.Context) {
	var req ListOperationLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	p := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	p.Normalize()

	logs, total, err := h.repo.List(c.Request.Context(), req.filter(), p.GetOffset(), p.GetLimit())
	handler.MustSucceedPage(c, err, logs, total, p)
}

// ListByTarget 单个对象的审计轨迹
// @Summary 对象的审计轨迹
// @Tags 审计日志
// @Produce json
// @Security Bearer
// @Param target_type path string true "对象类型"
// @Param id path int true "对象ID"
// @Success 200 {object} response.Response{data=[]models.OperationLog}
// @Router /api/admin/operation-logs/{target_type}/{id} [get]
func (h *OperationLogHandler) ListByTarget(c *gin.Context) {
	id, ok := handler.ParseID(c, "对象")
	if !ok {
		return
	}
	logs, err := h.repo.ListByTarget(c.Request.Context(), c.Param("target_type"), id)
	handler.MustSucceed(c, err, logs)
}

// ActionStats 按动作统计
// @Summary 审计动作统计
// @Tags 审计日志
// @Produce json
// @Security Bearer
// @Param operator_type query string false "操作人类型"
// @Param module query string false "模块"
// @Param start_date query string false "开始日期"
// @Param end_date query string false "结束日期"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/admin/operation-logs/stats [get]
func (h *OperationLogHandler) ActionStats(c *gin.Context) {
	var req ListOperationLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	counts, err := h.repo.CountByAction(c.Request.Context(), req.filter())
	handler.MustSucceed(c, err, counts)
}

// RegisterRoutes 注册审计日志路由
func (h *OperationLogHandler) RegisterRoutes(r *gin.RouterGroup) {
	logs := r.Group("/operation-logs")
	{
		logs.GET("", h.List)
		logs.GET("/stats", h.ActionStats)
		logs.GET("/:target_type/:id", h.ListByTarget)
	}
}
