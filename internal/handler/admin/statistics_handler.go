package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/service/statistics"
)

// StatisticsHandler 经营统计处理器
type StatisticsHandler struct {
	statisticsService *statistics.StatisticsService
}

// NewStatisticsHandler 创建统计处理器
func NewStatisticsHandler(statisticsSvc *statistics.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsSvc}
}

// Today 今日概览
// @Summary 今日入住、离店、新增预订与出租率
// @Tags 经营统计
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=statistics.TodayStatistics}
// @Router /api/admin/statistics/today [get]
func (h *StatisticsHandler) Today(c *gin.Context) {
	result, err := h.statisticsService.Today(c.Request.Context())
	handler.MustSucceed(c, err, result)
}

// Range 区间统计
// @Summary 入住日期区间内的预订与收入
// @Tags 经营统计
// @Produce json
// @Security Bearer
// @Param start_date query string true "开始日期"
// @Param end_date query string true "结束日期"
// @Success 200 {object} response.Response{data=statistics.RangeStatistics}
// @Router /api/admin/statistics/range [get]
func (h *StatisticsHandler) Range(c *gin.Context) {
	start, end, ok := handler.ParseRequiredQueryDateRange(c)
	if !ok {
		return
	}
	result, err := h.statisticsService.Range(c.Request.Context(), utils.FormatDate(start), utils.FormatDate(end))
	handler.MustSucceed(c, err, result)
}

// RoomTypes 房型分布
// @Summary 各房型房间数
// @Tags 经营统计
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=statistics.RoomTypeStatistics}
// @Router /api/admin/statistics/room-types [get]
func (h *StatisticsHandler) RoomTypes(c *gin.Context) {
	result, err := h.statisticsService.RoomTypes(c.Request.Context())
	handler.MustSucceed(c, err, result)
}

// Refresh 清除统计缓存
// @Summary 清除统计缓存
// @Tags 经营统计
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /api/admin/statistics/refresh [post]
func (h *StatisticsHandler) Refresh(c *gin.Context) {
	if err := h.statisticsService.Invalidate(c.Request.Context()); err != nil {
		response.InternalError(c, "清除缓存失败")
		return
	}
	response.SuccessWithMessage(c, "已刷新", nil)
}

// RegisterRoutes 注册统计路由
func (h *StatisticsHandler) RegisterRoutes(r *gin.RouterGroup) {
	stats := r.Group("/statistics")
	{
		stats.GET("/today", h.Today)
		stats.GET("/range", h.Range)
		stats.GET("/room-types", h.RoomTypes)
		stats.POST("/refresh", h.Refresh)
	}
}
