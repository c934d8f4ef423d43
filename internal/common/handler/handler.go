// Package handler 提供 API Handler 的通用辅助函数
package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
	"github.com/dumeirei/hotel-pms-backend/internal/service/audit"
)

// HandleError 发送错误响应；返回 true 表示已处理，调用方应直接 return
//
//	result, err := svc.CheckIn(ctx, id, req)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)
	response.AppError(c, err)
	return true
}

// MustSucceed 有错误时返回错误响应，否则返回 data
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedWithMessage 带自定义成功消息
func MustSucceedWithMessage(c *gin.Context, err error, message string, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, data)
}

// MustSucceedPage 分页版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, p utils.Pagination) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, p.Page, p.PageSize)
}

// RequireStaffID 获取当前员工ID，未登录时返回 401
func RequireStaffID(c *gin.Context) (int64, bool) {
	return requireUser(c)
}

// RequireGuestID 获取当前宾客ID，未登录时返回 401
func RequireGuestID(c *gin.Context) (int64, bool) {
	return requireUser(c)
}

func requireUser(c *gin.Context) (int64, bool) {
	id := middleware.GetUserID(c)
	if id == 0 {
		response.Unauthorized(c, "请先登录")
		return 0, false
	}
	return id, true
}

// OperatorContext 请求上下文附带当前登录用户，供审计事件记录操作者
func OperatorContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if id := middleware.GetUserID(c); id != 0 {
		return audit.WithOperator(ctx, id, middleware.GetUserType(c))
	}
	return ctx
}

// ParseID 解析路径参数 "id"
//
//	id, ok := handler.ParseID(c, "预订")
//	if !ok {
//	    return
//	}
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为 int64
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析可选的查询参数 ID，参数为空时返回 (nil, true)
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ParseRequiredQueryDate 解析必填的日期查询参数 (YYYY-MM-DD)
func ParseRequiredQueryDate(c *gin.Context, paramName, label string) (time.Time, bool) {
	v := c.Query(paramName)
	if v == "" {
		response.BadRequest(c, "请提供"+label)
		return time.Time{}, false
	}
	d, err := utils.ParseDate(v)
	if err != nil {
		response.BadRequest(c, "无效的"+label+"格式")
		return time.Time{}, false
	}
	return d, true
}

// ParseRequiredQueryDateRange 解析 start_date / end_date，两端都包含
func ParseRequiredQueryDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, ok := ParseRequiredQueryDate(c, "start_date", "开始日期")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := ParseRequiredQueryDate(c, "end_date", "结束日期")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		response.BadRequest(c, "结束日期不能早于开始日期")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// BindPagination 绑定并规范化分页参数，默认 page=1, page_size=10
//
//	p := handler.BindPagination(c)
//	list, total, err := svc.List(ctx, filter, p.GetOffset(), p.GetLimit())
//	handler.MustSucceedPage(c, err, list, total, p)
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}
