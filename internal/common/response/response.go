// Package response 提供统一的 API 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
)

// Response API 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据结构
type PageData struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Pages    int         `json:"pages"`
}

// 业务错误码对应的 HTTP 状态，未列出的按 200 返回，由 code 区分
var statusByCode = map[int]int{
	errors.ErrInvalidParams.Code:       http.StatusBadRequest,
	errors.ErrInvalidDateRange.Code:    http.StatusBadRequest,
	errors.ErrInvalidAmount.Code:       http.StatusBadRequest,
	errors.ErrIDCardInvalid.Code:       http.StatusBadRequest,
	errors.ErrUnauthorized.Code:        http.StatusUnauthorized,
	errors.ErrTokenExpired.Code:        http.StatusUnauthorized,
	errors.ErrTokenInvalid.Code:        http.StatusUnauthorized,
	errors.ErrPasswordError.Code:       http.StatusUnauthorized,
	errors.ErrPermissionDenied.Code:    http.StatusForbidden,
	errors.ErrAccountDisabled.Code:     http.StatusForbidden,
	errors.ErrNotFound.Code:            http.StatusNotFound,
	errors.ErrReservationNotFound.Code: http.StatusNotFound,
	errors.ErrRoomNotFound.Code:        http.StatusNotFound,
	errors.ErrGuestNotFound.Code:       http.StatusNotFound,
	errors.ErrStaffNotFound.Code:       http.StatusNotFound,
	errors.ErrTransactionNotFound.Code: http.StatusNotFound,
	errors.ErrBookingConflict.Code:     http.StatusConflict,
	errors.ErrNoAvailability.Code:      http.StatusConflict,
	errors.ErrRoomNumberExists.Code:    http.StatusConflict,
	errors.ErrUsernameExists.Code:      http.StatusConflict,
	errors.ErrIDCardExists.Code:        http.StatusConflict,
	errors.ErrReservationStatus.Code:   http.StatusUnprocessableEntity,
	errors.ErrRoomStatus.Code:          http.StatusUnprocessableEntity,
	errors.ErrTransactionStatus.Code:   http.StatusUnprocessableEntity,
	errors.ErrRoomNotAssigned.Code:     http.StatusUnprocessableEntity,
	errors.ErrRateLimitExceed.Code:     http.StatusTooManyRequests,
	errors.ErrDatabaseError.Code:       http.StatusInternalServerError,
	errors.ErrInternalError.Code:       http.StatusInternalServerError,
	errors.ErrUnknown.Code:             http.StatusInternalServerError,
}

// StatusOf 返回业务错误码对应的 HTTP 状态
func StatusOf(code int) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusOK
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// SuccessWithMessage 成功响应（带消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: message, Data: data})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List:     list,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			Pages:    pages(total, pageSize),
		},
	})
}

func pages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Error 业务错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(StatusOf(code), Response{Code: code, Message: message})
}

// AppError 将任意错误转换为响应，非 AppError 按内部错误处理且不暴露细节
func AppError(c *gin.Context, err error) {
	if !errors.IsAppError(err) {
		InternalError(c, "")
		return
	}
	appErr := errors.GetAppError(err)
	Error(c, appErr.Code, appErr.Message)
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Message: message})
}

// Unauthorized 未授权
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Message: message})
}

// Forbidden 禁止访问
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "forbidden"
	}
	c.JSON(http.StatusForbidden, Response{Code: 403, Message: message})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "not found"
	}
	c.JSON(http.StatusNotFound, Response{Code: 404, Message: message})
}

// InternalError 服务器内部错误
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error"
	}
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Message: message})
}

// TooManyRequests 请求过于频繁
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "too many requests"
	}
	c.JSON(http.StatusTooManyRequests, Response{Code: 429, Message: message})
}
