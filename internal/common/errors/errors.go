// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，WithMessage / WithError 派生出的错误与原始错误视为同一种
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = New(1001, "参数错误")
	ErrNotFound        = New(1002, "资源不存在")
	ErrAlreadyExists   = New(1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = New(1007, "外部服务错误")
	ErrRateLimitExceed = New(1008, "请求过于频繁")
	ErrOperationFailed = New(1009, "操作失败")
	ErrVersionConflict = New(1011, "数据已被修改")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
	ErrPasswordError    = New(2007, "密码错误")
)

// 员工与宾客账号错误码 (3000-3999)
var (
	ErrStaffNotFound    = New(3000, "员工不存在")
	ErrUsernameExists   = New(3001, "用户名已存在")
	ErrIDCardExists     = New(3002, "证件号已登记")
	ErrIDCardInvalid    = New(3003, "证件号无效")
	ErrGuestNotFound    = New(3004, "宾客不存在")
	ErrGuestHasBookings = New(3005, "宾客存在预订记录")
)

// 支付错误码 (6000-6999)
var (
	ErrTransactionNotFound  = New(6000, "交易记录不存在")
	ErrPaymentFailed        = New(6001, "支付失败")
	ErrRefundFailed         = New(6004, "退款失败")
	ErrTransactionStatus    = New(6006, "交易状态异常")
	ErrPaymentCallbackError = New(6007, "支付回调错误")
	ErrInvalidAmount        = New(6008, "金额无效")
)

// 预订与房间错误码 (8000-8999)
var (
	ErrReservationNotFound = New(8000, "预订不存在")
	ErrReservationStatus   = New(8001, "预订状态异常")
	ErrBookingConflict     = New(8002, "房间在指定日期不可用")
	ErrNoAvailability      = New(8004, "无可用房间")
	ErrRoomNotFound        = New(8005, "房间不存在")
	ErrInvalidDateRange    = New(8007, "离店日期必须晚于入住日期")
	ErrRoomStatus          = New(8008, "房间当前状态不允许该操作")
	ErrRoomNumberExists    = New(8009, "房间号已存在")
	ErrRoomNotAssigned     = New(8010, "预订未分配房间")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
