// Package admin 提供员工后台的认证、统计、对接与日志 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	authService "github.com/dumeirei/hotel-pms-backend/internal/service/auth"
)

// AuthHandler 员工认证处理器
type AuthHandler struct {
	authService *authService.AuthService
}

// NewAuthHandler 创建员工认证处理器
func NewAuthHandler(authSvc *authService.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
	}
}

// Login 员工登录
// @Summary 员工登录
// @Tags 员工认证
// @Accept json
// @Produce json
// @Param request body authService.LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Router /api/admin/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.IP = c.ClientIP()

	result, err := h.authService.StaffLogin(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新 Token
// @Summary 刷新员工 Token
// @Tags 员工认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "请求参数"
// @Success 200 {object} response.Response{data=jwt.TokenPair}
// @Router /api/admin/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tokenPair, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	handler.MustSucceed(c, err, tokenPair)
}

// Profile 当前员工信息
// @Summary 获取当前员工信息
// @Tags 员工认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=authService.UserInfo}
// @Router /api/admin/auth/me [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}
	info, err := h.authService.GetStaff(c.Request.Context(), staffID)
	handler.MustSucceed(c, err, info)
}

// ChangePassword 修改密码
// @Summary 修改员工密码
// @Tags 员工认证
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body authService.ChangePasswordRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/admin/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}

	var req authService.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	err := h.authService.ChangeStaffPassword(c.Request.Context(), staffID, &req)
	handler.MustSucceedWithMessage(c, err, "密码已修改", nil)
}

// Logout 退出登录
// @Summary 员工退出登录
// @Tags 员工认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /api/admin/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// 依赖 JWT 自然过期
	response.Success(c, nil)
}

// CreateStaff 新建员工
// @Summary 新建员工账号（仅管理员）
// @Tags 员工认证
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body authService.CreateStaffRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.UserInfo}
// @Router /api/admin/staff [post]
func (h *AuthHandler) CreateStaff(c *gin.Context) {
	var req authService.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	info, err := h.authService.CreateStaff(c.Request.Context(), &req)
	handler.MustSucceedWithMessage(c, err, "创建成功", info)
}

// RegisterRoutes 注册公开路由
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
	}
}

// RegisterProtectedRoutes 注册需要认证的路由
func (h *AuthHandler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/me", h.Profile)
		auth.PUT("/password", h.ChangePassword)
		auth.POST("/logout", h.Logout)
	}
	r.POST("/staff", middleware.RequireRoles(models.StaffRoleAdmin), h.CreateStaff)
}
