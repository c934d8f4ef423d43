// Package upload 提供文件上传相关的 HTTP Handler
package upload

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	uploadService "github.com/dumeirei/hotel-pms-backend/internal/service/upload"
)

// Handler 上传处理器
type Handler struct {
	uploadService *uploadService.UploadService
}

// NewHandler 创建上传处理器
func NewHandler(uploadSvc *uploadService.UploadService) *Handler {
	return &Handler{
		uploadService: uploadSvc,
	}
}

// UploadRoomImage 上传房间图片
// @Summary 上传房间图片
// @Description 支持 jpg/jpeg/png/gif/webp 格式，最大 10MB，上传后追加到房间图片列表
// @Tags 文件上传
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Param file formData file true "图片文件"
// @Success 200 {object} response.Response{data=uploadService.UploadImageResponse}
// @Router /api/admin/rooms/{id}/images [post]
func (h *Handler) UploadRoomImage(c *gin.Context) {
	roomID, ok := handler.ParseID(c, "房间")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "请选择要上传的文件")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "读取文件失败")
		return
	}
	defer file.Close()

	result, err := h.uploadService.UploadRoomImage(c.Request.Context(), roomID, header.Filename, header.Size, file)
	handler.MustSucceed(c, err, result)
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/rooms/:id/images", h.UploadRoomImage)
}
