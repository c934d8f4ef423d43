// Package upload 房间图片上传
package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/retry"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/pkg/oss"
)

// MaxImageSize 图片最大大小（10MB）
const MaxImageSize = 10 * 1024 * 1024

// UploadService 上传服务
type UploadService struct {
	uploader oss.Uploader
	roomRepo *repository.RoomRepository
	now      func() time.Time
}

// NewUploadService 创建上传服务
func NewUploadService(uploader oss.Uploader, roomRepo *repository.RoomRepository) *UploadService {
	return &UploadService{uploader: uploader, roomRepo: roomRepo, now: time.Now}
}

// UploadImageResponse 上传结果
type UploadImageResponse struct {
	URL      string   `json:"url"`
	FileName string   `json:"file_name"`
	Size     int64    `json:"size"`
	Images   []string `json:"images"`
}

// UploadRoomImage 上传房间图片并追加到房间图片列表
func (s *UploadService) UploadRoomImage(ctx context.Context, roomID int64, filename string, size int64, file io.Reader) (*UploadImageResponse, error) {
	if file == nil || filename == "" {
		return nil, errors.ErrInvalidParams.WithMessage("请选择要上传的文件")
	}
	if size > MaxImageSize {
		return nil, errors.ErrInvalidParams.WithMessage(fmt.Sprintf("图片大小不能超过 %dMB", MaxImageSize/(1024*1024)))
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return nil, errors.ErrOperationFailed.WithMessage("读取文件失败").WithError(err)
	}
	if len(data) > MaxImageSize {
		return nil, errors.ErrInvalidParams.WithMessage(fmt.Sprintf("图片大小不能超过 %dMB", MaxImageSize/(1024*1024)))
	}
	contentType, err := oss.DetectImage(filename, data)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessage("文件格式不正确：仅支持 jpg/jpeg/png/gif/webp 格式").WithError(err)
	}

	key := oss.ObjectKey("rooms/"+room.RoomNumber, filename, s.now())
	url, err := s.uploader.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, errors.ErrExternalService.WithMessage("上传文件失败").WithError(err)
	}

	err = retry.OnConflict(ctx, retry.DefaultAttempts, func(ctx context.Context) error {
		fresh, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return err
		}
		room = fresh
		return s.roomRepo.AppendImage(ctx, room, url)
	})
	if err != nil {
		// 图片已上传但未关联到房间，删除避免孤儿对象
		_ = s.uploader.Delete(ctx, key)
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return &UploadImageResponse{
		URL:      url,
		FileName: filename,
		Size:     int64(len(data)),
		Images:   room.Images,
	}, nil
}
