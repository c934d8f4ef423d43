// Package oss 对象存储
package oss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// Uploader 上传器接口
type Uploader interface {
	Upload(ctx context.Context, objectKey, contentType string, reader io.Reader) (string, error)
	Delete(ctx context.Context, objectKey string) error
	URL(objectKey string) string
}

// AliyunConfig 阿里云 OSS 配置
type AliyunConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	Domain          string // 自定义域名（可选）
	BasePath        string // 如 "hotel/"
}

// AliyunUploader 阿里云 OSS 上传器
type AliyunUploader struct {
	bucket *oss.Bucket
	config *AliyunConfig
}

// NewAliyunUploader 创建阿里云 OSS 上传器
func NewAliyunUploader(config *AliyunConfig) (*AliyunUploader, error) {
	client, err := oss.New(config.Endpoint, config.AccessKeyID, config.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("创建 OSS 客户端失败: %w", err)
	}
	bucket, err := client.Bucket(config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("获取 Bucket 失败: %w", err)
	}
	return &AliyunUploader{bucket: bucket, config: config}, nil
}

// Upload 上传对象，返回访问地址
func (u *AliyunUploader) Upload(ctx context.Context, objectKey, contentType string, reader io.Reader) (string, error) {
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := u.bucket.PutObject(u.fullKey(objectKey), reader, opts...); err != nil {
		return "", fmt.Errorf("上传文件失败: %w", err)
	}
	return u.URL(objectKey), nil
}

// Delete 删除对象
func (u *AliyunUploader) Delete(ctx context.Context, objectKey string) error {
	return u.bucket.DeleteObject(u.fullKey(objectKey), oss.WithContext(ctx))
}

// URL 对象访问地址
func (u *AliyunUploader) URL(objectKey string) string {
	key := u.fullKey(objectKey)
	if u.config.Domain != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.config.Domain, "/"), key)
	}
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key)
}

func (u *AliyunUploader) fullKey(objectKey string) string {
	if u.config.BasePath == "" {
		return objectKey
	}
	return path.Join(u.config.BasePath, objectKey)
}

// ObjectKey 生成对象键：{prefix}/{yyyy/mm/dd}/{uuid}{ext}
func ObjectKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", prefix, now.Format("2006/01/02"), uuid.NewString(), ext)
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// DetectImage 校验扩展名和文件头，返回真实的 Content-Type
func DetectImage(filename string, header []byte) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("不支持的图片格式: %s", ext)
	}
	if len(header) > 512 {
		header = header[:512]
	}
	contentType := http.DetectContentType(header)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("文件不是有效的图片")
	}
	return contentType, nil
}

// MockUploader 内存上传器（开发/测试）
type MockUploader struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error
}

// NewMockUploader 创建内存上传器
func NewMockUploader() *MockUploader {
	return &MockUploader{Files: make(map[string][]byte)}
}

// Upload 保存到内存
func (u *MockUploader) Upload(_ context.Context, objectKey, _ string, reader io.Reader) (string, error) {
	if u.Err != nil {
		return "", u.Err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	u.Files[objectKey] = data
	u.mu.Unlock()
	return u.URL(objectKey), nil
}

// Delete 从内存删除
func (u *MockUploader) Delete(_ context.Context, objectKey string) error {
	u.mu.Lock()
	delete(u.Files, objectKey)
	u.mu.Unlock()
	return nil
}

// URL 模拟地址
func (u *MockUploader) URL(objectKey string) string {
	return "https://mock-oss.example.com/" + objectKey
}
