// Package qrcode 生成预订凭证和扫码支付使用的二维码
package qrcode

import (
	"encoding/base64"
	"errors"

	"github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// 二维码内容上限，超出后扫码枪识别率明显下降
const maxContentLen = 512

// ErrEmptyContent 内容为空
var ErrEmptyContent = errors.New("qrcode: empty content")

// ErrContentTooLong 内容过长
var ErrContentTooLong = errors.New("qrcode: content too long")

// Generator 二维码生成器
type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 设置边长（像素）
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithHighRecovery 提高纠错级别，适合打印在纸质凭证上
func WithHighRecovery() Option {
	return func(g *Generator) {
		g.level = qrcode.High
	}
}

// NewGenerator 默认 200 像素、中等纠错
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{size: 200, level: qrcode.Medium}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PNG 生成 PNG 图片
func (g *Generator) PNG(content string) ([]byte, error) {
	switch {
	case content == "":
		return nil, ErrEmptyContent
	case len(content) > maxContentLen:
		return nil, ErrContentTooLong
	}
	return qrcode.Encode(content, g.level, g.size)
}

// GenerateDataURL 生成可直接放入 <img src> 的 data URL
func (g *Generator) GenerateDataURL(content string) (string, error) {
	png, err := g.PNG(content)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
