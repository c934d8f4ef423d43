// Package utils 提供通用工具函数
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

var (
	phonePattern  = regexp.MustCompile(`^1[3-9]\d{9}$`)
	idCardPattern = regexp.MustCompile(`^(\d{15}|\d{17}[\dXx])$`)
)

// GenerateNo 生成预订号、流水号
// 格式: 前缀 + yyyyMMddHHmmss + 6 位随机数字
func GenerateNo(prefix string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}
	return fmt.Sprintf("%s%s%06d", prefix, time.Now().Format("20060102150405"), n.Int64())
}

// ValidatePhone 宾客手机号
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidateIDCard 身份证号格式（15 位旧证或 18 位新证），不校验校验位
func ValidateIDCard(idCard string) bool {
	return idCardPattern.MatchString(idCard)
}

// MaskIDCard 脱敏证件号，保留前 3 位和后 4 位
func MaskIDCard(idCard string) string {
	if len(idCard) <= 7 {
		return strings.Repeat("*", len(idCard))
	}
	return idCard[:3] + strings.Repeat("*", len(idCard)-7) + idCard[len(idCard)-4:]
}

// Ptr 返回值的指针，用于可选字段
func Ptr[T any](v T) *T {
	return &v
}

// Deref 取指针的值，nil 时返回零值
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Contains 判断切片是否包含元素
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 分页默认值
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination 分页参数
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// Normalize 页码从 1 开始，每页数量限制在 [1, MaxPageSize]
func (p *Pagination) Normalize() {
	p.Page = max(p.Page, 1)
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	p.PageSize = min(p.PageSize, MaxPageSize)
}

// GetOffset 偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 每页数量
func (p *Pagination) GetLimit() int {
	return p.PageSize
}
