// Package sms 宾客短信通知，生产环境走阿里云短信，开发和测试使用内存实现
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	dysmsapi "github.com/alibabacloud-go/dysmsapi-20170525/v3/client"
	"github.com/alibabacloud-go/tea/tea"
)

const (
	defaultRegion   = "cn-hangzhou"
	defaultEndpoint = "dysmsapi.aliyuncs.com"
	okCode          = "OK"
)

// ErrInvalidRequest 手机号或模板为空
var ErrInvalidRequest = errors.New("sms: phone and template are required")

// Sender 短信发送器
type Sender interface {
	Send(ctx context.Context, phone, templateCode string, params map[string]string) error
}

// SendError 短信平台拒绝发送
type SendError struct {
	Code      string
	Message   string
	RequestID string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sms rejected: %s %s (request %s)", e.Code, e.Message, e.RequestID)
}

// AliyunConfig 阿里云短信配置
type AliyunConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	RegionID        string
	Endpoint        string
}

// AliyunSender 阿里云短信
type AliyunSender struct {
	client   *dysmsapi.Client
	signName string
}

// NewAliyunSender 区域和接入点为空时补默认值
func NewAliyunSender(cfg *AliyunConfig) (*AliyunSender, error) {
	if cfg.RegionID == "" {
		cfg.RegionID = defaultRegion
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	client, err := dysmsapi.NewClient(&openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
		RegionId:        tea.String(cfg.RegionID),
		Endpoint:        tea.String(cfg.Endpoint),
	})
	if err != nil {
		return nil, fmt.Errorf("init aliyun sms client: %w", err)
	}
	return &AliyunSender{client: client, signName: cfg.SignName}, nil
}

// Send 发送模板短信
func (s *AliyunSender) Send(ctx context.Context, phone, templateCode string, params map[string]string) error {
	if phone == "" || templateCode == "" {
		return ErrInvalidRequest
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode sms params: %w", err)
	}

	resp, err := s.client.SendSms(&dysmsapi.SendSmsRequest{
		PhoneNumbers:  tea.String(phone),
		SignName:      tea.String(s.signName),
		TemplateCode:  tea.String(templateCode),
		TemplateParam: tea.String(string(raw)),
	})
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if resp.Body == nil {
		return &SendError{Code: "EMPTY_RESPONSE"}
	}
	if code := tea.StringValue(resp.Body.Code); code != okCode {
		return &SendError{
			Code:      code,
			Message:   tea.StringValue(resp.Body.Message),
			RequestID: tea.StringValue(resp.Body.RequestId),
		}
	}
	return nil
}

// MockMessage 内存发送记录
type MockMessage struct {
	Phone        string
	TemplateCode string
	Params       map[string]string
	SentAt       time.Time
}

// MockSender 内存短信，Err 非空时每次发送都返回该错误
type MockSender struct {
	Err error

	mu   sync.Mutex
	sent []MockMessage
}

// NewMockSender 创建内存发送器
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send 记录消息
func (s *MockSender) Send(_ context.Context, phone, templateCode string, params map[string]string) error {
	if phone == "" || templateCode == "" {
		return ErrInvalidRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, MockMessage{Phone: phone, TemplateCode: templateCode, Params: params, SentAt: time.Now()})
	return nil
}

// GetLastMessage 最近一条，没有时返回 nil
func (s *MockSender) GetLastMessage() *MockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	msg := s.sent[len(s.sent)-1]
	return &msg
}

// Count 已发送条数
func (s *MockSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
