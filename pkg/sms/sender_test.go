package sms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSender(t *testing.T) {
	sender := NewMockSender()
	assert.Nil(t, sender.GetLastMessage())

	err := sender.Send(context.Background(), "13800138000", "SMS_CONFIRM", map[string]string{"reservation_no": "R1"})
	require.NoError(t, err)

	last := sender.GetLastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "13800138000", last.Phone)
	assert.Equal(t, "SMS_CONFIRM", last.TemplateCode)
	assert.Equal(t, "R1", last.Params["reservation_no"])
	assert.Equal(t, 1, sender.Count())
}

func TestMockSender_Failures(t *testing.T) {
	sender := NewMockSender()
	assert.ErrorIs(t, sender.Send(context.Background(), "", "SMS_CONFIRM", nil), ErrInvalidRequest)

	sender.Err = &SendError{Code: "isv.BUSINESS_LIMIT_CONTROL", Message: "触发流控"}
	err := sender.Send(context.Background(), "13800138000", "SMS_CONFIRM", nil)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "isv.BUSINESS_LIMIT_CONTROL", sendErr.Code)
	assert.Zero(t, sender.Count())
}

func TestAliyunSender(t *testing.T) {
	cfg := &AliyunConfig{AccessKeyID: "ak", AccessKeySecret: "sk", SignName: "悦居酒店"}
	sender, err := NewAliyunSender(cfg)
	require.NoError(t, err)
	assert.Equal(t, defaultRegion, cfg.RegionID)
	assert.Equal(t, defaultEndpoint, cfg.Endpoint)

	// 参数不完整时不发起请求
	assert.ErrorIs(t, sender.Send(context.Background(), "13800138000", "", nil), ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sender.Send(ctx, "13800138000", "SMS_CONFIRM", nil), context.Canceled)
}

func TestSenderInterfaceImpl(t *testing.T) {
	var _ Sender = (*AliyunSender)(nil)
	var _ Sender = (*MockSender)(nil)
}
