package wechatpay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSandbox(t *testing.T) *Client {
	client, err := NewClient(&Config{IsSandbox: true})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(&Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(&Config{AppID: "wx123", MchID: "1900000001"})
	assert.NoError(t, err)
}

func TestToFen(t *testing.T) {
	assert.Equal(t, int64(15000), ToFen(150))
	assert.Equal(t, int64(8999), ToFen(89.99))
	assert.Equal(t, int64(1), ToFen(0.005))
	assert.Equal(t, int64(0), ToFen(0))
}

func TestClient_CreateNativeOrder(t *testing.T) {
	client := newSandbox(t)
	ctx := context.Background()

	resp, err := client.CreateNativeOrder(ctx, &NativeOrderRequest{OutTradeNo: "T001", Description: "房费", Amount: 150})
	require.NoError(t, err)
	assert.Equal(t, "weixin://wxpay/bizpayurl?pr=T001", resp.CodeURL)
	assert.NotEmpty(t, resp.PrepayID)

	_, err = client.CreateNativeOrder(ctx, &NativeOrderRequest{OutTradeNo: "T002", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.CreateNativeOrder(cancelled, &NativeOrderRequest{OutTradeNo: "T003", Amount: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Refund(t *testing.T) {
	client := newSandbox(t)
	ctx := context.Background()

	resp, err := client.Refund(ctx, &RefundRequest{OutTradeNo: "T001", OutRefundNo: "R001", Total: 150, Refund: 90})
	require.NoError(t, err)
	assert.Equal(t, RefundStatusProcessing, resp.Status)
	assert.Equal(t, "R001", resp.OutRefundNo)

	_, err = client.Refund(ctx, &RefundRequest{OutRefundNo: "R002", Total: 100, Refund: 120})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClient_ParseNotify(t *testing.T) {
	client := newSandbox(t)

	t.Run("支付成功（resource 外层）", func(t *testing.T) {
		n, err := client.ParseNotify([]byte(`{"id":"evt1","event_type":"TRANSACTION.SUCCESS","resource":{"out_trade_no":"T001","transaction_id":"4200001","trade_state":"SUCCESS"}}`))
		require.NoError(t, err)
		assert.Equal(t, "T001", n.OutTradeNo)
		assert.Equal(t, "4200001", n.TransactionID)
		assert.Equal(t, TradeStateSuccess, n.TradeState)
		assert.False(t, n.IsRefund)
	})

	t.Run("平铺格式", func(t *testing.T) {
		n, err := client.ParseNotify([]byte(`{"out_trade_no":"T002","transaction_id":"4200002","trade_state":"PAYERROR"}`))
		require.NoError(t, err)
		assert.Equal(t, TradeStatePayError, n.TradeState)
	})

	t.Run("退款通知", func(t *testing.T) {
		n, err := client.ParseNotify([]byte(`{"resource":{"out_trade_no":"T001","out_refund_no":"R001","refund_id":"5030001","refund_status":"SUCCESS"}}`))
		require.NoError(t, err)
		assert.True(t, n.IsRefund)
		assert.Equal(t, "R001", n.OutTradeNo)
		assert.Equal(t, "5030001", n.TransactionID)
	})

	t.Run("报文非法", func(t *testing.T) {
		_, err := client.ParseNotify([]byte(`not json`))
		assert.ErrorIs(t, err, ErrInvalidNotify)

		_, err = client.ParseNotify([]byte(`{"transaction_id":"4200003"}`))
		assert.ErrorIs(t, err, ErrInvalidNotify)
	})
}
