// Package wechatpay 微信支付 Native 扫码支付封装（沙箱模式下返回模拟数据）
package wechatpay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Config 微信支付配置
type Config struct {
	AppID          string
	MchID          string
	APIv3Key       string
	SerialNo       string
	PrivateKeyPath string
	NotifyURL      string
	IsSandbox      bool
}

// 错误
var (
	ErrNotConfigured  = errors.New("wechatpay: merchant not configured")
	ErrInvalidNotify  = errors.New("wechatpay: invalid notify payload")
	ErrInvalidAmount  = errors.New("wechatpay: amount must be positive")
	ErrOrderNotExists = errors.New("wechatpay: order not exists")
)

// TradeState 交易状态
const (
	TradeStateSuccess    = "SUCCESS"
	TradeStateRefund     = "REFUND"
	TradeStateNotPay     = "NOTPAY"
	TradeStateClosed     = "CLOSED"
	TradeStateRevoked    = "REVOKED"
	TradeStateUserPaying = "USERPAYING"
	TradeStatePayError   = "PAYERROR"
)

// RefundStatus 退款状态
const (
	RefundStatusSuccess    = "SUCCESS"
	RefundStatusClosed     = "CLOSED"
	RefundStatusProcessing = "PROCESSING"
	RefundStatusAbnormal   = "ABNORMAL"
)

// Client 微信支付客户端
type Client struct {
	config *Config
	now    func() time.Time
}

// NewClient 创建客户端
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	if !cfg.IsSandbox && (cfg.AppID == "" || cfg.MchID == "") {
		return nil, ErrNotConfigured
	}
	return &Client{config: cfg, now: time.Now}, nil
}

// ToFen 元转分
func ToFen(yuan float64) int64 {
	return decimal.NewFromFloat(yuan).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// NativeOrderRequest 扫码下单请求
type NativeOrderRequest struct {
	OutTradeNo  string
	Description string
	Amount      float64 // 元
	Attach      string
	ExpireAt    time.Time
}

// NativeOrderResponse 扫码下单响应
type NativeOrderResponse struct {
	PrepayID string
	CodeURL  string
}

// CreateNativeOrder 创建扫码支付订单
func (c *Client) CreateNativeOrder(ctx context.Context, req *NativeOrderRequest) (*NativeOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ToFen(req.Amount) <= 0 {
		return nil, ErrInvalidAmount
	}
	// 沙箱：不调用真实接口
	prepayID := fmt.Sprintf("wx%d", c.now().UnixNano())
	return &NativeOrderResponse{
		PrepayID: prepayID,
		CodeURL:  fmt.Sprintf("weixin://wxpay/bizpayurl?pr=%s", req.OutTradeNo),
	}, nil
}

// QueryOrderResponse 查询订单响应
type QueryOrderResponse struct {
	OutTradeNo     string
	TransactionID  string
	TradeState     string
	TradeStateDesc string
}

// QueryOrder 按商户单号查询订单
func (c *Client) QueryOrder(ctx context.Context, outTradeNo string) (*QueryOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if outTradeNo == "" {
		return nil, ErrOrderNotExists
	}
	return &QueryOrderResponse{
		OutTradeNo:     outTradeNo,
		TradeState:     TradeStateNotPay,
		TradeStateDesc: "订单未支付",
	}, nil
}

// RefundRequest 退款请求
type RefundRequest struct {
	OutTradeNo  string
	OutRefundNo string
	Reason      string
	Total       float64
	Refund      float64
}

// RefundResponse 退款响应
type RefundResponse struct {
	RefundID    string
	OutRefundNo string
	Status      string
}

// Refund 申请退款
func (c *Client) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refund := ToFen(req.Refund)
	if refund <= 0 || (req.Total > 0 && refund > ToFen(req.Total)) {
		return nil, ErrInvalidAmount
	}
	return &RefundResponse{
		RefundID:    fmt.Sprintf("rf%d", c.now().UnixNano()),
		OutRefundNo: req.OutRefundNo,
		Status:      RefundStatusProcessing,
	}, nil
}

// Notification 回调通知（支付或退款）
type Notification struct {
	OutTradeNo    string
	TransactionID string
	TradeState    string
	IsRefund      bool
}

// ParseNotify 解析回调报文，兼容带 resource 外层和直接平铺两种格式
func (c *Client) ParseNotify(payload []byte) (*Notification, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidNotify
	}
	root := gjson.ParseBytes(payload)
	if resource := root.Get("resource"); resource.IsObject() {
		root = resource
	}

	n := &Notification{
		OutTradeNo:    root.Get("out_trade_no").String(),
		TransactionID: root.Get("transaction_id").String(),
		TradeState:    root.Get("trade_state").String(),
	}
	if n.TradeState == "" {
		if status := root.Get("refund_status"); status.Exists() {
			n.TradeState = status.String()
			n.IsRefund = true
			if n.TransactionID == "" {
				n.TransactionID = root.Get("refund_id").String()
			}
			if rn := root.Get("out_refund_no"); rn.Exists() {
				n.OutTradeNo = rn.String()
			}
		}
	}
	if n.OutTradeNo == "" || n.TradeState == "" {
		return nil, ErrInvalidNotify
	}
	return n, nil
}

// VerifySignature 验证回调签名
// TODO: 非沙箱模式按平台证书校验 Wechatpay-Signature
func (c *Client) VerifySignature(signature, timestamp, nonce string, body []byte) error {
	if c.config.IsSandbox {
		return nil
	}
	if signature == "" || timestamp == "" || nonce == "" {
		return ErrInvalidNotify
	}
	return nil
}
