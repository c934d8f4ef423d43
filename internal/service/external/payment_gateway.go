// Package external 第三方对接：支付渠道、OTA 渠道、公安旅馆业系统
package external

import (
	"context"
	stderrors "errors"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/qrcode"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/service/payment"
	"github.com/dumeirei/hotel-pms-backend/pkg/wechatpay"
)

// PaymentGateway 支付渠道对接
type PaymentGateway struct {
	client *wechatpay.Client
	ledger *payment.Ledger
	qr     *qrcode.Generator
}

// NewPaymentGateway 创建支付渠道服务
func NewPaymentGateway(client *wechatpay.Client, ledger *payment.Ledger) *PaymentGateway {
	return &PaymentGateway{
		client: client,
		ledger: ledger,
		qr:     qrcode.NewGenerator(qrcode.WithSize(256)),
	}
}

// PaymentOrder 渠道支付单
type PaymentOrder struct {
	Success        bool   `json:"success"`
	TransactionNo  string `json:"transaction_no"`
	PaymentOrderID string `json:"payment_order_id"`
	PaymentURL     string `json:"payment_url"`
	QRCode         string `json:"qr_code"`
}

// CreatePaymentOrder 为待支付收款流水创建渠道扫码支付单
func (g *PaymentGateway) CreatePaymentOrder(ctx context.Context, transactionID int64) (*PaymentOrder, error) {
	txn, err := g.ledger.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Type != models.TransactionTypePayment || !txn.IsPending() {
		return nil, errors.ErrTransactionStatus
	}

	resp, err := g.client.CreateNativeOrder(ctx, &wechatpay.NativeOrderRequest{
		OutTradeNo:  txn.TransactionNo,
		Description: "客房预订",
		Amount:      txn.Amount,
	})
	if err != nil {
		return nil, errors.ErrPaymentFailed.WithError(err)
	}

	qr, err := g.qr.GenerateDataURL(resp.CodeURL)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return &PaymentOrder{
		Success:        true,
		TransactionNo:  txn.TransactionNo,
		PaymentOrderID: resp.PrepayID,
		PaymentURL:     resp.CodeURL,
		QRCode:         qr,
	}, nil
}

// PaymentStatus 支付状态
type PaymentStatus struct {
	TransactionNo string `json:"transaction_no"`
	Status        string `json:"status"`
	TradeState    string `json:"trade_state,omitempty"`
}

// QueryStatus 查询流水状态，仍待处理的流水同时查询渠道状态
func (g *PaymentGateway) QueryStatus(ctx context.Context, transactionID int64) (*PaymentStatus, error) {
	txn, err := g.ledger.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	status := &PaymentStatus{TransactionNo: txn.TransactionNo, Status: txn.Status}
	if !txn.IsPending() || txn.Type != models.TransactionTypePayment {
		return status, nil
	}

	resp, err := g.client.QueryOrder(ctx, txn.TransactionNo)
	if err != nil {
		return nil, errors.ErrExternalService.WithError(err)
	}
	status.TradeState = resp.TradeState
	return status, nil
}

// RefundOrder 渠道退款单
type RefundOrder struct {
	Success       bool   `json:"success"`
	TransactionNo string `json:"transaction_no"`
	RefundID      string `json:"refund_id"`
	Status        string `json:"status"`
}

// CreateRefundOrder 为待处理退款流水向渠道发起退款，原路退回最近一笔渠道收款
func (g *PaymentGateway) CreateRefundOrder(ctx context.Context, transactionID int64) (*RefundOrder, error) {
	txn, err := g.ledger.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Type != models.TransactionTypeRefund || !txn.IsPending() {
		return nil, errors.ErrTransactionStatus
	}

	txns, err := g.ledger.ListByReservation(ctx, txn.ReservationID)
	if err != nil {
		return nil, err
	}
	var origin *models.PaymentTransaction
	for _, t := range txns {
		if t.Type == models.TransactionTypePayment &&
			t.Status == models.TransactionStatusSuccess &&
			t.Channel == models.TransactionChannelGateway {
			origin = t
		}
	}
	if origin == nil {
		return nil, errors.ErrRefundFailed.WithMessage("没有可原路退回的渠道收款")
	}

	resp, err := g.client.Refund(ctx, &wechatpay.RefundRequest{
		OutTradeNo:  origin.TransactionNo,
		OutRefundNo: txn.TransactionNo,
		Reason:      "预订取消",
		Total:       origin.Amount,
		Refund:      txn.Amount,
	})
	if err != nil {
		return nil, errors.ErrRefundFailed.WithError(err)
	}
	return &RefundOrder{
		Success:       true,
		TransactionNo: txn.TransactionNo,
		RefundID:      resp.RefundID,
		Status:        resp.Status,
	}, nil
}

// HandleNotify 处理渠道回调：解析报文并驱动账本状态；
// 重复回调直接返回流水当前状态，处理中的状态不做变更
func (g *PaymentGateway) HandleNotify(ctx context.Context, payload []byte) (*models.PaymentTransaction, error) {
	n, err := g.client.ParseNotify(payload)
	if err != nil {
		return nil, errors.ErrPaymentCallbackError.WithError(err)
	}

	txn, err := g.ledger.GetByTransactionNo(ctx, n.OutTradeNo)
	if err != nil {
		return nil, err
	}
	if !txn.IsPending() {
		logger.Info("duplicate payment notify ignored",
			logger.TransactionID(txn.ID),
			logger.String("status", txn.Status),
		)
		return txn, nil
	}

	outcome := outcomeOf(n)
	if outcome == "" {
		return txn, nil
	}

	var providerRef *string
	if n.TransactionID != "" {
		providerRef = &n.TransactionID
	}
	updated, err := g.ledger.ReportOutcome(ctx, txn.ID, outcome, providerRef)
	if err != nil {
		// 并发回调已先一步完成
		if stderrors.Is(err, errors.ErrTransactionStatus) {
			return g.ledger.GetByID(ctx, txn.ID)
		}
		return nil, err
	}
	return updated, nil
}

// outcomeOf 渠道状态映射为账本结果，处理中返回空
func outcomeOf(n *wechatpay.Notification) string {
	if n.IsRefund {
		switch n.TradeState {
		case wechatpay.RefundStatusSuccess:
			return payment.OutcomeSuccess
		case wechatpay.RefundStatusClosed, wechatpay.RefundStatusAbnormal:
			return payment.OutcomeFailed
		}
		return ""
	}
	switch n.TradeState {
	case wechatpay.TradeStateSuccess:
		return payment.OutcomeSuccess
	case wechatpay.TradeStateClosed, wechatpay.TradeStateRevoked, wechatpay.TradeStatePayError:
		return payment.OutcomeFailed
	}
	return ""
}
