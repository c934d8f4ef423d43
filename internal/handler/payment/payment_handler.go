// Package payment 提供收退款流水与支付回调的 HTTP Handler
package payment

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/service/external"
	paymentService "github.com/dumeirei/hotel-pms-backend/internal/service/payment"
)

// Handler 支付处理器
type Handler struct {
	ledger  *paymentService.Ledger
	gateway *external.PaymentGateway
}

// NewHandler 创建支付处理器，gateway 为 nil 时渠道相关接口返回外部服务错误
func NewHandler(ledger *paymentService.Ledger, gateway *external.PaymentGateway) *Handler {
	return &Handler{
		ledger:  ledger,
		gateway: gateway,
	}
}

// PendingRequest 新建流水请求
type PendingRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Note   string  `json:"note" binding:"max=255"`
}

// CreatePayment 新建待支付收款
// @Summary 新建待支付收款流水
// @Tags 支付
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body PendingRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.PaymentTransaction}
// @Router /api/admin/reservations/{id}/payments [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	reservationID, req, ok := bindPending(c)
	if !ok {
		return
	}
	txn, err := h.ledger.CreatePendingPayment(handler.OperatorContext(c), reservationID, req.Amount, req.Note)
	handler.MustSucceed(c, err, txn)
}

// CreateRefund 新建待处理退款
// @Summary 新建待处理退款流水
// @Tags 支付
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body PendingRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.PaymentTransaction}
// @Router /api/admin/reservations/{id}/refunds [post]
func (h *Handler) CreateRefund(c *gin.Context) {
	reservationID, req, ok := bindPending(c)
	if !ok {
		return
	}
	txn, err := h.ledger.CreatePendingRefund(handler.OperatorContext(c), reservationID, req.Amount, req.Note)
	handler.MustSucceed(c, err, txn)
}

func bindPending(c *gin.Context) (int64, *PendingRequest, bool) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return 0, nil, false
	}
	var req PendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return 0, nil, false
	}
	return id, &req, true
}

// GetTransaction 流水详情
// @Summary 流水详情
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param id path int true "流水ID"
// @Success 200 {object} response.Response{data=models.PaymentTransaction}
// @Router /api/admin/transactions/{id} [get]
func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := handler.ParseID(c, "流水")
	if !ok {
		return
	}
	txn, err := h.ledger.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, txn)
}

// GetTransactionByNo 按流水号查询
// @Summary 按流水号查询
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param transaction_no path string true "流水号"
// @Success 200 {object} response.Response{data=models.PaymentTransaction}
// @Router /api/admin/transactions/no/{transaction_no} [get]
func (h *Handler) GetTransactionByNo(c *gin.Context) {
	txn, err := h.ledger.GetByTransactionNo(c.Request.Context(), c.Param("transaction_no"))
	handler.MustSucceed(c, err, txn)
}

// OutcomeRequest 支付结果上报
type OutcomeRequest struct {
	Outcome     string  `json:"outcome" binding:"required,txn_outcome"`
	ProviderRef *string `json:"provider_ref"`
}

// ReportOutcome 人工上报支付结果
// @Summary 上报流水结果（SUCCESS / FAILED）
// @Tags 支付
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "流水ID"
// @Param request body OutcomeRequest true "请求参数"
// @Success 200 {object} response.Response{data=models.PaymentTransaction}
// @Router /api/admin/transactions/{id}/outcome [post]
func (h *Handler) ReportOutcome(c *gin.Context) {
	id, ok := handler.ParseID(c, "流水")
	if !ok {
		return
	}
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "结果只能为 SUCCESS 或 FAILED")
		return
	}
	txn, err := h.ledger.ReportOutcome(handler.OperatorContext(c), id, req.Outcome, req.ProviderRef)
	handler.MustSucceed(c, err, txn)
}

// GatewayOrder 为待支付流水下单
// @Summary 微信支付下单
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param id path int true "流水ID"
// @Success 200 {object} response.Response{data=external.PaymentOrder}
// @Router /api/admin/transactions/{id}/gateway-order [post]
func (h *Handler) GatewayOrder(c *gin.Context) {
	id, ok := h.gatewayTarget(c)
	if !ok {
		return
	}
	order, err := h.gateway.CreatePaymentOrder(c.Request.Context(), id)
	handler.MustSucceed(c, err, order)
}

// GatewayRefund 为待处理退款发起渠道退款
// @Summary 微信支付退款
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param id path int true "流水ID"
// @Success 200 {object} response.Response{data=external.RefundOrder}
// @Router /api/admin/transactions/{id}/gateway-refund [post]
func (h *Handler) GatewayRefund(c *gin.Context) {
	id, ok := h.gatewayTarget(c)
	if !ok {
		return
	}
	order, err := h.gateway.CreateRefundOrder(c.Request.Context(), id)
	handler.MustSucceed(c, err, order)
}

// GatewayStatus 查询渠道订单状态
// @Summary 查询微信支付订单状态
// @Tags 支付
// @Produce json
// @Security Bearer
// @Param id path int true "流水ID"
// @Success 200 {object} response.Response{data=external.PaymentStatus}
// @Router /api/admin/transactions/{id}/gateway-status [get]
func (h *Handler) GatewayStatus(c *gin.Context) {
	id, ok := h.gatewayTarget(c)
	if !ok {
		return
	}
	status, err := h.gateway.QueryStatus(c.Request.Context(), id)
	handler.MustSucceed(c, err, status)
}

func (h *Handler) gatewayTarget(c *gin.Context) (int64, bool) {
	if h.gateway == nil {
		response.AppError(c, errors.ErrExternalService.WithMessage("支付渠道未配置"))
		return 0, false
	}
	return handler.ParseID(c, "流水")
}

// Notify 支付渠道回调
// @Summary 微信支付回调
// @Tags 支付
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/payment/notify [post]
func (h *Handler) Notify(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "FAIL", "message": "支付渠道未配置"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "FAIL", "message": "读取请求体失败"})
		return
	}

	txn, err := h.gateway.HandleNotify(c.Request.Context(), body)
	if err != nil {
		logger.Ctx(c.Request.Context()).Warn("payment notify rejected", logger.Err(err))
		status := http.StatusInternalServerError
		if stderrors.Is(err, errors.ErrPaymentCallbackError) || stderrors.Is(err, errors.ErrTransactionNotFound) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"code": "FAIL", "message": err.Error()})
		return
	}

	logger.Ctx(c.Request.Context()).Info("payment notify handled",
		logger.TransactionID(txn.ID),
		logger.Amount(txn.Amount),
		logger.Outcome(txn.Status),
	)
	c.JSON(http.StatusOK, gin.H{"code": "SUCCESS", "message": "成功"})
}

// RegisterRoutes 注册后台流水路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reservations/:id/payments", h.CreatePayment)
	r.POST("/reservations/:id/refunds", h.CreateRefund)

	txns := r.Group("/transactions")
	{
		txns.GET("/no/:transaction_no", h.GetTransactionByNo)
		txns.GET("/:id", h.GetTransaction)
		txns.POST("/:id/outcome", h.ReportOutcome)
		txns.POST("/:id/gateway-order", h.GatewayOrder)
		txns.POST("/:id/gateway-refund", h.GatewayRefund)
		txns.GET("/:id/gateway-status", h.GatewayStatus)
	}
}

// RegisterCallbackRoutes 注册回调路由（无需认证）
func (h *Handler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	r.POST("/payment/notify", h.Notify)
}
