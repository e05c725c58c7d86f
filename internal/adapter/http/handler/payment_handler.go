package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"payuni-gateway/internal/adapter/http/dto"
	"payuni-gateway/internal/adapter/http/middleware"
	"payuni-gateway/internal/core/domain"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/pkg/apperror"
	"payuni-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PaymentHandler handles order creation, the gateway's two return channels,
// and a caller's own order history (C8).
type PaymentHandler struct {
	orderSvc   ports.OrderService
	gateway    ports.GatewayAdapter
	webhookSvc ports.WebhookProcessor
	resultTok  ports.ResultTokenCache
	resultURL  string
	log        zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler. resultRedirectURL is the
// frontend page the browser-return channel redirects to, e.g.
// "https://shop.example.com/result.html".
func NewPaymentHandler(
	orderSvc ports.OrderService,
	gateway ports.GatewayAdapter,
	webhookSvc ports.WebhookProcessor,
	resultTok ports.ResultTokenCache,
	resultRedirectURL string,
	log zerolog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		orderSvc:   orderSvc,
		gateway:    gateway,
		webhookSvc: webhookSvc,
		resultTok:  resultTok,
		resultURL:  resultRedirectURL,
		log:        log,
	}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, email, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.orderSvc.FindOrCreate(c.Request.Context(), ports.CreateOrderRequest{
		UserID:      userID,
		Email:       email,
		ProductID:   req.ProductID,
		ProductType: domain.ProductTypeOneTime,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	form, _, err := h.gateway.BuildOneShot(c.Request.Context(), ports.OneShotRequest{
		TradeNo:     order.TradeNo,
		Amount:      order.Amount,
		ProductName: order.ProductName,
		Email:       order.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CheckoutResponse{TradeNo: order.TradeNo, RedirectForm: form})
}

// CreateSubscription handles POST /api/v1/subscriptions.
func (h *PaymentHandler) CreateSubscription(c *gin.Context) {
	userID, email, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.orderSvc.FindOrCreate(c.Request.Context(), ports.CreateOrderRequest{
		UserID:      userID,
		Email:       email,
		ProductID:   req.ProductID,
		ProductType: domain.ProductTypeSubscription,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	form, _, err := h.gateway.BuildSubscription(c.Request.Context(), ports.SubscriptionRequest{
		TradeNo:     order.TradeNo,
		Amount:      order.Amount,
		ProductName: order.ProductName,
		Email:       order.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CheckoutResponse{TradeNo: order.TradeNo, RedirectForm: form})
}

// PaymentReturn handles POST /payment-return, the gateway's browser-delivered
// return channel. It never touches the order store: it verifies and parses
// the envelope via C2, stashes a snapshot in C5, and redirects the browser
// to the result page with a one-time token. Any verification failure still
// redirects, carrying a failure reason instead of a token.
func (h *PaymentHandler) PaymentReturn(c *gin.Context) {
	envelope := c.PostForm("TradeInfo")
	hash := c.PostForm("TradeSha")

	if !h.gateway.VerifyInbound(c.Request.Context(), envelope, hash) {
		c.Redirect(http.StatusFound, h.resultURL+"?status=fail&reason=invalid_hash")
		return
	}

	info, err := h.gateway.ParseInbound(c.Request.Context(), envelope)
	if err != nil {
		h.log.Error().Err(err).Msg("payment-return: failed to parse inbound envelope")
		c.Redirect(http.StatusFound, h.resultURL+"?status=fail&reason=processing_error")
		return
	}

	status := domain.OrderStatusFailed
	if info.IsPaid() {
		status = domain.OrderStatusPaid
	}

	now := time.Now().UTC()
	snapshot := &domain.ResultSnapshot{
		TradeNo:    info.TradeNo,
		Status:     status,
		GatewaySeq: info.GatewaySeq,
		Amount:     info.Amount,
	}
	if status == domain.OrderStatusPaid {
		snapshot.PaidAt = &now
	}

	token, err := h.resultTok.Put(c.Request.Context(), snapshot)
	if err != nil {
		h.log.Error().Err(err).Msg("payment-return: failed to store result snapshot")
		c.Redirect(http.StatusFound, h.resultURL+"?status=fail&reason=processing_error")
		return
	}

	c.Redirect(http.StatusFound, h.resultURL+"?token="+token)
}

// Webhook handles POST /payuni-webhook, the gateway's server-to-server
// notification channel. The response body is the plaintext contract the
// gateway expects, not JSON: "OK" to stop retrying, "FAIL" to trigger one.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	envelope := c.PostForm("TradeInfo")
	hash := c.PostForm("TradeSha")

	if h.webhookSvc.Process(c.Request.Context(), envelope, hash) {
		c.String(http.StatusOK, "OK")
		return
	}
	c.String(http.StatusOK, "FAIL")
}

// GetResult handles GET /api/v1/order-result/:token, the single-use C5 read
// that powers the result page after a browser return.
func (h *PaymentHandler) GetResult(c *gin.Context) {
	token := c.Param("token")

	snapshot, err := h.resultTok.Take(c.Request.Context(), token)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if snapshot == nil {
		response.Error(c, apperror.ErrTokenNotFound())
		return
	}

	response.OK(c, dto.ResultResponse{
		TradeNo: snapshot.TradeNo,
		Status:  string(snapshot.Status),
		Amount:  snapshot.Amount,
	})
}

// ListMyOrders handles GET /api/v1/my-orders.
func (h *PaymentHandler) ListMyOrders(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := h.orderSvc.ListMyOrders(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	response.OK(c, dto.OrderListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func toOrderResponse(o *domain.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		TradeNo:     o.TradeNo,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Amount:      o.Amount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
	if o.CompletedAt != nil {
		resp.CompletedAt = o.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// callerIdentity reads the session identity set by middleware.SessionAuth.
func callerIdentity(c *gin.Context) (userID, email string, ok bool) {
	uid, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Error(c, apperror.ErrUnauthenticated())
		return "", "", false
	}
	eml, _ := c.Get(middleware.CtxEmail)
	return uid.(string), eml.(string), true
}
