package handler

import (
	"time"

	"payuni-gateway/internal/adapter/http/dto"
	"payuni-gateway/internal/core/domain"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler exposes a caller's entitlements (C8).
type SubscriptionHandler struct {
	subSvc ports.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subSvc ports.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc}
}

// ListMySubscriptions handles GET /api/v1/subscriptions.
func (h *SubscriptionHandler) ListMySubscriptions(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	ents, err := h.subSvc.ListMySubscriptions(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.SubscriptionResponse, 0, len(ents))
	for i := range ents {
		items = append(items, toSubscriptionResponse(&ents[i]))
	}

	response.OK(c, items)
}

// Cancel handles POST /api/v1/subscriptions/:periodTradeNo/cancel.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	periodTradeNo := c.Param("periodTradeNo")
	if err := h.subSvc.Cancel(c.Request.Context(), userID, periodTradeNo); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "subscription cancelled"})
}

func toSubscriptionResponse(e *domain.Entitlement) dto.SubscriptionResponse {
	resp := dto.SubscriptionResponse{
		ID:            e.ID,
		ProductID:     e.ProductID,
		Status:        string(e.Status),
		StartDate:     e.StartDate.Format(time.RFC3339),
		PeriodTradeNo: e.PeriodTradeNo,
	}
	if e.ExpiryDate != nil {
		resp.ExpiryDate = e.ExpiryDate.Format(time.RFC3339)
	}
	return resp
}
