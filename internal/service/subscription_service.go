package service

import (
	"context"
	"fmt"

	"payuni-gateway/internal/core/domain"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/pkg/apperror"
)

// SubscriptionServiceImpl exposes entitlement listing and cancellation to
// C8. Cancellation is gateway-first: the recurring charge must stop at
// PAYUNi before the local entitlement is marked cancelled, so a failure
// between the two calls leaves the entitlement active rather than silently
// lying about the subscription still being billed.
type SubscriptionServiceImpl struct {
	entRepo ports.EntitlementRepository
	gateway ports.GatewayAdapter
}

// NewSubscriptionService creates a SubscriptionServiceImpl.
func NewSubscriptionService(entRepo ports.EntitlementRepository, gateway ports.GatewayAdapter) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{entRepo: entRepo, gateway: gateway}
}

// ListMySubscriptions returns every entitlement owned by the user, active
// or otherwise.
func (s *SubscriptionServiceImpl) ListMySubscriptions(ctx context.Context, userID string) ([]domain.Entitlement, error) {
	ents, err := s.entRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list entitlements: %w", err))
	}
	return ents, nil
}

// Cancel ends a subscription's recurring charge at the gateway, then marks
// the local entitlement cancelled.
func (s *SubscriptionServiceImpl) Cancel(ctx context.Context, userID, periodTradeNo string) error {
	ents, err := s.entRepo.ListByUser(ctx, userID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("list entitlements: %w", err))
	}

	var target *domain.Entitlement
	for i := range ents {
		if ents[i].PeriodTradeNo != nil && *ents[i].PeriodTradeNo == periodTradeNo {
			target = &ents[i]
			break
		}
	}
	if target == nil {
		return apperror.ErrEntitlementNotFound()
	}
	if target.Status != domain.EntitlementStatusActive {
		return apperror.ErrEntitlementNotFound()
	}

	if err := s.gateway.ModifyPeriodStatus(ctx, periodTradeNo, "end"); err != nil {
		return err
	}

	if err := s.entRepo.Cancel(ctx, target.ID); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("cancel entitlement: %w", err))
	}

	return nil
}
