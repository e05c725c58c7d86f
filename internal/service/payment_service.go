package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"payuni-gateway/internal/core/domain"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/internal/metrics"
	"payuni-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// entitlementGrantBackoff is the fixed retry schedule for entitlement
// granting (C7): three attempts total, waiting 1s, 2s and 4s after the first,
// second and third failure (the last wait precedes the compensation task),
// mirroring the teacher's webhookRetryIntervals idiom at a scale
// appropriate to a synchronous reconcile path instead of a background
// delivery loop.
var entitlementGrantBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// entitlementGrantAttempts caps the number of grant attempts.
const entitlementGrantAttempts = 3

// PaymentProcessorImpl implements ports.PaymentProcessor (C7): order status
// update, entitlement grant with bounded retry and compensation fallback,
// and subscription billing-cycle recording.
type PaymentProcessorImpl struct {
	orderRepo  ports.OrderRepository
	entRepo    ports.EntitlementRepository
	periodRepo ports.PeriodPaymentRepository
	compRepo   ports.CompensationRepository
	catalog    ports.ProductCatalog
	userRepo   ports.UserRepository
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// WithMetrics attaches the Prometheus instruments exposed at GET /metrics.
// Optional: a processor built without it simply skips recording.
func (p *PaymentProcessorImpl) WithMetrics(m *metrics.Metrics) *PaymentProcessorImpl {
	p.metrics = m
	return p
}

// NewPaymentProcessor creates a PaymentProcessorImpl.
func NewPaymentProcessor(
	orderRepo ports.OrderRepository,
	entRepo ports.EntitlementRepository,
	periodRepo ports.PeriodPaymentRepository,
	compRepo ports.CompensationRepository,
	catalog ports.ProductCatalog,
	userRepo ports.UserRepository,
	log zerolog.Logger,
) *PaymentProcessorImpl {
	return &PaymentProcessorImpl{
		orderRepo:  orderRepo,
		entRepo:    entRepo,
		periodRepo: periodRepo,
		compRepo:   compRepo,
		catalog:    catalog,
		userRepo:   userRepo,
		log:        log,
	}
}

// Reconcile applies a verified, gateway-confirmed trade result. It is safe
// to call more than once for the same TradeInfo: each step is idempotent on
// its own key (order status transition, entitlement SourceOrderID, period
// payment (PeriodTradeNo, SequenceNo)).
func (p *PaymentProcessorImpl) Reconcile(ctx context.Context, info *ports.TradeInfo) error {
	if info.PeriodTradeNo != "" && info.SequenceNo > 0 {
		return p.reconcileRenewalCycle(ctx, info)
	}
	return p.reconcileOrder(ctx, info)
}

// reconcileOrder handles the first-cycle / one-time trade: the order row
// named by info.TradeNo exists because C4 created it at checkout time.
func (p *PaymentProcessorImpl) reconcileOrder(ctx context.Context, info *ports.TradeInfo) error {
	order, err := p.orderRepo.GetByTradeNo(ctx, info.TradeNo)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return apperror.ErrOrderNotFound()
	}
	if order.IsTerminal() {
		// Already reconciled by an earlier delivery or re-query; nothing to do.
		if p.metrics != nil {
			p.metrics.ObserveOrderReconciled("already_terminal")
		}
		return nil
	}
	if !info.IsPaid() {
		now := time.Now().UTC()
		completedAt := now.Unix()
		if err := p.orderRepo.UpdateStatus(ctx, order.TradeNo, domain.OrderStatusFailed, info.GatewaySeq, &completedAt); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("mark order failed: %w", err))
		}
		if p.metrics != nil {
			p.metrics.ObserveOrderReconciled("failed")
		}
		return nil
	}
	if info.Amount != order.Amount {
		if p.metrics != nil {
			p.metrics.ObserveOrderReconciled("amount_mismatch")
		}
		return apperror.ErrAmountMismatch()
	}

	now := time.Now().UTC()
	completedAt := now.Unix()
	if err := p.orderRepo.UpdateStatus(ctx, order.TradeNo, domain.OrderStatusPaid, info.GatewaySeq, &completedAt); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark order paid: %w", err))
	}

	product, err := p.catalog.GetByID(ctx, order.ProductID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lookup product: %w", err))
	}
	if product == nil {
		return apperror.ErrBadProduct(order.ProductID)
	}

	ent := &domain.Entitlement{
		ID:            uuid.New().String(),
		ProductID:     order.ProductID,
		Type:          order.ProductType,
		Status:        domain.EntitlementStatusActive,
		StartDate:     now,
		SourceOrderID: order.TradeNo,
	}
	if order.ProductType == domain.ProductTypeSubscription {
		expiry := extendExpiry(now, nil, product.PeriodType)
		ent.ExpiryDate = &expiry
		ent.PeriodTradeNo = &info.PeriodTradeNo
	}

	if err := p.grantWithRetry(ctx, ent, order.TradeNo); err != nil {
		return err
	}

	if order.ProductType == domain.ProductTypeSubscription {
		pp := &domain.PeriodPayment{
			PeriodTradeNo: info.PeriodTradeNo,
			BaseOrderNo:   order.TradeNo,
			SequenceNo:    0,
			TradeSeq:      info.GatewaySeq,
			Amount:        info.Amount,
			Status:        domain.OrderStatusPaid,
			PaidAt:        &now,
		}
		if _, err := p.periodRepo.Create(ctx, pp); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("record first period payment: %w", err))
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveOrderReconciled("paid")
	}
	return nil
}

// reconcileRenewalCycle handles an inbound notification for a subsequent
// subscription billing cycle. The gateway, not C4, originates these: there
// is no corresponding Order row to transition, only the running
// entitlement to extend and a PeriodPayment row to record.
func (p *PaymentProcessorImpl) reconcileRenewalCycle(ctx context.Context, info *ports.TradeInfo) error {
	anchorTradeNo := info.PeriodTradeNo + "_0"
	anchor, err := p.orderRepo.GetByTradeNo(ctx, anchorTradeNo)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get anchor order: %w", err))
	}
	if anchor == nil {
		return apperror.ErrOrderNotFound()
	}

	existing, err := p.periodRepo.GetByPeriodAndSequence(ctx, info.PeriodTradeNo, info.SequenceNo)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get period payment: %w", err))
	}
	if existing != nil {
		// This cycle was already recorded; do not extend the entitlement twice.
		return nil
	}

	now := time.Now().UTC()

	if !info.IsPaid() {
		pp := &domain.PeriodPayment{
			PeriodTradeNo: info.PeriodTradeNo,
			BaseOrderNo:   anchor.TradeNo,
			SequenceNo:    info.SequenceNo,
			TradeSeq:      info.GatewaySeq,
			Amount:        info.Amount,
			Status:        domain.OrderStatusFailed,
		}
		if _, err := p.periodRepo.Create(ctx, pp); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("record failed period payment: %w", err))
		}
		return nil
	}

	ent, err := p.entRepo.GetBySourceOrder(ctx, anchor.TradeNo)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get entitlement: %w", err))
	}
	if ent == nil {
		return apperror.ErrEntitlementNotFound()
	}

	product, err := p.catalog.GetByID(ctx, anchor.ProductID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lookup product: %w", err))
	}
	if product == nil {
		return apperror.ErrBadProduct(anchor.ProductID)
	}

	expiry := extendExpiry(now, ent.ExpiryDate, product.PeriodType)
	ent.ExpiryDate = &expiry
	ent.Status = domain.EntitlementStatusActive

	if err := p.grantWithRetry(ctx, ent, anchor.TradeNo); err != nil {
		return err
	}

	pp := &domain.PeriodPayment{
		PeriodTradeNo: info.PeriodTradeNo,
		BaseOrderNo:   anchor.TradeNo,
		SequenceNo:    info.SequenceNo,
		TradeSeq:      info.GatewaySeq,
		Amount:        info.Amount,
		Status:        domain.OrderStatusPaid,
		PaidAt:        &now,
	}
	if _, err := p.periodRepo.Create(ctx, pp); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("record period payment: %w", err))
	}
	return nil
}

// resolveGrantInputs re-resolves the order, product, and user backing an
// entitlement grant. Each is looked up fresh on every attempt rather than
// reused from an earlier call: a NotFound on any of the three is fatal
// (retrying won't make a row appear), while a repository error is treated
// as transient and retried.
func (p *PaymentProcessorImpl) resolveGrantInputs(ctx context.Context, storeTradeNo string) (*domain.Order, *domain.Product, *domain.User, error) {
	order, err := p.orderRepo.GetByTradeNo(ctx, storeTradeNo)
	if err != nil {
		return nil, nil, nil, apperror.ErrDatabaseTransient(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, nil, nil, apperror.ErrOrderNotFound()
	}

	product, err := p.catalog.GetByID(ctx, order.ProductID)
	if err != nil {
		return nil, nil, nil, apperror.ErrDatabaseTransient(fmt.Errorf("lookup product: %w", err))
	}
	if product == nil {
		return nil, nil, nil, apperror.ErrBadProduct(order.ProductID)
	}

	user, err := p.userRepo.FindUserByEmail(ctx, order.Email)
	if err != nil {
		return nil, nil, nil, apperror.ErrDatabaseTransient(fmt.Errorf("find user by email: %w", err))
	}
	if user == nil {
		return nil, nil, nil, apperror.ErrUserNotFound()
	}

	return order, product, user, nil
}

// grantWithRetry attempts to persist an entitlement grant up to three times,
// waiting 1s/2s/4s after each failed attempt. Each attempt re-resolves order/product/user: a
// fatal NotFound on any of them aborts immediately (propagated as an error,
// not a compensation task); a transient lookup or write failure is retried.
// Exhausting the retry budget on transient failures writes a compensation
// task instead of failing the reconcile outright — the order has already
// been marked PAID and must not be rolled back for a downstream storage
// hiccup.
func (p *PaymentProcessorImpl) grantWithRetry(ctx context.Context, ent *domain.Entitlement, storeTradeNo string) error {
	var lastErr error
	last := &domain.Order{TradeNo: storeTradeNo}
attempts:
	for attempt := 0; attempt <= len(entitlementGrantBackoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attempts
			case <-time.After(entitlementGrantBackoff[attempt-1]):
			}
		}
		if attempt == entitlementGrantAttempts {
			break
		}

		order, _, user, err := p.resolveGrantInputs(ctx, storeTradeNo)
		if err != nil {
			if !apperror.IsRetryable(err) {
				return err
			}
			lastErr = err
			if p.metrics != nil {
				p.metrics.EntitlementGrantRetries.WithLabelValues(strconv.Itoa(attempt + 1)).Inc()
			}
			p.log.Warn().Err(err).Str("trade_no", storeTradeNo).Int("attempt", attempt+1).Msg("entitlement grant lookup failed, retrying")
			continue
		}
		last = order
		ent.UserID = user.ID
		ent.SourceOrderID = order.TradeNo

		grantErr := p.entRepo.Grant(ctx, ent)
		if grantErr == nil {
			return nil
		}
		lastErr = grantErr
		if p.metrics != nil {
			p.metrics.EntitlementGrantRetries.WithLabelValues(strconv.Itoa(attempt + 1)).Inc()
		}
		p.log.Warn().Err(grantErr).Str("trade_no", storeTradeNo).Int("attempt", attempt+1).Msg("entitlement grant failed, retrying")
	}

	task := &domain.CompensationTask{
		ID:         uuid.New().String(),
		TradeNo:    storeTradeNo,
		UserID:     ent.UserID,
		ProductID:  last.ProductID,
		Amount:     last.Amount,
		Reason:     fmt.Sprintf("entitlement grant exhausted retries: %v", lastErr),
		Attempt:    entitlementGrantAttempts,
		EnqueuedAt: time.Now().UTC(),
	}
	if enqueueErr := p.compRepo.Enqueue(ctx, task); enqueueErr != nil {
		p.log.Error().Err(enqueueErr).Str("trade_no", storeTradeNo).Msg("failed to enqueue compensation task after grant exhaustion")
		return apperror.ErrDatabaseError(fmt.Errorf("grant entitlement and enqueue compensation both failed: %w", enqueueErr))
	}
	if p.metrics != nil {
		p.metrics.CompensationsTotal.Inc()
	}

	p.log.Error().Str("trade_no", storeTradeNo).Msg("entitlement grant exhausted retries, compensation task recorded")
	return nil
}
