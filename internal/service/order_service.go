package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"payuni-gateway/internal/core/domain"
	"payuni-gateway/internal/core/ports"
	"payuni-gateway/internal/metrics"
	"payuni-gateway/pkg/apperror"

	"golang.org/x/sync/singleflight"
)

const tradeNoAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const tradeNoLength = 20

// anchorSuffix marks a subscription's anchor order; later billing cycles
// carry "_N" for N>=1 and have no order row (C7 records them as
// PeriodPayment rows only).
const anchorSuffix = "_0"

// OrderServiceImpl implements ports.OrderService (C4): find-or-create with
// dedup, and read access for the order lookup endpoints.
type OrderServiceImpl struct {
	orderRepo ports.OrderRepository
	catalog   ports.ProductCatalog
	metrics   *metrics.Metrics
	sf        singleflight.Group
}

// NewOrderService creates an OrderServiceImpl.
func NewOrderService(orderRepo ports.OrderRepository, catalog ports.ProductCatalog) *OrderServiceImpl {
	return &OrderServiceImpl{orderRepo: orderRepo, catalog: catalog}
}

// WithMetrics attaches the Prometheus instruments exposed at GET /metrics.
// Optional: a service built without it simply skips recording.
func (s *OrderServiceImpl) WithMetrics(m *metrics.Metrics) *OrderServiceImpl {
	s.metrics = m
	return s
}

// FindOrCreate returns the caller's existing PENDING order for this product
// if one exists, or creates a new one. This is the invariant-3-adjacent
// dedup boundary: a user hammering "buy" does not mint a new trade number
// per click.
//
// FindPendingOrder-then-Create is not atomic at the repository layer (no
// unique constraint backs it), so concurrent requests for the same
// (user, product) are collapsed through a singleflight group first: only
// one of them actually reaches the repository, the rest wait and share its
// result.
func (s *OrderServiceImpl) FindOrCreate(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	key := req.UserID + ":" + req.ProductID
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.findOrCreate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *OrderServiceImpl) findOrCreate(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	product, err := s.catalog.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup product: %w", err))
	}
	if product == nil {
		return nil, apperror.ErrBadProduct(req.ProductID)
	}
	if product.Type != req.ProductType {
		return nil, apperror.ErrBadProduct(req.ProductID)
	}

	existing, err := s.orderRepo.FindPendingOrder(ctx, req.UserID, req.ProductID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("find pending order: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	tradeNo, err := generateTradeNo()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate trade no: %w", err))
	}
	if product.Type == domain.ProductTypeSubscription {
		tradeNo += anchorSuffix
	}

	amount := product.Price
	if product.Type == domain.ProductTypeSubscription && product.FirstType == domain.FirstChargeTypeDate && product.FirstAmount != nil {
		amount = *product.FirstAmount
	}

	order := &domain.Order{
		TradeNo:     tradeNo,
		UserID:      req.UserID,
		Email:       req.Email,
		Amount:      amount,
		Status:      domain.OrderStatusPending,
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductType: product.Type,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create order: %w", err))
	}

	if s.metrics != nil {
		s.metrics.OrdersCreatedTotal.WithLabelValues(string(product.Type)).Inc()
	}

	return order, nil
}

// GetByTradeNo looks up a single order.
func (s *OrderServiceImpl) GetByTradeNo(ctx context.Context, tradeNo string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByTradeNo(ctx, tradeNo)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	return order, nil
}

// ListMyOrders returns a user's paginated order history.
func (s *OrderServiceImpl) ListMyOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, int64, error) {
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}

// generateTradeNo produces a 20-character alphanumeric id via crypto/rand.
// No pack dependency supplies a short alphanumeric CSPRNG id generator;
// google/uuid is the wrong shape here (not alphanumeric-only, and longer
// than the gateway's 40-char trade number field comfortably allows once the
// "_N" cycle suffix is appended).
func generateTradeNo() (string, error) {
	b := make([]byte, tradeNoLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, tradeNoLength)
	for i, v := range b {
		out[i] = tradeNoAlphabet[int(v)%len(tradeNoAlphabet)]
	}
	return string(out), nil
}
