package service

import (
	"context"
	"sync"
	"testing"

	"payuni-gateway/internal/core/domain"
	"payuni-gateway/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrderService() (*OrderServiceImpl, *fakeOrderRepo) {
	orderRepo := newFakeOrderRepo()
	catalog := &fakeCatalog{products: map[string]domain.Product{
		"prod-onetime": {ID: "prod-onetime", Name: "Ebook", Type: domain.ProductTypeOneTime, Price: 1000},
		"prod-sub":     {ID: "prod-sub", Name: "Monthly", Type: domain.ProductTypeSubscription, Price: 500, PeriodType: domain.PeriodTypeMonth},
	}}
	return NewOrderService(orderRepo, catalog), orderRepo
}

func TestOrderService_FindOrCreate_CreatesNewOrder(t *testing.T) {
	svc, orderRepo := newTestOrderService()
	ctx := context.Background()

	order, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{
		UserID: "user-1", Email: "a@example.com", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime,
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(1000), order.Amount)
	assert.NotEmpty(t, order.TradeNo)
	assert.Len(t, orderRepo.orders, 1)
}

func TestOrderService_FindOrCreate_DedupsExistingPending(t *testing.T) {
	svc, orderRepo := newTestOrderService()
	ctx := context.Background()
	req := ports.CreateOrderRequest{UserID: "user-1", Email: "a@example.com", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime}

	first, err := svc.FindOrCreate(ctx, req)
	require.NoError(t, err)

	second, err := svc.FindOrCreate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.TradeNo, second.TradeNo)
	assert.Len(t, orderRepo.orders, 1)
}

func TestOrderService_FindOrCreate_UnknownProduct(t *testing.T) {
	svc, _ := newTestOrderService()
	ctx := context.Background()

	_, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{
		UserID: "user-1", ProductID: "does-not-exist", ProductType: domain.ProductTypeOneTime,
	})
	require.Error(t, err)
}

func TestOrderService_FindOrCreate_ProductTypeMismatch(t *testing.T) {
	svc, _ := newTestOrderService()
	ctx := context.Background()

	_, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{
		UserID: "user-1", ProductID: "prod-onetime", ProductType: domain.ProductTypeSubscription,
	})
	require.Error(t, err)
}

func TestOrderService_FindOrCreate_SubscriptionGetsAnchorSuffix(t *testing.T) {
	svc, _ := newTestOrderService()
	ctx := context.Background()

	order, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{
		UserID: "user-1", Email: "a@example.com", ProductID: "prod-sub", ProductType: domain.ProductTypeSubscription,
	})
	require.NoError(t, err)
	assert.True(t, order.IsSubscriptionAnchor())

	oneTime, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{
		UserID: "user-1", Email: "a@example.com", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime,
	})
	require.NoError(t, err)
	assert.False(t, oneTime.IsSubscriptionAnchor())
}

func TestOrderService_FindOrCreate_DifferentUsersGetDifferentOrders(t *testing.T) {
	svc, orderRepo := newTestOrderService()
	ctx := context.Background()

	a, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{UserID: "user-a", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime})
	require.NoError(t, err)
	b, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{UserID: "user-b", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime})
	require.NoError(t, err)

	assert.NotEqual(t, a.TradeNo, b.TradeNo)
	assert.Len(t, orderRepo.orders, 2)
}

// TestOrderService_FindOrCreate_ConcurrentRequestsCollapseToOneOrder exercises
// the singleflight guard directly: FindPendingOrder-then-Create is not
// atomic in the repository, so without collapsing concurrent callers onto
// one execution this would race into duplicate pending orders.
func TestOrderService_FindOrCreate_ConcurrentRequestsCollapseToOneOrder(t *testing.T) {
	svc, orderRepo := newTestOrderService()
	ctx := context.Background()
	req := ports.CreateOrderRequest{UserID: "user-1", Email: "a@example.com", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime}

	const n = 25
	tradeNos := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			order, err := svc.FindOrCreate(ctx, req)
			require.NoError(t, err)
			tradeNos[i] = order.TradeNo
		}(i)
	}
	wg.Wait()

	first := tradeNos[0]
	for _, tn := range tradeNos {
		assert.Equal(t, first, tn)
	}
	assert.Len(t, orderRepo.orders, 1)
}

func TestOrderService_GetByTradeNo_NotFound(t *testing.T) {
	svc, _ := newTestOrderService()
	_, err := svc.GetByTradeNo(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestOrderService_GetByTradeNo_Found(t *testing.T) {
	svc, _ := newTestOrderService()
	ctx := context.Background()
	created, err := svc.FindOrCreate(ctx, ports.CreateOrderRequest{UserID: "user-1", ProductID: "prod-onetime", ProductType: domain.ProductTypeOneTime})
	require.NoError(t, err)

	found, err := svc.GetByTradeNo(ctx, created.TradeNo)
	require.NoError(t, err)
	assert.Equal(t, created.TradeNo, found.TradeNo)
}
