package redis

import (
	"context"
	"testing"

	"payuni-gateway/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultTokenCache_PutTakeSingleUse(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewResultTokenCache(client)
	ctx := context.Background()

	snapshot := &domain.ResultSnapshot{TradeNo: "TXN001", Status: domain.OrderStatusPaid, Amount: 1500}

	token, err := cache.Put(ctx, snapshot)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	got, err := cache.Take(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "TXN001", got.TradeNo)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)

	// Second take observes nothing — single use.
	second, err := cache.Take(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestResultTokenCache_TakeUnknownToken(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewResultTokenCache(client)
	ctx := context.Background()

	got, err := cache.Take(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultTokenCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewResultTokenCache(client)
	ctx := context.Background()

	token, err := cache.Put(ctx, &domain.ResultSnapshot{TradeNo: "TXN002", Status: domain.OrderStatusFailed})
	require.NoError(t, err)

	s.FastForward(resultTokenTTL + 1)

	got, err := cache.Take(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}
