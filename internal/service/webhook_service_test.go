package service

import (
	"context"
	"testing"

	"payuni-gateway/internal/adapter/gateway/payuni"
	"payuni-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSeal(t *testing.T) ports.SealCodec {
	t.Helper()
	seal, err := NewSealService("abcdefghijklmnopqrstuvwxyz012345", "0123456789012345")
	require.NoError(t, err)
	return seal
}

type fakePaymentProcessor struct {
	reconciled []*ports.TradeInfo
	err        error
}

func (f *fakePaymentProcessor) Reconcile(ctx context.Context, info *ports.TradeInfo) error {
	if f.err != nil {
		return f.err
	}
	f.reconciled = append(f.reconciled, info)
	return nil
}

func TestWebhookProcessor_Process_VerifiesAndReconciles(t *testing.T) {
	seal := newTestSeal(t)
	gateway := payuni.NewSandboxAdapter(seal)
	gateway.SetTradeInfo(&ports.TradeInfo{TradeNo: "TRADE1", StatusCode: 1, Amount: 5000})

	processor := &fakePaymentProcessor{}
	wp := NewWebhookProcessor(gateway, processor, zerolog.Nop())

	envelope, err := seal.Seal("TRADE1")
	require.NoError(t, err)
	hash := seal.Hash(envelope)

	ok := wp.Process(context.Background(), envelope, hash)
	assert.True(t, ok)
	require.Len(t, processor.reconciled, 1)
	assert.Equal(t, "TRADE1", processor.reconciled[0].TradeNo)
}

func TestWebhookProcessor_Process_RejectsBadHash(t *testing.T) {
	seal := newTestSeal(t)
	gateway := payuni.NewSandboxAdapter(seal)
	processor := &fakePaymentProcessor{}
	wp := NewWebhookProcessor(gateway, processor, zerolog.Nop())

	envelope, err := seal.Seal("TRADE1")
	require.NoError(t, err)

	ok := wp.Process(context.Background(), envelope, "0000")
	assert.False(t, ok)
	assert.Empty(t, processor.reconciled)
}

func TestWebhookProcessor_Process_NeverTrustsInboundOverReQuery(t *testing.T) {
	// The inbound envelope claims TRADE1 is paid, but the gateway's own
	// re-query (seeded separately) is authoritative for reconcile.
	seal := newTestSeal(t)
	gateway := payuni.NewSandboxAdapter(seal)
	gateway.SetTradeInfo(&ports.TradeInfo{TradeNo: "TRADE1", StatusCode: 0, Amount: 5000})

	processor := &fakePaymentProcessor{}
	wp := NewWebhookProcessor(gateway, processor, zerolog.Nop())

	envelope, err := seal.Seal("TRADE1")
	require.NoError(t, err)
	hash := seal.Hash(envelope)

	ok := wp.Process(context.Background(), envelope, hash)
	assert.True(t, ok)
	require.Len(t, processor.reconciled, 1)
	assert.False(t, processor.reconciled[0].IsPaid())
}

func TestWebhookProcessor_Process_ReconcileFailure(t *testing.T) {
	seal := newTestSeal(t)
	gateway := payuni.NewSandboxAdapter(seal)
	gateway.SetTradeInfo(&ports.TradeInfo{TradeNo: "TRADE1", StatusCode: 1})

	processor := &fakePaymentProcessor{err: assertErr{}}
	wp := NewWebhookProcessor(gateway, processor, zerolog.Nop())

	envelope, err := seal.Seal("TRADE1")
	require.NoError(t, err)
	hash := seal.Hash(envelope)

	ok := wp.Process(context.Background(), envelope, hash)
	assert.False(t, ok)
}

type assertErr struct{}

func (assertErr) Error() string { return "reconcile boom" }
