package service

import (
	"context"
	"time"

	"payuni-gateway/internal/core/ports"
	"payuni-gateway/internal/metrics"

	"github.com/rs/zerolog"
)

// WebhookProcessorImpl implements ports.WebhookProcessor (C6): the inbound
// trust-but-verify state machine. An inbound delivery is never trusted at
// face value — its envelope hash is verified, its claimed trade is
// re-queried from the gateway directly, and only the re-queried result is
// ever reconciled. Every path resolves to a bool; nothing here ever panics
// or returns an error to the HTTP layer, mirroring the outbound
// webhookService's discipline of never throwing to the framework, just
// turned around to face the gateway instead of a merchant's endpoint.
type WebhookProcessorImpl struct {
	gateway   ports.GatewayAdapter
	processor ports.PaymentProcessor
	log       zerolog.Logger
	metrics   *metrics.Metrics
	nonces    ports.NonceStore
}

// NewWebhookProcessor creates a WebhookProcessorImpl.
func NewWebhookProcessor(gateway ports.GatewayAdapter, processor ports.PaymentProcessor, log zerolog.Logger) *WebhookProcessorImpl {
	return &WebhookProcessorImpl{gateway: gateway, processor: processor, log: log}
}

// WithMetrics attaches the Prometheus instruments exposed at GET /metrics.
// Optional: a processor built without it simply skips recording.
func (p *WebhookProcessorImpl) WithMetrics(m *metrics.Metrics) *WebhookProcessorImpl {
	p.metrics = m
	return p
}

// WithNonceStore attaches a replay guard keyed on the gateway's own delivery
// sequence number. Optional: without it, a redelivered envelope still lands
// on an idempotent Reconcile, just without the short-circuit re-query skip.
func (p *WebhookProcessorImpl) WithNonceStore(n ports.NonceStore) *WebhookProcessorImpl {
	p.nonces = n
	return p
}

// Process runs verify, parse, query, reconcile, delegate in sequence,
// returning true once the gateway's own re-query result has been reconciled
// (as paid or as failed) or the delivery is a known duplicate, and false on
// any verify, parse, re-query or reconcile error. The inbound payload's
// claimed status is never reconciled.
func (p *WebhookProcessorImpl) Process(ctx context.Context, envelope string, hash string) bool {
	start := time.Now()
	result := "fail"
	defer func() {
		if p.metrics != nil {
			p.metrics.ObserveWebhook(result, time.Since(start))
		}
	}()

	if !p.gateway.VerifyInbound(ctx, envelope, hash) {
		p.log.Warn().Msg("webhook: envelope hash verification failed")
		return false
	}

	claimed, err := p.gateway.ParseInbound(ctx, envelope)
	if err != nil {
		p.log.Error().Err(err).Msg("webhook: failed to parse inbound envelope")
		return false
	}

	if p.nonces != nil && claimed.GatewaySeq != "" {
		fresh, err := p.nonces.CheckAndSet(ctx, "webhook", claimed.GatewaySeq, 24*time.Hour)
		if err != nil {
			p.log.Error().Err(err).Str("trade_no", claimed.TradeNo).Msg("webhook: nonce check failed")
			return false
		}
		if !fresh {
			p.log.Info().Str("trade_no", claimed.TradeNo).Str("gateway_seq", claimed.GatewaySeq).Msg("webhook: duplicate delivery, already reconciled")
			result = "duplicate"
			return true
		}
	}

	confirmed, err := p.gateway.QueryTrade(ctx, claimed.TradeNo)
	if err != nil {
		p.log.Error().Err(err).Str("trade_no", claimed.TradeNo).Msg("webhook: re-query failed")
		return false
	}
	if confirmed == nil {
		p.log.Warn().Str("trade_no", claimed.TradeNo).Msg("webhook: re-query returned no trade")
		return false
	}

	if err := p.processor.Reconcile(ctx, confirmed); err != nil {
		p.log.Error().Err(err).Str("trade_no", confirmed.TradeNo).Msg("webhook: reconcile failed")
		return false
	}

	result = "ok"
	return true
}
