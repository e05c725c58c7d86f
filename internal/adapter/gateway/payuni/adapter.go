// Package payuni implements the PAYUNi gateway adapter (C2): building
// one-shot and subscription payment envelopes, verifying and parsing
// inbound envelopes, and querying trade/period status over the gateway's
// HTTP API.
package payuni

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"payuni-gateway/internal/core/ports"
	"payuni-gateway/internal/metrics"
	"payuni-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Config holds the merchant-specific gateway credentials.
type Config struct {
	MerchantID string
	APIBase    string
	NotifyURL  string
}

// Adapter is the concrete ports.GatewayAdapter backed by a real HTTP client.
type Adapter struct {
	cfg        Config
	seal       ports.SealCodec
	httpClient *http.Client
	breakers   map[string]*gobreaker.CircuitBreaker
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

// WithMetrics attaches the Prometheus instruments exposed at GET /metrics.
// Optional: an adapter built without it simply skips recording.
func (a *Adapter) WithMetrics(m *metrics.Metrics) *Adapter {
	a.metrics = m
	return a
}

// NewAdapter builds a gateway adapter. Remote calls run through a per-group
// circuit breaker ("query", "modify") so a flapping sandbox cannot cascade
// into the webhook processor's own retry loop.
func NewAdapter(cfg Config, seal ports.SealCodec, log zerolog.Logger) *Adapter {
	a := &Adapter{
		cfg: cfg,
		seal: seal,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
		log:        log,
	}
	for _, group := range []string{"query", "modify"} {
		group := group
		a.breakers[group] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "payuni_" + group,
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				a.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("gateway circuit breaker state change")
			},
		})
	}
	return a
}

func (a *Adapter) execute(group string, fn func() (interface{}, error)) (interface{}, error) {
	breaker, ok := a.breakers[group]
	if !ok {
		return fn()
	}
	return breaker.Execute(fn)
}

// BuildOneShot seals a one-time payment request into a gateway redirect
// form body.
func (a *Adapter) BuildOneShot(ctx context.Context, req ports.OneShotRequest) (string, string, error) {
	form := url.Values{}
	form.Set("MerID", a.cfg.MerchantID)
	form.Set("TradeNo", req.TradeNo)
	form.Set("Amt", strconv.FormatInt(req.Amount, 10))
	form.Set("ProdDesc", req.ProductName)
	form.Set("Email", req.Email)
	form.Set("NotifyURL", a.cfg.NotifyURL)

	envelope, err := a.seal.Seal(form.Encode())
	if err != nil {
		return "", "", err
	}
	hash := a.seal.Hash(envelope)

	return buildRedirectForm(a.cfg.MerchantID, envelope, hash), req.TradeNo, nil
}

// BuildSubscription seals a recurring-charge request into a gateway redirect
// form body. req.TradeNo is the order's anchor tradeNo, already "_0"-suffixed
// by C4 — submitted to the gateway as-is.
func (a *Adapter) BuildSubscription(ctx context.Context, req ports.SubscriptionRequest) (string, string, error) {
	if req.PeriodType == "" || req.PeriodDate <= 0 {
		return "", "", apperror.ErrBadProduct(req.TradeNo)
	}

	form := url.Values{}
	form.Set("MerID", a.cfg.MerchantID)
	form.Set("TradeNo", req.TradeNo)
	form.Set("Amt", strconv.FormatInt(req.Amount, 10))
	form.Set("ProdDesc", req.ProductName)
	form.Set("Email", req.Email)
	form.Set("NotifyURL", a.cfg.NotifyURL)
	form.Set("PeriodType", string(req.PeriodType))
	form.Set("PeriodPoint", strconv.Itoa(req.PeriodDate))
	form.Set("PeriodTimes", strconv.Itoa(req.PeriodTimes))
	form.Set("PeriodFirstType", string(req.FirstType))
	if req.FirstAmount != nil {
		form.Set("PeriodFirstAmt", strconv.FormatInt(*req.FirstAmount, 10))
	}

	envelope, err := a.seal.Seal(form.Encode())
	if err != nil {
		return "", "", err
	}
	hash := a.seal.Hash(envelope)

	return buildRedirectForm(a.cfg.MerchantID, envelope, hash), req.TradeNo, nil
}

// VerifyInbound recomputes the envelope hash and compares it in constant
// time against the one the gateway supplied.
func (a *Adapter) VerifyInbound(ctx context.Context, envelope string, hash string) bool {
	expected := a.seal.Hash(envelope)
	return a.seal.EqualsCT([]byte(expected), []byte(hash))
}

// ParseInbound opens an already-verified envelope and maps its form-encoded
// body into a typed TradeInfo.
func (a *Adapter) ParseInbound(ctx context.Context, envelope string) (*ports.TradeInfo, error) {
	plaintext, err := a.seal.Open(envelope)
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(plaintext)
	if err != nil {
		return nil, apperror.ErrInvalidEnvelope(err)
	}

	return tradeInfoFromValues(values), nil
}

// QueryTrade synchronously re-queries the gateway for a trade's current
// status. This is the "trust but verify" step C6 performs before any order
// mutation.
func (a *Adapter) QueryTrade(ctx context.Context, tradeNo string) (*ports.TradeInfo, error) {
	start := time.Now()
	result, err := a.execute("query", func() (interface{}, error) {
		resp, err := a.post(ctx, "/api/trade_query", url.Values{
			"MerID":   {a.cfg.MerchantID},
			"TradeNo": {tradeNo},
		})
		if err != nil {
			return nil, err
		}
		return unflattenTradeResult(resp)
	})
	if a.metrics != nil {
		a.metrics.ObserveGatewayCall("query_trade", time.Since(start), err)
	}
	if err != nil {
		return nil, toGatewayError(err)
	}
	return result.(*ports.TradeInfo), nil
}

// QueryPeriod synchronously re-queries the gateway for a subscription's
// current status.
func (a *Adapter) QueryPeriod(ctx context.Context, periodTradeNo string) (*ports.PeriodInfo, error) {
	start := time.Now()
	result, err := a.execute("query", func() (interface{}, error) {
		resp, err := a.post(ctx, "/api/period_query", url.Values{
			"MerID":         {a.cfg.MerchantID},
			"PeriodTradeNo": {periodTradeNo},
		})
		if err != nil {
			return nil, err
		}
		return unflattenPeriodResult(resp)
	})
	if a.metrics != nil {
		a.metrics.ObserveGatewayCall("query_period", time.Since(start), err)
	}
	if err != nil {
		return nil, toGatewayError(err)
	}
	return result.(*ports.PeriodInfo), nil
}

// ModifyPeriodStatus cancels or otherwise mutates a subscription at the
// gateway (used by the cancel-subscription endpoint, action="end").
func (a *Adapter) ModifyPeriodStatus(ctx context.Context, periodTradeNo string, action string) error {
	start := time.Now()
	_, err := a.execute("modify", func() (interface{}, error) {
		return a.post(ctx, "/api/period_alter", url.Values{
			"MerID":         {a.cfg.MerchantID},
			"PeriodTradeNo": {periodTradeNo},
			"Action":        {action},
		})
	})
	if a.metrics != nil {
		a.metrics.ObserveGatewayCall("modify_period", time.Since(start), err)
	}
	if err != nil {
		return toGatewayError(err)
	}
	return nil
}

func toGatewayError(err error) error {
	if err == context.DeadlineExceeded {
		return apperror.ErrAPITimeout(err)
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperror.ErrServiceUnavailable(err)
	}
	return apperror.ErrRemoteError(err)
}

func buildRedirectForm(merchantID, envelope, hash string) string {
	return fmt.Sprintf(`<form id="payuni-redirect" method="post"><input type="hidden" name="MerID" value=%q><input type="hidden" name="EncryptInfo" value=%q><input type="hidden" name="HashInfo" value=%q></form>`, merchantID, envelope, hash)
}
