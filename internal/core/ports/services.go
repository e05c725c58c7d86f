package ports

import (
	"context"
	"time"

	"payuni-gateway/internal/core/domain"
)

// SealCodec handles AES-256-GCM encryption/decryption and the gateway's
// envelope hash (C1). Hash is a SHA-256 digest, not an HMAC — it exists to
// let the gateway authenticate a request it cannot decrypt on its own, not
// to authenticate the channel.
type SealCodec interface {
	Seal(plaintext string) (string, error)
	Open(envelope string) (string, error)
	Hash(envelope string) string
	EqualsCT(a, b []byte) bool
}

// GatewayAdapter is the façade over the remote PAYUNi gateway (C2). Every
// method may return a Retryable *apperror.AppError on transient failure.
type GatewayAdapter interface {
	BuildOneShot(ctx context.Context, req OneShotRequest) (redirectForm string, tradeNo string, err error)
	BuildSubscription(ctx context.Context, req SubscriptionRequest) (redirectForm string, tradeNo string, err error)
	VerifyInbound(ctx context.Context, envelope string, hash string) bool
	ParseInbound(ctx context.Context, envelope string) (*TradeInfo, error)
	QueryTrade(ctx context.Context, tradeNo string) (*TradeInfo, error)
	QueryPeriod(ctx context.Context, periodTradeNo string) (*PeriodInfo, error)
	ModifyPeriodStatus(ctx context.Context, periodTradeNo string, action string) error
}

// OneShotRequest holds the parameters for a single payment envelope.
type OneShotRequest struct {
	TradeNo     string
	Amount      int64
	ProductName string
	Email       string
}

// SubscriptionRequest holds the parameters for a recurring-charge envelope.
type SubscriptionRequest struct {
	TradeNo     string
	Amount      int64
	ProductName string
	Email       string
	PeriodType  domain.PeriodType
	PeriodDate  int
	PeriodTimes int
	FirstType   domain.FirstChargeType
	FirstAmount *int64
}

// TradeInfo is the typed, un-flattened shape of a gateway trade-query or
// webhook response; nothing downstream indexes gateway keys directly.
type TradeInfo struct {
	TradeNo       string
	StatusCode    int
	PaymentType   int
	Amount        int64
	GatewaySeq    string
	PeriodTradeNo string
	SequenceNo    int
}

// IsPaid reports whether the gateway considers the trade settled.
func (t *TradeInfo) IsPaid() bool {
	return t.StatusCode == 1
}

// PeriodInfo is the typed shape of a period-query response.
type PeriodInfo struct {
	PeriodTradeNo string
	Status        string
	NextChargeAt  *time.Time
}

// IdempotencyCache is the Redis-layer idempotency check (fast path) retained
// for any adapter that still needs request-level dedup (e.g. a future
// gateway client); order-level dedup itself runs through OrderRepository.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResultTokenCache is the short-TTL, single-use mapping from an opaque token
// to a browser-return result snapshot (C5).
type ResultTokenCache interface {
	Put(ctx context.Context, snapshot *domain.ResultSnapshot) (token string, err error)
	Take(ctx context.Context, token string) (*domain.ResultSnapshot, error)
}

// NonceStore manages nonce uniqueness for replay attack prevention on
// inbound webhook deliveries.
type NonceStore interface {
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// --- Service ports (business logic) ---

// OrderService defines order intake and lookup (C4).
type OrderService interface {
	FindOrCreate(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	GetByTradeNo(ctx context.Context, tradeNo string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, int64, error)
}

// CreateOrderRequest holds validated input for order creation.
type CreateOrderRequest struct {
	UserID      string
	Email       string
	ProductID   string
	ProductType domain.ProductType
}

// WebhookProcessor implements the inbound trust-but-verify state machine
// (C6): verify, parse, query, reconcile, delegate, respond. It never
// propagates an internal error to the HTTP layer — every path resolves to a
// boolean the handler renders as the gateway's OK/FAIL text contract.
type WebhookProcessor interface {
	Process(ctx context.Context, envelope string, hash string) bool
}

// PaymentProcessor implements order update, entitlement grant with bounded
// retry, and period-payment recording (C7).
type PaymentProcessor interface {
	Reconcile(ctx context.Context, info *TradeInfo) error
}

// SubscriptionService exposes subscription listing/cancellation to C8.
type SubscriptionService interface {
	ListMySubscriptions(ctx context.Context, userID string) ([]domain.Entitlement, error)
	Cancel(ctx context.Context, userID, periodTradeNo string) error
}

// CaptchaVerifier is the ancillary Turnstile concern, modelled only by the
// interface it exposes to the core's HTTP middleware.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}
