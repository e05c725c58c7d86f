package ports

import (
	"context"

	"payuni-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// OrderRepository defines persistence operations for orders. Create is the
// only write path during order intake (C4); UpdateStatus is used exclusively
// by the payment processor (C7) after webhook verification.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByTradeNo(ctx context.Context, tradeNo string) (*domain.Order, error)
	FindPendingOrder(ctx context.Context, userID, productID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tradeNo string, status domain.OrderStatus, gatewaySeq string, completedAt *int64) error
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, int64, error)
}

// UserRepository defines read access to externally authenticated identities.
// Write access beyond UpdateLastLogin belongs to the out-of-scope OAuth
// callback, not to any C1-C8 component.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// EntitlementRepository defines persistence operations for entitlements.
// Grant is upsert-shaped: it is idempotent on SourceOrderID and safe to call
// more than once for the same order.
type EntitlementRepository interface {
	Grant(ctx context.Context, ent *domain.Entitlement) error
	GetActive(ctx context.Context, userID, productID string) (*domain.Entitlement, error)
	GetBySourceOrder(ctx context.Context, sourceOrderID string) (*domain.Entitlement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Entitlement, error)
	Cancel(ctx context.Context, id string) error
}

// PeriodPaymentRepository records subscription billing cycles. Create must
// be a no-op (not an error) on a duplicate (PeriodTradeNo, SequenceNo).
type PeriodPaymentRepository interface {
	Create(ctx context.Context, pp *domain.PeriodPayment) (inserted bool, err error)
	GetByPeriodAndSequence(ctx context.Context, periodTradeNo string, sequenceNo int) (*domain.PeriodPayment, error)
	ListByPeriod(ctx context.Context, periodTradeNo string) ([]domain.PeriodPayment, error)
}

// CompensationRepository records entitlement-grant retry exhaustion for
// out-of-band repair. This repository only writes; nothing in this service
// consumes the queue.
type CompensationRepository interface {
	Enqueue(ctx context.Context, task *domain.CompensationTask) error
}

// ProductCatalog is a small read-only lookup; the spec never describes a
// product CRUD surface, only that C7 looks products up by id.
type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
