package postgres

import (
	"context"
	"errors"
	"fmt"

	"payuni-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EntitlementRepo implements ports.EntitlementRepository.
type EntitlementRepo struct {
	pool Pool
}

// NewEntitlementRepo creates a new EntitlementRepo.
func NewEntitlementRepo(pool Pool) *EntitlementRepo {
	return &EntitlementRepo{pool: pool}
}

// Grant upserts an entitlement keyed on SourceOrderID, so a redelivered
// webhook granting the same order twice is a no-op rather than a duplicate.
func (r *EntitlementRepo) Grant(ctx context.Context, ent *domain.Entitlement) error {
	query := `INSERT INTO entitlements (id, user_id, product_id, type, status, start_date, expiry_date,
		source_order_id, period_trade_no, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_order_id) DO UPDATE SET
			status = EXCLUDED.status,
			expiry_date = EXCLUDED.expiry_date,
			period_trade_no = EXCLUDED.period_trade_no`

	_, err := r.pool.Exec(ctx, query,
		ent.ID, ent.UserID, ent.ProductID, ent.Type, ent.Status, ent.StartDate, ent.ExpiryDate,
		ent.SourceOrderID, ent.PeriodTradeNo, ent.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("grant entitlement: %w", err)
	}
	return nil
}

// GetActive returns the single ACTIVE entitlement for a user+product, if any.
func (r *EntitlementRepo) GetActive(ctx context.Context, userID, productID string) (*domain.Entitlement, error) {
	query := `SELECT id, user_id, product_id, type, status, start_date, expiry_date,
		source_order_id, period_trade_no, cancelled_at
		FROM entitlements WHERE user_id = $1 AND product_id = $2 AND status = $3
		ORDER BY start_date DESC LIMIT 1`

	return r.scanEntitlement(r.pool.QueryRow(ctx, query, userID, productID, domain.EntitlementStatusActive))
}

// GetBySourceOrder looks up the entitlement granted by a specific order, used
// by the payment processor to decide whether a grant has already happened.
func (r *EntitlementRepo) GetBySourceOrder(ctx context.Context, sourceOrderID string) (*domain.Entitlement, error) {
	query := `SELECT id, user_id, product_id, type, status, start_date, expiry_date,
		source_order_id, period_trade_no, cancelled_at
		FROM entitlements WHERE source_order_id = $1`

	return r.scanEntitlement(r.pool.QueryRow(ctx, query, sourceOrderID))
}

// ListByUser returns all entitlements a user has ever held.
func (r *EntitlementRepo) ListByUser(ctx context.Context, userID string) ([]domain.Entitlement, error) {
	query := `SELECT id, user_id, product_id, type, status, start_date, expiry_date,
		source_order_id, period_trade_no, cancelled_at
		FROM entitlements WHERE user_id = $1 ORDER BY start_date DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	defer rows.Close()

	var ents []domain.Entitlement
	for rows.Next() {
		e := domain.Entitlement{}
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.ProductID, &e.Type, &e.Status, &e.StartDate, &e.ExpiryDate,
			&e.SourceOrderID, &e.PeriodTradeNo, &e.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("scan entitlement row: %w", err)
		}
		ents = append(ents, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entitlement rows: %w", err)
	}
	return ents, nil
}

// Cancel marks an entitlement CANCELLED, stopping future subscription
// renewal grants without touching its current expiry date.
func (r *EntitlementRepo) Cancel(ctx context.Context, id string) error {
	query := `UPDATE entitlements SET status = $1, cancelled_at = now() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, domain.EntitlementStatusCancelled, id)
	if err != nil {
		return fmt.Errorf("cancel entitlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entitlement not found: %s", id)
	}
	return nil
}

func (r *EntitlementRepo) scanEntitlement(row pgx.Row) (*domain.Entitlement, error) {
	e := &domain.Entitlement{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.ProductID, &e.Type, &e.Status, &e.StartDate, &e.ExpiryDate,
		&e.SourceOrderID, &e.PeriodTradeNo, &e.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan entitlement: %w", err)
	}
	return e, nil
}
