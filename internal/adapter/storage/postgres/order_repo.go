package postgres

import (
	"context"
	"errors"
	"fmt"

	"payuni-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts a new order.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (trade_no, user_id, email, amount, status, product_id, product_name,
		product_type, period_trade_no, gateway_seq, remark, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		o.TradeNo, o.UserID, o.Email, o.Amount, o.Status, o.ProductID, o.ProductName,
		o.ProductType, o.PeriodTradeNo, o.GatewaySeq, o.Remark, o.CreatedAt, o.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByTradeNo fetches an order by its trade number.
func (r *OrderRepo) GetByTradeNo(ctx context.Context, tradeNo string) (*domain.Order, error) {
	query := `SELECT trade_no, user_id, email, amount, status, product_id, product_name,
		product_type, period_trade_no, gateway_seq, remark, created_at, completed_at
		FROM orders WHERE trade_no = $1`

	return r.scanOrder(r.pool.QueryRow(ctx, query, tradeNo))
}

// FindPendingOrder returns the caller's existing pending order for a product,
// if any, so retried checkout clicks reuse the same trade number instead of
// minting a duplicate.
func (r *OrderRepo) FindPendingOrder(ctx context.Context, userID, productID string) (*domain.Order, error) {
	query := `SELECT trade_no, user_id, email, amount, status, product_id, product_name,
		product_type, period_trade_no, gateway_seq, remark, created_at, completed_at
		FROM orders WHERE user_id = $1 AND product_id = $2 AND status = $3
		ORDER BY created_at DESC LIMIT 1`

	return r.scanOrder(r.pool.QueryRow(ctx, query, userID, productID, domain.OrderStatusPending))
}

// UpdateStatus transitions an order's status, recording the gateway sequence
// number and completion time when the caller supplies them.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tradeNo string, status domain.OrderStatus, gatewaySeq string, completedAt *int64) error {
	query := `UPDATE orders SET status = $1, gateway_seq = $2, completed_at = to_timestamp($3) WHERE trade_no = $4`

	tag, err := r.pool.Exec(ctx, query, status, gatewaySeq, completedAt, tradeNo)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", tradeNo)
	}
	return nil
}

// ListByUser returns a page of a user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT trade_no, user_id, email, amount, status, product_id, product_name,
		product_type, period_trade_no, gateway_seq, remark, created_at, completed_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o := domain.Order{}
		if err := rows.Scan(
			&o.TradeNo, &o.UserID, &o.Email, &o.Amount, &o.Status, &o.ProductID, &o.ProductName,
			&o.ProductType, &o.PeriodTradeNo, &o.GatewaySeq, &o.Remark, &o.CreatedAt, &o.CompletedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

func (r *OrderRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.TradeNo, &o.UserID, &o.Email, &o.Amount, &o.Status, &o.ProductID, &o.ProductName,
		&o.ProductType, &o.PeriodTradeNo, &o.GatewaySeq, &o.Remark, &o.CreatedAt, &o.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}
