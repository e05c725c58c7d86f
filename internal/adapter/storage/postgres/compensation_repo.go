package postgres

import (
	"context"
	"fmt"

	"payuni-gateway/internal/core/domain"
)

// CompensationRepo implements ports.CompensationRepository.
type CompensationRepo struct {
	pool Pool
}

// NewCompensationRepo creates a new CompensationRepo.
func NewCompensationRepo(pool Pool) *CompensationRepo {
	return &CompensationRepo{pool: pool}
}

// Enqueue records an entitlement grant that exhausted its retry budget.
func (r *CompensationRepo) Enqueue(ctx context.Context, task *domain.CompensationTask) error {
	query := `INSERT INTO compensation_tasks (id, trade_no, user_id, product_id, amount, reason, attempt, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		task.ID, task.TradeNo, task.UserID, task.ProductID, task.Amount, task.Reason, task.Attempt, task.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue compensation task: %w", err)
	}
	return nil
}
