package postgres

import (
	"context"
	"errors"
	"fmt"

	"payuni-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PeriodPaymentRepo implements ports.PeriodPaymentRepository.
type PeriodPaymentRepo struct {
	pool Pool
}

// NewPeriodPaymentRepo creates a new PeriodPaymentRepo.
func NewPeriodPaymentRepo(pool Pool) *PeriodPaymentRepo {
	return &PeriodPaymentRepo{pool: pool}
}

// Create inserts a billing cycle row. A conflict on (period_trade_no,
// sequence_no) is a redelivered notification, not an error: inserted comes
// back false and the caller treats the cycle as already recorded.
func (r *PeriodPaymentRepo) Create(ctx context.Context, pp *domain.PeriodPayment) (bool, error) {
	query := `INSERT INTO period_payments (period_trade_no, base_order_no, sequence_no, trade_seq,
		amount, status, paid_at, remark)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (period_trade_no, sequence_no) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		pp.PeriodTradeNo, pp.BaseOrderNo, pp.SequenceNo, pp.TradeSeq, pp.Amount, pp.Status, pp.PaidAt, pp.Remark,
	)
	if err != nil {
		return false, fmt.Errorf("insert period payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByPeriodAndSequence fetches one billing cycle row.
func (r *PeriodPaymentRepo) GetByPeriodAndSequence(ctx context.Context, periodTradeNo string, sequenceNo int) (*domain.PeriodPayment, error) {
	query := `SELECT period_trade_no, base_order_no, sequence_no, trade_seq, amount, status, paid_at, remark
		FROM period_payments WHERE period_trade_no = $1 AND sequence_no = $2`

	pp := &domain.PeriodPayment{}
	err := r.pool.QueryRow(ctx, query, periodTradeNo, sequenceNo).Scan(
		&pp.PeriodTradeNo, &pp.BaseOrderNo, &pp.SequenceNo, &pp.TradeSeq, &pp.Amount, &pp.Status, &pp.PaidAt, &pp.Remark,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan period payment: %w", err)
	}
	return pp, nil
}

// ListByPeriod returns every recorded cycle for a subscription, oldest first.
func (r *PeriodPaymentRepo) ListByPeriod(ctx context.Context, periodTradeNo string) ([]domain.PeriodPayment, error) {
	query := `SELECT period_trade_no, base_order_no, sequence_no, trade_seq, amount, status, paid_at, remark
		FROM period_payments WHERE period_trade_no = $1 ORDER BY sequence_no ASC`

	rows, err := r.pool.Query(ctx, query, periodTradeNo)
	if err != nil {
		return nil, fmt.Errorf("list period payments: %w", err)
	}
	defer rows.Close()

	var out []domain.PeriodPayment
	for rows.Next() {
		pp := domain.PeriodPayment{}
		if err := rows.Scan(
			&pp.PeriodTradeNo, &pp.BaseOrderNo, &pp.SequenceNo, &pp.TradeSeq, &pp.Amount, &pp.Status, &pp.PaidAt, &pp.Remark,
		); err != nil {
			return nil, fmt.Errorf("scan period payment row: %w", err)
		}
		out = append(out, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period payment rows: %w", err)
	}
	return out, nil
}
