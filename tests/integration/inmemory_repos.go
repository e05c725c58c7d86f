package integration

import (
	"context"
	"strconv"
	"sync"
	"time"

	"payuni-gateway/internal/core/domain"
)

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.TradeNo] = &cp
	return nil
}

func (r *inMemoryOrderRepo) GetByTradeNo(ctx context.Context, tradeNo string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[tradeNo]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrderRepo) FindPendingOrder(ctx context.Context, userID, productID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.UserID == userID && o.ProductID == productID && o.Status == domain.OrderStatusPending {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tradeNo string, status domain.OrderStatus, gatewaySeq string, completedAt *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[tradeNo]
	if !ok {
		return nil
	}
	o.Status = status
	o.GatewaySeq = gatewaySeq
	if completedAt != nil {
		t := time.Unix(*completedAt, 0).UTC()
		o.CompletedAt = &t
	}
	return nil
}

func (r *inMemoryOrderRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			all = append(all, *o)
		}
	}
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.Order{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// --- In-Memory Entitlement Repo ---

type inMemoryEntitlementRepo struct {
	mu   sync.RWMutex
	ents map[string]*domain.Entitlement
	seq  int
}

func newInMemoryEntitlementRepo() *inMemoryEntitlementRepo {
	return &inMemoryEntitlementRepo{ents: make(map[string]*domain.Entitlement)}
}

func (r *inMemoryEntitlementRepo) Grant(ctx context.Context, ent *domain.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.ents {
		if e.SourceOrderID == ent.SourceOrderID {
			return nil // idempotent: already granted
		}
	}
	if ent.ID == "" {
		r.seq++
		ent.ID = "ent-" + strconv.Itoa(r.seq)
	}
	cp := *ent
	r.ents[ent.ID] = &cp
	return nil
}

func (r *inMemoryEntitlementRepo) GetActive(ctx context.Context, userID, productID string) (*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.ents {
		if e.UserID == userID && e.ProductID == productID && e.Status == domain.EntitlementStatusActive {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryEntitlementRepo) GetBySourceOrder(ctx context.Context, sourceOrderID string) (*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.ents {
		if e.SourceOrderID == sourceOrderID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryEntitlementRepo) ListByUser(ctx context.Context, userID string) ([]domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Entitlement
	for _, e := range r.ents {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *inMemoryEntitlementRepo) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ents[id]
	if !ok {
		return nil
	}
	e.Status = domain.EntitlementStatusCancelled
	return nil
}

// --- In-Memory Period Payment Repo ---

type inMemoryPeriodPaymentRepo struct {
	mu    sync.RWMutex
	cycle map[string]*domain.PeriodPayment // key: periodTradeNo + "#" + sequence
}

func newInMemoryPeriodPaymentRepo() *inMemoryPeriodPaymentRepo {
	return &inMemoryPeriodPaymentRepo{cycle: make(map[string]*domain.PeriodPayment)}
}

func cycleKey(periodTradeNo string, sequenceNo int) string {
	return periodTradeNo + "#" + strconv.Itoa(sequenceNo)
}

func (r *inMemoryPeriodPaymentRepo) Create(ctx context.Context, pp *domain.PeriodPayment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cycleKey(pp.PeriodTradeNo, pp.SequenceNo)
	if _, exists := r.cycle[key]; exists {
		return false, nil
	}
	cp := *pp
	r.cycle[key] = &cp
	return true, nil
}

func (r *inMemoryPeriodPaymentRepo) GetByPeriodAndSequence(ctx context.Context, periodTradeNo string, sequenceNo int) (*domain.PeriodPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pp, ok := r.cycle[cycleKey(periodTradeNo, sequenceNo)]
	if !ok {
		return nil, nil
	}
	cp := *pp
	return &cp, nil
}

func (r *inMemoryPeriodPaymentRepo) ListByPeriod(ctx context.Context, periodTradeNo string) ([]domain.PeriodPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PeriodPayment
	for _, pp := range r.cycle {
		if pp.PeriodTradeNo == periodTradeNo {
			out = append(out, *pp)
		}
	}
	return out, nil
}

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.User // keyed by email
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *inMemoryUserRepo) put(id, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[email] = &domain.User{ID: id, Email: email}
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return nil
}

// --- In-Memory Compensation Repo ---

type inMemoryCompensationRepo struct {
	mu    sync.Mutex
	tasks []*domain.CompensationTask
}

func newInMemoryCompensationRepo() *inMemoryCompensationRepo {
	return &inMemoryCompensationRepo{}
}

func (r *inMemoryCompensationRepo) Enqueue(ctx context.Context, task *domain.CompensationTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

