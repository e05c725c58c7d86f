package domain

import "time"

// EntitlementStatus represents the lifecycle state of an entitlement.
type EntitlementStatus string

const (
	EntitlementStatusActive    EntitlementStatus = "ACTIVE"
	EntitlementStatusExpired   EntitlementStatus = "EXPIRED"
	EntitlementStatusCancelled EntitlementStatus = "CANCELLED"
)

// Entitlement grants a user access to a product, either permanently
// (one-time) or for a rolling period (subscription). At most one ACTIVE
// entitlement exists per (UserID, ProductID).
type Entitlement struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	ProductID     string            `json:"product_id"`
	Type          ProductType       `json:"type"`
	Status        EntitlementStatus `json:"status"`
	StartDate     time.Time         `json:"start_date"`
	ExpiryDate    *time.Time        `json:"expiry_date,omitempty"`
	SourceOrderID string            `json:"source_order_id"`
	PeriodTradeNo *string           `json:"period_trade_no,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
}

// IsActive reports whether the entitlement currently grants access.
func (e *Entitlement) IsActive(now time.Time) bool {
	if e.Status != EntitlementStatusActive {
		return false
	}
	if e.ExpiryDate != nil && now.After(*e.ExpiryDate) {
		return false
	}
	return true
}
