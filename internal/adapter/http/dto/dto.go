package dto

// CreatePaymentRequest is the request body for starting a one-time payment.
type CreatePaymentRequest struct {
	ProductID string `json:"product_id" binding:"required,safe_id,max=100"`
}

// CreateSubscriptionRequest is the request body for starting a subscription.
type CreateSubscriptionRequest struct {
	ProductID string `json:"product_id" binding:"required,safe_id,max=100"`
}

// CheckoutResponse returns the redirect form the client must submit to
// PAYUNi to continue the payment flow.
type CheckoutResponse struct {
	TradeNo      string `json:"trade_no"`
	RedirectForm string `json:"redirect_form"`
}

// OrderResponse is a single order's client-facing projection.
type OrderResponse struct {
	TradeNo     string `json:"trade_no"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// OrderListResponse wraps paginated order history.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// ResultResponse is what a browser-return polls for via the one-time token.
type ResultResponse struct {
	TradeNo string `json:"trade_no"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
	Message string `json:"message,omitempty"`
}

// SubscriptionResponse is a single entitlement's client-facing projection.
type SubscriptionResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	Status        string  `json:"status"`
	StartDate     string  `json:"start_date"`
	ExpiryDate    string  `json:"expiry_date,omitempty"`
	PeriodTradeNo *string `json:"period_trade_no,omitempty"`
}
