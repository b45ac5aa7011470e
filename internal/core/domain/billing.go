package domain

import "time"

type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Tokens   int64  `json:"tokens"`
}

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

type Order struct {
	ID        string      `json:"id"`
	GatewayID string      `json:"gateway_order_id"`
	UserID    string      `json:"user_id"`
	PlanID    string      `json:"plan_id"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
	Status    OrderStatus `json:"status"`
	PaymentID string      `json:"payment_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CheckoutReceipt is what the checkout widget hands back after payment.
type CheckoutReceipt struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// TokenAccount is the plan/token snapshot of a user.
type TokenAccount struct {
	UserID    string    `json:"user_id"`
	PlanID    string    `json:"plan_id"`
	Tokens    int64     `json:"tokens"`
	UpdatedAt time.Time `json:"updated_at"`
}
