package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

type BillingRepository struct {
	db *sql.DB
}

func NewBillingRepository(db *sql.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

func (r *BillingRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO orders (id, gateway_order_id, user_id, plan_id, amount, currency, status, payment_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, order.ID, order.GatewayID, order.UserID, order.PlanID, order.Amount, order.Currency,
		string(order.Status), order.PaymentID, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *BillingRepository) GetOrderByGatewayID(ctx context.Context, userID, gatewayOrderID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, gateway_order_id, user_id, plan_id, amount, currency, status, payment_id, created_at, updated_at
FROM orders
WHERE user_id = $1 AND gateway_order_id = $2
`, userID, gatewayOrderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrOrderNotFound, "get order", fmt.Errorf("gateway_order_id=%s", gatewayOrderID))
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// MarkOrderPaid flips a pending order to paid and credits the plan tokens in
// one transaction. Paying an already-paid order is rejected.
func (r *BillingRepository) MarkOrderPaid(ctx context.Context, orderID, paymentID string, plan domain.Plan) (*domain.TokenAccount, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	var userID string
	err = tx.QueryRowContext(ctx, `
UPDATE orders
SET status = $2, payment_id = $3, updated_at = $4
WHERE id = $1 AND status = $5
RETURNING user_id
`, orderID, string(domain.OrderPaid), paymentID, now, string(domain.OrderPending)).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrOrderNotFound, "mark order paid", fmt.Errorf("no pending order id=%s", orderID))
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	account := domain.TokenAccount{UserID: userID}
	err = tx.QueryRowContext(ctx, `
INSERT INTO accounts (user_id, plan_id, tokens, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id) DO UPDATE
SET plan_id = EXCLUDED.plan_id, tokens = accounts.tokens + EXCLUDED.tokens, updated_at = EXCLUDED.updated_at
RETURNING plan_id, tokens, updated_at
`, userID, plan.ID, plan.Tokens, now).Scan(&account.PlanID, &account.Tokens, &account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("credit account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}
	return &account, nil
}

// GetAccount returns the stored account or a zero-token free account.
func (r *BillingRepository) GetAccount(ctx context.Context, userID string) (*domain.TokenAccount, error) {
	account := domain.TokenAccount{UserID: userID}
	err := r.db.QueryRowContext(ctx, `
SELECT plan_id, tokens, updated_at
FROM accounts
WHERE user_id = $1
`, userID).Scan(&account.PlanID, &account.Tokens, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			account.PlanID = "free"
			return &account, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var status string
	err := row.Scan(
		&order.ID,
		&order.GatewayID,
		&order.UserID,
		&order.PlanID,
		&order.Amount,
		&order.Currency,
		&status,
		&order.PaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}
