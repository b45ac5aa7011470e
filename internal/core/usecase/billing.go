package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

// DefaultPlans is the catalog offered at checkout. Amounts are in paise.
func DefaultPlans() []domain.Plan {
	return []domain.Plan{
		{ID: "starter", Name: "Starter", Amount: 49900, Currency: "INR", Tokens: 1000},
		{ID: "pro", Name: "Pro", Amount: 149900, Currency: "INR", Tokens: 5000},
		{ID: "enterprise", Name: "Enterprise", Amount: 499900, Currency: "INR", Tokens: 25000},
	}
}

type BillingService struct {
	gateway  ports.CheckoutGateway
	repo     ports.BillingRepository
	cache    ports.BlobStore
	plans    []domain.Plan
	cacheTTL time.Duration
	logger   *slog.Logger
}

type BillingOptions struct {
	Plans    []domain.Plan
	CacheTTL time.Duration
	Logger   *slog.Logger
}

func NewBillingService(
	gateway ports.CheckoutGateway,
	repo ports.BillingRepository,
	cache ports.BlobStore,
	opts BillingOptions,
) *BillingService {
	if len(opts.Plans) == 0 {
		opts.Plans = DefaultPlans()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BillingService{
		gateway:  gateway,
		repo:     repo,
		cache:    cache,
		plans:    opts.Plans,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
	}
}

func (s *BillingService) Plans() []domain.Plan {
	out := make([]domain.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

func (s *BillingService) CreateOrder(ctx context.Context, userID, planID string) (*domain.Order, error) {
	plan, ok := s.plan(planID)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create order", fmt.Errorf("unknown plan %q", planID))
	}

	orderID := uuid.NewString()
	gatewayID, err := s.gateway.CreateOrder(ctx, plan.Amount, plan.Currency, orderID)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        orderID,
		GatewayID: gatewayID,
		UserID:    userID,
		PlanID:    plan.ID,
		Amount:    plan.Amount,
		Currency:  plan.Currency,
		Status:    domain.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return order, nil
}

// VerifyPayment credits the plan only after the receipt signature checks
// out against the gateway secret.
func (s *BillingService) VerifyPayment(ctx context.Context, userID string, receipt domain.CheckoutReceipt) (*domain.TokenAccount, error) {
	if receipt.OrderID == "" || receipt.PaymentID == "" || receipt.Signature == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "verify payment", errors.New("order_id, payment_id and signature are required"))
	}
	if err := s.gateway.VerifySignature(receipt); err != nil {
		s.logger.Warn("payment_signature_rejected", "user_id", userID, "order_id", receipt.OrderID)
		return nil, err
	}

	order, err := s.repo.GetOrderByGatewayID(ctx, userID, receipt.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	plan, ok := s.plan(order.PlanID)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "verify payment", fmt.Errorf("order references unknown plan %q", order.PlanID))
	}

	account, err := s.repo.MarkOrderPaid(ctx, order.ID, receipt.PaymentID, plan)
	if err != nil {
		return nil, fmt.Errorf("credit account: %w", err)
	}
	s.cacheAccount(ctx, account)
	s.logger.Info("payment_verified", "user_id", userID, "order_id", order.ID, "plan_id", plan.ID)
	return account, nil
}

func (s *BillingService) Account(ctx context.Context, userID string) (*domain.TokenAccount, error) {
	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, accountKey(userID))
		if err != nil {
			s.logger.Warn("account_cache_unavailable", "user_id", userID, "error", err)
		} else if account, ok := decodeBlob[domain.TokenAccount](s.logger, accountKey(userID), raw, found); ok {
			return &account, nil
		}
	}

	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	s.cacheAccount(ctx, account)
	return account, nil
}

func (s *BillingService) cacheAccount(ctx context.Context, account *domain.TokenAccount) {
	if s.cache == nil || account == nil {
		return
	}
	raw, err := json.Marshal(account)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, accountKey(account.UserID), raw, s.cacheTTL); err != nil {
		s.logger.Warn("account_cache_write_failed", "user_id", account.UserID, "error", err)
	}
}

func (s *BillingService) plan(planID string) (domain.Plan, bool) {
	planID = strings.TrimSpace(strings.ToLower(planID))
	for _, p := range s.plans {
		if p.ID == planID {
			return p, true
		}
	}
	return domain.Plan{}, false
}
