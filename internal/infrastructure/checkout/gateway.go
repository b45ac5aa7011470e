package checkout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/resilience"
)

// Gateway creates orders on the hosted checkout and verifies the signature
// the checkout widget returns after payment.
type Gateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, keyID, keySecret string, executor *resilience.Executor) *Gateway {
	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		executor:   executor,
	}
}

func (g *Gateway) KeyID() string {
	return g.keyID
}

func (g *Gateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	if amount <= 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "create order", fmt.Errorf("amount must be positive, got %d", amount))
	}
	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	return resilience.Do(ctx, g.executor, "checkout.create_order", func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("create order request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(g.keyID, g.keySecret)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("checkout create order: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var out struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode order response: %w", err)
		}
		if out.ID == "" {
			return "", errors.New("checkout returned empty order id")
		}
		return out.ID, nil
	}, classifyCheckoutError)
}

// VerifySignature checks hex(HMAC-SHA256(secret, order_id|payment_id)).
// Without a configured secret every receipt is rejected.
func (g *Gateway) VerifySignature(receipt domain.CheckoutReceipt) error {
	if receipt.OrderID == "" || receipt.PaymentID == "" || receipt.Signature == "" {
		return domain.WrapError(domain.ErrInvalidInput, "verify payment", errors.New("order_id, payment_id and signature are required"))
	}
	if g.keySecret == "" {
		return domain.WrapError(domain.ErrSignatureMismatch, "verify payment", errors.New("checkout key secret is not configured"))
	}
	expected := Sign(g.keySecret, receipt.OrderID, receipt.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(receipt.Signature))) {
		return domain.WrapError(domain.ErrSignatureMismatch, "verify payment", fmt.Errorf("order=%s", receipt.OrderID))
	}
	return nil
}

func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("checkout status: %d", e.StatusCode)
	}
	return fmt.Sprintf("checkout status: %d: %s", e.StatusCode, e.Body)
}

func classifyCheckoutError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		retryable := statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
