package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
)

const freePlanID = "free"

// SessionService is the only reader and writer of per-user session blobs.
type SessionService struct {
	store  ports.BlobStore
	ttl    time.Duration
	logger *slog.Logger
}

func NewSessionService(store ports.BlobStore, ttl time.Duration, logger *slog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{store: store, ttl: ttl, logger: logger}
}

// Session never fails: unreadable or missing blobs fall back to an empty
// user and a free account.
func (s *SessionService) Session(ctx context.Context, userID string) domain.Session {
	session := domain.Session{
		User:    domain.UserInfo{UserID: userID},
		Account: domain.TokenAccount{UserID: userID, PlanID: freePlanID},
	}

	if user, ok := loadBlob[domain.UserInfo](ctx, s.store, s.logger, userKey(userID)); ok {
		session.User = user
		session.User.UserID = userID
	}
	if account, ok := loadBlob[domain.TokenAccount](ctx, s.store, s.logger, accountKey(userID)); ok {
		session.Account = account
		session.Account.UserID = userID
	}
	return session
}

func (s *SessionService) SaveUserInfo(ctx context.Context, userID string, info domain.UserInfo) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save user info", errors.New("user id is required"))
	}
	info.UserID = userID
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal user info: %w", err)
	}
	if err := s.store.Set(ctx, userKey(userID), raw, s.ttl); err != nil {
		return fmt.Errorf("store user info: %w", err)
	}
	return nil
}

func loadBlob[T any](ctx context.Context, store ports.BlobStore, logger *slog.Logger, key string) (T, bool) {
	var zero T
	if store == nil {
		return zero, false
	}
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn("session_store_unavailable", "key", key, "error", err)
		return zero, false
	}
	return decodeBlob[T](logger, key, raw, found)
}

// decodeBlob is the single parse point for session blobs. Anything that does
// not decode is logged and treated as absent.
func decodeBlob[T any](logger *slog.Logger, key string, raw []byte, found bool) (T, bool) {
	var value T
	if !found || len(raw) == 0 {
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		logger.Warn("session_blob_invalid", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return value, true
}

func userKey(userID string) string {
	return "session:" + userID + ":user"
}

func accountKey(userID string) string {
	return "session:" + userID + ":account"
}
