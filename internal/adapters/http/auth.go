package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID is used for every request when no JWT secret is configured.
const LocalUserID = "local"

// Claims are the bearer token claims issued by the sign-in service. The
// subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type userContextKey struct{}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userContextKey{}).(string)
	if userID == "" {
		return LocalUserID
	}
	return userID
}

// authMiddleware verifies HS256 bearer tokens. An empty secret disables
// verification.
func authMiddleware(next http.Handler, secret []byte, onFailure func()) http.Handler {
	if len(secret) == 0 {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), LocalUserID)))
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := verifyBearer(r.Header.Get("Authorization"), secret)
		if err != nil {
			if onFailure != nil {
				onFailure()
			}
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func verifyBearer(header string, secret []byte) (string, error) {
	header = strings.TrimSpace(header)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":    "unauthorized",
		"redirect": "/signin",
	})
}
