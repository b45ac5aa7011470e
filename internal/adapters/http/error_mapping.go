package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrDecryptFailed):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrSignatureMismatch):
		return http.StatusPaymentRequired
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrBatchNotFound),
		domain.IsKind(err, domain.ErrJobNotFound),
		domain.IsKind(err, domain.ErrOrderNotFound),
		domain.IsKind(err, domain.ErrObjectNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStaleSelection):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the JSON error body. Upstream
// 401s carry the sign-in redirect hint for the UI.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusUnauthorized {
		writeUnauthorized(w)
		return
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
