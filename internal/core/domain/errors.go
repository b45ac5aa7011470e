package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBatchNotFound     = errors.New("batch not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrObjectNotFound    = errors.New("stored object not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
	ErrDecryptFailed     = errors.New("wrong password or corrupted payload")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrStaleSelection    = errors.New("batch selection superseded")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
