// =============================
// File: internal/liquidity/errors.go
// =============================
package liquidity

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExists is returned when a pool for the pair was already created.
	ErrPoolExists = errors.New("pool already exists")
	// ErrTokenOrder is returned when token0 does not sort before token1.
	ErrTokenOrder = errors.New("tokens are not in canonical order")
	// ErrEmptyPool is returned when either initial amount is zero.
	ErrEmptyPool = errors.New("initial pool amounts must be non-zero")
)

// TransientError is a failure that may succeed when retried.
type TransientError struct {
	Attempt int
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient pool initialization failure (attempt %d): %v", e.Attempt, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Temporary reports that the operation can be retried.
func (e *TransientError) Temporary() bool { return true }

// IsTransient определяет, можно ли повторить операцию после ошибки
func IsTransient(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
