package core

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds. Callers match with errors.Is; every error returned from this
// package wraps at most one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInconsistent = errors.New("inconsistent state")
	ErrUnavailable  = errors.New("store unavailable")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

// storeErr wraps a database error with a "failed to <op>" message and tags
// connectivity failures as ErrUnavailable. The original error stays in the chain.
func storeErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return pgconn.Timeout(err)
}
