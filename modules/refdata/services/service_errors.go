package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// ValidationError carries the full submit-time rule output. Errors block
// the transition; warnings are advisory and must still reach the caller.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func newValidationError(errs, warnings []string) *ValidationError {
	return &ValidationError{Errors: errs, Warnings: warnings}
}

// inTx runs fn inside a fresh transaction. Contexts without a pool (pure
// in-memory repositories) run fn directly.
func inTx[T any](ctx context.Context, fn func(txCtx context.Context) (T, error)) (T, error) {
	var zero T

	pool, err := composables.UsePool(ctx)
	if err != nil {
		if errors.Is(err, composables.ErrNoPool) {
			return fn(ctx)
		}
		return zero, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return zero, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := fn(composables.WithTx(ctx, tx))
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, err
	}
	return out, nil
}
