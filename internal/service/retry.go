package service

import (
	"context"
	"errors"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/metrics"
	"github.com/sakif/skillshare/internal/repository"
)

const maxWriteAttempts = 5

// retryOnStale runs a read-modify-write closure until the store accepts the
// write. fn must re-read the document on every call. After maxWriteAttempts
// lost swaps the caller gets a Conflict and is expected to retry the request.
func retryOnStale(ctx context.Context, kind string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, repository.ErrStaleWrite) {
			return err
		}
		metrics.StaleWriteRetries.WithLabelValues(kind).Inc()

		if attempt == maxWriteAttempts {
			return &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: kind + " was modified concurrently, retry",
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
