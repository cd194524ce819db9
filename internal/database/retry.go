package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/metrics"
)

// ErrLocked is returned (wrapped in a WriteError) when a write kept failing
// because another connection held the database lock.
var ErrLocked = errors.New("database is locked")

// Lock retry defaults.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 500 * time.Millisecond
)

// RetryPolicy bounds the retries applied to catalog writes that fail with a
// transient lock error. The wait before retry n is Delay * n.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns 5 attempts with a 500ms linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// WriteError reports a catalog write that could not be completed.
type WriteError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("catalog write %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
	}
	return fmt.Sprintf("catalog write %s failed: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsLockError reports whether err is SQLITE_BUSY or SQLITE_LOCKED.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLocked) || driverLockError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "database is busy")
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withLockRetry runs fn until it succeeds, fails with a non-lock error, or
// the policy's attempts are used up. It returns the number of attempts made.
func withLockRetry(ctx context.Context, policy RetryPolicy, sleep sleepFunc, operation string, fn func() error) (int, error) {
	policy = policy.normalized()

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return attempt, nil
		}
		if !IsLockError(err) {
			return attempt, err
		}
		if attempt == policy.MaxAttempts {
			metrics.DBLockFailures.WithLabelValues(operation).Inc()
			return attempt, errors.Join(ErrLocked, err)
		}

		metrics.DBLockRetries.WithLabelValues(operation).Inc()
		wait := policy.Delay * time.Duration(attempt)
		logging.Debug("%s: database locked (attempt %d/%d), retrying in %v", operation, attempt, policy.MaxAttempts, wait)

		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return attempt, errors.Join(err, sleepErr)
		}
	}
	return policy.MaxAttempts, err
}
