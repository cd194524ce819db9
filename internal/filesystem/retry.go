package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"

	"raw-catalog/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns defaults suited to photo libraries on NFS or SMB mounts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// stat is swapped in tests to simulate stale handles.
var stat = os.Stat

// isStaleHandle reports whether err is an ESTALE (stale file handle) error.
func isStaleHandle(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// StatWithRetry performs os.Stat, retrying with exponential backoff only on
// stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	start := time.Now()
	obs := observe()
	defer func() {
		if obs != nil {
			obs.ObserveOperation("stat", time.Since(start).Seconds())
		}
	}()

	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		info, err := stat(path)
		if err == nil {
			if attempt > 0 {
				logging.Info("Stat succeeded on retry %d for %s", attempt, path)
				if obs != nil {
					obs.ObserveRetrySuccess("stat")
				}
			}
			return info, nil
		}

		lastErr = err
		if !isStaleHandle(err) {
			return nil, err
		}
		if obs != nil {
			obs.ObserveStaleError("stat")
		}

		if attempt < config.MaxRetries {
			if obs != nil {
				obs.ObserveRetryAttempt("stat")
			}
			logging.Debug("Stale file handle for %s, retrying in %v (attempt %d/%d)",
				path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("Stat failed after %d retries for %s: %v", config.MaxRetries, path, lastErr)
	if obs != nil {
		obs.ObserveRetryFailure("stat")
	}
	return nil, lastErr
}

// Exists reports whether path exists. A missing file is not an error;
// any other stat failure is returned.
func Exists(path string, config RetryConfig) (bool, error) {
	_, err := StatWithRetry(path, config)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
