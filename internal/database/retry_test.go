package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("database is locked (5) (SQLITE_BUSY)")

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestWithLockRetryLinearBackoff(t *testing.T) {
	rec := &recordingSleeper{}
	policy := RetryPolicy{MaxAttempts: 5, Delay: 500 * time.Millisecond}

	calls := 0
	attempts, err := withLockRetry(context.Background(), policy, rec.sleep, "upsert_photo", func() error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, rec.waits)
}

func TestWithLockRetryExhausted(t *testing.T) {
	rec := &recordingSleeper{}

	calls := 0
	attempts, err := withLockRetry(context.Background(), DefaultRetryPolicy(), rec.sleep, "upsert_photo", func() error {
		calls++
		return errBusy
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 5, calls, "never more than MaxAttempts tries")
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		1500 * time.Millisecond,
		2000 * time.Millisecond,
	}, rec.waits)
}

func TestWithLockRetryNonLockErrorNotRetried(t *testing.T) {
	rec := &recordingSleeper{}
	boom := errors.New("no such table: raw_photos")

	calls := 0
	attempts, err := withLockRetry(context.Background(), DefaultRetryPolicy(), rec.sleep, "upsert_photo", func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestWithLockRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withLockRetry(ctx, DefaultRetryPolicy(), sleepContext, "upsert_photo", func() error {
		calls++
		return errBusy
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyNormalized(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 0, Delay: -time.Second}.normalized()
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Zero(t, p.Delay)
}

func TestIsLockError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrLocked, true},
		{"wrapped sentinel", fmt.Errorf("upsert: %w", ErrLocked), true},
		{"busy message", errBusy, true},
		{"table locked", errors.New("database table is locked: raw_photos"), true},
		{"other", errors.New("disk I/O error"), false},
		{"no rows", sql.ErrNoRows, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLockError(tt.err))
		})
	}
}

// lockedQuerier fails every write with a lock error.
type lockedQuerier struct {
	execs int
	err   error
}

func (q *lockedQuerier) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	q.execs++
	return nil, q.err
}

func (q *lockedQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (q *lockedQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestUpsertPhotoLockRetryBound(t *testing.T) {
	db, _ := setupTestDB(t)
	q := &lockedQuerier{err: errBusy}

	err := db.UpsertPhoto(context.Background(), q, &RawPhoto{FilePath: "/p/locked.CR2"})

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "/p/locked.CR2", writeErr.Path)
	assert.Equal(t, 5, writeErr.Attempts)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 5, q.execs)
	assert.Contains(t, err.Error(), "after 5 attempts")
}

func TestUpsertPhotoNonLockErrorFailsImmediately(t *testing.T) {
	db, _ := setupTestDB(t)
	q := &lockedQuerier{err: errors.New("disk I/O error")}

	err := db.UpsertPhoto(context.Background(), q, &RawPhoto{FilePath: "/p/io.CR2"})

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 1, writeErr.Attempts)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Equal(t, 1, q.execs)
}
