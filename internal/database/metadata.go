package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const lastScanRunKey = "last_scan_run"

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var err error
	defer func() {
		if errors.Is(err, sql.ErrNoRows) {
			recordQuery("get_metadata", start, nil)
			return
		}
		recordQuery("get_metadata", start, err)
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err = d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_metadata", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = withLockRetry(ctx, d.retry, d.sleep, "set_metadata", func() error {
		_, e := d.db.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		return e
	})
	return err
}

// RecordScanRun stores the summary of a finished scan.
func (d *Database) RecordScanRun(ctx context.Context, run ScanRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode scan run: %w", err)
	}
	return d.SetMetadata(ctx, lastScanRunKey, string(data))
}

// LastScanRun returns the most recently recorded scan, or nil if the
// catalog has never been scanned.
func (d *Database) LastScanRun(ctx context.Context) (*ScanRun, error) {
	value, err := d.GetMetadata(ctx, lastScanRunKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	var run ScanRun
	if err := json.Unmarshal([]byte(value), &run); err != nil {
		return nil, fmt.Errorf("decode scan run: %w", err)
	}
	return &run, nil
}
