package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetMetadata(ctx, "nonexistent")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, db.SetMetadata(ctx, "key1", "value1"))
	require.NoError(t, db.SetMetadata(ctx, "key1", "value2"))

	value, err := db.GetMetadata(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value2", value)
}

func TestScanRun(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	run, err := db.LastScanRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, run, "never scanned")

	want := ScanRun{
		ID:               "6f1c1a9e-7d1b-4d1e-9a55-0f4f6c1e2b3a",
		Root:             "/photos",
		StartedAt:        time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		Duration:         90 * time.Second,
		Found:            120,
		Converted:        100,
		Skipped:          15,
		FailedConversion: 3,
		FailedCatalog:    2,
	}
	require.NoError(t, db.RecordScanRun(ctx, want))

	got, err := db.LastScanRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Duration, got.Duration)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.FailedCatalog, got.FailedCatalog)
}
