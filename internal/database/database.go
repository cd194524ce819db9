package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

const defaultBusyTimeout = 5 * time.Second

// Options controls how the catalog is opened. A nil *Options uses defaults.
type Options struct {
	// ReadOnly opens an existing catalog without creating or migrating the
	// schema. Used for the external JPG catalog.
	ReadOnly bool

	// LockRetry bounds retries of writes that hit SQLITE_BUSY/LOCKED.
	LockRetry RetryPolicy

	// BusyTimeout is passed to SQLite as busy_timeout.
	BusyTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	opts := Options{
		LockRetry:   DefaultRetryPolicy(),
		BusyTimeout: defaultBusyTimeout,
	}
	if o == nil {
		return opts
	}
	opts.ReadOnly = o.ReadOnly
	if o.LockRetry.MaxAttempts > 0 {
		opts.LockRetry = o.LockRetry
	}
	if o.BusyTimeout > 0 {
		opts.BusyTimeout = o.BusyTimeout
	}
	return opts
}

// Database is a SQLite photo catalog.
type Database struct {
	db       *sql.DB
	dbPath   string
	readOnly bool
	retry    RetryPolicy
	sleep    sleepFunc
	commit   func(tx *sql.Tx) error
	mu       sync.RWMutex
	txStart  time.Time // Track transaction start time for metrics
}

// New opens the catalog at dbPath. Writable catalogs are switched to WAL
// mode and their schema is created if missing; the parent directory must
// already exist. Read-only catalogs must already exist.
func New(ctx context.Context, dbPath string, opts *Options) (*Database, error) {
	o := opts.withDefaults()

	if o.ReadOnly {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("catalog not available: %w", err)
		}
	} else {
		logging.Info("Database path: %s", dbPath)
		if err := diagnoseDatabasePermissions(dbPath); err != nil {
			logging.Warn("Database permission diagnostics: %v", err)
		}
	}

	connStr := dataSourceName(dbPath, o.ReadOnly, int(o.BusyTimeout/time.Millisecond))

	db, err := sql.Open(DriverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Multiple readers under WAL; writes are serialized by the caller.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:       db,
		dbPath:   dbPath,
		readOnly: o.ReadOnly,
		retry:    o.LockRetry,
		sleep:    sleepContext,
		commit:   (*sql.Tx).Commit,
	}

	if o.ReadOnly {
		logging.Debug("Opened read-only catalog %s (%s driver)", dbPath, BuildMode)
		return d, nil
	}

	if err := d.EnsureSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s (%s driver)", dbPath, BuildMode)
	return d, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS raw_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filepath TEXT UNIQUE NOT NULL,
		preview_path TEXT,
		client_name TEXT,
		date TEXT,
		camera_make TEXT,
		camera_model TEXT,
		lens_model TEXT,
		iso INTEGER,
		aperture TEXT,
		shutter_speed TEXT,
		focal_length TEXT,
		datetime TEXT,
		gps_latitude REAL,
		gps_longitude REAL,
		size_mb REAL,
		preview_size_kb REAL,
		indexed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_raw_photos_client ON raw_photos(client_name);
	CREATE INDEX IF NOT EXISTS idx_raw_photos_date ON raw_photos(date);
	CREATE INDEX IF NOT EXISTS idx_raw_photos_camera ON raw_photos(camera_model);

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
`

// EnsureSchema creates the catalog tables and indexes if they are missing.
// It is safe to call repeatedly.
func (d *Database) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("ensure_schema", start, err) }()

	if d.readOnly {
		err = errors.New("cannot change schema of a read-only catalog")
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err = d.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	err = d.runMigrations(ctx)
	return err
}

// columns added after the first released schema. Catalogs written by
// older versions get them via ALTER TABLE.
var migratedColumns = []struct {
	name string
	decl string
}{
	{"lens_model", "TEXT"},
	{"preview_size_kb", "REAL"},
	{"indexed_at", "TEXT"},
}

// runMigrations applies database schema migrations
func (d *Database) runMigrations(ctx context.Context) error {
	for _, col := range migratedColumns {
		var columnExists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*) > 0
			FROM pragma_table_info('raw_photos')
			WHERE name = ?
		`, col.name).Scan(&columnExists)
		if err != nil {
			return fmt.Errorf("failed to check for %s column: %w", col.name, err)
		}
		if columnExists {
			continue
		}

		logging.Info("Migrating database: adding %s column to raw_photos table", col.name)
		if _, err := d.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE raw_photos ADD COLUMN %s %s", col.name, col.decl)); err != nil {
			return fmt.Errorf("failed to add %s column: %w", col.name, err)
		}
	}
	return nil
}

// Path returns the catalog file path.
func (d *Database) Path() string {
	return d.dbPath
}

// DB returns the underlying connection pool as a Querier for writes that
// should not be batched.
func (d *Database) DB() Querier {
	return d.db
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a transaction for batch operations.
// The caller is responsible for calling EndBatch when done.
func (d *Database) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	start := time.Now()

	d.mu.Lock()
	// The transaction outlives this call; EndBatch decides its fate, so it
	// must not be bound to a request-scoped deadline.
	tx, err := d.db.BeginTx(context.WithoutCancel(ctx), nil)
	d.mu.Unlock()

	recordQuery("begin_transaction", start, err)
	if err != nil {
		return nil, err
	}

	d.txStart = start
	return tx, nil
}

// EndBatch commits or rolls back a transaction. A failed commit is not
// retried: database/sql marks the transaction done before the driver
// runs, and SQLite rolls it back on SQLITE_BUSY. Lock failures wrap
// ErrLocked.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		start := time.Now()
		rbErr := tx.Rollback()
		recordQuery("rollback", start, rbErr)
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	start := time.Now()
	commitErr := d.commit(tx)
	recordQuery("commit", start, commitErr)
	if commitErr == nil {
		return nil
	}
	if IsLockError(commitErr) {
		metrics.DBLockFailures.WithLabelValues("commit").Inc()
		return fmt.Errorf("commit batch: %w", errors.Join(ErrLocked, commitErr))
	}
	return fmt.Errorf("commit batch: %w", commitErr)
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	logging.Debug("Database directory is writable")

	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := dbPath + suffix
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Catalog file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		if suffix == "" {
			logging.Warn("Database file is read-only! Mode: %v", info.Mode())
			continue
		}
		logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix %s permissions: %v", path, chmodErr)
		} else {
			logging.Info("Fixed %s permissions", path)
		}
	}

	return nil
}
