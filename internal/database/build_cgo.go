//go:build !purego

package database

// Default build: CGO SQLite via github.com/mattn/go-sqlite3.
//
//   CGO_ENABLED=1 go build ./...

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered for this build.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)

func dataSourceName(path string, readOnly bool, busyTimeoutMs int) string {
	if readOnly {
		return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", path, busyTimeoutMs)
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=%d",
		path, busyTimeoutMs)
}

func driverLockError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
