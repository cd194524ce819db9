//go:build purego

package database

// Pure Go SQLite via modernc.org/sqlite, no C toolchain required.
//
//   CGO_ENABLED=0 go build -tags purego ./...

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	// DriverName is the database/sql driver registered for this build.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)

func dataSourceName(path string, readOnly bool, busyTimeoutMs int) string {
	if readOnly {
		return fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", path, busyTimeoutMs)
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=busy_timeout(%d)",
		path, busyTimeoutMs)
}

func driverLockError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended result codes carry the primary code in the low byte.
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
