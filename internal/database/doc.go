// Package database provides the SQLite catalog of RAW photos.
//
// Each RAW file has exactly one row in the raw_photos table, keyed by its
// path and replaced wholesale on every write. The catalog runs in WAL mode
// so searches can read while a scan writes. Writes that fail with
// SQLITE_BUSY or SQLITE_LOCKED are retried with a linear backoff before
// being reported as a *WriteError.
//
// The driver is chosen at build time: github.com/mattn/go-sqlite3 by
// default, or modernc.org/sqlite with -tags purego.
//
// The same Filter and Select machinery also reads the external JPG catalog
// (table photos), opened with Options.ReadOnly.
package database
