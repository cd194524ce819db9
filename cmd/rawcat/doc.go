// Command rawcat generates JPEG previews for RAW photos, records them in a
// SQLite catalog and searches or serves that catalog.
//
// Usage:
//
//	rawcat scan <directory> [--no-db] [--regenerate] [--reconcile] [--limit N] [--workers N] [--watch]
//	rawcat search [--client X] [--date YYYY-MM-DD] [--camera C] [--location] [--limit N]
//	rawcat serve [--addr :8080]
//
// Interrupting a scan commits the rows gathered so far before exiting.
package main
