/*
Package filesystem provides the filesystem primitives used by the scan
pipeline: stat with retry on stale NFS handles, an existence check built on
it, and atomic file replacement for preview output.

Photo libraries frequently live on network mounts. StatWithRetry retries only
ESTALE errors with exponential backoff (50ms, 100ms, 200ms by default); every
other error is returned immediately.

WriteFileAtomic writes through a temporary file in the destination directory
followed by a rename, so an interrupted write never leaves a truncated preview
that a later scan would mistake for finished output.

Metrics are recorded through an Observer installed with SetObserver; the
metrics package provides the implementation.
*/
package filesystem
