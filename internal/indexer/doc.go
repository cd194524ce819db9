// Package indexer runs scans: it finds RAW files under a directory,
// renders a preview for each one that lacks it, and records the photo in
// the catalog.
//
// A preview on disk means the file is done; a second scan over an
// unchanged tree does nothing. Decoding runs on a small worker pool while a
// single writer owns the catalog and commits every BatchSize conversions.
// Failures are counted per file and never stop the run:
//   - a decode, encode or write failure leaves no preview and no row
//   - a catalog failure leaves the preview without a row
//
// Previews left without a row (an interrupted run, a failed commit) are
// restored by a later scan with Options.Reconcile.
package indexer
