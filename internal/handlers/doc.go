// Package handlers provides the read-only HTTP API served by rawcat serve.
//
// It includes handlers for:
//   - Searching the JPG and RAW catalogs together
//   - Match counts per catalog
//   - RAW catalog statistics and the last recorded scan
//   - Health, version and Prometheus metrics
package handlers
