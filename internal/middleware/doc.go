// Package middleware provides HTTP middleware for the rawcat API.
//
// It includes:
//   - Structured request logging through the logging package
//   - Prometheus request metrics labelled by route template
//   - Optional filtering of health check and metrics requests
package middleware
