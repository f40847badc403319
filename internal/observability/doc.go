// Package observability provides the storefront's structured logger,
// Prometheus metrics and HTTP metrics middleware.
package observability
