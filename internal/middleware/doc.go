// Package middleware provides the HTTP middleware chain of the read API.
//
// Order: RequestID, RealIP, Telemetry, StructuredLogger, Recoverer and, when
// enabled, the RateLimiter. Errors are written as RFC 7807 problem documents.
package middleware
