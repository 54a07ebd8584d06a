// Package services sits between the HTTP handlers and the warehouse:
// HealthService reports warehouse readiness and the last pipeline run,
// ReportService serves a cached OLAP report.
package services
