// Package http implements the read-only HTTP API over the warehouse.
//
// Handlers stay thin: they parse query parameters, call a service and render
// JSON with chi/render. Failures go through errors.ErrorHandler and come back
// as RFC 7807 problem documents. A warehouse that has not been loaded yet
// answers 503 with error_code WAREHOUSE_NOT_LOADED.
//
//	GET /api/health                   warehouse counts and last pipeline run
//	GET /api/olap/categories          ?limit=N
//	GET /api/olap/category-regions    ?category=NAME
//	GET /api/olap/pivot
//	GET /metrics                      Prometheus text format
package http
