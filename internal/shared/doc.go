// Package shared holds helpers used across several smartsales packages that
// do not belong to any one layer.
//
// testutil provides log capture for asserting on slog output and the raw
// extract fixtures that drive end-to-end pipeline tests. It is imported from
// _test.go files only.
package shared
