// Package exporter writes OLAP aggregates as CSV files.
//
// CSVWriter resolves relative file names against the configured reports
// directory (data/reports/olap by default) and can append or prefix a UTF-8
// BOM for spreadsheet tools. ExportReport writes:
//
//	category_revenue.csv         Category, TotalRepeatRevenue, RepeatPurchases
//	category_region_revenue.csv  Category, Region, TotalRepeatRevenue
//	category_region_pivot.csv    Category, <one column per region>, Total
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(paths, logger)
//	files, err := writer.ExportReport(report)
package exporter
