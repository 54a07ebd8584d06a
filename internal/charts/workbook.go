package charts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"smartsales/internal/olap"
)

// Workbook sheet names
const (
	SheetCategory       = "Category"
	SheetCategoryRegion = "CategoryRegion"
	SheetPivot          = "Pivot"
)

// WriteWorkbook saves the three aggregates to an xlsx file with a native
// column chart, a stacked column chart over the pivot and a pie chart
func WriteWorkbook(report *olap.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetCategory); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategoryRegion, SheetPivot} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, records := report.CategoryRecords()
	if err := writeRows(f, SheetCategory, header, records, numericFrom(1)); err != nil {
		return err
	}
	header, records = report.CategoryRegionRecords()
	if err := writeRows(f, SheetCategoryRegion, header, records, numericFrom(2)); err != nil {
		return err
	}
	header, records = report.PivotRecords()
	if err := writeRows(f, SheetPivot, header, records, numericFrom(1)); err != nil {
		return err
	}

	if n := len(report.Categories); n > 0 {
		if err := addCategoryCharts(f, n); err != nil {
			return err
		}
	}
	if n := len(report.Pivot.Rows); n > 0 {
		if err := addStackedChart(f, n, len(report.Pivot.Regions)); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// numericFrom marks columns at or after first as numbers
func numericFrom(first int) func(col int) bool {
	return func(col int) bool { return col >= first }
}

func writeRows(f *excelize.File, sheet string, header []string, records [][]string, numeric func(col int) bool) error {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for r, rec := range records {
		values := make([]interface{}, len(rec))
		for c, cell := range rec {
			values[c] = cell
			if numeric(c) {
				var v float64
				if _, err := fmt.Sscan(cell, &v); err == nil {
					values[c] = v
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r, err)
		}
	}
	return nil
}

func addCategoryCharts(f *excelize.File, n int) error {
	series := []excelize.ChartSeries{{
		Name:       fmt.Sprintf("%s!$B$1", SheetCategory),
		Categories: fmt.Sprintf("%s!$A$2:$A$%d", SheetCategory, n+1),
		Values:     fmt.Sprintf("%s!$B$2:$B$%d", SheetCategory, n+1),
	}}
	if err := f.AddChart(SheetCategory, "E2", &excelize.Chart{
		Type:      excelize.Col,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: TitleByCategory}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 640, Height: 320},
	}); err != nil {
		return fmt.Errorf("add category chart: %w", err)
	}
	if err := f.AddChart(SheetCategory, "E20", &excelize.Chart{
		Type:      excelize.Pie,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: TitleShare}},
		Legend:    excelize.ChartLegend{Position: "right"},
		PlotArea:  excelize.ChartPlotArea{ShowPercent: true},
		Dimension: excelize.ChartDimension{Width: 480, Height: 480},
	}); err != nil {
		return fmt.Errorf("add share chart: %w", err)
	}
	return nil
}

// addStackedChart plots the pivot: one series per region column
func addStackedChart(f *excelize.File, rows, regions int) error {
	series := make([]excelize.ChartSeries, regions)
	for j := 0; j < regions; j++ {
		col, err := excelize.ColumnNumberToName(j + 2)
		if err != nil {
			return err
		}
		series[j] = excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", SheetPivot, col),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", SheetPivot, rows+1),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", SheetPivot, col, col, rows+1),
		}
	}
	if err := f.AddChart(SheetPivot, "A"+fmt.Sprint(rows+4), &excelize.Chart{
		Type:      excelize.ColStacked,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: TitleStacked}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 360},
	}); err != nil {
		return fmt.Errorf("add stacked chart: %w", err)
	}
	return nil
}
