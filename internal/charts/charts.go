// Package charts renders the OLAP aggregates as labelled PNG charts and as
// an xlsx workbook with native charts.
package charts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"smartsales/internal/olap"
)

// Output file names under the figures directory
const (
	FileByCategory = "revenue_by_category.png"
	FileStacked    = "revenue_category_region_stacked.png"
	FileShare      = "revenue_category_share.png"
	FileWorkbook   = "olap_report.xlsx"
)

// Chart titles
const (
	TitleByCategory = "Repeat-Purchase Revenue by Product Category"
	TitleStacked    = "Repeat-Purchase Revenue by Category and Region"
	TitleShare      = "Category Share of Repeat-Purchase Revenue"
)

// Renderer writes chart files into one directory
type Renderer struct {
	dir    string
	logger *slog.Logger
}

// NewRenderer creates a renderer writing to dir
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dir: dir, logger: logger.With(slog.String("component", "charts"))}
}

// Render writes the three PNG charts and the workbook and returns their paths
func (r *Renderer) Render(ctx context.Context, report *olap.Report) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create figures directory: %w", err)
	}

	categories := make([]string, len(report.Categories))
	revenue := make([]float64, len(report.Categories))
	for i, c := range report.Categories {
		categories[i] = c.Category
		revenue[i] = c.TotalRepeatRevenue.InexactFloat64()
	}
	pivotRows := make([]string, len(report.Pivot.Rows))
	matrix := make([][]float64, len(report.Pivot.Rows))
	for i, row := range report.Pivot.Rows {
		pivotRows[i] = row.Category
		matrix[i] = make([]float64, len(row.Values))
		for j, v := range row.Values {
			matrix[i][j] = v.InexactFloat64()
		}
	}

	images := []struct {
		name string
		draw func() ([]byte, error)
	}{
		{FileByCategory, func() ([]byte, error) { return BarPNG(TitleByCategory, categories, revenue) }},
		{FileStacked, func() ([]byte, error) { return StackedBarPNG(TitleStacked, pivotRows, report.Pivot.Regions, matrix) }},
		{FileShare, func() ([]byte, error) { return PiePNG(TitleShare, categories, revenue) }},
	}

	var written []string
	for _, img := range images {
		data, err := img.draw()
		if err != nil {
			return written, fmt.Errorf("render %s: %w", img.name, err)
		}
		path := filepath.Join(r.dir, img.name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		r.logger.InfoContext(ctx, "Saved chart", slog.String("path", path))
	}

	workbook := filepath.Join(r.dir, FileWorkbook)
	if err := WriteWorkbook(report, workbook); err != nil {
		return written, err
	}
	written = append(written, workbook)
	r.logger.InfoContext(ctx, "Saved chart workbook", slog.String("path", workbook))
	return written, nil
}

