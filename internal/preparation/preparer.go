package preparation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"smartsales/internal/config"
	"smartsales/internal/infrastructure"
	"smartsales/internal/scrubber"
	"smartsales/internal/table"
)

// Result summarises one dataset run
type Result struct {
	Dataset       string        `json:"dataset"`
	Source        string        `json:"source"`
	Output        string        `json:"output"`
	RowsBefore    int           `json:"rows_before"`
	RowsAfter     int           `json:"rows_after"`
	ColumnsBefore int           `json:"columns_before"`
	ColumnsAfter  int           `json:"columns_after"`
	Steps         []string      `json:"steps"`
	Duration      time.Duration `json:"duration"`
}

// RowsRemoved returns how many rows cleaning dropped
func (r *Result) RowsRemoved() int { return r.RowsBefore - r.RowsAfter }

// Preparer turns raw extracts into cleaned CSVs
type Preparer struct {
	paths     *config.Paths
	cfg       config.CleaningConfig
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
}

// NewPreparer creates a preparer. A nil logger or telemetry falls back to
// the default logger and a no-op recorder.
func NewPreparer(paths *config.Paths, cfg config.CleaningConfig, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = infrastructure.NewNoopTelemetry()
	}
	return &Preparer{
		paths:     paths,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "preparation")),
		telemetry: telemetry,
	}
}

// Prepare cleans one dataset and writes it to the processed directory
func (p *Preparer) Prepare(ctx context.Context, name string) (*Result, error) {
	ds, err := Lookup(name)
	if err != nil {
		return nil, err
	}

	ctx, span := p.telemetry.StartSpan(ctx, "preparation.prepare",
		attribute.String("dataset", ds.Name))
	defer span.End()

	start := time.Now()
	logger := p.logger.With(slog.String("dataset", ds.Name))
	logger.InfoContext(ctx, "Starting data preparation")

	raw, source, err := p.readRaw(ds.Name)
	if err == nil {
		err = table.RequireRows(raw, source)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logger.ErrorContext(ctx, "Failed to read raw data", slog.String("error", err.Error()))
		return nil, err
	}
	p.telemetry.Metrics.RecordRead(ctx, ds.Name, raw.NumRows())
	logger.InfoContext(ctx, "Raw data loaded",
		slog.String("path", source),
		slog.Int("rows", raw.NumRows()),
		slog.Int("columns", raw.NumCols()))

	recipe := ds.Recipe(p.cfg)
	s := scrubber.New(raw,
		scrubber.WithLogger(logger),
		scrubber.WithMetrics(p.telemetry.Metrics, ds.Name),
		scrubber.WithContext(ctx)).
		Apply(recipe)

	output := p.paths.ProcessedFile(ds.Name)
	if err := s.WriteCSV(output); err != nil {
		err = fmt.Errorf("prepare %s: %w", ds.Name, err)
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	p.telemetry.Metrics.RecordWritten(ctx, ds.Name, s.NumRows())

	result := &Result{
		Dataset:       ds.Name,
		Source:        source,
		Output:        output,
		RowsBefore:    raw.NumRows(),
		RowsAfter:     s.NumRows(),
		ColumnsBefore: raw.NumCols(),
		ColumnsAfter:  len(s.ColumnNames()),
		Steps:         recipe.Names(),
		Duration:      time.Since(start),
	}
	logger.InfoContext(ctx, "Data preparation complete",
		slog.Int("rows_before", result.RowsBefore),
		slog.Int("rows_after", result.RowsAfter),
		slog.Int("rows_removed", result.RowsRemoved()),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// PrepareAll prepares the named datasets in order, or every dataset when
// none are named. It stops at the first failure; outputs already written
// are left in place.
func (p *Preparer) PrepareAll(ctx context.Context, names ...string) ([]*Result, error) {
	if len(names) == 0 {
		names = Names()
	}
	results := make([]*Result, 0, len(names))
	for _, name := range names {
		result, err := p.Prepare(ctx, name)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// readRaw loads the raw CSV, or the workbook of the same name when only
// that exists
func (p *Preparer) readRaw(dataset string) (*table.Table, string, error) {
	csvPath := p.paths.RawFile(dataset)
	if !config.FileExists(csvPath) {
		if xlsxPath := p.paths.RawWorkbook(dataset); config.FileExists(xlsxPath) {
			t, err := table.ReadXLSX(xlsxPath, "")
			return t, xlsxPath, err
		}
	}
	t, err := table.ReadCSV(csvPath)
	return t, csvPath, err
}
