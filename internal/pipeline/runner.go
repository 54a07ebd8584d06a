package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"smartsales/internal/charts"
	"smartsales/internal/config"
	"smartsales/internal/exporter"
	"smartsales/internal/infrastructure"
	"smartsales/internal/olap"
	"smartsales/internal/preparation"
	"smartsales/internal/warehouse"
)

// Stage names
const (
	StagePrepare = "prepare"
	StageLoad    = "load"
	StageReport  = "report"
)

// ReportOutput is what the report stage produced
type ReportOutput struct {
	Report  *olap.Report
	Exports []string
	Figures []string
}

// Runner executes the pipeline stages against one project layout. Calls are
// serialized so a scheduled run never overlaps a manual one.
type Runner struct {
	cfg       *config.Config
	paths     *config.Paths
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
	mu        sync.Mutex
}

// NewRunner creates a runner
func NewRunner(cfg *config.Config, paths *config.Paths, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = infrastructure.NewNoopTelemetry()
	}
	return &Runner{
		cfg:       cfg,
		paths:     paths,
		logger:    logger.With(slog.String("component", "pipeline")),
		telemetry: telemetry,
	}
}

// Paths returns the layout the runner works on
func (r *Runner) Paths() *config.Paths { return r.paths }

// Prepare cleans the named datasets, or all of them
func (r *Runner) Prepare(ctx context.Context, datasets ...string) ([]*preparation.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prepare(ctx, nil, datasets)
}

// Load rebuilds the warehouse from the processed files
func (r *Runner) Load(ctx context.Context) (*warehouse.LoadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx, nil)
}

// Report runs the OLAP analysis and writes CSV exports and charts
func (r *Runner) Report(ctx context.Context) (*ReportOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report(ctx, nil)
}

// RunAll runs prepare, load and report under one run id. The manifest is
// saved and metrics are flushed whether or not a stage failed.
func (r *Runner) RunAll(ctx context.Context) (*RunManifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := infrastructure.GenerateTraceID()
	ctx = infrastructure.WithTraceID(ctx, runID)
	manifest := NewRunManifest(runID)

	ctx, span := r.telemetry.StartSpan(ctx, "pipeline.run", attribute.String("run_id", runID))
	defer span.End()

	r.logger.InfoContext(ctx, "Pipeline run started")
	start := time.Now()

	err := r.runStages(ctx, manifest)
	manifest.Finish(err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		r.logger.ErrorContext(ctx, "Pipeline run failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
	} else {
		r.logger.InfoContext(ctx, "Pipeline run completed", slog.Duration("duration", time.Since(start)))
	}

	if saveErr := manifest.SaveToFile(r.paths.ReportFile(ManifestFile)); saveErr != nil {
		r.logger.WarnContext(ctx, "Failed to save run manifest", slog.String("error", saveErr.Error()))
	}
	r.flushMetrics(ctx)
	return manifest, err
}

func (r *Runner) runStages(ctx context.Context, manifest *RunManifest) error {
	if _, err := r.prepare(ctx, manifest, nil); err != nil {
		return err
	}
	if _, err := r.load(ctx, manifest); err != nil {
		return err
	}
	_, err := r.report(ctx, manifest)
	return err
}

func (r *Runner) prepare(ctx context.Context, manifest *RunManifest, datasets []string) ([]*preparation.Result, error) {
	var results []*preparation.Result
	err := r.stage(ctx, manifest, StagePrepare, func(ctx context.Context) ([]string, error) {
		preparer := preparation.NewPreparer(r.paths, r.cfg.Cleaning, r.logger, r.telemetry)
		var err error
		results, err = preparer.PrepareAll(ctx, datasets...)
		outputs := make([]string, len(results))
		for i, res := range results {
			outputs[i] = res.Output
		}
		return outputs, err
	})
	return results, err
}

func (r *Runner) load(ctx context.Context, manifest *RunManifest) (*warehouse.LoadResult, error) {
	var result *warehouse.LoadResult
	err := r.stage(ctx, manifest, StageLoad, func(ctx context.Context) ([]string, error) {
		store, err := warehouse.Open(ctx, r.paths.WarehouseFile, r.logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		loader := warehouse.NewLoader(store, r.cfg.Warehouse, r.logger, r.telemetry)
		result, err = loader.Run(ctx, warehouse.SourcesFromPaths(r.paths))
		if err != nil {
			return nil, err
		}
		return []string{result.Path}, nil
	})
	return result, err
}

func (r *Runner) report(ctx context.Context, manifest *RunManifest) (*ReportOutput, error) {
	var out *ReportOutput
	err := r.stage(ctx, manifest, StageReport, func(ctx context.Context) ([]string, error) {
		report, err := olap.NewReporter(r.paths.WarehouseFile, r.logger, r.telemetry).Report(ctx)
		if err != nil {
			return nil, err
		}
		out = &ReportOutput{Report: report}

		out.Exports, err = exporter.NewCSVWriter(r.paths, r.logger).ExportReport(report)
		if err != nil {
			return out.Exports, err
		}
		out.Figures, err = charts.NewRenderer(r.paths.FiguresDir, r.logger).Render(ctx, report)
		return append(append([]string{}, out.Exports...), out.Figures...), err
	})
	return out, err
}

// stage wraps fn in a span, stage logs and the stage duration metric
func (r *Runner) stage(ctx context.Context, manifest *RunManifest, name string, fn func(context.Context) ([]string, error)) error {
	ctx, span := r.telemetry.StartSpan(ctx, "pipeline."+name, attribute.String("stage", name))
	defer span.End()

	if manifest != nil {
		manifest.RecordStageStart(name)
	}
	r.logger.InfoContext(ctx, "Stage started", slog.String("stage", name))
	start := time.Now()

	outputs, err := fn(ctx)
	duration := time.Since(start)
	r.telemetry.Metrics.RecordStage(ctx, name, duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		if manifest != nil {
			manifest.RecordStageFailure(name, err)
		}
		r.logger.ErrorContext(ctx, "Stage failed",
			slog.String("stage", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		return err
	}

	if manifest != nil {
		manifest.RecordStageCompletion(name, outputs)
	}
	r.logger.InfoContext(ctx, "Stage completed",
		slog.String("stage", name),
		slog.Int("outputs", len(outputs)),
		slog.Duration("duration", duration))
	return nil
}

// FlushMetrics writes the metrics registry to the configured textfile
func (r *Runner) FlushMetrics(ctx context.Context) {
	r.flushMetrics(ctx)
}

func (r *Runner) flushMetrics(ctx context.Context) {
	if err := r.telemetry.WriteMetrics(r.paths.MetricsFile); err != nil {
		r.logger.WarnContext(ctx, "Failed to write metrics", slog.String("error", err.Error()))
	}
}
