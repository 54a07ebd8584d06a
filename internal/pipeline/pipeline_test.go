package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsales/internal/charts"
	"smartsales/internal/config"
	apperrors "smartsales/internal/errors"
	"smartsales/internal/exporter"
	"smartsales/internal/infrastructure"
	"smartsales/internal/shared/testutil"
)

func newRunner(t *testing.T, seed bool) *Runner {
	t.Helper()
	cfg := config.Default()
	paths, err := cfg.ResolvePaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	if seed {
		testutil.WriteRawFixtures(t, paths)
	}
	return NewRunner(cfg, paths, infrastructure.NewDiscardLogger(), infrastructure.NewNoopTelemetry())
}

func TestRunAll_EndToEnd(t *testing.T) {
	r := newRunner(t, true)

	manifest, err := r.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, manifest.Status)
	assert.NotEmpty(t, manifest.ID)
	require.Len(t, manifest.Stages, 3)
	for i, stage := range []string{StagePrepare, StageLoad, StageReport} {
		assert.Equal(t, stage, manifest.Stages[i].Stage)
		assert.Equal(t, StatusCompleted, manifest.Stages[i].Status)
	}

	paths := r.Paths()
	for _, name := range []string{"customers", "products", "sales"} {
		assert.FileExists(t, paths.ProcessedFile(name))
	}
	assert.FileExists(t, paths.WarehouseFile)
	assert.FileExists(t, paths.ReportFile(exporter.CategoryFile))
	assert.FileExists(t, paths.ReportFile(exporter.PivotFile))
	assert.FileExists(t, paths.FigureFile(charts.FileByCategory))
	assert.FileExists(t, paths.FigureFile(charts.FileWorkbook))
	assert.FileExists(t, paths.MetricsFile)

	saved, err := LoadManifestFromFile(paths.ReportFile(ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, manifest.ID, saved.ID)
	assert.Equal(t, StatusCompleted, saved.Status)
}

func TestStages_Individually(t *testing.T) {
	r := newRunner(t, true)
	ctx := context.Background()

	results, err := r.Prepare(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "customers", results[0].Dataset)

	load, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, load.Counts.Customers)
	assert.Equal(t, 2, load.Counts.Products)
	assert.Equal(t, 4, load.Counts.Sales)

	out, err := r.Report(ctx)
	require.NoError(t, err)
	// only customer 2 buys twice: Electronics 20, Furniture 30
	require.Len(t, out.Report.Categories, 2)
	assert.Equal(t, "Furniture", out.Report.Categories[0].Category)
	assert.Equal(t, "30", out.Report.Categories[0].TotalRepeatRevenue.String())
	assert.Len(t, out.Exports, 3)
	assert.Len(t, out.Figures, 4)
}

func TestPrepare_SelectedDataset(t *testing.T) {
	r := newRunner(t, true)

	results, err := r.Prepare(context.Background(), "products")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].RowsAfter)
	assert.NoFileExists(t, r.Paths().ProcessedFile("customers"))
}

func TestRunAll_FailsOnMissingRaw(t *testing.T) {
	r := newRunner(t, false)

	manifest, err := r.RunAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingInput))

	assert.Equal(t, StatusFailed, manifest.Status)
	require.Len(t, manifest.Stages, 1)
	assert.Equal(t, StagePrepare, manifest.Stages[0].Stage)
	assert.Equal(t, StatusFailed, manifest.Stages[0].Status)
	assert.NotEmpty(t, manifest.Stages[0].Error)
	assert.FileExists(t, r.Paths().ReportFile(ManifestFile))
}

func TestReport_BeforeLoad(t *testing.T) {
	r := newRunner(t, true)
	_, err := r.Report(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingInput))
}

func TestRunManifest_StageLifecycle(t *testing.T) {
	m := NewRunManifest("run-1")
	m.RecordStageStart("a")
	m.RecordStageCompletion("a", []string{"out.csv"})
	m.RecordStageStart("b")
	m.RecordStageFailure("b", errors.New("boom"))
	m.Finish(errors.New("boom"))

	assert.Equal(t, StatusCompleted, m.Stages[0].Status)
	assert.Equal(t, []string{"out.csv"}, m.Stages[0].Outputs)
	assert.Equal(t, StatusFailed, m.Stages[1].Status)
	assert.Equal(t, "boom", m.Stages[1].Error)
	assert.Equal(t, StatusFailed, m.Status)

	path := filepath.Join(t.TempDir(), "nested", ManifestFile)
	require.NoError(t, m.SaveToFile(path))
	loaded, err := LoadManifestFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.ID)
	assert.Len(t, loaded.Stages, 2)
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	r := newRunner(t, true)
	s := NewScheduler(r, config.ScheduleConfig{}, infrastructure.NewDiscardLogger())
	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_RunsOnStart(t *testing.T) {
	r := newRunner(t, true)
	s := NewScheduler(r, config.ScheduleConfig{Interval: time.Hour, RunOnStart: true}, infrastructure.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	manifestPath := r.Paths().ReportFile(ManifestFile)
	require.Eventually(t, func() bool {
		m, err := LoadManifestFromFile(manifestPath)
		return err == nil && m.Status == StatusCompleted
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunAll_LogsOutcome(t *testing.T) {
	cfg := config.Default()
	paths, err := cfg.ResolvePaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	testutil.WriteRawFixtures(t, paths)

	logger, logs := testutil.NewLogger(t)
	r := NewRunner(cfg, paths, logger, infrastructure.NewNoopTelemetry())

	_, err = r.RunAll(context.Background())
	require.NoError(t, err)

	rec := logs.AssertLogged(t, slog.LevelInfo, "Pipeline run completed")
	assert.Equal(t, "pipeline", rec.Attrs["component"])
	logs.AssertNoErrors(t)
}

func TestRunAll_LogsFailure(t *testing.T) {
	cfg := config.Default()
	paths, err := cfg.ResolvePaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	logger, logs := testutil.NewLogger(t)
	r := NewRunner(cfg, paths, logger, infrastructure.NewNoopTelemetry())

	_, err = r.RunAll(context.Background())
	require.Error(t, err)
	logs.AssertLogged(t, slog.LevelError, "Pipeline run failed")
}
