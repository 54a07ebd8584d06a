package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsales/internal/config"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Output = "file"
	cfg.Server.Port = 0

	a, err := NewWithConfig(cfg, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNewWithConfig_CreatesLayout(t *testing.T) {
	a := newTestApp(t)

	for _, dir := range []string{a.Paths.RawDir, a.Paths.ProcessedDir, a.Paths.FiguresDir, a.Paths.ReportsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.FileExists(t, a.Paths.LogFile)
	assert.NotNil(t, a.Runner)
}

func TestHandler_Health(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), VERSION)
}

func TestServe_StopsOnCancel(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_MissingConfigFile(t *testing.T) {
	_, err := New("does-not-exist.yaml", t.TempDir())
	require.Error(t, err)
}

func TestClose_FlushesMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output = "file"
	a, err := NewWithConfig(cfg, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, a.Close(context.Background()))
	assert.FileExists(t, a.Paths.MetricsFile)
}
