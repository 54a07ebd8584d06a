package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"smartsales/internal/config"
	"smartsales/internal/infrastructure"
	"smartsales/internal/pipeline"
	"smartsales/internal/services"
	handlers "smartsales/internal/transport/http"
)

const (
	VERSION = "1.0.0"
	AppName = "SmartSales BI"
)

// Application holds the process-wide collaborators built once at startup
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Runner    *pipeline.Runner

	closeLog func() error
}

// New loads configuration, resolves the project layout under root and
// builds the logger, telemetry and pipeline runner
func New(configFile, root string) (*Application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg, root)
}

// NewWithConfig builds the application from an already loaded config
func NewWithConfig(cfg *config.Config, root string) (*Application, error) {
	paths, err := cfg.ResolvePaths(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	cfg.Logging.FilePath = paths.LogFile
	logger, closeLog, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("root", paths.Root),
		slog.String("warehouse", paths.WarehouseFile))

	return &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: telemetry,
		Runner:    pipeline.NewRunner(cfg, paths, logger, telemetry),
		closeLog:  closeLog,
	}, nil
}

// Handler builds the HTTP read API
func (a *Application) Handler() http.Handler {
	return handlers.NewRouter(handlers.RouterDeps{
		Health:    services.NewHealthService(VERSION, a.Paths, a.Logger),
		Reports:   services.NewReportService(a.Paths.WarehouseFile, a.Logger, a.Telemetry),
		Telemetry: a.Telemetry,
		RateLimit: a.Config.Server.RateLimit,
		Logger:    a.Logger,
	})
}

// Serve runs the HTTP server until ctx is done, then shuts it down
// gracefully
func (a *Application) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "HTTP server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Schedule runs full refreshes on the configured interval until ctx is done
func (a *Application) Schedule(ctx context.Context) error {
	return pipeline.NewScheduler(a.Runner, a.Config.Schedule, a.Logger).Start(ctx)
}

// Close flushes metrics, shuts telemetry down and releases the log file
func (a *Application) Close(ctx context.Context) error {
	a.Runner.FlushMetrics(ctx)

	var errs []error
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
