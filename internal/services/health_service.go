package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"smartsales/internal/config"
	"smartsales/internal/pipeline"
	"smartsales/internal/warehouse"
)

// Health statuses
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// HealthService reports whether the warehouse is ready to be queried
type HealthService struct {
	version   string
	paths     *config.Paths
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Warehouse WarehouseHealth        `json:"warehouse"`
	LastRun   *LastRun               `json:"last_run,omitempty"`
}

// WarehouseHealth describes the warehouse file
type WarehouseHealth struct {
	Path    string            `json:"path"`
	Present bool              `json:"present"`
	Counts  *warehouse.Counts `json:"counts,omitempty"`
	Message string            `json:"message,omitempty"`
}

// LastRun summarizes the most recent pipeline manifest
type LastRun struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version string, paths *config.Paths, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status. The service is degraded while
// the warehouse is missing or unreadable.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
		Warehouse: hs.warehouseHealth(ctx),
	}
	if status.Warehouse.Counts == nil {
		status.Status = StatusDegraded
	}

	if manifest, err := pipeline.LoadManifestFromFile(hs.paths.ReportFile(pipeline.ManifestFile)); err == nil {
		status.LastRun = &LastRun{
			ID:        manifest.ID,
			Status:    manifest.Status,
			StartTime: manifest.StartTime,
			EndTime:   manifest.EndTime,
			Error:     manifest.Error,
		}
	}

	hs.logger.DebugContext(ctx, "Health check completed", slog.String("status", status.Status))
	return status
}

func (hs *HealthService) warehouseHealth(ctx context.Context) WarehouseHealth {
	h := WarehouseHealth{Path: hs.paths.WarehouseFile}
	store, err := warehouse.OpenExisting(ctx, hs.paths.WarehouseFile, hs.logger)
	if err != nil {
		h.Message = err.Error()
		return h
	}
	defer store.Close()
	h.Present = true

	counts, err := store.Counts(ctx)
	if err != nil {
		h.Message = err.Error()
		return h
	}
	h.Counts = &counts
	return h
}
