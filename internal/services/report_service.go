package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"smartsales/internal/infrastructure"
	"smartsales/internal/olap"
)

// ReportService serves the OLAP report, recomputing it only when the
// warehouse file has changed since the cached copy was built
type ReportService struct {
	reporter      *olap.Reporter
	warehouseFile string
	logger        *slog.Logger

	mu      sync.Mutex
	cached  *olap.Report
	modTime time.Time
}

// NewReportService creates a report service over warehouseFile
func NewReportService(warehouseFile string, logger *slog.Logger, telemetry *infrastructure.Telemetry) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		reporter:      olap.NewReporter(warehouseFile, logger, telemetry),
		warehouseFile: warehouseFile,
		logger:        logger.With(slog.String("component", "report_service")),
	}
}

// Report returns the current report
func (s *ReportService) Report(ctx context.Context) (*olap.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modTime time.Time
	if info, err := os.Stat(s.warehouseFile); err == nil {
		modTime = info.ModTime()
		if s.cached != nil && modTime.Equal(s.modTime) {
			return s.cached, nil
		}
	}

	report, err := s.reporter.Report(ctx)
	if err != nil {
		s.cached = nil
		return nil, err
	}
	s.cached, s.modTime = report, modTime
	s.logger.InfoContext(ctx, "Report refreshed",
		slog.Int("facts", report.Facts),
		slog.Int("categories", len(report.Categories)))
	return report, nil
}
